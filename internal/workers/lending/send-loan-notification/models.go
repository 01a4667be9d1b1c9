// internal/workers/lending/send-loan-notification/models.go
package sendloannotification

type Input struct {
	CustomerID       int64                  `json:"customerId"`
	LoanID           *int64                 `json:"loanId,omitempty"`
	NotificationType string                 `json:"notificationType"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

type Output struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"` // "sent", "failed", "disabled"
	Channels       []string `json:"channels"`
	SentAt         string   `json:"sentAt"` // ISO 8601
}

// Notification types
const (
	TypeLoanApproved = "loan_approved"
	TypeLoanRejected = "loan_rejected"
)

// Statuses
const (
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
)

// Channels
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
