// internal/models/notification.go
package models

type Notification struct {
	ID         string                 `json:"id"`
	CustomerID int64                  `json:"customerId"`
	LoanID     *int64                 `json:"loanId,omitempty"`
	Type       string                 `json:"type"`    // "loan_approved", "loan_rejected"
	Channel    string                 `json:"channel"` // "email", "sms"
	Status     string                 `json:"status"`  // "sent", "failed", "disabled"
	Payload    map[string]interface{} `json:"payload"`
	SentAt     string                 `json:"sentAt"`
}

type NotificationTemplate struct {
	Type    string `json:"type" mapstructure:"type"`
	Subject string `json:"subject" mapstructure:"subject"`
	Body    string `json:"body" mapstructure:"body"`
}
