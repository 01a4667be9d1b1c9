// internal/workers/lending/send-loan-notification/config.go
package sendloannotification

import (
	"time"

	"credit-approval-workers/internal/common/config"
	"credit-approval-workers/internal/models"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	Timeout      time.Duration
	Templates    map[string]models.NotificationTemplate
}

// LoadConfig starts from the built-in templates; templates in the
// notifications section override them by type.
func LoadConfig(wc config.WorkerConfig, nc config.NotificationConfig) *Config {
	timeout := config.GetDuration(wc.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	templates := DefaultTemplates()
	for _, t := range nc.Templates {
		if t.Type != "" {
			templates[t.Type] = t
		}
	}

	return &Config{
		EmailEnabled: nc.Email.Enabled,
		SMSEnabled:   nc.SMS.Enabled,
		Timeout:      timeout,
		Templates:    templates,
	}
}

func DefaultTemplates() map[string]models.NotificationTemplate {
	return map[string]models.NotificationTemplate{
		TypeLoanApproved: {
			Type:    TypeLoanApproved,
			Subject: "Your loan {{loanId}} has been approved",
			Body: "Hello {{firstName}}, your loan {{loanId}} has been approved at {{correctedInterestRate}}% " +
				"with a monthly installment of {{monthlyInstallment}}.",
		},
		TypeLoanRejected: {
			Type:    TypeLoanRejected,
			Subject: "Update on your loan request",
			Body:    "Hello {{firstName}}, we could not approve your loan request: {{message}}.",
		},
	}
}
