// internal/workers/lending/send-loan-notification/handler.go
package sendloannotification

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"credit-approval-workers/internal/common/errors"
	"credit-approval-workers/internal/common/logger"
	"credit-approval-workers/internal/common/metrics"
	"credit-approval-workers/internal/common/validation"
	"credit-approval-workers/internal/credit"
	"credit-approval-workers/internal/lending"
	"credit-approval-workers/internal/models"
)

const (
	TaskType = "send-loan-notification"
)

var (
	ErrTemplateNotFound     = stderrors.New("TEMPLATE_NOT_FOUND")
	ErrQueryExecutionFailed = stderrors.New("QUERY_EXECUTION_FAILED")
)

type CustomerLookup interface {
	FindCustomer(ctx context.Context, id int64) (*models.Customer, error)
}

// EmailSender is satisfied by *aws.SESClient.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) (string, error)
}

// SMSSender is satisfied by *aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config     *Config
	customers  CustomerLookup
	email      EmailSender
	sms        SMSSender
	validator  *validation.Validator
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, customers CustomerLookup, email EmailSender, sms SMSSender, validator *validation.Validator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		customers:  customers,
		email:      email,
		sms:        sms,
		validator:  validator,
		errHandler: errors.NewErrorHandler(l),
		logger:     l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	result, err := h.validator.ValidateVariables(TaskType, job.Variables)
	if err != nil {
		h.failJob(ctx, client, job, errors.NewInputValidationError(err.Error()))
		return
	}
	if !result.Valid {
		h.failJob(ctx, client, job, errors.NewInputValidationError(strings.Join(result.GetErrorMessages(), "; ")))
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(ctx, client, job, errors.NewInputValidationError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		var stdErr *errors.StandardError
		switch {
		case stderrors.Is(err, ErrTemplateNotFound):
			stdErr = errors.NewTemplateNotFoundError(input.NotificationType)
		default:
			stdErr = errors.NewQueryExecutionFailedError("customer_contact", err)
		}
		h.failJob(ctx, client, job, stdErr)
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	template, exists := h.config.Templates[input.NotificationType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, input.NotificationType)
	}

	notificationID := uuid.New().String()
	sentAt := time.Now().UTC().Format(time.RFC3339)

	customer, err := h.customers.FindCustomer(ctx, input.CustomerID)
	if stderrors.Is(err, lending.ErrCustomerNotFound) {
		h.logger.Warn("recipient not found", map[string]interface{}{
			"customerId": input.CustomerID,
		})
		return &Output{NotificationID: notificationID, Status: StatusDisabled, Channels: []string{}, SentAt: sentAt}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	data := map[string]interface{}{
		"customerId":       customer.ID,
		"firstName":        customer.FirstName,
		"lastName":         customer.LastName,
		"notificationType": input.NotificationType,
	}
	if input.LoanID != nil {
		data["loanId"] = *input.LoanID
	}
	for k, v := range input.Metadata {
		data[k] = v
	}

	subject := renderTemplate(template.Subject, data)
	body := renderTemplate(template.Body, data)

	channels := []string{}
	attempted := 0

	if h.config.EmailEnabled && h.email != nil && customer.Email != "" {
		attempted++
		if _, err := h.email.SendEmail(ctx, customer.Email, subject, body); err != nil {
			h.logSendFailure(ChannelEmail, input, err)
		} else {
			channels = append(channels, ChannelEmail)
		}
	}

	if h.config.SMSEnabled && h.sms != nil && customer.PhoneNumber != "" {
		attempted++
		if _, err := h.sms.SendSMS(ctx, customer.PhoneNumber, body); err != nil {
			h.logSendFailure(ChannelSMS, input, err)
		} else {
			channels = append(channels, ChannelSMS)
		}
	}

	status := StatusDisabled
	switch {
	case len(channels) > 0:
		status = StatusSent
	case attempted > 0:
		status = StatusFailed
	}

	h.logger.Info("notification processed", map[string]interface{}{
		"notificationId": notificationID,
		"customerId":     input.CustomerID,
		"type":           input.NotificationType,
		"status":         status,
		"channels":       channels,
	})

	return &Output{
		NotificationID: notificationID,
		Status:         status,
		Channels:       channels,
		SentAt:         sentAt,
	}, nil
}

func (h *Handler) logSendFailure(channel string, input *Input, err error) {
	stdErr := errors.NewNotificationSendFailedError(channel, err)
	h.logger.Error("notification send failed", map[string]interface{}{
		"errorCode":  string(stdErr.Code),
		"details":    stdErr.Details,
		"customerId": input.CustomerID,
	})
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.RecordOutcome(TaskType, "")
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, stdErr *errors.StandardError) {
	metrics.RecordOutcome(TaskType, string(stdErr.Code))
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
}

// renderTemplate replaces {{key}} placeholders in one pass over tmpl;
// unknown placeholders render empty and substituted values are not rescanned.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	var b strings.Builder
	b.Grow(len(tmpl))

	rest := tmpl
	for {
		start := strings.Index(rest, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(rest[start+2:], "}}")
		if end == -1 {
			break
		}
		b.WriteString(rest[:start])
		key := rest[start+2 : start+2+end]
		b.WriteString(formatValue(data[key]))
		rest = rest[start+2+end+2:]
	}
	b.WriteString(rest)
	return b.String()
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(credit.RoundMoney(t), 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
