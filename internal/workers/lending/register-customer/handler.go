// internal/workers/lending/register-customer/handler.go
package registercustomer

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"credit-approval-workers/internal/common/errors"
	"credit-approval-workers/internal/common/logger"
	"credit-approval-workers/internal/common/metrics"
	"credit-approval-workers/internal/common/validation"
	"credit-approval-workers/internal/lending"
	"credit-approval-workers/internal/models"
)

const (
	TaskType = "register-customer"
)

var (
	ErrDuplicateCustomer    = lending.ErrDuplicateCustomer
	ErrDatabaseInsertFailed = stderrors.New("DATABASE_INSERT_FAILED")
	ErrInvalidInput         = stderrors.New("INPUT_VALIDATION_FAILED")
)

// CustomerStore is the slice of lending.Store this worker needs.
type CustomerStore interface {
	RegisterCustomer(ctx context.Context, c *models.Customer) error
}

type Handler struct {
	config     *Config
	store      CustomerStore
	validator  *validation.Validator
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, store CustomerStore, validator *validation.Validator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		store:      store,
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
		h.failJob(ctx, client, job, toStandardError(err, &input))
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input cannot be nil", ErrInvalidInput)
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.PhoneNumber) == "" {
		return nil, fmt.Errorf("%w: firstName and phoneNumber are required", ErrInvalidInput)
	}
	if input.MonthlyIncome < 0 {
		return nil, fmt.Errorf("%w: monthlyIncome must not be negative", ErrInvalidInput)
	}

	customer := &models.Customer{
		FirstName:     strings.TrimSpace(input.FirstName),
		LastName:      strings.TrimSpace(input.LastName),
		Age:           input.Age,
		PhoneNumber:   strings.TrimSpace(input.PhoneNumber),
		Email:         strings.TrimSpace(input.Email),
		MonthlySalary: input.MonthlyIncome,
	}
	if err := h.store.RegisterCustomer(ctx, customer); err != nil {
		if stderrors.Is(err, lending.ErrDuplicateCustomer) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseInsertFailed, err)
	}

	h.logger.Info("customer registered", map[string]interface{}{
		"customerId":    customer.ID,
		"approvedLimit": customer.ApprovedLimit,
	})

	return &Output{
		CustomerID:    customer.ID,
		Name:          customer.FullName(),
		Age:           customer.Age,
		MonthlySalary: customer.MonthlySalary,
		ApprovedLimit: customer.ApprovedLimit,
		PhoneNumber:   customer.PhoneNumber,
	}, nil
}

func toStandardError(err error, input *Input) *errors.StandardError {
	switch {
	case stderrors.Is(err, ErrDuplicateCustomer):
		return errors.NewDuplicateCustomerError(input.PhoneNumber)
	case stderrors.Is(err, ErrInvalidInput):
		return errors.NewInputValidationError(err.Error())
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewTimeoutError("postgres", err)
	default:
		return errors.NewDatabaseInsertFailedError(err)
	}
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
	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":     job.Key,
		"customerId": output.CustomerID,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, stdErr *errors.StandardError) {
	metrics.RecordOutcome(TaskType, string(stdErr.Code))
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
