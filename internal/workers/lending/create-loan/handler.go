// internal/workers/lending/create-loan/handler.go
package createloan

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"

	"credit-approval-workers/internal/common/errors"
	"credit-approval-workers/internal/common/logger"
	"credit-approval-workers/internal/common/metrics"
	"credit-approval-workers/internal/common/observability"
	"credit-approval-workers/internal/common/validation"
	"credit-approval-workers/internal/credit"
	"credit-approval-workers/internal/lending"
	"credit-approval-workers/internal/models"
)

const (
	TaskType = "create-loan"

	MessageLoanCreated = "Loan approved successfully"
)

var (
	ErrCustomerNotFound     = credit.ErrBorrowerNotFound
	ErrInvalidLoanRequest   = credit.ErrInvalidRequest
	ErrDatabaseInsertFailed = stderrors.New("DATABASE_INSERT_FAILED")
)

type LoanStore interface {
	CreateLoan(ctx context.Context, req credit.Request, now time.Time) (*lending.LoanOutcome, error)
}

type CacheInvalidator interface {
	Invalidate(ctx context.Context, customerID int64) error
}

type LoanIndexer interface {
	IndexLoan(ctx context.Context, loan models.Loan) error
}

type Dependencies struct {
	Store     LoanStore
	Cache     CacheInvalidator
	Indexer   LoanIndexer
	Validator *validation.Validator
	Obs       *observability.Observability
	Clock     func() time.Time
}

type Handler struct {
	config     *Config
	deps       Dependencies
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, deps Dependencies, log logger.Logger) *Handler {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		deps:       deps,
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

	result, err := h.deps.Validator.ValidateVariables(TaskType, job.Variables)
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
		return nil, fmt.Errorf("%w: input cannot be nil", ErrInvalidLoanRequest)
	}

	ctx, span := h.deps.Obs.StartSpan(ctx, "loan.create",
		attribute.Int64("customer.id", input.CustomerID),
		attribute.Float64("loan.amount", input.LoanAmount),
	)
	defer span.End()

	outcome, err := h.deps.Store.CreateLoan(ctx, credit.Request{
		BorrowerID:   input.CustomerID,
		Principal:    input.LoanAmount,
		InterestRate: input.InterestRate,
		TenureMonths: input.Tenure,
	}, h.deps.Clock())
	if err != nil {
		span.RecordError(err)
		if stderrors.Is(err, ErrCustomerNotFound) || stderrors.Is(err, ErrInvalidLoanRequest) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrDatabaseInsertFailed, err)
	}

	res := outcome.Result
	output := &Output{
		CustomerID:            input.CustomerID,
		LoanApproved:          outcome.Loan != nil,
		Message:               res.Reason,
		CorrectedInterestRate: res.CorrectedInterestRate,
	}
	if outcome.Loan == nil {
		h.logger.Info("loan not approved", map[string]interface{}{
			"customerId": input.CustomerID,
			"reason":     res.Reason,
		})
		return output, nil
	}

	loan := *outcome.Loan
	output.LoanID = &loan.ID
	output.Message = MessageLoanCreated
	output.MonthlyInstallment = &loan.MonthlyRepayment
	span.SetAttributes(attribute.Int64("loan.id", loan.ID))
	metrics.LoansCreated.Inc()

	h.afterCommit(ctx, loan)

	h.logger.Info("loan created", map[string]interface{}{
		"loanId":       loan.ID,
		"customerId":   loan.CustomerID,
		"interestRate": loan.InterestRate,
		"installment":  loan.MonthlyRepayment,
	})
	return output, nil
}

// afterCommit refreshes derived stores. Failures here are logged only; the
// loan row is already committed.
func (h *Handler) afterCommit(ctx context.Context, loan models.Loan) {
	if h.deps.Cache != nil {
		if err := h.deps.Cache.Invalidate(ctx, loan.CustomerID); err != nil {
			h.logger.Warn("borrower cache invalidation failed", map[string]interface{}{
				"error":      err,
				"customerId": loan.CustomerID,
			})
		}
	}
	if h.config.IndexLoans && h.deps.Indexer != nil {
		if err := h.deps.Indexer.IndexLoan(ctx, loan); err != nil {
			h.logger.Warn("loan indexing failed", map[string]interface{}{
				"error":  err,
				"loanId": loan.ID,
			})
		}
	}
}

func toStandardError(err error, input *Input) *errors.StandardError {
	var verr *credit.ValidationError
	switch {
	case stderrors.As(err, &verr):
		return errors.NewInvalidLoanRequestError(fmt.Sprintf("%s: %s", verr.Field, verr.Reason)).
			WithMetadata("field", verr.Field)
	case stderrors.Is(err, ErrInvalidLoanRequest):
		return errors.NewInvalidLoanRequestError(err.Error())
	case stderrors.Is(err, ErrCustomerNotFound):
		return errors.NewCustomerNotFoundError(input.CustomerID)
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
	h.deps.Obs.RecordJobProcessed(ctx, TaskType, "completed")
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, stdErr *errors.StandardError) {
	metrics.RecordOutcome(TaskType, string(stdErr.Code))
	h.deps.Obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
