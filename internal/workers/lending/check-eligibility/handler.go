// internal/workers/lending/check-eligibility/handler.go
package checkeligibility

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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"credit-approval-workers/internal/common/errors"
	"credit-approval-workers/internal/common/logger"
	"credit-approval-workers/internal/common/metrics"
	"credit-approval-workers/internal/common/observability"
	"credit-approval-workers/internal/common/validation"
	"credit-approval-workers/internal/credit"
)

const (
	TaskType = "check-eligibility"
)

var (
	ErrCustomerNotFound     = credit.ErrBorrowerNotFound
	ErrInvalidLoanRequest   = credit.ErrInvalidRequest
	ErrQueryExecutionFailed = stderrors.New("QUERY_EXECUTION_FAILED")
)

// Evaluator is satisfied by *credit.Evaluator.
type Evaluator interface {
	Evaluate(ctx context.Context, req credit.Request) (credit.Result, error)
}

type Handler struct {
	config     *Config
	evaluator  Evaluator
	validator  *validation.Validator
	obs        *observability.Observability
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, evaluator Evaluator, validator *validation.Validator, obs *observability.Observability, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		evaluator:  evaluator,
		validator:  validator,
		obs:        obs,
		errHandler: errors.NewErrorHandler(l),
		logger:     l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if result, err := h.validator.ValidateVariables(TaskType, job.Variables); err != nil || !result.Valid {
		var details string
		if err != nil {
			details = err.Error()
		} else {
			details = strings.Join(result.GetErrorMessages(), "; ")
		}
		h.failJob(ctx, client, job, errors.NewInputValidationError(details), start)
		return
	}

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(ctx, client, job, errors.NewInputValidationError(fmt.Sprintf("parse input: %v", err)), start)
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, toStandardError(err, &input), start)
		return
	}

	h.completeJob(ctx, client, job, output, start)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input cannot be nil", ErrInvalidLoanRequest)
	}

	ctx, span := h.obs.StartSpan(ctx, "credit.evaluate",
		attribute.Int64("customer.id", input.CustomerID),
		attribute.Float64("loan.amount", input.LoanAmount),
		attribute.Int("loan.tenure", input.Tenure),
	)
	defer span.End()

	res, err := h.evaluator.Evaluate(ctx, credit.Request{
		BorrowerID:   input.CustomerID,
		Principal:    input.LoanAmount,
		InterestRate: input.InterestRate,
		TenureMonths: input.Tenure,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if stderrors.Is(err, ErrCustomerNotFound) || stderrors.Is(err, ErrInvalidLoanRequest) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	span.SetAttributes(
		attribute.Bool("loan.approved", res.Approved),
		attribute.String("loan.reason", res.Reason),
	)
	metrics.EligibilityDecisions.WithLabelValues(strconv.FormatBool(res.Approved), res.Reason).Inc()
	if res.Score != nil {
		metrics.CreditScore.Observe(*res.Score)
		h.obs.RecordScore(ctx, *res.Score, res.Approved)
	}

	h.logger.Info("eligibility evaluated", map[string]interface{}{
		"customerId":            input.CustomerID,
		"approved":              res.Approved,
		"correctedInterestRate": res.CorrectedInterestRate,
		"reason":                res.Reason,
	})

	return &Output{
		CustomerID:            input.CustomerID,
		Approval:              res.Approved,
		InterestRate:          res.InterestRate,
		CorrectedInterestRate: res.CorrectedInterestRate,
		Tenure:                input.Tenure,
		MonthlyInstallment:    res.MonthlyInstallment,
		Score:                 res.Score,
		Message:               res.Reason,
	}, nil
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
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewQueryTimeoutError(TaskType)
	default:
		return errors.NewQueryExecutionFailedError(TaskType, err)
	}
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output, start time.Time) {
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
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "completed")
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, stdErr *errors.StandardError, start time.Time) {
	metrics.RecordOutcome(TaskType, string(stdErr.Code))
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(start), "failed")
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
