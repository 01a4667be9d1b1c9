// internal/workers/data-access/query-postgresql/handler.go
package querypostgresql

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
	"credit-approval-workers/internal/workers/data-access/query-postgresql/queries"
)

const (
	TaskType = "query-postgresql"
)

var (
	ErrQueryExecutionFailed = stderrors.New("QUERY_EXECUTION_FAILED")
	ErrQueryTimeout         = stderrors.New("QUERY_TIMEOUT")
	ErrInvalidQueryType     = stderrors.New("INVALID_QUERY_TYPE")
	ErrLoanNotFound         = lending.ErrLoanNotFound
	ErrCustomerNotFound     = lending.ErrCustomerNotFound
)

type Handler struct {
	config     *Config
	reader     queries.Reader
	validator  *validation.Validator
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, reader queries.Reader, validator *validation.Validator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		reader:     reader,
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

	if result, err := h.validator.ValidateVariables(TaskType, job.Variables); err != nil || !result.Valid {
		var details string
		if err != nil {
			details = err.Error()
		} else {
			details = strings.Join(result.GetErrorMessages(), "; ")
		}
		h.failJob(ctx, client, job, errors.NewInputValidationError(details))
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
		return nil, fmt.Errorf("input cannot be nil")
	}

	queryType := models.QueryType(input.QueryType)
	if _, exists := queries.Registry[queryType]; !exists {
		return nil, fmt.Errorf("%w: %s", ErrInvalidQueryType, input.QueryType)
	}

	params := make(map[string]interface{})
	if input.LoanID != nil {
		params["loanId"] = *input.LoanID
	}
	if input.CustomerID != nil {
		params["customerId"] = *input.CustomerID
	}

	data, rowCount, execTime, err := queries.Execute(ctx, h.reader, queryType, params)
	if err != nil {
		switch {
		case stderrors.Is(err, ErrLoanNotFound), stderrors.Is(err, ErrCustomerNotFound):
			return nil, err
		case stderrors.Is(err, queries.ErrMissingParam):
			return nil, fmt.Errorf("%w: %v", ErrInvalidQueryType, err)
		case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, ErrQueryTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	h.logger.Debug("query executed", map[string]interface{}{
		"queryType":     input.QueryType,
		"rowCount":      rowCount,
		"executionTime": execTime,
	})

	return &Output{
		Data:               data,
		RowCount:           rowCount,
		QueryExecutionTime: execTime,
	}, nil
}

func toStandardError(err error, input *Input) *errors.StandardError {
	switch {
	case stderrors.Is(err, ErrLoanNotFound):
		var id int64
		if input.LoanID != nil {
			id = *input.LoanID
		}
		return errors.NewLoanNotFoundError(id)
	case stderrors.Is(err, ErrCustomerNotFound):
		var id int64
		if input.CustomerID != nil {
			id = *input.CustomerID
		}
		return errors.NewCustomerNotFoundError(id)
	case stderrors.Is(err, ErrInvalidQueryType):
		return errors.NewInvalidQueryTypeError(input.QueryType).WithMetadata("reason", err.Error())
	case stderrors.Is(err, ErrQueryTimeout):
		return errors.NewQueryTimeoutError(input.QueryType)
	default:
		return errors.NewQueryExecutionFailedError(input.QueryType, err)
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
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, stdErr *errors.StandardError) {
	metrics.RecordOutcome(TaskType, string(stdErr.Code))
	h.errHandler.HandleJobError(ctx, client, job, stdErr)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
