// internal/workers/data-access/query-elasticsearch/handler.go
package queryelasticsearch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"

	"credit-approval-workers/internal/common/errors"
	"credit-approval-workers/internal/common/logger"
	"credit-approval-workers/internal/common/metrics"
	"credit-approval-workers/internal/common/validation"
	"credit-approval-workers/internal/models"
	"credit-approval-workers/internal/workers/data-access/query-elasticsearch/queries"
)

const (
	TaskType = "query-elasticsearch"
)

var (
	ErrElasticsearchConnectionFailed = stderrors.New("ELASTICSEARCH_CONNECTION_FAILED")
	ErrSearchQueryFailed             = stderrors.New("SEARCH_QUERY_FAILED")
	ErrSearchTimeout                 = stderrors.New("SEARCH_TIMEOUT")
	ErrIndexNotFound                 = stderrors.New("INDEX_NOT_FOUND")
	ErrInvalidSearchType             = stderrors.New("INVALID_QUERY_TYPE")
)

type Handler struct {
	config     *Config
	client     *elasticsearch.Client
	validator  *validation.Validator
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, client *elasticsearch.Client, validator *validation.Validator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		client:     client,
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
		h.failJob(ctx, client, job, h.toStandardError(err, &input))
		return
	}

	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: input cannot be nil", ErrInvalidSearchType)
	}

	result, err := queries.Execute(ctx, h.client, queries.LoanSearch{
		Index:      h.config.Index,
		SearchType: models.SearchType(input.SearchType),
		Filters:    input.Filters,
		From:       input.From,
		Size:       input.Size,
	})
	if err != nil {
		switch {
		case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, ErrSearchTimeout
		case stderrors.Is(err, queries.ErrUnknownSearchType), stderrors.Is(err, queries.ErrMissingFilter):
			return nil, fmt.Errorf("%w: %v", ErrInvalidSearchType, err)
		case stderrors.Is(err, queries.ErrIndexNotFound), stderrors.Is(err, queries.ErrMissingIndex):
			return nil, fmt.Errorf("%w: %v", ErrIndexNotFound, err)
		case stderrors.Is(err, queries.ErrConnection):
			return nil, fmt.Errorf("%w: %v", ErrElasticsearchConnectionFailed, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrSearchQueryFailed, err)
	}

	h.logger.Debug("search executed", map[string]interface{}{
		"searchType": input.SearchType,
		"totalHits":  result.TotalHits,
		"took":       result.Took,
	})

	return &Output{
		Loans:     result.Loans,
		TotalHits: result.TotalHits,
		MaxScore:  result.MaxScore,
		Took:      result.Took,
	}, nil
}

func (h *Handler) toStandardError(err error, input *Input) *errors.StandardError {
	switch {
	case stderrors.Is(err, ErrInvalidSearchType):
		return errors.NewInvalidQueryTypeError(input.SearchType).WithMetadata("reason", err.Error())
	case stderrors.Is(err, ErrIndexNotFound):
		return errors.NewIndexNotFoundError(h.config.Index)
	case stderrors.Is(err, ErrSearchTimeout):
		return errors.NewTimeoutError("elasticsearch", err)
	case stderrors.Is(err, ErrElasticsearchConnectionFailed):
		return errors.NewElasticsearchConnectionFailedError(err)
	default:
		return errors.NewSearchQueryFailedError(input.SearchType, err)
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
