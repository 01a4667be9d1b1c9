// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler handles job errors with standardized error handling
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Outcome is what the handler will report back to the broker for a failed job.
type Outcome struct {
	Standard *StandardError
	BPMN     *BPMNError
	// Retries > 0 fails the job so the broker retries it; 0 throws the BPMN error.
	Retries int
}

// Resolve normalizes err and decides between a retry and a BPMN error.
func Resolve(job entities.Job, err error) Outcome {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	retries := 0
	if bpmnErr.Retries > 0 && job.Retries > 0 {
		retries = bpmnErr.Retries
		if int(job.Retries) < retries {
			retries = int(job.Retries)
		}
	}
	return Outcome{Standard: stdErr, BPMN: bpmnErr, Retries: retries}
}

// Normalize ensures we always have a StandardError, unwrapping if needed.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// HandleJobError handles any error in a worker job
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	outcome := Resolve(job, err)
	h.logError(job, outcome)

	if outcome.Retries > 0 {
		h.failJobWithRetries(ctx, client, job, outcome.BPMN, outcome.Retries)
		return
	}
	h.throwBPMNError(ctx, client, job, outcome.BPMN)
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(retries)).
		ErrorMessage(bpmnErr.Message)

	if payload, ok := encodeVariables(bpmnErr); ok {
		if withVars, err := cmd.VariablesFromString(payload); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if payload, ok := encodeVariables(bpmnErr); ok {
		if withVars, err := cmd.VariablesFromString(payload); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

func encodeVariables(bpmnErr *BPMNError) (string, bool) {
	data, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (h *ErrorHandler) logError(job entities.Job, outcome Outcome) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(outcome.Standard.Code),
		"bpmnErrorCode":    outcome.BPMN.Code,
		"message":          outcome.BPMN.Message,
		"details":          outcome.Standard.Details,
		"retryable":        outcome.Standard.Retryable,
		"retries":          outcome.Retries,
		"errorCategory":    GetErrorCategory(outcome.Standard.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
