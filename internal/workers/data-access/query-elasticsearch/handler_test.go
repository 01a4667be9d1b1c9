package queryelasticsearch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"credit-approval-workers/internal/common/config"
	"credit-approval-workers/internal/common/errors"
	"credit-approval-workers/internal/common/logger"
	"credit-approval-workers/internal/common/validation"
	"credit-approval-workers/pkg/registry"
)

// ==========================
// Test Helper Functions
// ==========================

const searchResponse = `{
  "took": 3,
  "hits": {
    "total": {"value": 2, "relation": "eq"},
    "max_score": null,
    "hits": [
      {"_id": "11", "_source": {"loanId": 11, "customerId": 3, "loanAmount": 100000, "interestRate": 16, "tenure": 12, "monthlyInstallment": 9073.09, "startDate": "2026-06-15", "endDate": "2027-06-15"}},
      {"_id": "12", "_source": {"loanId": 12, "customerId": 3, "loanAmount": 50000, "interestRate": 12, "tenure": 6, "monthlyInstallment": 8628.42, "startDate": "2026-07-01", "endDate": "2027-01-01"}}
    ]
  }
}`

func createTestConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
		Index:   "loans",
	}
}

func createTestLogger(t *testing.T) logger.Logger {
	return logger.NewZapAdapter(zaptest.NewLogger(t))
}

type capturedRequest struct {
	path  string
	query string
	body  map[string]interface{}
}

// newTestServer fakes the search endpoint and records the last request it saw.
func newTestServer(t *testing.T, status int, response string) (*elasticsearch.Client, *capturedRequest, *httptest.Server) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
			_ = json.Unmarshal(raw, &captured.body)
		}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  []string{srv.URL},
		MaxRetries: 1,
	})
	require.NoError(t, err)
	return client, captured, srv
}

func newTestHandler(t *testing.T, client *elasticsearch.Client) *Handler {
	return NewHandler(createTestConfig(), client, nil, createTestLogger(t))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_CustomerLoans(t *testing.T) {
	client, captured, _ := newTestServer(t, http.StatusOK, searchResponse)
	handler := newTestHandler(t, client)

	output, err := handler.Execute(context.Background(), &Input{
		SearchType: "customer_loans",
		Filters:    map[string]interface{}{"customerId": float64(3)},
	})

	require.NoError(t, err)
	assert.Equal(t, "/loans/_search", captured.path)
	assert.Contains(t, captured.query, "size=20")
	assert.Contains(t, captured.query, "from=0")

	assert.Equal(t, int64(2), output.TotalHits)
	assert.Equal(t, int64(3), output.Took)
	assert.Zero(t, output.MaxScore)
	require.Len(t, output.Loans, 2)
	assert.Equal(t, int64(11), output.Loans[0].LoanID)
	assert.Equal(t, 9073.09, output.Loans[0].MonthlyInstallment)
	assert.Equal(t, "2027-06-15", output.Loans[0].EndDate)

	filter := captured.body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	require.Len(t, filter, 1)
	assert.Equal(t, float64(3), filter[0].(map[string]interface{})["term"].(map[string]interface{})["customerId"])
}

func TestHandler_Execute_RateRangeCapsPageSize(t *testing.T) {
	client, captured, _ := newTestServer(t, http.StatusOK, searchResponse)
	handler := newTestHandler(t, client)

	_, err := handler.Execute(context.Background(), &Input{
		SearchType: "rate_range",
		Filters:    map[string]interface{}{"minRate": 12.0, "maxRate": 16.0},
		From:       40,
		Size:       500,
	})

	require.NoError(t, err)
	assert.Contains(t, captured.query, "size=100")
	assert.Contains(t, captured.query, "from=40")

	filter := captured.body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	bounds := filter[0].(map[string]interface{})["range"].(map[string]interface{})["interestRate"].(map[string]interface{})
	assert.Equal(t, 12.0, bounds["gte"])
	assert.Equal(t, 16.0, bounds["lte"])
}

func TestHandler_Execute_EmptyResult(t *testing.T) {
	client, _, _ := newTestServer(t, http.StatusOK, `{"took":1,"hits":{"total":{"value":0},"max_score":null,"hits":[]}}`)
	handler := newTestHandler(t, client)

	output, err := handler.Execute(context.Background(), &Input{SearchType: "active_loans"})

	require.NoError(t, err)
	assert.Zero(t, output.TotalHits)
	assert.NotNil(t, output.Loans)
	assert.Empty(t, output.Loans)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		input    *Input
		wantErr  error
		wantCode errors.ErrorCode
	}{
		{
			name:     "unknown search type",
			status:   http.StatusOK,
			response: searchResponse,
			input:    &Input{SearchType: "franchise_index"},
			wantErr:  ErrInvalidSearchType,
			wantCode: errors.ErrCodeInvalidQueryType,
		},
		{
			name:     "customer loans without customer",
			status:   http.StatusOK,
			response: searchResponse,
			input:    &Input{SearchType: "customer_loans"},
			wantErr:  ErrInvalidSearchType,
			wantCode: errors.ErrCodeInvalidQueryType,
		},
		{
			name:     "missing index",
			status:   http.StatusNotFound,
			response: `{"error":{"type":"index_not_found_exception"},"status":404}`,
			input:    &Input{SearchType: "active_loans"},
			wantErr:  ErrIndexNotFound,
			wantCode: errors.ErrCodeIndexNotFound,
		},
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			response: `{"error":{"type":"parsing_exception"},"status":400}`,
			input:    &Input{SearchType: "rate_range", Filters: map[string]interface{}{"maxRate": 10.0}},
			wantErr:  ErrSearchQueryFailed,
			wantCode: errors.ErrCodeSearchQueryFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _, _ := newTestServer(t, tt.status, tt.response)
			handler := newTestHandler(t, client)

			output, err := handler.Execute(context.Background(), tt.input)

			require.Error(t, err)
			assert.Nil(t, output)
			assert.True(t, stderrors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, tt.wantCode, handler.toStandardError(err, tt.input).Code)
		})
	}
}

func TestHandler_Execute_ConnectionFailure(t *testing.T) {
	client, _, srv := newTestServer(t, http.StatusOK, searchResponse)
	srv.Close()
	handler := newTestHandler(t, client)

	input := &Input{SearchType: "active_loans"}
	_, err := handler.Execute(context.Background(), input)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrElasticsearchConnectionFailed)

	stdErr := handler.toStandardError(err, input)
	assert.Equal(t, errors.ErrCodeElasticsearchConnectionFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestHandler_Execute_NilInput(t *testing.T) {
	client, _, _ := newTestServer(t, http.StatusOK, searchResponse)
	_, err := newTestHandler(t, client).Execute(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidSearchType)
}

// ==========================
// Configuration Tests
// ==========================

func TestLoadConfig(t *testing.T) {
	cfg := LoadConfig(config.WorkerConfig{}, config.ElasticsearchConfig{})
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "loans", cfg.Index)

	cfg = LoadConfig(config.WorkerConfig{Timeout: 2500}, config.ElasticsearchConfig{LoanIndex: "loans-v2"})
	assert.Equal(t, 2500*time.Millisecond, cfg.Timeout)
	assert.Equal(t, "loans-v2", cfg.Index)
}

func TestInputSchema(t *testing.T) {
	v, err := validation.NewValidator(registry.Default())
	require.NoError(t, err)

	ok, err := v.ValidateVariables(TaskType, `{"searchType":"rate_range","filters":{"minRate":12},"size":10}`)
	require.NoError(t, err)
	assert.True(t, ok.Valid)

	bad, err := v.ValidateVariables(TaskType, `{"searchType":"rate_range","size":-1}`)
	require.NoError(t, err)
	assert.False(t, bad.Valid)
}
