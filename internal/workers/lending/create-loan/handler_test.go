// internal/workers/lending/create-loan/handler_test.go
package createloan

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"credit-approval-workers/internal/common/config"
	"credit-approval-workers/internal/common/errors"
	"credit-approval-workers/internal/common/logger"
	"credit-approval-workers/internal/credit"
	"credit-approval-workers/internal/lending"
	"credit-approval-workers/internal/models"
)

// ==========================
// Mocks
// ==========================

type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateLoan(ctx context.Context, req credit.Request, now time.Time) (*lending.LoanOutcome, error) {
	args := m.Called(ctx, req, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lending.LoanOutcome), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Invalidate(ctx context.Context, customerID int64) error {
	return m.Called(ctx, customerID).Error(0)
}

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) IndexLoan(ctx context.Context, loan models.Loan) error {
	return m.Called(ctx, loan).Error(0)
}

// ==========================
// Test Helpers
// ==========================

var evalTime = time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return evalTime }

func createTestInput() *Input {
	return &Input{CustomerID: 1, LoanAmount: 100000, InterestRate: 15, Tenure: 12}
}

func testConfig() *Config {
	return LoadConfig(config.WorkerConfig{}, config.LendingConfig{IndexLoans: true})
}

func approvedOutcome() *lending.LoanOutcome {
	emi := 9073.09
	score := 30.0
	start := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	return &lending.LoanOutcome{
		Loan: &models.Loan{
			ID: 42, CustomerID: 1, LoanAmount: 100000, Tenure: 12, InterestRate: 16,
			MonthlyRepayment: emi, StartDate: start, EndDate: lending.AddMonths(start, 12),
		},
		Result: credit.Result{
			Approved: true, InterestRate: 15, CorrectedInterestRate: 16,
			MonthlyInstallment: &emi, Score: &score, Reason: credit.ReasonApproved,
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Approved(t *testing.T) {
	store, cache, indexer := new(MockStore), new(MockCache), new(MockIndexer)
	outcome := approvedOutcome()
	store.On("CreateLoan", mock.Anything, credit.Request{BorrowerID: 1, Principal: 100000, InterestRate: 15, TenureMonths: 12}, evalTime).
		Return(outcome, nil)
	cache.On("Invalidate", mock.Anything, int64(1)).Return(nil)
	indexer.On("IndexLoan", mock.Anything, *outcome.Loan).Return(nil)

	handler := NewHandler(testConfig(), Dependencies{Store: store, Cache: cache, Indexer: indexer, Clock: clock}, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	require.NotNil(t, output.LoanID)
	assert.Equal(t, int64(42), *output.LoanID)
	assert.True(t, output.LoanApproved)
	assert.Equal(t, "Loan approved successfully", output.Message)
	assert.Equal(t, 16.0, output.CorrectedInterestRate)
	require.NotNil(t, output.MonthlyInstallment)
	assert.Equal(t, 9073.09, *output.MonthlyInstallment)

	store.AssertExpectations(t)
	cache.AssertExpectations(t)
	indexer.AssertExpectations(t)
}

func TestHandler_Execute_NotApproved(t *testing.T) {
	store, cache, indexer := new(MockStore), new(MockCache), new(MockIndexer)
	store.On("CreateLoan", mock.Anything, mock.Anything, evalTime).Return(&lending.LoanOutcome{
		Result: credit.Result{InterestRate: 15, CorrectedInterestRate: 15, Reason: credit.ReasonEMIExceeded},
	}, nil)

	handler := NewHandler(testConfig(), Dependencies{Store: store, Cache: cache, Indexer: indexer, Clock: clock}, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.Nil(t, output.LoanID)
	assert.False(t, output.LoanApproved)
	assert.Nil(t, output.MonthlyInstallment)
	assert.Equal(t, "EMI exceeds 50% of salary", output.Message)
	cache.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
	indexer.AssertNotCalled(t, "IndexLoan", mock.Anything, mock.Anything)
}

func TestHandler_Execute_PostCommitFailuresAreNotFatal(t *testing.T) {
	store, cache, indexer := new(MockStore), new(MockCache), new(MockIndexer)
	store.On("CreateLoan", mock.Anything, mock.Anything, mock.Anything).Return(approvedOutcome(), nil)
	cache.On("Invalidate", mock.Anything, int64(1)).Return(stderrors.New("redis down"))
	indexer.On("IndexLoan", mock.Anything, mock.Anything).Return(stderrors.New("es down"))

	handler := NewHandler(testConfig(), Dependencies{Store: store, Cache: cache, Indexer: indexer, Clock: clock}, logger.NewTestLogger(t))
	output, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	assert.True(t, output.LoanApproved)
}

func TestHandler_Execute_IndexingDisabled(t *testing.T) {
	store, indexer := new(MockStore), new(MockIndexer)
	store.On("CreateLoan", mock.Anything, mock.Anything, mock.Anything).Return(approvedOutcome(), nil)

	cfg := LoadConfig(config.WorkerConfig{}, config.LendingConfig{IndexLoans: false})
	handler := NewHandler(cfg, Dependencies{Store: store, Indexer: indexer, Clock: clock}, logger.NewTestLogger(t))
	_, err := handler.Execute(context.Background(), createTestInput())

	require.NoError(t, err)
	indexer.AssertNotCalled(t, "IndexLoan", mock.Anything, mock.Anything)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name      string
		storeErr  error
		code      errors.ErrorCode
		retryable bool
	}{
		{"customer not found", fmt.Errorf("%w: customer 1", credit.ErrBorrowerNotFound), errors.ErrCodeCustomerNotFound, false},
		{"invalid request", &credit.ValidationError{Field: "tenure", Reason: "must be a positive number of months"}, errors.ErrCodeInvalidLoanRequest, false},
		{"insert failure", stderrors.New("insert loan: deadlock detected"), errors.ErrCodeDatabaseInsertFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			store.On("CreateLoan", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.storeErr)

			handler := NewHandler(testConfig(), Dependencies{Store: store, Clock: clock}, logger.NewTestLogger(t))
			input := createTestInput()
			_, err := handler.Execute(context.Background(), input)
			require.Error(t, err)

			stdErr := toStandardError(err, input)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

// ==========================
// Integration Tests
// ==========================

func TestHandler_Execute_EndToEndWithStoreCacheAndIndex(t *testing.T) {
	db, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	mr.Set("lending:borrower:1", `{"ID":1}`)
	mr.Set("lending:loans:1", `[]`)

	var indexedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		indexedPath = r.URL.Path
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	defer srv.Close()
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	log := logger.NewTestLogger(t)
	store := lending.NewStore(db, log)

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery(`FOR UPDATE`).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "monthly_salary", "approved_limit", "current_debt"}).
			AddRow(int64(1), 50000.0, 1000000.0, 0.0))
	sqlMock.ExpectQuery(`FROM loans WHERE customer_id`).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "customer_id", "loan_amount", "tenure", "interest_rate",
			"monthly_repayment", "emis_paid_on_time", "start_date", "end_date"}))
	sqlMock.ExpectQuery(`INSERT INTO loans`).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	sqlMock.ExpectExec(`UPDATE customers SET current_debt`).WithArgs(100000.0, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()
	sqlMock.ExpectExec(`INSERT INTO audit_log`).WillReturnResult(sqlmock.NewResult(1, 1))

	handler := NewHandler(testConfig(), Dependencies{
		Store:   store,
		Cache:   lending.NewCachedSource(store, rdb, time.Minute, log),
		Indexer: lending.NewIndexer(es, "loans"),
		Clock:   clock,
	}, log)

	output, err := handler.Execute(context.Background(), createTestInput())
	require.NoError(t, err)
	require.NotNil(t, output.LoanID)
	assert.Equal(t, int64(42), *output.LoanID)

	assert.NoError(t, sqlMock.ExpectationsWereMet())
	assert.False(t, mr.Exists("lending:borrower:1"))
	assert.False(t, mr.Exists("lending:loans:1"))
	assert.Equal(t, "/loans/_doc/42", indexedPath)
}
