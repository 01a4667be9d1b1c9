// internal/workers/data-access/query-postgresql/queries/registry.go
package queries

import (
	"context"
	"errors"
	"fmt"
	"time"

	"credit-approval-workers/internal/models"
)

var (
	ErrMissingParam     = errors.New("missing required parameter")
	ErrUnknownQueryType = errors.New("unknown query type")
)

// Reader is the read side of lending.Store.
type Reader interface {
	FindCustomer(ctx context.Context, id int64) (*models.Customer, error)
	FindLoan(ctx context.Context, loanID int64) (*models.Loan, *models.Customer, error)
	ListCustomerLoans(ctx context.Context, customerID int64) ([]models.Loan, error)
}

// QueryFunc returns: data, rowCount, error
type QueryFunc func(ctx context.Context, r Reader, params map[string]interface{}) (interface{}, int, error)

var Registry = map[models.QueryType]QueryFunc{
	models.QueryTypeLoanDetails:     LoanDetails,
	models.QueryTypeCustomerLoans:   CustomerLoans,
	models.QueryTypeCustomerProfile: CustomerProfile,
}

// Execute returns: data, rowCount, executionTime (ms), error
func Execute(ctx context.Context, r Reader, queryType models.QueryType, params map[string]interface{}) (interface{}, int, int64, error) {
	fn, exists := Registry[queryType]
	if !exists {
		return nil, 0, 0, fmt.Errorf("%w: %s", ErrUnknownQueryType, queryType)
	}
	start := time.Now()
	data, n, err := fn(ctx, r, params)
	return data, n, time.Since(start).Milliseconds(), err
}

func idParam(params map[string]interface{}, key string) (int64, error) {
	switch v := params[key].(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
}
