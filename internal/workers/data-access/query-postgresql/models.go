// internal/workers/data-access/query-postgresql/models.go
package querypostgresql

import "credit-approval-workers/internal/models"

type Input struct {
	QueryType  string `json:"queryType"`
	LoanID     *int64 `json:"loanId,omitempty"`
	CustomerID *int64 `json:"customerId,omitempty"`
}

type Output struct {
	Data               interface{} `json:"data"`
	RowCount           int         `json:"rowCount"`
	QueryExecutionTime int64       `json:"queryExecutionTime"` // milliseconds
}

type QueryType = models.QueryType

var (
	QueryTypeLoanDetails     = models.QueryTypeLoanDetails
	QueryTypeCustomerLoans   = models.QueryTypeCustomerLoans
	QueryTypeCustomerProfile = models.QueryTypeCustomerProfile
)
