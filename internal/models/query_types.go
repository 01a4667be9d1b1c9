// internal/models/query_types.go
package models

type QueryType string

const (
	QueryTypeLoanDetails     QueryType = "loan_details"
	QueryTypeCustomerLoans   QueryType = "customer_loans"
	QueryTypeCustomerProfile QueryType = "customer_profile"
)

// SearchType selects a query served from the loans index.
type SearchType string

const (
	SearchTypeCustomerLoans SearchType = "customer_loans"
	SearchTypeActiveLoans   SearchType = "active_loans"
	SearchTypeRateRange     SearchType = "rate_range"
)
