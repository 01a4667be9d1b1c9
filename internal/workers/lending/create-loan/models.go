// internal/workers/lending/create-loan/models.go
package createloan

type Input struct {
	CustomerID   int64   `json:"customerId"`
	LoanAmount   float64 `json:"loanAmount"`
	InterestRate float64 `json:"interestRate"`
	Tenure       int     `json:"tenure"`
}

type Output struct {
	LoanID                *int64   `json:"loanId"`
	CustomerID            int64    `json:"customerId"`
	LoanApproved          bool     `json:"loanApproved"`
	Message               string   `json:"message"`
	MonthlyInstallment    *float64 `json:"monthlyInstallment"`
	CorrectedInterestRate float64  `json:"correctedInterestRate"`
}
