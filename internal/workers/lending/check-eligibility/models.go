// internal/workers/lending/check-eligibility/models.go
package checkeligibility

type Input struct {
	CustomerID   int64   `json:"customerId"`
	LoanAmount   float64 `json:"loanAmount"`
	InterestRate float64 `json:"interestRate"`
	Tenure       int     `json:"tenure"`
}

// Output mirrors the eligibility response. MonthlyInstallment is null when
// the loan is not approved; Score is null when the affordability gate
// rejected it before scoring.
type Output struct {
	CustomerID            int64    `json:"customerId"`
	Approval              bool     `json:"approval"`
	InterestRate          float64  `json:"interestRate"`
	CorrectedInterestRate float64  `json:"correctedInterestRate"`
	Tenure                int      `json:"tenure"`
	MonthlyInstallment    *float64 `json:"monthlyInstallment"`
	Score                 *float64 `json:"score"`
	Message               string   `json:"message"`
}
