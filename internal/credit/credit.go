// Package credit decides whether a borrower qualifies for a new loan and at
// what interest rate. Everything in this package is a pure function of the
// borrower snapshot, the loan history and the evaluation time; callers own
// persistence and must hand in a consistent point-in-time snapshot.
package credit

import "time"

// Borrower is the read-only view of a customer used during evaluation.
type Borrower struct {
	ID            int64
	MonthlySalary float64
	ApprovedLimit float64
	// CurrentDebt is informational; exposure is recomputed from loan history.
	CurrentDebt float64
}

// LoanRecord is one historical or running loan of a borrower.
type LoanRecord struct {
	ID                 int64
	BorrowerID         int64
	Principal          float64
	TenureMonths       int
	InterestRate       float64
	MonthlyInstallment float64
	EMIsPaidOnTime     int
	StartDate          time.Time
	EndDate            time.Time
}

// Active reports whether the loan is still running at now.
func (l LoanRecord) Active(now time.Time) bool {
	return l.EndDate.After(now)
}

// Request is an eligibility request for a new loan.
type Request struct {
	BorrowerID   int64
	Principal    float64
	InterestRate float64
	TenureMonths int
}

// Result is the outcome of an evaluation. MonthlyInstallment is nil unless the
// loan is approved; Score is nil when the affordability gate rejected the loan.
type Result struct {
	Approved              bool
	InterestRate          float64
	CorrectedInterestRate float64
	MonthlyInstallment    *float64
	Score                 *float64
	Reason                string
}

const (
	ReasonApproved       = "Loan approved"
	ReasonEMIExceeded    = "EMI exceeds 50% of salary"
	ReasonLimitExceeded  = "Approved limit exceeded"
	ReasonLowCreditScore = "Loan rejected due to credit score"
)
