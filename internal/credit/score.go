package credit

import (
	"math"
	"time"
)

// Breakdown holds the four sub-scores and their clamped, rounded total.
type Breakdown struct {
	Repayment  float64 `json:"repayment"`
	LoanCount  float64 `json:"loanCount"`
	RecentLoan float64 `json:"recentLoans"`
	Exposure   float64 `json:"exposure"`
	Total      float64 `json:"total"`
}

// ComputeScore returns the 0-100 creditworthiness score of a borrower.
func ComputeScore(b Borrower, loans []LoanRecord, now time.Time) float64 {
	return ScoreBreakdown(b, loans, now).Total
}

// ScoreBreakdown computes each sub-score over the whole loan history,
// closed loans included.
func ScoreBreakdown(b Borrower, loans []LoanRecord, now time.Time) Breakdown {
	var (
		paid, expected int
		principal      float64
		thisYear       int
	)
	for _, l := range loans {
		paid += l.EMIsPaidOnTime
		expected += l.TenureMonths
		principal += l.Principal
		if l.StartDate.Year() == now.Year() {
			thisYear++
		}
	}

	bd := Breakdown{
		Repayment:  NoHistoryRepayment,
		LoanCount:  LoanCountBands.Lookup(float64(len(loans))),
		RecentLoan: RecentLoanBands.Lookup(float64(thisYear)),
		Exposure:   ExposureBands.Lookup(exposureRatio(principal, b.ApprovedLimit)),
	}
	if len(loans) > 0 {
		ratio := 0.0
		if expected != 0 {
			ratio = float64(paid) / float64(expected)
		}
		bd.Repayment = ratio * RepaymentWeight
	}

	total := math.Min(bd.Repayment+bd.LoanCount+bd.RecentLoan+bd.Exposure, MaxScore)
	bd.Total = roundHalfEven(total, 2)
	return bd
}

func exposureRatio(principal, limit float64) float64 {
	if limit == 0 {
		return FullyExposedWhenNoCap
	}
	return principal / limit
}
