// internal/models/loan.go
package models

import "time"

const DateLayout = "2006-01-02"

// Loan is a row of the loans table.
type Loan struct {
	ID               int64     `json:"id"`
	CustomerID       int64     `json:"customerId"`
	LoanAmount       float64   `json:"loanAmount"`
	Tenure           int       `json:"tenure"`
	InterestRate     float64   `json:"interestRate"`
	MonthlyRepayment float64   `json:"monthlyRepayment"`
	EMIsPaidOnTime   int       `json:"emisPaidOnTime"`
	StartDate        time.Time `json:"startDate"`
	EndDate          time.Time `json:"endDate"`
}

// RepaymentsLeft never goes below zero.
func (l Loan) RepaymentsLeft() int {
	if left := l.Tenure - l.EMIsPaidOnTime; left > 0 {
		return left
	}
	return 0
}

// LoanDocument is the shape indexed into Elasticsearch.
type LoanDocument struct {
	LoanID             int64   `json:"loanId"`
	CustomerID         int64   `json:"customerId"`
	LoanAmount         float64 `json:"loanAmount"`
	InterestRate       float64 `json:"interestRate"`
	Tenure             int     `json:"tenure"`
	MonthlyInstallment float64 `json:"monthlyInstallment"`
	StartDate          string  `json:"startDate"`
	EndDate            string  `json:"endDate"`
}

func (l Loan) Document() LoanDocument {
	return LoanDocument{
		LoanID:             l.ID,
		CustomerID:         l.CustomerID,
		LoanAmount:         l.LoanAmount,
		InterestRate:       l.InterestRate,
		Tenure:             l.Tenure,
		MonthlyInstallment: l.MonthlyRepayment,
		StartDate:          l.StartDate.Format(DateLayout),
		EndDate:            l.EndDate.Format(DateLayout),
	}
}
