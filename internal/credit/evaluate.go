package credit

import (
	"context"
	"fmt"
	"time"
)

// Evaluate runs the affordability gate, the score and the rate policy for a
// request against a borrower snapshot. It has no side effects.
func Evaluate(b Borrower, loans []LoanRecord, req Request, now time.Time) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	res := Result{
		InterestRate:          req.InterestRate,
		CorrectedInterestRate: req.InterestRate,
	}

	requested, err := installment(req.Principal, req.InterestRate, req.TenureMonths)
	if err != nil {
		return Result{}, err
	}
	if ok, reason := CheckAffordability(b, loans, requested, req.Principal); !ok {
		res.Reason = reason
		return res, nil
	}

	score := ComputeScore(b, loans, now)
	res.Score = &score

	d := Decide(score, req.InterestRate)
	res.Approved = d.Approved
	res.CorrectedInterestRate = d.CorrectedRate
	res.Reason = d.Reason
	if d.Approved {
		emi, err := installment(req.Principal, d.CorrectedRate, req.TenureMonths)
		if err != nil {
			return Result{}, err
		}
		emi = RoundMoney(emi)
		res.MonthlyInstallment = &emi
	}
	return res, nil
}

// BorrowerSource supplies borrower snapshots. FetchBorrower returns
// ErrBorrowerNotFound for unknown ids.
type BorrowerSource interface {
	FetchBorrower(ctx context.Context, id int64) (Borrower, error)
	FetchLoanHistory(ctx context.Context, borrowerID int64) ([]LoanRecord, error)
}

// Evaluator evaluates requests by borrower id.
type Evaluator struct {
	source BorrowerSource
	clock  func() time.Time
}

func NewEvaluator(source BorrowerSource, clock func() time.Time) *Evaluator {
	if clock == nil {
		clock = time.Now
	}
	return &Evaluator{source: source, clock: clock}
}

func (e *Evaluator) Evaluate(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	b, err := e.source.FetchBorrower(ctx, req.BorrowerID)
	if err != nil {
		return Result{}, err
	}
	loans, err := e.source.FetchLoanHistory(ctx, req.BorrowerID)
	if err != nil {
		return Result{}, fmt.Errorf("load loan history for %d: %w", req.BorrowerID, err)
	}
	return Evaluate(b, loans, req, e.clock())
}
