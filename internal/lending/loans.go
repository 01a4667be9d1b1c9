package lending

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"credit-approval-workers/internal/common/database"
	"credit-approval-workers/internal/credit"
	"credit-approval-workers/internal/models"
)

// LoanOutcome is the result of CreateLoan. Loan is nil when the request was
// not approved; Result always carries the evaluation.
type LoanOutcome struct {
	Loan   *models.Loan
	Result credit.Result
}

// CreateLoan evaluates req and, if approved, persists the loan. The customer
// row is locked for the whole transaction so two requests for the same
// borrower cannot both pass the affordability gate on the same snapshot.
func (s *Store) CreateLoan(ctx context.Context, req credit.Request, now time.Time) (*LoanOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var outcome LoanOutcome
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		b, err := fetchBorrower(ctx, tx, req.BorrowerID, true)
		if err != nil {
			return err
		}
		history, err := listLoans(ctx, tx, req.BorrowerID, false)
		if err != nil {
			return err
		}

		res, err := credit.Evaluate(b, ToLoanRecords(history), req, now)
		if err != nil {
			return err
		}
		outcome.Result = res
		if !res.Approved {
			return nil
		}

		start := truncateToDay(now)
		loan := &models.Loan{
			CustomerID:       req.BorrowerID,
			LoanAmount:       req.Principal,
			Tenure:           req.TenureMonths,
			InterestRate:     res.CorrectedInterestRate,
			MonthlyRepayment: *res.MonthlyInstallment,
			EMIsPaidOnTime:   0,
			StartDate:        start,
			EndDate:          AddMonths(start, req.TenureMonths),
		}
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO loans (customer_id, loan_amount, tenure, interest_rate,
				monthly_repayment, emis_paid_on_time, start_date, end_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			loan.CustomerID, loan.LoanAmount, loan.Tenure, loan.InterestRate,
			loan.MonthlyRepayment, loan.EMIsPaidOnTime, loan.StartDate, loan.EndDate,
		).Scan(&loan.ID); err != nil {
			return fmt.Errorf("insert loan: %w", err)
		}

		debt := activePrincipal(history, now) + loan.LoanAmount
		if _, err := tx.ExecContext(ctx,
			`UPDATE customers SET current_debt = $1 WHERE id = $2`, debt, req.BorrowerID,
		); err != nil {
			return fmt.Errorf("update current debt: %w", err)
		}

		outcome.Loan = loan
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.Loan != nil {
		s.audit(ctx, "loan_created", "loan", outcome.Loan.ID, map[string]interface{}{
			"customerId":   outcome.Loan.CustomerID,
			"loanAmount":   outcome.Loan.LoanAmount,
			"interestRate": outcome.Loan.InterestRate,
			"tenure":       outcome.Loan.Tenure,
		})
	}
	return &outcome, nil
}

func activePrincipal(loans []models.Loan, now time.Time) float64 {
	var sum float64
	for _, l := range loans {
		if l.EndDate.After(now) {
			sum += l.LoanAmount
		}
	}
	return sum
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddMonths adds n calendar months, clamping to the last day of the target
// month (Jan 31 + 1 month is Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
