// Package lending persists customers and loans and adapts them to the
// credit evaluator.
package lending

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"credit-approval-workers/internal/common/database"
	"credit-approval-workers/internal/common/logger"
	"credit-approval-workers/internal/credit"
	"credit-approval-workers/internal/models"
)

var (
	// ErrCustomerNotFound is the same sentinel the evaluator returns.
	ErrCustomerNotFound  = credit.ErrBorrowerNotFound
	ErrLoanNotFound      = errors.New("LOAN_NOT_FOUND")
	ErrDuplicateCustomer = errors.New("DUPLICATE_CUSTOMER")
)

// approvedLimitMultiple is how many months of income a customer may borrow.
const approvedLimitMultiple = 36

// ApprovedLimit is 36 months of income rounded to the nearest lakh, with
// exact half lakhs going to the even multiple.
func ApprovedLimit(monthlyIncome float64) float64 {
	lakh := decimal.NewFromInt(100000)
	return decimal.NewFromFloat(monthlyIncome).
		Mul(decimal.NewFromInt(approvedLimitMultiple)).
		Div(lakh).
		RoundBank(0).
		Mul(lakh).
		InexactFloat64()
}

// Store is the Postgres-backed customer and loan repository.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

const customerColumns = `id, first_name, last_name, age, phone_number, COALESCE(email, ''),
	monthly_salary, approved_limit, current_debt, created_at`

const loanColumns = `id, customer_id, loan_amount, tenure, interest_rate, monthly_repayment,
	emis_paid_on_time, start_date, end_date`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCustomer(row scanner) (*models.Customer, error) {
	var c models.Customer
	var age sql.NullInt64
	if err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &age, &c.PhoneNumber, &c.Email,
		&c.MonthlySalary, &c.ApprovedLimit, &c.CurrentDebt, &c.CreatedAt); err != nil {
		return nil, err
	}
	if age.Valid {
		a := int(age.Int64)
		c.Age = &a
	}
	return &c, nil
}

func scanLoan(row scanner) (models.Loan, error) {
	var l models.Loan
	err := row.Scan(&l.ID, &l.CustomerID, &l.LoanAmount, &l.Tenure, &l.InterestRate,
		&l.MonthlyRepayment, &l.EMIsPaidOnTime, &l.StartDate, &l.EndDate)
	return l, err
}

// RegisterCustomer inserts a new customer with a derived approved limit and
// zero debt. A phone number already on file yields ErrDuplicateCustomer.
func (s *Store) RegisterCustomer(ctx context.Context, c *models.Customer) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM customers WHERE phone_number = $1)`, c.PhoneNumber,
	).Scan(&exists); err != nil {
		return fmt.Errorf("duplicate check failed: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: phone number %s", ErrDuplicateCustomer, c.PhoneNumber)
	}

	c.ApprovedLimit = ApprovedLimit(c.MonthlySalary)
	c.CurrentDebt = 0

	var email sql.NullString
	if c.Email != "" {
		email = sql.NullString{String: c.Email, Valid: true}
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (first_name, last_name, age, phone_number, email,
			monthly_salary, approved_limit, current_debt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`,
		c.FirstName, c.LastName, c.Age, c.PhoneNumber, email,
		c.MonthlySalary, c.ApprovedLimit, c.CurrentDebt,
	).Scan(&c.ID, &c.CreatedAt)
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: phone number %s", ErrDuplicateCustomer, c.PhoneNumber)
	}
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}

	s.audit(ctx, "customer_registered", "customer", c.ID, map[string]interface{}{
		"approvedLimit": c.ApprovedLimit,
	})
	return nil
}

// FindCustomer returns ErrCustomerNotFound for unknown ids.
func (s *Store) FindCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: customer %d", ErrCustomerNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select customer: %w", err)
	}
	return c, nil
}

// FindLoan returns the loan together with its customer.
func (s *Store) FindLoan(ctx context.Context, loanID int64) (*models.Loan, *models.Customer, error) {
	loan, err := scanLoan(s.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1`, loanID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("%w: loan %d", ErrLoanNotFound, loanID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("select loan: %w", err)
	}

	customer, err := s.FindCustomer(ctx, loan.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	return &loan, customer, nil
}

// ListCustomerLoans returns every loan of a customer ordered by id.
// An unknown customer yields ErrCustomerNotFound rather than an empty list.
func (s *Store) ListCustomerLoans(ctx context.Context, customerID int64) ([]models.Loan, error) {
	if _, err := s.FindCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return listLoans(ctx, s.db, customerID, false)
}

func listLoans(ctx context.Context, q database.Querier, customerID int64, forUpdate bool) ([]models.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE customer_id = $1 ORDER BY id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := q.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("select loans: %w", err)
	}
	defer rows.Close()

	var loans []models.Loan
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

// FetchBorrower implements credit.BorrowerSource.
func (s *Store) FetchBorrower(ctx context.Context, id int64) (credit.Borrower, error) {
	return fetchBorrower(ctx, s.db, id, false)
}

// FetchLoanHistory implements credit.BorrowerSource.
func (s *Store) FetchLoanHistory(ctx context.Context, borrowerID int64) ([]credit.LoanRecord, error) {
	loans, err := listLoans(ctx, s.db, borrowerID, false)
	if err != nil {
		return nil, err
	}
	return ToLoanRecords(loans), nil
}

func fetchBorrower(ctx context.Context, q database.Querier, id int64, forUpdate bool) (credit.Borrower, error) {
	query := `SELECT id, monthly_salary, approved_limit, current_debt FROM customers WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var b credit.Borrower
	err := q.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.MonthlySalary, &b.ApprovedLimit, &b.CurrentDebt)
	if errors.Is(err, sql.ErrNoRows) {
		return credit.Borrower{}, fmt.Errorf("%w: customer %d", ErrCustomerNotFound, id)
	}
	if err != nil {
		return credit.Borrower{}, fmt.Errorf("select borrower: %w", err)
	}
	return b, nil
}

// ToLoanRecords converts persisted loans to the evaluator's view.
func ToLoanRecords(loans []models.Loan) []credit.LoanRecord {
	out := make([]credit.LoanRecord, 0, len(loans))
	for _, l := range loans {
		out = append(out, credit.LoanRecord{
			ID:                 l.ID,
			BorrowerID:         l.CustomerID,
			Principal:          l.LoanAmount,
			TenureMonths:       l.Tenure,
			InterestRate:       l.InterestRate,
			MonthlyInstallment: l.MonthlyRepayment,
			EMIsPaidOnTime:     l.EMIsPaidOnTime,
			StartDate:          l.StartDate,
			EndDate:            l.EndDate,
		})
	}
	return out
}

// audit writes an audit_log row. Failures are logged, never returned.
func (s *Store) audit(ctx context.Context, event, resource string, id int64, details map[string]interface{}) {
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		event, resource, fmt.Sprint(id), payload, time.Now().UTC(),
	)
	if err != nil {
		s.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":      err,
			"eventType":  event,
			"resourceId": id,
		})
	}
}
