// Package importer bulk-loads customers and loans from the legacy
// spreadsheets. Rows are get-or-create by their spreadsheet id, so an import
// can be re-run safely.
package importer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"credit-approval-workers/internal/common/logger"
)

var (
	ErrMissingColumn   = errors.New("MISSING_COLUMN")
	ErrInvalidCell     = errors.New("INVALID_CELL")
	ErrCustomerMissing = errors.New("CUSTOMER_NOT_FOUND")
)

var customerHeaders = []string{
	"customer_id", "first_name", "last_name", "phone_number", "monthly_salary", "approved_limit",
}

var loanHeaders = []string{
	"customer_id", "loan_id", "loan_amount", "tenure", "interest_rate",
	"monthly_payment", "emis_paid_on_time", "date_of_approval", "end_date",
}

// Report counts the rows of one sheet.
type Report struct {
	Sheet   string `json:"sheet"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
}

type Importer struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Importer {
	return &Importer{db: db, logger: log}
}

// ImportFiles loads customers first, then loans, and finally moves the id
// sequences past the imported ids.
func (im *Importer) ImportFiles(ctx context.Context, customerPath, loanPath string) ([]Report, error) {
	var reports []Report

	cf, err := os.Open(customerPath)
	if err != nil {
		return nil, fmt.Errorf("open customers: %w", err)
	}
	defer cf.Close()
	r, err := im.ImportCustomers(ctx, cf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", customerPath, err)
	}
	reports = append(reports, r)

	lf, err := os.Open(loanPath)
	if err != nil {
		return reports, fmt.Errorf("open loans: %w", err)
	}
	defer lf.Close()
	r, err = im.ImportLoans(ctx, lf)
	if err != nil {
		return reports, fmt.Errorf("%s: %w", loanPath, err)
	}
	reports = append(reports, r)

	return reports, im.ResetSequences(ctx)
}

// ImportCustomers reads the first sheet of a customer workbook.
func (im *Importer) ImportCustomers(ctx context.Context, r io.Reader) (Report, error) {
	sh, err := readSheet(r, customerHeaders)
	if err != nil {
		return Report{}, err
	}
	report := Report{Sheet: sh.name}

	for i, row := range sh.rows {
		line := i + 2
		id, err := sh.int(row, "customer_id", line)
		if err != nil {
			return report, err
		}
		salary, err := sh.float(row, "monthly_salary", line)
		if err != nil {
			return report, err
		}
		limit, err := sh.float(row, "approved_limit", line)
		if err != nil {
			return report, err
		}

		res, err := im.db.ExecContext(ctx, `
			INSERT INTO customers (id, first_name, last_name, phone_number,
				monthly_salary, approved_limit, current_debt)
			VALUES ($1, $2, $3, $4, $5, $6, 0)
			ON CONFLICT (id) DO NOTHING`,
			id, sh.str(row, "first_name"), sh.str(row, "last_name"), sh.str(row, "phone_number"),
			salary, limit,
		)
		if err != nil {
			return report, fmt.Errorf("row %d: insert customer %d: %w", line, id, err)
		}
		report.count(res)
	}

	im.logger.Info("customers imported", map[string]interface{}{
		"sheet":   report.Sheet,
		"created": report.Created,
		"skipped": report.Skipped,
	})
	return report, nil
}

// ImportLoans reads the first sheet of a loan workbook. Every loan must
// reference a customer that already exists.
func (im *Importer) ImportLoans(ctx context.Context, r io.Reader) (Report, error) {
	sh, err := readSheet(r, loanHeaders)
	if err != nil {
		return Report{}, err
	}
	report := Report{Sheet: sh.name}

	for i, row := range sh.rows {
		line := i + 2
		var l loanRow
		if err := l.parse(sh, row, line); err != nil {
			return report, err
		}

		var exists bool
		if err := im.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, l.customerID,
		).Scan(&exists); err != nil {
			return report, fmt.Errorf("row %d: customer lookup: %w", line, err)
		}
		if !exists {
			return report, fmt.Errorf("%w: row %d: loan %d references customer %d",
				ErrCustomerMissing, line, l.loanID, l.customerID)
		}

		res, err := im.db.ExecContext(ctx, `
			INSERT INTO loans (id, customer_id, loan_amount, tenure, interest_rate,
				monthly_repayment, emis_paid_on_time, start_date, end_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING`,
			l.loanID, l.customerID, l.amount, l.tenure, l.rate,
			l.payment, l.paidOnTime, l.start, l.end,
		)
		if err != nil {
			return report, fmt.Errorf("row %d: insert loan %d: %w", line, l.loanID, err)
		}
		report.count(res)
	}

	im.logger.Info("loans imported", map[string]interface{}{
		"sheet":   report.Sheet,
		"created": report.Created,
		"skipped": report.Skipped,
	})
	return report, nil
}

// ResetSequences moves the serial sequences past explicitly inserted ids so
// later registrations do not collide with imported rows.
func (im *Importer) ResetSequences(ctx context.Context) error {
	for _, table := range []string{"customers", "loans"} {
		_, err := im.db.ExecContext(ctx, fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)`,
			table))
		if err != nil {
			return fmt.Errorf("reset %s sequence: %w", table, err)
		}
	}
	return nil
}

func (r *Report) count(res sql.Result) {
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		r.Created++
		return
	}
	r.Skipped++
}

type loanRow struct {
	customerID int64
	loanID     int64
	amount     float64
	tenure     int64
	rate       float64
	payment    float64
	paidOnTime int64
	start      time.Time
	end        time.Time
}

func (l *loanRow) parse(sh *sheet, row []string, line int) error {
	var err error
	if l.customerID, err = sh.int(row, "customer_id", line); err != nil {
		return err
	}
	if l.loanID, err = sh.int(row, "loan_id", line); err != nil {
		return err
	}
	if l.amount, err = sh.float(row, "loan_amount", line); err != nil {
		return err
	}
	if l.tenure, err = sh.int(row, "tenure", line); err != nil {
		return err
	}
	if l.rate, err = sh.float(row, "interest_rate", line); err != nil {
		return err
	}
	if l.payment, err = sh.float(row, "monthly_payment", line); err != nil {
		return err
	}
	if l.paidOnTime, err = sh.int(row, "emis_paid_on_time", line); err != nil {
		return err
	}
	if l.start, err = sh.date(row, "date_of_approval", line); err != nil {
		return err
	}
	l.end, err = sh.date(row, "end_date", line)
	return err
}

// NormalizeHeader trims, lower-cases and replaces spaces with underscores.
func NormalizeHeader(h string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
}

type sheet struct {
	name    string
	columns map[string]int
	rows    [][]string
}

func readSheet(r io.Reader, required []string) (*sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	sh := &sheet{name: sheets[0], columns: map[string]int{}}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet %s is empty", ErrMissingColumn, sh.name)
	}
	for i, h := range rows[0] {
		sh.columns[NormalizeHeader(h)] = i
	}
	for _, col := range required {
		if _, ok := sh.columns[col]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	for _, row := range rows[1:] {
		if !blank(row) {
			sh.rows = append(sh.rows, row)
		}
	}
	return sh, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (s *sheet) str(row []string, col string) string {
	i := s.columns[col]
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (s *sheet) float(row []string, col string, line int) (float64, error) {
	v, err := strconv.ParseFloat(s.str(row, col), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: row %d column %s: %q", ErrInvalidCell, line, col, s.str(row, col))
	}
	return v, nil
}

// int accepts whole numbers only; Excel may store them as "12" or "12.0".
func (s *sheet) int(row []string, col string, line int) (int64, error) {
	v, err := s.float(row, col, line)
	if err != nil {
		return 0, err
	}
	if v != math.Trunc(v) || math.Abs(v) >= 1<<63 {
		return 0, fmt.Errorf("%w: row %d column %s: %q is not a whole number", ErrInvalidCell, line, col, s.str(row, col))
	}
	return int64(v), nil
}

var dateLayouts = []string{"2006-01-02", "2006-01-02 15:04:05", "01/02/2006", "1/2/2006", "02-01-2006"}

// date accepts an Excel serial number or one of the common text layouts.
func (s *sheet) date(row []string, col string, line int) (time.Time, error) {
	raw := s.str(row, col)
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		t, err := excelize.ExcelDateToTime(math.Round(serial*86400)/86400, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: row %d column %s: %v", ErrInvalidCell, line, col, err)
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: row %d column %s: %q is not a date", ErrInvalidCell, line, col, raw)
}
