package credit

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidRequest   = errors.New("INVALID_LOAN_REQUEST")
	ErrBorrowerNotFound = errors.New("CUSTOMER_NOT_FOUND")
)

// ValidationError names the offending field of a rejected request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidRequest, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks the numeric constraints of a request.
func (r Request) Validate() error {
	if !finite(r.Principal) {
		return invalid("loanAmount", "must be a finite number")
	}
	if !finite(r.InterestRate) {
		return invalid("interestRate", "must be a finite number")
	}
	if r.TenureMonths < 1 {
		return invalid("tenure", "must be a positive number of months")
	}
	if r.InterestRate < 0 {
		return invalid("interestRate", "must not be negative")
	}
	if r.Principal < 0 {
		return invalid("loanAmount", "must not be negative")
	}
	return nil
}
