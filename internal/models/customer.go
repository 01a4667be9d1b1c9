// internal/models/customer.go
package models

import "time"

// Customer is a row of the customers table.
type Customer struct {
	ID            int64     `json:"id"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Age           *int      `json:"age,omitempty"`
	PhoneNumber   string    `json:"phoneNumber"`
	Email         string    `json:"email,omitempty"`
	MonthlySalary float64   `json:"monthlySalary"`
	ApprovedLimit float64   `json:"approvedLimit"`
	CurrentDebt   float64   `json:"currentDebt"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}
