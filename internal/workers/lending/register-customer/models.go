// internal/workers/lending/register-customer/models.go
package registercustomer

type Input struct {
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Age           *int    `json:"age"`
	MonthlyIncome float64 `json:"monthlyIncome"`
	PhoneNumber   string  `json:"phoneNumber"`
	Email         string  `json:"email,omitempty"`
}

type Output struct {
	CustomerID    int64   `json:"customerId"`
	Name          string  `json:"name"`
	Age           *int    `json:"age"`
	MonthlySalary float64 `json:"monthlySalary"`
	ApprovedLimit float64 `json:"approvedLimit"`
	PhoneNumber   string  `json:"phoneNumber"`
}
