// internal/workers/data-access/query-postgresql/queries/customers.go
package queries

import (
	"context"
	"time"

	"credit-approval-workers/internal/credit"
	"credit-approval-workers/internal/lending"
)

// CustomerProfile summarises a customer and their loan book as of now.
func CustomerProfile(ctx context.Context, r Reader, params map[string]interface{}) (interface{}, int, error) {
	customerID, err := idParam(params, "customerId")
	if err != nil {
		return nil, 0, err
	}

	customer, err := r.FindCustomer(ctx, customerID)
	if err != nil {
		return nil, 0, err
	}
	loans, err := r.ListCustomerLoans(ctx, customerID)
	if err != nil {
		return nil, 0, err
	}

	now := time.Now()
	records := lending.ToLoanRecords(loans)
	var active int
	var activePrincipal, activeInstallments float64
	for _, l := range records {
		if l.Active(now) {
			active++
			activePrincipal += l.Principal
			activeInstallments += l.MonthlyInstallment
		}
	}

	result := map[string]interface{}{
		"customerId":         customer.ID,
		"name":               customer.FullName(),
		"age":                customer.Age,
		"phoneNumber":        customer.PhoneNumber,
		"email":              customer.Email,
		"monthlySalary":      customer.MonthlySalary,
		"approvedLimit":      customer.ApprovedLimit,
		"currentDebt":        customer.CurrentDebt,
		"totalLoans":         len(loans),
		"activeLoans":        active,
		"activePrincipal":    activePrincipal,
		"activeInstallments": credit.RoundMoney(activeInstallments),
		"creditScore": credit.ComputeScore(credit.Borrower{
			ID:            customer.ID,
			MonthlySalary: customer.MonthlySalary,
			ApprovedLimit: customer.ApprovedLimit,
			CurrentDebt:   customer.CurrentDebt,
		}, records, now),
	}
	return result, 1, nil
}
