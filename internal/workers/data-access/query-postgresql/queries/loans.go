// internal/workers/data-access/query-postgresql/queries/loans.go
package queries

import (
	"context"

	"credit-approval-workers/internal/credit"
)

// LoanDetails returns one loan with the identifying fields of its customer.
func LoanDetails(ctx context.Context, r Reader, params map[string]interface{}) (interface{}, int, error) {
	loanID, err := idParam(params, "loanId")
	if err != nil {
		return nil, 0, err
	}

	loan, customer, err := r.FindLoan(ctx, loanID)
	if err != nil {
		return nil, 0, err
	}

	result := map[string]interface{}{
		"loanId": loan.ID,
		"customer": map[string]interface{}{
			"id":          customer.ID,
			"firstName":   customer.FirstName,
			"lastName":    customer.LastName,
			"phoneNumber": customer.PhoneNumber,
			"age":         customer.Age,
		},
		"loanAmount":         loan.LoanAmount,
		"interestRate":       loan.InterestRate,
		"monthlyInstallment": credit.RoundMoney(loan.MonthlyRepayment),
		"tenure":             loan.Tenure,
	}
	return result, 1, nil
}

// CustomerLoans lists every loan of a customer with the repayments left.
func CustomerLoans(ctx context.Context, r Reader, params map[string]interface{}) (interface{}, int, error) {
	customerID, err := idParam(params, "customerId")
	if err != nil {
		return nil, 0, err
	}

	loans, err := r.ListCustomerLoans(ctx, customerID)
	if err != nil {
		return nil, 0, err
	}

	results := make([]map[string]interface{}, 0, len(loans))
	for _, l := range loans {
		results = append(results, map[string]interface{}{
			"loanId":             l.ID,
			"loanAmount":         l.LoanAmount,
			"interestRate":       l.InterestRate,
			"monthlyInstallment": credit.RoundMoney(l.MonthlyRepayment),
			"repaymentsLeft":     l.RepaymentsLeft(),
		})
	}
	return results, len(results), nil
}
