package credit

// CheckAffordability applies the hard caps that reject a loan regardless of
// score. The installment cap is checked first and wins when both fail.
func CheckAffordability(b Borrower, loans []LoanRecord, newInstallment, principal float64) (bool, string) {
	var installments, principals float64
	for _, l := range loans {
		installments += l.MonthlyInstallment
		principals += l.Principal
	}

	if installments+newInstallment > SalaryInstallmentCap*b.MonthlySalary {
		return false, ReasonEMIExceeded
	}
	if principals+principal > b.ApprovedLimit {
		return false, ReasonLimitExceeded
	}
	return true, ""
}

// Decision is the outcome of the score policy.
type Decision struct {
	Approved      bool
	CorrectedRate float64
	Reason        string
}

// Decide maps a score onto approval and a floored interest rate.
func Decide(score, requestedRate float64) Decision {
	for _, tier := range RateTiers {
		if score <= tier.MinScore || score > tier.MaxScore {
			continue
		}
		if tier.Reject {
			return Decision{CorrectedRate: requestedRate, Reason: ReasonLowCreditScore}
		}
		rate := requestedRate
		if rate < tier.MinRate {
			rate = tier.MinRate
		}
		return Decision{Approved: true, CorrectedRate: rate, Reason: ReasonApproved}
	}
	return Decision{CorrectedRate: requestedRate, Reason: ReasonLowCreditScore}
}
