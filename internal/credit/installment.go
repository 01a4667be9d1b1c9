package credit

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// ComputeInstallment returns the fixed monthly installment (EMI) that repays
// principal over tenureMonths at annualRatePercent on a reducing balance.
func ComputeInstallment(principal, annualRatePercent float64, tenureMonths int) (float64, error) {
	if err := (Request{Principal: principal, InterestRate: annualRatePercent, TenureMonths: tenureMonths}).Validate(); err != nil {
		return 0, err
	}
	return installment(principal, annualRatePercent, tenureMonths)
}

// installment fails with a ValidationError when the annuity factor
// overflows float64.
func installment(principal, annualRatePercent float64, n int) (float64, error) {
	r := annualRatePercent / 1200
	var emi float64
	if r == 0 {
		emi = principal / float64(n)
	} else {
		growth := math.Pow(1+r, float64(n))
		emi = principal * r * growth / (growth - 1)
	}
	if math.IsNaN(emi) || math.IsInf(emi, 0) {
		return 0, invalid("tenure", "with this interest rate gives an installment out of range")
	}
	return emi, nil
}

// RoundMoney rounds to two decimal places.
func RoundMoney(v float64) float64 {
	return roundHalfEven(v, 2)
}

// roundHalfEven rounds the exact binary value of v, breaking exact ties to
// even. 0.125 is a tie and becomes 0.12; 2.675 is stored just below the tie
// and becomes 2.67. Non-finite values are returned unchanged.
func roundHalfEven(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	// 40 fractional digits keep every non-tie double distinguishable from the
	// tie next to it.
	d, err := decimal.NewFromString(strconv.FormatFloat(v, 'f', 40, 64))
	if err != nil {
		return v
	}
	return d.RoundBank(places).InexactFloat64()
}
