package credit

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var evalTime = time.Date(2026, time.June, 15, 10, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func freshBorrower() Borrower {
	return Borrower{ID: 1, MonthlySalary: 50000, ApprovedLimit: 1000000}
}

// one closed loan fully repaid, one running loan half repaid
func mixedHistory() []LoanRecord {
	return []LoanRecord{
		{
			ID: 10, BorrowerID: 1, Principal: 100000, TenureMonths: 12, InterestRate: 10,
			MonthlyInstallment: 8791.59, EMIsPaidOnTime: 12,
			StartDate: date(2024, time.January, 1), EndDate: date(2025, time.January, 1),
		},
		{
			ID: 11, BorrowerID: 1, Principal: 200000, TenureMonths: 36, InterestRate: 10,
			MonthlyInstallment: 6453.44, EMIsPaidOnTime: 18,
			StartDate: date(2026, time.January, 10), EndDate: date(2029, time.January, 10),
		},
	}
}

// ==========================
// Installment Tests
// ==========================

func TestComputeInstallment(t *testing.T) {
	tests := []struct {
		name      string
		principal float64
		rate      float64
		tenure    int
		expected  float64
	}{
		{"ten percent one year", 100000, 10, 12, 8791.59},
		{"fifteen percent one year", 100000, 15, 12, 9025.83},
		{"sixteen percent one year", 100000, 16, 12, 9073.09},
		{"long tenure", 2000000, 8, 240, 16728.80},
		{"zero rate is straight line", 120000, 0, 12, 10000},
		{"single month at zero rate", 5000, 0, 1, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emi, err := ComputeInstallment(tt.principal, tt.rate, tt.tenure)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, RoundMoney(emi))
		})
	}
}

func TestComputeInstallment_ZeroRateIsExact(t *testing.T) {
	emi, err := ComputeInstallment(120000, 0, 12)
	require.NoError(t, err)
	assert.Equal(t, 10000.0, emi)
}

func TestComputeInstallment_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		principal float64
		rate      float64
		tenure    int
		field     string
	}{
		{"zero tenure", 100000, 10, 0, "tenure"},
		{"negative tenure", 100000, 10, -3, "tenure"},
		{"negative rate", 100000, -1, 12, "interestRate"},
		{"negative principal", -5, 10, 12, "loanAmount"},
		{"NaN principal", math.NaN(), 10, 12, "loanAmount"},
		{"infinite principal", math.Inf(1), 10, 12, "loanAmount"},
		{"NaN rate", 100000, math.NaN(), 12, "interestRate"},
		{"infinite rate", 100000, math.Inf(1), 12, "interestRate"},
		{"tenure overflows the annuity factor", 100000, 10, 100000, "tenure"},
		{"rate near float max", 100000, math.MaxFloat64 / 2, 12, "tenure"},
		{"huge rate single month", 1e300, 1e300, 1, "tenure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeInstallment(tt.principal, tt.rate, tt.tenure)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{8791.58872300099, 8791.59},
		{0.125, 0.12},          // exact tie goes to even
		{0.375, 0.38},          // exact tie goes to even
		{-0.125, -0.12},        // exact tie goes to even
		{10000.125, 10000.12},  // exact tie goes to even
		{2.675, 2.67},          // stored below the tie
		{1.005, 1.0},           // stored below the tie
		{0.015, 0.01},          // stored below the tie
		{0.035, 0.04},          // stored above the tie
		{12, 12},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundMoney(tt.in), "RoundMoney(%v)", tt.in)
	}
}

func TestRoundMoney_NonFiniteUnchanged(t *testing.T) {
	assert.True(t, math.IsNaN(RoundMoney(math.NaN())))
	assert.True(t, math.IsInf(RoundMoney(math.Inf(1)), 1))
}

// ==========================
// Band Table Tests
// ==========================

func TestBandTables(t *testing.T) {
	t.Run("loan count", func(t *testing.T) {
		cases := map[float64]float64{0: 5, 1: 10, 2: 10, 3: 7, 5: 7, 6: 3, 40: 3}
		for count, want := range cases {
			assert.Equal(t, want, LoanCountBands.Lookup(count), "count %v", count)
		}
	})

	t.Run("recent loans", func(t *testing.T) {
		cases := map[float64]float64{0: 10, 1: 5, 3: 5, 4: 2, 12: 2}
		for count, want := range cases {
			assert.Equal(t, want, RecentLoanBands.Lookup(count), "count %v", count)
		}
	})

	t.Run("exposure", func(t *testing.T) {
		cases := map[float64]float64{0: 10, 0.29: 10, 0.3: 5, 0.59: 5, 0.6: 1, 0.89: 1, 0.9: 0, 1: 0, 3.5: 0}
		for ratio, want := range cases {
			assert.Equal(t, want, ExposureBands.Lookup(ratio), "ratio %v", ratio)
		}
	})
}

// ==========================
// Score Tests
// ==========================

func TestScoreBreakdown_NoHistory(t *testing.T) {
	bd := ScoreBreakdown(freshBorrower(), nil, evalTime)

	assert.Equal(t, 5.0, bd.Repayment)
	assert.Equal(t, 5.0, bd.LoanCount)
	assert.Equal(t, 10.0, bd.RecentLoan)
	assert.Equal(t, 10.0, bd.Exposure)
	assert.Equal(t, 30.0, bd.Total)
}

func TestScoreBreakdown_MixedHistory(t *testing.T) {
	bd := ScoreBreakdown(freshBorrower(), mixedHistory(), evalTime)

	assert.Equal(t, 12.5, bd.Repayment) // 30 of 48 installments on time
	assert.Equal(t, 10.0, bd.LoanCount)
	assert.Equal(t, 5.0, bd.RecentLoan)
	assert.Equal(t, 5.0, bd.Exposure) // 300000 / 1000000 sits on the 0.3 boundary
	assert.Equal(t, 32.5, bd.Total)
	assert.Equal(t, bd.Total, ComputeScore(freshBorrower(), mixedHistory(), evalTime))
}

func TestScoreBreakdown_ZeroApprovedLimitIsFullyExposed(t *testing.T) {
	b := freshBorrower()
	b.ApprovedLimit = 0

	bd := ScoreBreakdown(b, nil, evalTime)

	assert.Equal(t, 0.0, bd.Exposure)
	assert.Equal(t, 20.0, bd.Total)
}

func TestScoreBreakdown_ZeroExpectedInstallments(t *testing.T) {
	loans := []LoanRecord{{Principal: 1000, TenureMonths: 0, EMIsPaidOnTime: 0, StartDate: date(2020, time.May, 1)}}

	bd := ScoreBreakdown(freshBorrower(), loans, evalTime)

	assert.Equal(t, 0.0, bd.Repayment)
	assert.Equal(t, 10.0, bd.LoanCount)
	assert.Equal(t, 10.0, bd.RecentLoan)
}

func TestScoreBreakdown_RecentActivityUsesEvaluationYear(t *testing.T) {
	loans := mixedHistory()

	thisYear := ScoreBreakdown(freshBorrower(), loans, evalTime)
	nextYear := ScoreBreakdown(freshBorrower(), loans, evalTime.AddDate(1, 0, 0))

	assert.Equal(t, 5.0, thisYear.RecentLoan)
	assert.Equal(t, 10.0, nextYear.RecentLoan)
}

// ==========================
// Affordability Tests
// ==========================

func TestCheckAffordability(t *testing.T) {
	b := Borrower{MonthlySalary: 10000, ApprovedLimit: 50000}

	tests := []struct {
		name      string
		loans     []LoanRecord
		emi       float64
		principal float64
		ok        bool
		reason    string
	}{
		{"within both caps", nil, 4000, 40000, true, ""},
		{"installment exactly half of salary", nil, 5000, 40000, true, ""},
		{"installment over half of salary", nil, 5000.01, 40000, false, ReasonEMIExceeded},
		{"existing installments count", []LoanRecord{{MonthlyInstallment: 3000, Principal: 1000}}, 2500, 1000, false, ReasonEMIExceeded},
		{"limit exceeded", []LoanRecord{{MonthlyInstallment: 100, Principal: 30000}}, 100, 20001, false, ReasonLimitExceeded},
		{"installment check wins", nil, 9000, 90000, false, ReasonEMIExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := CheckAffordability(b, tt.loans, tt.emi, tt.principal)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCheckAffordability_ZeroSalaryRejectsAnyLoan(t *testing.T) {
	ok, reason := CheckAffordability(Borrower{ApprovedLimit: 1e6}, nil, 0.01, 1)
	assert.False(t, ok)
	assert.Equal(t, ReasonEMIExceeded, reason)
}

// ==========================
// Decision Policy Tests
// ==========================

func TestDecide(t *testing.T) {
	tests := []struct {
		score    float64
		rate     float64
		approved bool
		expected float64
	}{
		{80, 8, true, 8},
		{50.01, 8, true, 8},
		{50, 8, true, 12},
		{50, 14, true, 14},
		{30.01, 11.99, true, 12},
		{30, 8, true, 16},
		{30, 18, true, 18},
		{10.01, 0, true, 16},
		{10, 8, false, 8},
		{0, 20, false, 20},
	}

	for _, tt := range tests {
		d := Decide(tt.score, tt.rate)
		assert.Equal(t, tt.approved, d.Approved, "score %v", tt.score)
		assert.Equal(t, tt.expected, d.CorrectedRate, "score %v", tt.score)
		if tt.approved {
			assert.Equal(t, ReasonApproved, d.Reason)
		} else {
			assert.Equal(t, ReasonLowCreditScore, d.Reason)
		}
	}
}

func TestDecide_NeverLowersRequestedRate(t *testing.T) {
	for _, rate := range []float64{0, 5, 11.5, 12, 15, 16, 22} {
		for score := 10.01; score <= 50; score += 0.5 {
			d := Decide(score, rate)
			require.True(t, d.Approved)
			assert.GreaterOrEqual(t, d.CorrectedRate, rate)
		}
		above30 := Decide(30.01, rate).CorrectedRate
		above50 := Decide(50.01, rate).CorrectedRate
		assert.Equal(t, rate, above50)
		assert.True(t, above30 == rate || above30 == 12)
	}
}

// ==========================
// Evaluate Tests
// ==========================

func TestEvaluate_FreshBorrowerGetsRateFloor(t *testing.T) {
	res, err := Evaluate(freshBorrower(), nil, Request{BorrowerID: 1, Principal: 100000, InterestRate: 15, TenureMonths: 12}, evalTime)
	require.NoError(t, err)

	assert.True(t, res.Approved)
	assert.Equal(t, 15.0, res.InterestRate)
	assert.Equal(t, 16.0, res.CorrectedInterestRate)
	require.NotNil(t, res.Score)
	assert.Equal(t, 30.0, *res.Score)
	require.NotNil(t, res.MonthlyInstallment)
	assert.Equal(t, 9073.09, *res.MonthlyInstallment)
	assert.Equal(t, ReasonApproved, res.Reason)
}

func TestEvaluate_EMICapTakesPrecedence(t *testing.T) {
	b := Borrower{ID: 2, MonthlySalary: 10000, ApprovedLimit: 1000}

	res, err := Evaluate(b, nil, Request{Principal: 100000, InterestRate: 10, TenureMonths: 12}, evalTime)
	require.NoError(t, err)

	assert.False(t, res.Approved)
	assert.Equal(t, ReasonEMIExceeded, res.Reason)
	assert.Nil(t, res.Score)
	assert.Nil(t, res.MonthlyInstallment)
}

func TestEvaluate_ApprovedLimitExceeded(t *testing.T) {
	res, err := Evaluate(freshBorrower(), nil, Request{Principal: 2000000, InterestRate: 8, TenureMonths: 240}, evalTime)
	require.NoError(t, err)

	assert.False(t, res.Approved)
	assert.Equal(t, ReasonLimitExceeded, res.Reason)
	assert.Nil(t, res.Score)
	assert.Equal(t, 8.0, res.CorrectedInterestRate)
}

func TestEvaluate_MixedHistoryRaisesToTwelve(t *testing.T) {
	res, err := Evaluate(freshBorrower(), mixedHistory(), Request{Principal: 100000, InterestRate: 10, TenureMonths: 12}, evalTime)
	require.NoError(t, err)

	assert.True(t, res.Approved)
	assert.Equal(t, 32.5, *res.Score)
	assert.Equal(t, 12.0, res.CorrectedInterestRate)
	assert.Equal(t, 8884.88, *res.MonthlyInstallment)
}

func TestEvaluate_ClosedLoansCountTowardInstallmentCap(t *testing.T) {
	b := freshBorrower()
	b.MonthlySalary = 47000 // cap 23500; open loan alone fits, closed one tips it over

	res, err := Evaluate(b, mixedHistory(), Request{Principal: 100000, InterestRate: 10, TenureMonths: 12}, evalTime)
	require.NoError(t, err)

	assert.False(t, res.Approved)
	assert.Equal(t, ReasonEMIExceeded, res.Reason)
}

func TestEvaluate_LowScoreRejected(t *testing.T) {
	var loans []LoanRecord
	for i := 0; i < 6; i++ {
		loans = append(loans, LoanRecord{
			ID: int64(i + 1), Principal: 150000, TenureMonths: 24, MonthlyInstallment: 1000,
			StartDate: date(2026, time.February, i+1), EndDate: date(2028, time.February, i+1),
		})
	}

	res, err := Evaluate(freshBorrower(), loans, Request{Principal: 100000, InterestRate: 10, TenureMonths: 12}, evalTime)
	require.NoError(t, err)

	assert.False(t, res.Approved)
	assert.Equal(t, ReasonLowCreditScore, res.Reason)
	require.NotNil(t, res.Score)
	assert.Equal(t, 5.0, *res.Score)
	assert.Nil(t, res.MonthlyInstallment)
}

func TestEvaluate_InvalidRequest(t *testing.T) {
	_, err := Evaluate(freshBorrower(), nil, Request{Principal: 1000, InterestRate: 10, TenureMonths: 0}, evalTime)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestEvaluate_OutOfRangeInputsAreRejected(t *testing.T) {
	b := Borrower{ID: 1, MonthlySalary: 50000, ApprovedLimit: 1e6}
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{"tenure overflows", Request{BorrowerID: 1, Principal: 100000, InterestRate: 10, TenureMonths: 100000}, "tenure"},
		{"rate near float max", Request{BorrowerID: 1, Principal: 100000, InterestRate: math.MaxFloat64, TenureMonths: 12}, "tenure"},
		{"NaN principal", Request{BorrowerID: 1, Principal: math.NaN(), InterestRate: 10, TenureMonths: 12}, "loanAmount"},
		{"infinite principal", Request{BorrowerID: 1, Principal: math.Inf(1), InterestRate: 10, TenureMonths: 12}, "loanAmount"},
		{"NaN rate", Request{BorrowerID: 1, Principal: 100000, InterestRate: math.NaN(), TenureMonths: 12}, "interestRate"},
		{"infinite rate", Request{BorrowerID: 1, Principal: 100000, InterestRate: math.Inf(1), TenureMonths: 12}, "interestRate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				res Result
				err error
			)
			require.NotPanics(t, func() { res, err = Evaluate(b, nil, tt.req, evalTime) })
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidRequest))

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
			assert.False(t, res.Approved)
			assert.Nil(t, res.MonthlyInstallment)
		})
	}
}

func TestEvaluate_CorrectedRateOverflowIsRejected(t *testing.T) {
	// Over 60000 months the factor is finite at 10% but overflows at the 16%
	// floor a fresh borrower is raised to.
	req := Request{BorrowerID: 1, Principal: 1, InterestRate: 10, TenureMonths: 60000}
	b := Borrower{ID: 1, MonthlySalary: 1e6, ApprovedLimit: 1e6}

	var err error
	require.NotPanics(t, func() { _, err = Evaluate(b, nil, req, evalTime) })
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestEvaluate_Idempotent(t *testing.T) {
	req := Request{Principal: 100000, InterestRate: 10, TenureMonths: 12}

	first, err := Evaluate(freshBorrower(), mixedHistory(), req, evalTime)
	require.NoError(t, err)
	second, err := Evaluate(freshBorrower(), mixedHistory(), req, evalTime)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

// ==========================
// Evaluator Tests
// ==========================

type fakeSource struct {
	borrowers map[int64]Borrower
	loans     map[int64][]LoanRecord
	loansErr  error
}

func (f *fakeSource) FetchBorrower(_ context.Context, id int64) (Borrower, error) {
	b, ok := f.borrowers[id]
	if !ok {
		return Borrower{}, ErrBorrowerNotFound
	}
	return b, nil
}

func (f *fakeSource) FetchLoanHistory(_ context.Context, id int64) ([]LoanRecord, error) {
	return f.loans[id], f.loansErr
}

func TestEvaluator_Evaluate(t *testing.T) {
	src := &fakeSource{
		borrowers: map[int64]Borrower{1: freshBorrower()},
		loans:     map[int64][]LoanRecord{1: mixedHistory()},
	}
	ev := NewEvaluator(src, func() time.Time { return evalTime })

	res, err := ev.Evaluate(context.Background(), Request{BorrowerID: 1, Principal: 100000, InterestRate: 10, TenureMonths: 12})
	require.NoError(t, err)
	assert.True(t, res.Approved)
	assert.Equal(t, 12.0, res.CorrectedInterestRate)
}

func TestEvaluator_Errors(t *testing.T) {
	src := &fakeSource{borrowers: map[int64]Borrower{1: freshBorrower()}}
	ev := NewEvaluator(src, nil)

	_, err := ev.Evaluate(context.Background(), Request{BorrowerID: 99, Principal: 1, InterestRate: 1, TenureMonths: 1})
	assert.True(t, errors.Is(err, ErrBorrowerNotFound))

	_, err = ev.Evaluate(context.Background(), Request{BorrowerID: 1, Principal: 1, InterestRate: 1})
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	src.loansErr = errors.New("connection reset")
	_, err = ev.Evaluate(context.Background(), Request{BorrowerID: 1, Principal: 1, InterestRate: 1, TenureMonths: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
