package credit

import "math"

// Band maps every input up to UpperBound onto Value.
type Band struct {
	UpperBound float64
	Value      float64
}

// BandTable is an ordered list of bands. Inclusive tables match x <= bound,
// exclusive ones x < bound. The last band must be unbounded.
type BandTable struct {
	Inclusive bool
	Bands     []Band
}

// Lookup returns the value of the first band containing x.
func (t BandTable) Lookup(x float64) float64 {
	for _, b := range t.Bands {
		if x < b.UpperBound || (t.Inclusive && x == b.UpperBound) {
			return b.Value
		}
	}
	return 0
}

var unbounded = math.Inf(1)

// Score weights and bands.
const (
	RepaymentWeight       = 20.0
	NoHistoryRepayment    = 5.0
	MaxScore              = 100.0
	SalaryInstallmentCap  = 0.5
	FullyExposedWhenNoCap = 1.0
)

var (
	LoanCountBands = BandTable{Inclusive: true, Bands: []Band{
		{0, 5},
		{2, 10},
		{5, 7},
		{unbounded, 3},
	}}

	RecentLoanBands = BandTable{Inclusive: true, Bands: []Band{
		{0, 10},
		{3, 5},
		{unbounded, 2},
	}}

	ExposureBands = BandTable{Bands: []Band{
		{0.3, 10},
		{0.6, 5},
		{0.9, 1},
		{unbounded, 0},
	}}
)

// RateTier applies to scores in (MinScore, MaxScore]. A zero MinRate leaves
// the requested rate untouched; a rejecting tier declines the loan.
type RateTier struct {
	MinScore float64
	MaxScore float64
	MinRate  float64
	Reject   bool
}

// RateTiers is checked top-down.
var RateTiers = []RateTier{
	{MinScore: 50, MaxScore: unbounded},
	{MinScore: 30, MaxScore: 50, MinRate: 12},
	{MinScore: 10, MaxScore: 30, MinRate: 16},
	{MinScore: math.Inf(-1), MaxScore: 10, Reject: true},
}
