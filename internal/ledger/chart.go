package ledger

import "github.com/shopspring/decimal"

var (
	defaultDomainHi = decimal.NewFromInt(100)
	flatPad         = decimal.NewFromInt(50)
	ten             = decimal.NewFromInt(10)
)

// ChartYDomain returns a padded display range for a balance series:
// 10% of the value spread below the minimum and above the maximum.
// A flat series gets ±50 around its single value, an empty one the
// default 0..100. When the minimum is non-negative the lower bound is
// clamped at zero so an all-positive chart never dips below the axis.
func ChartYDomain(points []BalancePoint) (lower, upper decimal.Decimal) {
	if len(points) == 0 {
		return decimal.Zero, defaultDomainHi
	}

	min, max := points[0].Balance, points[0].Balance
	for _, p := range points[1:] {
		if p.Balance.LessThan(min) {
			min = p.Balance
		}
		if p.Balance.GreaterThan(max) {
			max = p.Balance
		}
	}

	pad := flatPad
	if !min.Equal(max) {
		pad = max.Sub(min).Div(ten)
	}

	lower = min.Sub(pad)
	upper = max.Add(pad)
	if min.Sign() >= 0 && lower.Sign() < 0 {
		lower = decimal.Zero
	}
	return lower, upper
}
