package ledger

import "math/big"

// Percentage math runs through a 1e18 fixed-point intermediate so the
// multiply-divide chain never loses precision before the final truncation.
var (
	oneHundredPercent = big.NewInt(10_000) // basis points
	percentScale      = mustBigInt("1000000000000000000")
	percentDenom      = new(big.Int).Mul(oneHundredPercent, percentScale)
)

const (
	daySeconds = 86_400
	yearDays   = 365
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// mulDiv computes floor(a*b/c) without intermediate overflow. c must be
// non-zero; a zero divisor yields zero rather than a panic so callers can
// treat degenerate schedules as "nothing due".
func mulDiv(a, b, c *big.Int) *big.Int {
	if a == nil || b == nil || c == nil || c.Sign() == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, c)
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

func zero() *big.Int { return new(big.Int) }
