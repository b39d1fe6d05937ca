package pricing

import (
	"math/big"

	"github.com/JohnCGriffin/overflow"
)

// Amounts throughout this package are signed minor currency units (cents)
// held in int64. Discounts are negative by convention.

// mulQuo computes trunc(a*b/den) with exact integer arithmetic, truncating
// toward zero. When the intermediate product would overflow int64 the
// computation spills into big.Int; it never goes through floating point.
func mulQuo(a, b, den int64) int64 {
	if prod, ok := overflow.Mul64(a, b); ok {
		return prod / den
	}
	q := new(big.Int).Mul(big.NewInt(a), big.NewInt(b))
	q.Quo(q, big.NewInt(den))
	return q.Int64()
}
