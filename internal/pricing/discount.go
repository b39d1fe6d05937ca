package pricing

import "fmt"

// DiscountAmount is a discount magnitude: either an absolute amount in
// minor units, independent of the price it is applied to, or an exact
// rational fraction of that price. The fraction is kept as an integer
// numerator and denominator so shares like one third never lose precision
// at intermediate steps.
type DiscountAmount struct {
	num int64
	den int64 // 0 marks an absolute amount
}

// Absolute builds a price-independent discount of the given minor units.
func Absolute(amountCents int64) DiscountAmount {
	return DiscountAmount{num: amountCents}
}

// Share builds a fractional discount of parts/of. The denominator must be
// positive; the fraction need not be reduced.
func Share(parts, of int64) (DiscountAmount, error) {
	if of < 1 {
		return DiscountAmount{}, fmt.Errorf("share: denominator %w, got %d", ErrNonPositiveArgument, of)
	}
	return DiscountAmount{num: parts, den: of}, nil
}

// Percents builds a fractional discount of p/100.
func Percents(p int64) DiscountAmount {
	amount, _ := Share(p, 100)
	return amount
}

// Compute returns the discount in minor units for the given price.
// Absolute amounts come back unchanged regardless of price; fractions are
// computed exactly, truncating toward zero.
func (d DiscountAmount) Compute(priceCents int64) int64 {
	if d.den == 0 {
		return d.num
	}
	return mulQuo(priceCents, d.num, d.den)
}
