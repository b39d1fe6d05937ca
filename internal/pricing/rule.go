package pricing

import (
	"slices"

	"tillpoint/backend/internal/domain"
)

// DiscountSpec turns a qualifying product's price into discount items.
// Like Condition.Check, produce is a pure transition: it returns the rule's
// new item list and the successor spec, leaving the receiver untouched.
type DiscountSpec interface {
	produce(ruleName string, priceCents int64, prior []domain.DiscountItem) ([]domain.DiscountItem, DiscountSpec)
}

type plainSpec struct {
	amount DiscountAmount
}

// Plain appends one discount item per qualifying product.
func Plain(amount DiscountAmount) DiscountSpec {
	return plainSpec{amount: amount}
}

func (s plainSpec) produce(ruleName string, priceCents int64, prior []domain.DiscountItem) ([]domain.DiscountItem, DiscountSpec) {
	items := make([]domain.DiscountItem, len(prior), len(prior)+1)
	copy(items, prior)
	items = append(items, domain.DiscountItem{Name: ruleName, AmountCents: s.amount.Compute(priceCents)})
	return items, s
}

type bulkSpec struct {
	amount       DiscountAmount
	runningCents int64
}

// Bulk keeps a single discount item recomputed from the cumulative price of
// all qualifying products so far, replacing the previous item each time. It
// never accumulates per-step discounts: truncation happens once, on the
// running total.
func Bulk(amount DiscountAmount) DiscountSpec {
	return bulkSpec{amount: amount}
}

func (s bulkSpec) produce(ruleName string, priceCents int64, _ []domain.DiscountItem) ([]domain.DiscountItem, DiscountSpec) {
	total := s.runningCents + priceCents
	item := domain.DiscountItem{Name: ruleName, AmountCents: s.amount.Compute(total)}
	return []domain.DiscountItem{item}, bulkSpec{amount: s.amount, runningCents: total}
}

// Rule couples a discount spec with a precondition gating which products
// qualify and a postcondition gating whether the produced items currently
// count toward totals. Rules are values threaded forward by Apply; a cart
// owns its rule copies and never shares them.
type Rule struct {
	Name     string
	pre      Condition
	post     Condition
	spec     DiscountSpec
	active   bool
	produced []domain.DiscountItem
}

// NewRule builds an inactive rule with no produced items. Nil pre and post
// conditions default to Any.
func NewRule(name string, spec DiscountSpec, pre, post Condition) Rule {
	return Rule{Name: name, spec: spec, pre: orAny(pre), post: orAny(post)}
}

// Apply advances the rule by one scanned product and returns the successor
// rule. When the precondition rejects the product only the precondition
// state moves; otherwise the discount items are updated and the
// postcondition decides whether they are currently visible. A postcondition
// that never holds still sees its counters advance, so the work is done
// either way and only its effect is suppressed.
func (r Rule) Apply(p domain.Product) Rule {
	applies, nextPre := r.pre.Check(p)
	r.pre = nextPre
	if !applies {
		return r
	}

	r.produced, r.spec = r.spec.produce(r.Name, p.PriceCents, r.produced)

	active, nextPost := r.post.Check(p)
	r.post = nextPost
	r.active = active
	return r
}

// Active reports whether the postcondition held at the last evaluation.
func (r Rule) Active() bool {
	return r.active
}

// Items returns the rule's visible discount lines: everything produced so
// far while the rule is active, nothing otherwise.
func (r Rule) Items() []domain.DiscountItem {
	if !r.active {
		return nil
	}
	return slices.Clone(r.produced)
}

// Total sums the visible discount lines.
func (r Rule) Total() int64 {
	var sum int64
	if !r.active {
		return sum
	}
	for _, item := range r.produced {
		sum += item.AmountCents
	}
	return sum
}
