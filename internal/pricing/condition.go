package pricing

import (
	"errors"
	"fmt"

	"tillpoint/backend/internal/domain"
)

// ErrNonPositiveArgument is returned by condition constructors when given a
// count or threshold below one.
var ErrNonPositiveArgument = errors.New("must be a positive integer")

// Condition is a stateful predicate over a stream of scanned products.
// Check never mutates its receiver: it reports whether the condition holds
// for this product and returns the successor state, which the caller must
// thread into the next call. Conditions compose by wrapping, so a rule like
// "every 2nd green tea" is ProductEquals("GR1", EveryNth(2, nil)).
type Condition interface {
	Check(p domain.Product) (bool, Condition)
}

type anyCondition struct{}

// Any is satisfied by every product and carries no state.
func Any() Condition { return anyCondition{} }

func (c anyCondition) Check(domain.Product) (bool, Condition) {
	return true, c
}

type productEquals struct {
	code  string
	inner Condition
}

// ProductEquals is satisfied when the product's code matches and the inner
// condition (Any when nil) is also satisfied. The inner condition advances
// only on matching products.
func ProductEquals(code string, inner Condition) Condition {
	return productEquals{code: code, inner: orAny(inner)}
}

func (c productEquals) Check(p domain.Product) (bool, Condition) {
	if p.Code != c.code {
		return false, c
	}
	ok, next := c.inner.Check(p)
	return ok, productEquals{code: c.code, inner: next}
}

type everyNth struct {
	n       int
	counter int
	inner   Condition
}

// EveryNth is satisfied on every n-th product that reaches it; the inner
// condition (Any when nil) is evaluated only on those products. n must be
// positive.
func EveryNth(n int, inner Condition) (Condition, error) {
	if n < 1 {
		return nil, fmt.Errorf("every nth: n %w, got %d", ErrNonPositiveArgument, n)
	}
	return everyNth{n: n, inner: orAny(inner)}, nil
}

func (c everyNth) Check(p domain.Product) (bool, Condition) {
	if c.counter+1 == c.n {
		ok, next := c.inner.Check(p)
		return ok, everyNth{n: c.n, counter: 0, inner: next}
	}
	return false, everyNth{n: c.n, counter: c.counter + 1, inner: c.inner}
}

type afterCount struct {
	threshold int
	counter   int
	inner     Condition
}

// AfterCount is unsatisfied for its first threshold evaluations and from
// then on defers to the inner condition (Any when nil). The counter advances
// on every evaluation and never resets. threshold must be positive.
func AfterCount(threshold int, inner Condition) (Condition, error) {
	if threshold < 1 {
		return nil, fmt.Errorf("after count: threshold %w, got %d", ErrNonPositiveArgument, threshold)
	}
	return afterCount{threshold: threshold, inner: orAny(inner)}, nil
}

func (c afterCount) Check(p domain.Product) (bool, Condition) {
	if c.counter >= c.threshold {
		ok, next := c.inner.Check(p)
		return ok, afterCount{threshold: c.threshold, counter: c.counter + 1, inner: next}
	}
	return false, afterCount{threshold: c.threshold, counter: c.counter + 1, inner: c.inner}
}

func orAny(c Condition) Condition {
	if c == nil {
		return anyCondition{}
	}
	return c
}
