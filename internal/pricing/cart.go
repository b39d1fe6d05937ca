package pricing

import (
	"slices"

	"tillpoint/backend/internal/domain"
)

// Cart is an ordered log of scanned products plus the rules evaluating
// them. Carts are values: Add returns a new cart and shares no mutable
// state with its input, so two carts derived from the same starting point
// evolve independently.
type Cart struct {
	items []domain.Product
	rules []Rule
	price int64
}

// Empty returns a cart with no products. The rule slice is copied so the
// cart owns its rule state exclusively.
func Empty(rules []Rule) Cart {
	return Cart{rules: slices.Clone(rules)}
}

// Add folds the given products into the cart one at a time, in order. Each
// product is appended to the item log, run through every rule in the order
// the rules were supplied, and added to the running raw price. Rules never
// observe each other's state.
func (c Cart) Add(products ...domain.Product) Cart {
	items := make([]domain.Product, len(c.items), len(c.items)+len(products))
	copy(items, c.items)
	rules := slices.Clone(c.rules)
	price := c.price

	for _, p := range products {
		items = append(items, p)
		for i := range rules {
			rules[i] = rules[i].Apply(p)
		}
		price += p.PriceCents
	}

	return Cart{items: items, rules: rules, price: price}
}

// Price is the raw sum of all scanned product prices, independent of any
// rule state.
func (c Cart) Price() int64 {
	return c.price
}

// Total is the raw price plus every active rule's discount total.
func (c Cart) Total() int64 {
	total := c.price
	for _, r := range c.rules {
		total += r.Total()
	}
	return total
}

// ItemCount reports how many products have been scanned into the cart.
func (c Cart) ItemCount() int {
	return len(c.items)
}

// Lines returns the receipt view: product lines in scan order followed by
// each rule's visible discount lines, in rule order.
func (c Cart) Lines() []domain.ReceiptLine {
	lines := make([]domain.ReceiptLine, 0, len(c.items)+len(c.rules))
	for _, p := range c.items {
		lines = append(lines, domain.ReceiptLine{Code: p.Code, Name: p.Name, AmountCents: p.PriceCents})
	}
	for _, r := range c.rules {
		for _, item := range r.Items() {
			lines = append(lines, domain.ReceiptLine{Name: item.Name, AmountCents: item.AmountCents, Discount: true})
		}
	}
	return lines
}
