package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/backend/internal/domain"
)

var catalogue = map[string]domain.Product{
	"GR1": greenTea,
	"SR1": strawberries,
	"CF1": coffee,
}

// classicRules is the standard promo set: buy-2-get-1-free green tea, a
// flat 50 off each strawberry pack once three are bought, and a third off
// all coffee once three are bought.
func classicRules(t *testing.T) []Rule {
	t.Helper()

	every2, err := EveryNth(2, nil)
	require.NoError(t, err)
	teaRule := NewRule("buy 2 get 1 free", Plain(Percents(-100)), ProductEquals("GR1", every2), nil)

	after2SR1, err := AfterCount(2, nil)
	require.NoError(t, err)
	berryRule := NewRule("strawberry bulk price", Plain(Absolute(-50)), ProductEquals("SR1", nil), ProductEquals("SR1", after2SR1))

	after2CF1, err := AfterCount(2, nil)
	require.NoError(t, err)
	third, err := Share(-1, 3)
	require.NoError(t, err)
	coffeeRule := NewRule("coffee addict", Bulk(third), ProductEquals("CF1", nil), ProductEquals("CF1", after2CF1))

	return []Rule{teaRule, berryRule, coffeeRule}
}

func scan(t *testing.T, cart Cart, codes ...string) Cart {
	t.Helper()
	for _, code := range codes {
		p, ok := catalogue[code]
		require.True(t, ok, "unknown code %s", code)
		cart = cart.Add(p)
	}
	return cart
}

func TestEmptyCartTotalsZero(t *testing.T) {
	assert.Zero(t, Empty(nil).Total())
	assert.Zero(t, Empty(classicRules(t)).Total())
}

func TestClassicBaskets(t *testing.T) {
	baskets := []struct {
		codes []string
		total int64
	}{
		{[]string{"GR1", "SR1", "GR1", "GR1", "CF1"}, 2245},
		{[]string{"GR1", "GR1"}, 311},
		{[]string{"SR1", "SR1", "GR1", "SR1"}, 1661},
		{[]string{"GR1", "CF1", "SR1", "CF1", "CF1"}, 3057},
	}

	for _, basket := range baskets {
		cart := scan(t, Empty(classicRules(t)), basket.codes...)
		assert.EqualValues(t, basket.total, cart.Total(), "basket %v", basket.codes)
	}
}

func TestBatchAddEqualsSequentialAdds(t *testing.T) {
	codes := []string{"GR1", "CF1", "SR1", "CF1", "GR1", "GR1", "CF1"}

	products := make([]domain.Product, len(codes))
	for i, code := range codes {
		products[i] = catalogue[code]
	}

	batch := Empty(classicRules(t)).Add(products...)
	sequential := scan(t, Empty(classicRules(t)), codes...)

	assert.Equal(t, sequential.Total(), batch.Total())
	assert.Equal(t, sequential.Lines(), batch.Lines())
}

func TestCartPriceTracksRawPrices(t *testing.T) {
	cart := scan(t, Empty(classicRules(t)), "GR1", "GR1", "CF1")
	assert.EqualValues(t, 311+311+1123, cart.Price())
	assert.Less(t, cart.Total(), cart.Price())
}

func TestAddReturnsIndependentCart(t *testing.T) {
	base := scan(t, Empty(classicRules(t)), "GR1")

	left := scan(t, base, "GR1")
	right := scan(t, base, "SR1", "SR1", "SR1")

	assert.EqualValues(t, 311, base.Total())
	assert.EqualValues(t, 311, left.Total())
	assert.EqualValues(t, 311+1350, right.Total())
	assert.Equal(t, 1, base.ItemCount())
}

func TestLinesShowProductsThenActiveDiscounts(t *testing.T) {
	cart := scan(t, Empty(classicRules(t)), "GR1", "GR1")

	lines := cart.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, domain.ReceiptLine{Code: "GR1", Name: "Green Tea", AmountCents: 311}, lines[0])
	assert.Equal(t, domain.ReceiptLine{Code: "GR1", Name: "Green Tea", AmountCents: 311}, lines[1])
	assert.Equal(t, domain.ReceiptLine{Name: "buy 2 get 1 free", AmountCents: -311, Discount: true}, lines[2])
}

func TestRulesEvaluateIndependentlyOfOrder(t *testing.T) {
	rules := classicRules(t)
	reversed := []Rule{rules[2], rules[1], rules[0]}

	codes := []string{"GR1", "CF1", "SR1", "CF1", "CF1"}
	assert.Equal(t, scan(t, Empty(rules), codes...).Total(), scan(t, Empty(reversed), codes...).Total())
}
