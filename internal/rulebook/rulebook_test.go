package rulebook

import (
	"testing"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/pricing"
)

var testCatalogue = map[string]domain.Product{
	"GR1": {Code: "GR1", Name: "Green Tea", PriceCents: 311, Active: true},
	"SR1": {Code: "SR1", Name: "Strawberries", PriceCents: 500, Active: true},
	"CF1": {Code: "CF1", Name: "Coffee", PriceCents: 1123, Active: true},
}

func classicConfigs() []domain.RuleConfig {
	return []domain.RuleConfig{
		{ID: "rule-1", Name: "buy 2 get 1 free", ProductCode: "GR1", ShareParts: -100, ShareOf: 100, TriggerEvery: 2, Active: true},
		{ID: "rule-2", Name: "strawberry bulk price", ProductCode: "SR1", DiscountCents: -50, MinCount: 2, Active: true},
		{ID: "rule-3", Name: "coffee addict", ProductCode: "CF1", ShareParts: -1, ShareOf: 3, Bulk: true, MinCount: 2, Active: true},
	}
}

func TestCompileClassicConfigs(t *testing.T) {
	rules, err := Compile(classicConfigs())
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}

	cart := pricing.Empty(rules)
	for _, code := range []string{"GR1", "SR1", "GR1", "GR1", "CF1"} {
		cart = cart.Add(testCatalogue[code])
	}
	if got := cart.Total(); got != 2245 {
		t.Fatalf("expected total 2245, got %d", got)
	}
}

func TestCompileRejectsNegativeCounters(t *testing.T) {
	for _, cfg := range []domain.RuleConfig{
		{ID: "bad-1", Name: "bad", TriggerEvery: -2},
		{ID: "bad-2", Name: "bad", MinCount: -1},
	} {
		if _, err := Compile([]domain.RuleConfig{cfg}); err == nil {
			t.Fatalf("expected compile of %s to fail", cfg.ID)
		}
	}
}

func TestValidateRejectsShareWithoutDenominator(t *testing.T) {
	err := Validate(domain.RuleConfig{Name: "bad", ShareParts: -1})
	if err == nil {
		t.Fatalf("expected validation failure for share without denominator")
	}
}

func TestValidateAcceptsAbsoluteOnlyConfig(t *testing.T) {
	err := Validate(domain.RuleConfig{Name: "flat", ProductCode: "GR1", DiscountCents: -10})
	if err != nil {
		t.Fatalf("expected flat config to validate, got %v", err)
	}
}
