package rulebook

import (
	"errors"
	"fmt"

	"tillpoint/backend/internal/domain"
	"tillpoint/backend/internal/pricing"
)

var ErrInvalidRuleConfig = errors.New("invalid rule config")

// Compile turns stored rule configs into live pricing rules, preserving
// config order. Configs are validated when created, so a compilation
// failure here indicates corrupted stored data.
func Compile(configs []domain.RuleConfig) ([]pricing.Rule, error) {
	rules := make([]pricing.Rule, 0, len(configs))
	for _, cfg := range configs {
		rule, err := compileOne(cfg)
		if err != nil {
			return nil, fmt.Errorf("rule %s (%s): %w", cfg.ID, cfg.Name, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Validate reports whether a config would compile. Used at creation time so
// checkout never meets a config it cannot compile.
func Validate(cfg domain.RuleConfig) error {
	_, err := compileOne(cfg)
	return err
}

func compileOne(cfg domain.RuleConfig) (pricing.Rule, error) {
	if cfg.TriggerEvery < 0 {
		return pricing.Rule{}, fmt.Errorf("%w: trigger_every %d", ErrInvalidRuleConfig, cfg.TriggerEvery)
	}
	if cfg.MinCount < 0 {
		return pricing.Rule{}, fmt.Errorf("%w: min_count %d", ErrInvalidRuleConfig, cfg.MinCount)
	}
	if cfg.ShareOf == 0 && cfg.ShareParts != 0 {
		return pricing.Rule{}, fmt.Errorf("%w: share_parts without share_of", ErrInvalidRuleConfig)
	}

	amount := pricing.Absolute(cfg.DiscountCents)
	if cfg.ShareOf != 0 {
		var err error
		amount, err = pricing.Share(cfg.ShareParts, cfg.ShareOf)
		if err != nil {
			return pricing.Rule{}, err
		}
	}

	spec := pricing.Plain(amount)
	if cfg.Bulk {
		spec = pricing.Bulk(amount)
	}

	var pre pricing.Condition
	if cfg.TriggerEvery > 0 {
		nth, err := pricing.EveryNth(cfg.TriggerEvery, nil)
		if err != nil {
			return pricing.Rule{}, err
		}
		pre = nth
	}
	if cfg.ProductCode != "" {
		pre = pricing.ProductEquals(cfg.ProductCode, pre)
	}

	var post pricing.Condition
	if cfg.MinCount > 0 {
		after, err := pricing.AfterCount(cfg.MinCount, nil)
		if err != nil {
			return pricing.Rule{}, err
		}
		post = after
		if cfg.ProductCode != "" {
			post = pricing.ProductEquals(cfg.ProductCode, post)
		}
	}

	return pricing.NewRule(cfg.Name, spec, pre, post), nil
}
