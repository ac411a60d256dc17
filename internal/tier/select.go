package tier

import "github.com/crumplecup/botticelli/internal/errs"

// Selection carries every input to tier resolution: the named-tier
// precedence inputs, the per-field CLI overrides applied after a tier is
// chosen, and the no-rate-limit escape hatch.
type Selection struct {
	// EnvTierName is the value of {PROVIDER}_TIER, if set.
	EnvTierName string
	// ExplicitTier is the tier name passed at client construction.
	ExplicitTier string
	// DefaultTier is the default tier name from the merged configuration.
	DefaultTier string
	// Overrides holds per-field CLI overrides (rpm/tpm/rpd/concurrency/costs);
	// only its non-nil fields are applied.
	Overrides *TierConfig
	// NoRateLimit clears rpm/tpm/rpd/max_concurrent after overrides apply.
	NoRateLimit bool
}

// Select resolves a Selection against catalog (tier name -> TierConfig)
// following the precedence: environment {PROVIDER}_TIER wins over an
// explicit tier at construction, which wins over the configuration's
// default tier. Per-field CLI overrides are layered on top of whichever
// tier was selected, and NoRateLimit is applied last.
func Select(catalog map[string]*TierConfig, sel Selection) (*TierConfig, error) {
	name := sel.DefaultTier
	if sel.ExplicitTier != "" {
		name = sel.ExplicitTier
	}
	if sel.EnvTierName != "" {
		name = sel.EnvTierName
	}
	if name == "" {
		return nil, errs.New(errs.Configuration, "no tier selected and no default tier configured")
	}
	base, ok := catalog[name]
	if !ok {
		return nil, errs.Newf(errs.Configuration, "unknown tier %q", name)
	}

	result := base.Clone()
	applyOverrides(result, sel.Overrides)
	if sel.NoRateLimit {
		clearLimits(result)
	}
	return result, nil
}

func applyOverrides(t *TierConfig, o *TierConfig) {
	if o == nil {
		return
	}
	if o.RPMValue != nil {
		t.RPMValue = clonePtr(o.RPMValue)
	}
	if o.TPMValue != nil {
		t.TPMValue = clonePtr(o.TPMValue)
	}
	if o.RPDValue != nil {
		t.RPDValue = clonePtr(o.RPDValue)
	}
	if o.MaxConcurrentValue != nil {
		t.MaxConcurrentValue = clonePtr(o.MaxConcurrentValue)
	}
	if o.DailyQuotaUSDValue != nil {
		t.DailyQuotaUSDValue = clonePtr(o.DailyQuotaUSDValue)
	}
	if o.CostInPerMTokValue != nil {
		t.CostInPerMTokValue = clonePtr(o.CostInPerMTokValue)
	}
	if o.CostOutPerMTokValue != nil {
		t.CostOutPerMTokValue = clonePtr(o.CostOutPerMTokValue)
	}
}

func clearLimits(t *TierConfig) {
	t.RPMValue = nil
	t.TPMValue = nil
	t.RPDValue = nil
	t.MaxConcurrentValue = nil
}
