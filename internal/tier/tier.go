// Package tier implements the rate-limiting substrate: a named bundle of
// quotas (Tier), its concrete configuration form (TierConfig), and a
// multi-quota Limiter admitting requests against RPM/TPM/RPD/concurrency
// simultaneously.
package tier

// Tier is the opaque capability the limiter and the executor consume. An
// unset field (ok=false) means that quota is unlimited for this tier.
type Tier interface {
	Name() string
	RPM() (int, bool)
	TPM() (int, bool)
	RPD() (int, bool)
	MaxConcurrent() (int, bool)
	DailyQuotaUSD() (float64, bool)
	CostInPerMTok() (float64, bool)
	CostOutPerMTok() (float64, bool)
}

// TierConfig is the concrete, merge-loaded record implementing Tier. Every
// quota field is a pointer so "absent" (nil, unlimited) is distinguishable
// from "explicitly zero".
type TierConfig struct {
	NameValue           string   `yaml:"name" json:"name"`
	RPMValue            *int     `yaml:"rpm,omitempty" json:"rpm,omitempty"`
	TPMValue            *int     `yaml:"tpm,omitempty" json:"tpm,omitempty"`
	RPDValue            *int     `yaml:"rpd,omitempty" json:"rpd,omitempty"`
	MaxConcurrentValue  *int     `yaml:"max_concurrent,omitempty" json:"max_concurrent,omitempty"`
	DailyQuotaUSDValue  *float64 `yaml:"daily_quota_usd,omitempty" json:"daily_quota_usd,omitempty"`
	CostInPerMTokValue  *float64 `yaml:"cost_in_per_mtok,omitempty" json:"cost_in_per_mtok,omitempty"`
	CostOutPerMTokValue *float64 `yaml:"cost_out_per_mtok,omitempty" json:"cost_out_per_mtok,omitempty"`
}

var _ Tier = (*TierConfig)(nil)

func (t *TierConfig) Name() string {
	if t == nil {
		return ""
	}
	return t.NameValue
}

func (t *TierConfig) RPM() (int, bool) { return intField(t, func(t *TierConfig) *int { return t.RPMValue }) }
func (t *TierConfig) TPM() (int, bool) { return intField(t, func(t *TierConfig) *int { return t.TPMValue }) }
func (t *TierConfig) RPD() (int, bool) { return intField(t, func(t *TierConfig) *int { return t.RPDValue }) }
func (t *TierConfig) MaxConcurrent() (int, bool) {
	return intField(t, func(t *TierConfig) *int { return t.MaxConcurrentValue })
}

func (t *TierConfig) DailyQuotaUSD() (float64, bool) {
	return floatField(t, func(t *TierConfig) *float64 { return t.DailyQuotaUSDValue })
}
func (t *TierConfig) CostInPerMTok() (float64, bool) {
	return floatField(t, func(t *TierConfig) *float64 { return t.CostInPerMTokValue })
}
func (t *TierConfig) CostOutPerMTok() (float64, bool) {
	return floatField(t, func(t *TierConfig) *float64 { return t.CostOutPerMTokValue })
}

func intField(t *TierConfig, get func(*TierConfig) *int) (int, bool) {
	if t == nil {
		return 0, false
	}
	p := get(t)
	if p == nil {
		return 0, false
	}
	return *p, true
}

func floatField(t *TierConfig, get func(*TierConfig) *float64) (float64, bool) {
	if t == nil {
		return 0, false
	}
	p := get(t)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Clone returns a deep copy of t so callers may apply CLI overrides without
// mutating a shared configuration value.
func (t *TierConfig) Clone() *TierConfig {
	if t == nil {
		return nil
	}
	clone := *t
	clone.RPMValue = clonePtr(t.RPMValue)
	clone.TPMValue = clonePtr(t.TPMValue)
	clone.RPDValue = clonePtr(t.RPDValue)
	clone.MaxConcurrentValue = clonePtr(t.MaxConcurrentValue)
	clone.DailyQuotaUSDValue = clonePtr(t.DailyQuotaUSDValue)
	clone.CostInPerMTokValue = clonePtr(t.CostInPerMTokValue)
	clone.CostOutPerMTokValue = clonePtr(t.CostOutPerMTokValue)
	return &clone
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
