package deviation

import (
	"fmt"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cast"
)

const delim = "."

// ToFlat renders the config as dotted keys, e.g. "thresholds.high_cv" or
// "profiles.Running_Balance.cv_weight_mult". Lists stay lists.
func (c Config) ToFlat() map[string]any {
	t := c.Thresholds
	w := c.Weights
	tr := c.Tiers

	profiles := make(map[string]any, len(c.Profiles))
	for name, p := range c.Profiles {
		profiles[name] = map[string]any{
			"min_mean_pct_for_cv":     p.MinMeanPctForCV,
			"min_mean_pct_for_effect": p.MinMeanPctForEffect,
			"effect_weight_mult":      p.EffectWeightMult,
			"cv_weight_mult":          p.CVWeightMult,
			"low_mean_pct":            p.LowMeanPct,
			"high_std_pct":            p.HighStdPct,
		}
	}

	finish := make(map[string]any, len(c.Language.BucketFinish))
	for k, v := range c.Language.BucketFinish {
		finish[k] = v
	}

	checks := make(map[string]any, len(c.EnabledChecks))
	for k, v := range c.EnabledChecks {
		checks[string(k)] = v
	}

	require := make([]string, 0, len(tr.RequireAnyOfTriggers))
	for _, trig := range tr.RequireAnyOfTriggers {
		require = append(require, string(trig))
	}

	nested := map[string]any{
		"version": c.Version,
		"thresholds": map[string]any{
			"high_cv":                    t.HighCV,
			"moderate_cv":                t.ModerateCV,
			"mean_median_gap_ratio":      t.MeanMedianGapRatio,
			"pearson_skew_abs":           t.PearsonSkewAbs,
			"rel_mean_shift":             t.RelMeanShift,
			"rel_std_jump":               t.RelStdJump,
			"cohens_d_large":             t.CohensDLarge,
			"cohens_d_medium":            t.CohensDMedium,
			"sign_reversal_min_mean_pct": t.SignReversalMinMeanPct,
			"new_activity_factor":        t.NewActivityFactor,
		},
		"weights": map[string]any{
			"distribution_change":    w.DistributionChange,
			"mean_shift":             w.MeanShift,
			"effect_large":           w.EffectLarge,
			"effect_medium":          w.EffectMedium,
			"high_cv":                w.HighCV,
			"moderate_cv":            w.ModerateCV,
			"mean_median_gap":        w.MeanMedianGap,
			"pearson_skew":           w.PearsonSkew,
			"volatility_jump":        w.VolatilityJump,
			"low_mean_high_variance": w.LowMeanHighVariance,
			"new_activity":           w.NewActivity,
			"sign_reversal":          w.SignReversal,
		},
		"tiers": map[string]any{
			"tier1_min_score":                     tr.Tier1MinScore,
			"tier2_min_score":                     tr.Tier2MinScore,
			"tier3_min_score":                     tr.Tier3MinScore,
			"include_tier3":                       tr.IncludeTier3,
			"max_tier1":                           tr.MaxTier1,
			"tier1_materiality_pct":               tr.Tier1MaterialityPct,
			"tier1_override_score":                tr.Tier1OverrideScore,
			"drop_pure_volatility_below_mean_pct": tr.DropPureVolatilityBelowMeanPct,
			"require_any_of_triggers":             require,
		},
		"profiles":       profiles,
		"language":       map[string]any{"bucket_finish": finish},
		"enabled_checks": checks,
	}

	k := koanf.New(delim)
	// A nested map with no delimiter cannot fail to load.
	_ = k.Load(confmap.Provider(nested, ""), nil)
	return k.All()
}

// FromFlat builds a config from dotted keys layered over the defaults.
// Unknown keys are ignored; missing keys keep their default.
func FromFlat(flat map[string]any) (Config, error) {
	k := koanf.New(delim)
	if err := k.Load(confmap.Provider(flat, delim), nil); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return fromKoanf(DefaultConfig(), k)
}

// Overlay layers dotted or nested keys over c and validates the result.
// c is left untouched.
func (c Config) Overlay(flat map[string]any) (Config, error) {
	k := koanf.New(delim)
	if err := k.Load(confmap.Provider(flat, delim), nil); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return fromKoanf(c.Clone(), k)
}

// LoadFile reads a YAML file of nested or dotted deviation keys.
func LoadFile(path string) (Config, error) {
	k := koanf.New(delim)
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("%w: load %s: %v", ErrInvalidConfig, path, err)
	}
	return FromFlat(k.All())
}

func fromKoanf(cfg Config, k *koanf.Koanf) (Config, error) {
	conf := koanf.UnmarshalConf{Tag: "koanf"}

	if k.Exists("version") {
		v, err := cast.ToIntE(k.Get("version"))
		if err != nil {
			return Config{}, fmt.Errorf("%w: version: %v", ErrInvalidConfig, err)
		}
		cfg.Version = v
	}

	sections := []struct {
		key string
		out any
	}{
		{"thresholds", &cfg.Thresholds},
		{"weights", &cfg.Weights},
		{"tiers", &cfg.Tiers},
	}
	for _, s := range sections {
		if !k.Exists(s.key) {
			continue
		}
		if err := k.UnmarshalWithConf(s.key, s.out, conf); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, s.key, err)
		}
	}

	key := "tiers.require_any_of_triggers"
	if k.Exists(key) {
		cfg.Tiers.RequireAnyOfTriggers = parseTriggers(k.Get(key))
	}

	if k.Exists("profiles") {
		names := k.MapKeys("profiles")
		slices.Sort(names)
		for _, name := range names {
			p := cfg.Profile(name)
			if err := k.UnmarshalWithConf("profiles."+name, &p, conf); err != nil {
				return Config{}, fmt.Errorf("%w: profiles.%s: %v", ErrInvalidConfig, name, err)
			}
			p.Name = name
			cfg.Profiles[name] = p
		}
	}

	for bucket, text := range k.StringMap("language.bucket_finish") {
		cfg.Language.BucketFinish[bucket] = text
	}

	for _, check := range AllChecks {
		key := "enabled_checks." + string(check)
		if !k.Exists(key) {
			continue
		}
		on, err := cast.ToBoolE(k.Get(key))
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
		}
		cfg.EnabledChecks[check] = on
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// parseTriggers accepts a list or a comma-separated string.
func parseTriggers(v any) []Trigger {
	var names []string
	switch x := v.(type) {
	case string:
		names = strings.Split(x, ",")
	default:
		names = cast.ToStringSlice(v)
	}
	out := make([]Trigger, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, Trigger(n))
	}
	return out
}
