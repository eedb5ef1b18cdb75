package deviation

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// CurrentVersion is the configuration schema understood by this engine.
const CurrentVersion = 1

// Thresholds are the numeric cut-offs used by the scoring rules.
type Thresholds struct {
	HighCV                 float64 `koanf:"high_cv" json:"high_cv"`
	ModerateCV             float64 `koanf:"moderate_cv" json:"moderate_cv"`
	MeanMedianGapRatio     float64 `koanf:"mean_median_gap_ratio" json:"mean_median_gap_ratio"`
	PearsonSkewAbs         float64 `koanf:"pearson_skew_abs" json:"pearson_skew_abs"`
	RelMeanShift           float64 `koanf:"rel_mean_shift" json:"rel_mean_shift"`
	RelStdJump             float64 `koanf:"rel_std_jump" json:"rel_std_jump"`
	CohensDLarge           float64 `koanf:"cohens_d_large" json:"cohens_d_large"`
	CohensDMedium          float64 `koanf:"cohens_d_medium" json:"cohens_d_medium"`
	SignReversalMinMeanPct float64 `koanf:"sign_reversal_min_mean_pct" json:"sign_reversal_min_mean_pct"`
	NewActivityFactor      float64 `koanf:"new_activity_factor" json:"new_activity_factor"`
}

// Weights are the points each rule contributes.
type Weights struct {
	DistributionChange  int `koanf:"distribution_change" json:"distribution_change"`
	MeanShift           int `koanf:"mean_shift" json:"mean_shift"`
	EffectLarge         int `koanf:"effect_large" json:"effect_large"`
	EffectMedium        int `koanf:"effect_medium" json:"effect_medium"`
	HighCV              int `koanf:"high_cv" json:"high_cv"`
	ModerateCV          int `koanf:"moderate_cv" json:"moderate_cv"`
	MeanMedianGap       int `koanf:"mean_median_gap" json:"mean_median_gap"`
	PearsonSkew         int `koanf:"pearson_skew" json:"pearson_skew"`
	VolatilityJump      int `koanf:"volatility_jump" json:"volatility_jump"`
	LowMeanHighVariance int `koanf:"low_mean_high_variance" json:"low_mean_high_variance"`
	NewActivity         int `koanf:"new_activity" json:"new_activity"`
	SignReversal        int `koanf:"sign_reversal" json:"sign_reversal"`
}

// MetricProfile gates and scales rules for one metric. Percentile fields
// refer to the batch rank of abs(current-year mean) or std.
type MetricProfile struct {
	Name                string  `koanf:"name" json:"name"`
	MinMeanPctForCV     float64 `koanf:"min_mean_pct_for_cv" json:"min_mean_pct_for_cv"`
	MinMeanPctForEffect float64 `koanf:"min_mean_pct_for_effect" json:"min_mean_pct_for_effect"`
	EffectWeightMult    float64 `koanf:"effect_weight_mult" json:"effect_weight_mult"`
	CVWeightMult        float64 `koanf:"cv_weight_mult" json:"cv_weight_mult"`
	LowMeanPct          float64 `koanf:"low_mean_pct" json:"low_mean_pct"`
	HighStdPct          float64 `koanf:"high_std_pct" json:"high_std_pct"`
}

// NewMetricProfile returns the baseline profile for a metric.
func NewMetricProfile(name string) MetricProfile {
	return MetricProfile{
		Name:                name,
		MinMeanPctForCV:     0.60,
		MinMeanPctForEffect: 0.30,
		EffectWeightMult:    1.0,
		CVWeightMult:        1.0,
		LowMeanPct:          0.30,
		HighStdPct:          0.70,
	}
}

// Tiering controls exclusion gates, tier cut-offs and the Tier-1 cap.
type Tiering struct {
	Tier1MinScore                  int       `koanf:"tier1_min_score" json:"tier1_min_score"`
	Tier2MinScore                  int       `koanf:"tier2_min_score" json:"tier2_min_score"`
	Tier3MinScore                  int       `koanf:"tier3_min_score" json:"tier3_min_score"`
	IncludeTier3                   bool      `koanf:"include_tier3" json:"include_tier3"`
	MaxTier1                       int       `koanf:"max_tier1" json:"max_tier1"`
	Tier1MaterialityPct            float64   `koanf:"tier1_materiality_pct" json:"tier1_materiality_pct"`
	Tier1OverrideScore             int       `koanf:"tier1_override_score" json:"tier1_override_score"`
	DropPureVolatilityBelowMeanPct float64   `koanf:"drop_pure_volatility_below_mean_pct" json:"drop_pure_volatility_below_mean_pct"`
	RequireAnyOfTriggers           []Trigger `koanf:"require_any_of_triggers" json:"require_any_of_triggers"`
}

// Language holds the remediation sentence appended per account bucket.
type Language struct {
	BucketFinish map[string]string `koanf:"bucket_finish" json:"bucket_finish"`
}

// Config is the complete, versioned scoring configuration.
type Config struct {
	Version       int                      `koanf:"version" json:"version"`
	Thresholds    Thresholds               `koanf:"thresholds" json:"thresholds"`
	Weights       Weights                  `koanf:"weights" json:"weights"`
	Tiers         Tiering                  `koanf:"tiers" json:"tiers"`
	Profiles      map[string]MetricProfile `koanf:"profiles" json:"profiles"`
	Language      Language                 `koanf:"language" json:"language"`
	EnabledChecks map[Check]bool           `koanf:"enabled_checks" json:"enabled_checks"`
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	credit := NewMetricProfile("Credit")
	credit.MinMeanPctForEffect = 0.60

	debit := NewMetricProfile("Debit")
	debit.MinMeanPctForCV = 0.30

	balance := NewMetricProfile("Running_Balance")
	balance.MinMeanPctForCV = 0.75
	balance.MinMeanPctForEffect = 0.78
	balance.EffectWeightMult = 0.7
	balance.CVWeightMult = 0.8

	gst := NewMetricProfile("GST")
	gst.MinMeanPctForCV = 0.40
	gst.MinMeanPctForEffect = 0.45
	gst.EffectWeightMult = 0.9
	gst.CVWeightMult = 0.9

	checks := make(map[Check]bool, len(AllChecks))
	for _, c := range AllChecks {
		checks[c] = true
	}

	return Config{
		Version: CurrentVersion,
		Thresholds: Thresholds{
			HighCV:                 1.0,
			ModerateCV:             0.7,
			MeanMedianGapRatio:     0.38,
			PearsonSkewAbs:         1.2,
			RelMeanShift:           0.75,
			RelStdJump:             0.80,
			CohensDLarge:           0.8,
			CohensDMedium:          0.5,
			SignReversalMinMeanPct: 0.60,
			NewActivityFactor:      10.0,
		},
		Weights: Weights{
			DistributionChange:  5,
			MeanShift:           5,
			EffectLarge:         4,
			EffectMedium:        2,
			HighCV:              2,
			ModerateCV:          1,
			MeanMedianGap:       2,
			PearsonSkew:         1,
			VolatilityJump:      2,
			LowMeanHighVariance: 2,
			NewActivity:         2,
			SignReversal:        3,
		},
		Tiers: Tiering{
			Tier1MinScore:                  14,
			Tier2MinScore:                  7,
			Tier3MinScore:                  5,
			IncludeTier3:                   false,
			MaxTier1:                       10,
			Tier1MaterialityPct:            0.75,
			Tier1OverrideScore:             28,
			DropPureVolatilityBelowMeanPct: 0.80,
			RequireAnyOfTriggers: []Trigger{
				TriggerDistributionChange,
				TriggerMeanShift,
				TriggerLargeEffect,
				TriggerLowMeanHighVariance,
				TriggerNewActivity,
				TriggerSignReversal,
				TriggerHighCV,
				TriggerMeanMedianGap,
			},
		},
		Profiles: map[string]MetricProfile{
			credit.Name:  credit,
			debit.Name:   debit,
			balance.Name: balance,
			gst.Name:     gst,
		},
		Language: Language{BucketFinish: map[string]string{
			BucketRevenue:  "Check cut-off, pricing/mix changes, and recognition timing.",
			BucketCash:     "Often driven by batch journals, timing, bank rule changes, or missed automation.",
			BucketTiming:   "Common causes are accruals vs prepaids, one-offs, or timing corrections.",
			BucketClearing: "Usually points to reconciliation gaps, clearing discipline, or mis-postings into control accounts.",
			BucketTax:      "Validate coding, rate mapping, and whether supply classification changed.",
			BucketRounding: "Unexpected activity can mask systemic posting issues or forced balancing journals.",
			BucketGeneral:  "Often a mix of reclasses, one-offs, or process changes.",
		}},
		EnabledChecks: checks,
	}
}

// Clone returns a deep copy in canonical form: a profile is named by its map
// key and an unset trigger list is empty, as FromFlat would rebuild them.
func (c Config) Clone() Config {
	out := c
	out.Tiers.RequireAnyOfTriggers = slices.Clone(c.Tiers.RequireAnyOfTriggers)
	if out.Tiers.RequireAnyOfTriggers == nil {
		out.Tiers.RequireAnyOfTriggers = []Trigger{}
	}
	out.Profiles = maps.Clone(c.Profiles)
	for name, p := range out.Profiles {
		p.Name = name
		out.Profiles[name] = p
	}
	out.Language.BucketFinish = maps.Clone(c.Language.BucketFinish)
	out.EnabledChecks = maps.Clone(c.EnabledChecks)
	return out
}

// Profile returns the profile for metric, or the baseline when none is set.
func (c Config) Profile(metric string) MetricProfile {
	if p, ok := c.Profiles[metric]; ok {
		return p
	}
	return NewMetricProfile(metric)
}

// Enabled reports whether a check is on. Unlisted checks are on.
func (c Config) Enabled(check Check) bool {
	on, ok := c.EnabledChecks[check]
	return !ok || on
}

// Validate rejects values the engine cannot interpret.
func (c Config) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidConfig, c.Version)
	}
	for _, t := range c.Tiers.RequireAnyOfTriggers {
		if !KnownTrigger(t) {
			return fmt.Errorf("%w: unknown trigger %q in tiers.require_any_of_triggers", ErrInvalidConfig, t)
		}
	}
	if c.Tiers.MaxTier1 < 0 {
		return fmt.Errorf("%w: tiers.max_tier1 must not be negative", ErrInvalidConfig)
	}
	pcts := map[string]float64{
		"tiers.tier1_materiality_pct":               c.Tiers.Tier1MaterialityPct,
		"tiers.drop_pure_volatility_below_mean_pct": c.Tiers.DropPureVolatilityBelowMeanPct,
		"thresholds.sign_reversal_min_mean_pct":     c.Thresholds.SignReversalMinMeanPct,
	}
	for name, p := range c.Profiles {
		pcts["profiles."+name+".min_mean_pct_for_cv"] = p.MinMeanPctForCV
		pcts["profiles."+name+".min_mean_pct_for_effect"] = p.MinMeanPctForEffect
		pcts["profiles."+name+".low_mean_pct"] = p.LowMeanPct
		pcts["profiles."+name+".high_std_pct"] = p.HighStdPct
	}
	for _, key := range slices.Sorted(maps.Keys(pcts)) {
		v := pcts[key]
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0, 1], got %v", ErrInvalidConfig, key, v)
		}
	}
	return nil
}
