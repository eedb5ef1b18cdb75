package deviation

// Trigger names a scoring rule that fired for a metric.
type Trigger string

// Triggers.
const (
	TriggerDistributionChange  Trigger = "Distribution Change"
	TriggerMeanShift           Trigger = "Mean Shift"
	TriggerLargeEffect         Trigger = "Large Effect Size"
	TriggerMediumEffect        Trigger = "Medium Effect Size"
	TriggerHighCV              Trigger = "High CV"
	TriggerModerateCV          Trigger = "Moderate CV"
	TriggerLowMeanHighVariance Trigger = "Low Mean with High Variance"
	TriggerMeanMedianGap       Trigger = "Mean-Median Gap"
	TriggerPearsonSkew         Trigger = "Pearson Skew"
	TriggerVolatilityJump      Trigger = "Volatility Jump"
	TriggerNewActivity         Trigger = "New Activity / Re-start"
	TriggerSignReversal        Trigger = "Sign Reversal"
)

// triggerPriority orders "Key Metrics Triggered".
var triggerPriority = []Trigger{
	TriggerDistributionChange,
	TriggerMeanShift,
	TriggerLargeEffect,
	TriggerLowMeanHighVariance,
	TriggerHighCV,
	TriggerMeanMedianGap,
	TriggerPearsonSkew,
	TriggerVolatilityJump,
	TriggerSignReversal,
	TriggerNewActivity,
	TriggerMediumEffect,
	TriggerModerateCV,
}

// pureVolatility triggers alone never justify an immaterial account.
var pureVolatility = map[Trigger]bool{
	TriggerHighCV:         true,
	TriggerModerateCV:     true,
	TriggerMeanMedianGap:  true,
	TriggerVolatilityJump: true,
	TriggerPearsonSkew:    true,
}

// headlineTags may appear as evidence tags; the weaker variants may not.
var headlineTags = map[Trigger]bool{
	TriggerDistributionChange:  true,
	TriggerMeanShift:           true,
	TriggerLargeEffect:         true,
	TriggerHighCV:              true,
	TriggerLowMeanHighVariance: true,
	TriggerMeanMedianGap:       true,
	TriggerPearsonSkew:         true,
	TriggerVolatilityJump:      true,
	TriggerSignReversal:        true,
	TriggerNewActivity:         true,
}

// KnownTrigger reports whether t is a valid trigger name.
func KnownTrigger(t Trigger) bool {
	for _, p := range triggerPriority {
		if p == t {
			return true
		}
	}
	return false
}

// Check toggles a family of scoring rules.
type Check string

// Checks.
const (
	CheckDistributionChange  Check = "distribution_change"
	CheckMeanShift           Check = "mean_shift"
	CheckEffectSize          Check = "effect_size"
	CheckCV                  Check = "cv"
	CheckMeanMedianGap       Check = "mean_median_gap"
	CheckPearsonSkew         Check = "pearson_skew"
	CheckVolatilityJump      Check = "volatility_jump"
	CheckLowMeanHighVariance Check = "low_mean_high_variance"
	CheckNewActivity         Check = "new_activity"
	CheckSignReversal        Check = "sign_reversal"
)

// AllChecks lists every check in evaluation order.
var AllChecks = []Check{
	CheckDistributionChange,
	CheckMeanShift,
	CheckEffectSize,
	CheckCV,
	CheckMeanMedianGap,
	CheckPearsonSkew,
	CheckVolatilityJump,
	CheckLowMeanHighVariance,
	CheckNewActivity,
	CheckSignReversal,
}

// Tier is the watchlist priority band.
type Tier string

// Tiers.
const (
	Tier1 Tier = "Tier-1"
	Tier2 Tier = "Tier-2"
	Tier3 Tier = "Tier-3"
)

func (t Tier) rank() int {
	switch t {
	case Tier1:
		return 1
	case Tier2:
		return 2
	case Tier3:
		return 3
	}
	return 9
}
