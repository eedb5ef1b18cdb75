package compare

import "math"

// EffectSize labels the magnitude of Cohen's d.
type EffectSize string

const (
	EffectSmall  EffectSize = "small"
	EffectMedium EffectSize = "medium"
	EffectLarge  EffectSize = "large"
	EffectNone   EffectSize = "none"
)

// ClassifyEffect labels |d|: small below 0.2, medium below 0.5, large from
// 0.8. The band [0.5, 0.8) carries no label and reads "none"; scoring
// compares the numeric d against its own thresholds instead.
func ClassifyEffect(d float64) EffectSize {
	abs := math.Abs(d)
	switch {
	case math.IsNaN(d):
		return EffectNone
	case abs < 0.2:
		return EffectSmall
	case abs < 0.5:
		return EffectMedium
	case abs >= 0.8:
		return EffectLarge
	}
	return EffectNone
}

// CorrelationStrength labels the magnitude of Pearson's r.
type CorrelationStrength string

const (
	CorrelationNone     CorrelationStrength = "none"
	CorrelationWeak     CorrelationStrength = "weak"
	CorrelationModerate CorrelationStrength = "moderate"
	CorrelationStrong   CorrelationStrength = "strong"
)

// ClassifyCorrelation buckets |r| with upper-inclusive bounds:
// none ≤ 0.1 < weak ≤ 0.3 < moderate ≤ 0.5 < strong.
func ClassifyCorrelation(r float64) CorrelationStrength {
	abs := math.Abs(r)
	switch {
	case math.IsNaN(r), abs <= 0.1:
		return CorrelationNone
	case abs <= 0.3:
		return CorrelationWeak
	case abs <= 0.5:
		return CorrelationModerate
	}
	return CorrelationStrong
}
