package deviation

import (
	"math"

	"github.com/okian/glwatch/internal/domain/accountrow"
)

const epsilon = 1e-9

// signals are the inputs one metric contributes to scoring. Missing numbers
// are NaN and unknown flags are false.
type signals struct {
	lyMean, cyMean float64
	lyStd, cyStd   float64
	cyMedian       float64
	meanDiff       float64
	stdDiff        float64
	cohensD        float64
	effect         string

	tSig, mwSig, ksSig, anovaSig bool

	meanPct, stdPct float64

	// derived
	cv, gapRatio, pearsonSkew float64
}

func readSignals(r accountrow.Row, metric string) signals {
	col := func(suffix string) string { return metric + "_" + suffix }
	flag := func(suffix string) bool {
		v, ok := r.Bool(col(suffix))
		return ok && v
	}
	s := signals{
		lyMean:   r.Float(col("LY_Mean")),
		cyMean:   r.Float(col("CY_Mean")),
		lyStd:    r.Float(col("LY_Std")),
		cyStd:    r.Float(col("CY_Std")),
		cyMedian: r.Float(col("CY_Median")),
		meanDiff: r.Float(col("Mean_Diff")),
		stdDiff:  r.Float(col("Std_Diff")),
		cohensD:  r.Float(col("Cohens_D")),
		effect:   r.Text(col("Effect_Size")),
		tSig:     flag("TTest_Significant"),
		mwSig:    flag("MannWhitney_Significant"),
		ksSig:    flag("KS_Significant"),
		anovaSig: flag("ANOVA_Significant"),
	}

	s.cv, s.gapRatio, s.pearsonSkew = math.NaN(), math.NaN(), math.NaN()
	if !anyNaN(s.cyStd, s.cyMean) {
		s.cv = math.Abs(s.cyStd) / math.Max(math.Abs(s.cyMean), epsilon)
	}
	if !anyNaN(s.cyMean, s.cyMedian) {
		s.gapRatio = math.Abs(s.cyMean-s.cyMedian) / math.Max(math.Abs(s.cyMean), epsilon)
	}
	if !anyNaN(s.cyMean, s.cyMedian, s.cyStd) && math.Abs(s.cyStd) > 1e-12 {
		s.pearsonSkew = math.Abs(3 * (s.cyMean - s.cyMedian) / s.cyStd)
	}
	return s
}

// metricScore is the outcome for one metric that scored above zero.
type metricScore struct {
	metric   string
	score    int
	triggers []Trigger
	evidence string
}

// scoreMetric applies the rule menu to one metric. ok is false when nothing
// scored.
func scoreMetric(cfg Config, metric string, s signals) (metricScore, bool) {
	p := cfg.Profile(metric)
	th := cfg.Thresholds
	w := cfg.Weights

	var (
		trig  []Trigger
		score int
	)
	fire := func(t Trigger, points int) {
		trig = append(trig, t)
		score += points
	}

	meanMat := passes(s.meanPct, p.MinMeanPctForCV)
	effMat := passes(s.meanPct, p.MinMeanPctForEffect)

	distChange := s.ksSig || s.mwSig
	meanChange := s.tSig || s.anovaSig

	effLarge := s.effect == "large" || (!math.IsNaN(s.cohensD) && math.Abs(s.cohensD) >= th.CohensDLarge)
	effMedium := s.effect == "medium" || (!math.IsNaN(s.cohensD) && math.Abs(s.cohensD) >= th.CohensDMedium)

	if cfg.Enabled(CheckDistributionChange) && distChange {
		if effMat || meanChange || effLarge {
			fire(TriggerDistributionChange, w.DistributionChange)
		} else {
			fire(TriggerDistributionChange, scaled(w.DistributionChange, 0.4))
		}
	}

	if cfg.Enabled(CheckMeanShift) {
		switch {
		case meanChange && (effMat || effLarge):
			fire(TriggerMeanShift, w.MeanShift)
		case meanChange:
			fire(TriggerMeanShift, scaled(w.MeanShift, 0.5))
		case !anyNaN(s.meanDiff, s.lyMean, s.cyMean):
			rel := math.Abs(s.meanDiff) / math.Max(math.Abs(s.lyMean), epsilon)
			if rel >= th.RelMeanShift && effMat {
				fire(TriggerMeanShift, scaled(w.MeanShift, 0.5))
			}
		}
	}

	if cfg.Enabled(CheckEffectSize) {
		bigMove := false
		if !anyNaN(s.meanDiff, s.lyMean) {
			bigMove = math.Abs(s.meanDiff) > math.Max(math.Abs(s.lyMean), epsilon)*th.RelMeanShift
		}
		// Label and raw d are read independently: a "none" label with
		// |d| >= cohens_d_medium still counts as medium here.
		switch {
		case effLarge && (distChange || meanChange || bigMove) && effMat:
			fire(TriggerLargeEffect, scaled(w.EffectLarge, p.EffectWeightMult))
		case effMedium && (distChange || meanChange) && effMat:
			fire(TriggerMediumEffect, scaled(w.EffectMedium, p.EffectWeightMult))
		}
	}

	if cfg.Enabled(CheckCV) && !math.IsNaN(s.cv) && meanMat {
		switch {
		case s.cv >= th.HighCV:
			fire(TriggerHighCV, scaled(w.HighCV, p.CVWeightMult))
		case s.cv >= th.ModerateCV:
			fire(TriggerModerateCV, scaled(w.ModerateCV, p.CVWeightMult))
		}
	}

	if cfg.Enabled(CheckLowMeanHighVariance) && !math.IsNaN(s.cv) {
		if !math.IsNaN(s.meanPct) && s.meanPct <= p.LowMeanPct &&
			passes(s.stdPct, p.HighStdPct) && s.cv >= th.HighCV {
			fire(TriggerLowMeanHighVariance, w.LowMeanHighVariance)
		}
	}

	if cfg.Enabled(CheckMeanMedianGap) && !math.IsNaN(s.gapRatio) &&
		s.gapRatio >= th.MeanMedianGapRatio && meanMat {
		fire(TriggerMeanMedianGap, w.MeanMedianGap)
	}

	if cfg.Enabled(CheckPearsonSkew) && !math.IsNaN(s.pearsonSkew) &&
		s.pearsonSkew >= th.PearsonSkewAbs && meanMat {
		fire(TriggerPearsonSkew, w.PearsonSkew)
	}

	if cfg.Enabled(CheckVolatilityJump) && !anyNaN(s.stdDiff, s.lyStd) {
		rel := math.Abs(s.stdDiff) / math.Max(math.Abs(s.lyStd), epsilon)
		if rel >= th.RelStdJump && meanMat {
			fire(TriggerVolatilityJump, scaled(w.VolatilityJump, p.CVWeightMult))
		}
	}

	if cfg.Enabled(CheckNewActivity) && !anyNaN(s.lyMean, s.cyMean) {
		if math.Abs(s.lyMean) < epsilon && effMat && math.Abs(s.cyMean) > th.NewActivityFactor*epsilon {
			fire(TriggerNewActivity, w.NewActivity)
		}
	}

	if cfg.Enabled(CheckSignReversal) && !anyNaN(s.lyMean, s.cyMean) {
		if s.lyMean*s.cyMean < 0 && passes(s.meanPct, th.SignReversalMinMeanPct) {
			fire(TriggerSignReversal, w.SignReversal)
		}
	}

	if score <= 0 {
		return metricScore{}, false
	}
	trig = dedupe(trig)
	return metricScore{
		metric:   metric,
		score:    score,
		triggers: trig,
		evidence: formatEvidence(metric, s, trig),
	}, true
}

// scaled truncates toward zero.
func scaled(weight int, mult float64) int {
	return int(float64(weight) * mult)
}

func anyNaN(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

func dedupe(ts []Trigger) []Trigger {
	seen := make(map[Trigger]bool, len(ts))
	out := make([]Trigger, 0, len(ts))
	for _, t := range ts {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
