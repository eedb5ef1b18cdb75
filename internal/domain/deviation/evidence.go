package deviation

import (
	"fmt"
	"math"
	"strings"
)

const (
	maxTagsPerMetric   = 3
	maxMetricsInValues = 3
	maxKeyTriggers     = 6
)

// formatEvidence renders the compact numeric evidence for one metric.
func formatEvidence(metric string, s signals, triggers []Trigger) string {
	var parts []string

	if !math.IsNaN(s.lyMean) || !math.IsNaN(s.cyMean) {
		var means []string
		if !math.IsNaN(s.lyMean) {
			means = append(means, "LYμ:"+fmtNum(s.lyMean))
		}
		if !math.IsNaN(s.cyMean) {
			means = append(means, "CYμ:"+fmtNum(s.cyMean))
		}
		if rel := fmtRelChange(s.cyMean, s.lyMean); rel != "" {
			means = append(means, "("+rel+")")
		}
		parts = append(parts, strings.Join(means, " "))
	}

	if !math.IsNaN(s.cyStd) || !math.IsNaN(s.cv) {
		var stds []string
		if !math.IsNaN(s.cyStd) {
			stds = append(stds, "CYσ:"+fmtNum(s.cyStd))
		}
		if !math.IsNaN(s.cv) {
			stds = append(stds, fmt.Sprintf("CV:%.2f", s.cv))
		}
		parts = append(parts, strings.Join(stds, " "))
	}

	if !math.IsNaN(s.gapRatio) {
		parts = append(parts, fmt.Sprintf("μ~med:%.2f", s.gapRatio))
	}
	if !math.IsNaN(s.pearsonSkew) {
		parts = append(parts, fmt.Sprintf("skew:%.2f", s.pearsonSkew))
	}
	if !math.IsNaN(s.cohensD) {
		parts = append(parts, fmt.Sprintf("d:%.2f", s.cohensD))
	}

	var sig []string
	for _, f := range []struct {
		tag string
		on  bool
	}{{"T", s.tSig}, {"A", s.anovaSig}, {"MW", s.mwSig}, {"KS", s.ksSig}} {
		if f.on {
			sig = append(sig, f.tag)
		}
	}
	if len(sig) > 0 {
		parts = append(parts, "sig["+strings.Join(sig, ",")+"]")
	}

	var tags []string
	for _, t := range triggers {
		if len(tags) == maxTagsPerMetric {
			break
		}
		if headlineTags[t] {
			tags = append(tags, string(t))
		}
	}
	if len(tags) > 0 {
		parts = append(parts, "tag["+strings.Join(tags, ",")+"]")
	}

	if len(parts) == 0 {
		return metric + ": (no numeric evidence)"
	}
	return metric + ": " + strings.Join(parts, "; ")
}

// fmtNum abbreviates with k, m or b and two decimals. NaN is blank.
func fmtNum(x float64) string {
	if math.IsNaN(x) {
		return ""
	}
	ax := math.Abs(x)
	switch {
	case ax >= 1e9:
		return fmt.Sprintf("%.2fb", x/1e9)
	case ax >= 1e6:
		return fmt.Sprintf("%.2fm", x/1e6)
	case ax >= 1e3:
		return fmt.Sprintf("%.2fk", x/1e3)
	}
	return fmt.Sprintf("%.2f", x)
}

// fmtRelChange renders (cy-ly)/|ly| as a signed whole percentage.
func fmtRelChange(cy, ly float64) string {
	if math.IsNaN(cy) || math.IsNaN(ly) {
		return ""
	}
	rel := (cy - ly) / math.Max(math.Abs(ly), epsilon)
	return fmt.Sprintf("%+.0f%%", rel*100)
}

// metricValues joins the evidence of the highest-scoring metrics.
func metricValues(scored []metricScore) string {
	shown := scored
	if len(shown) > maxMetricsInValues {
		shown = shown[:maxMetricsInValues]
	}
	blobs := make([]string, 0, len(shown)+1)
	for _, ms := range shown {
		blobs = append(blobs, ms.evidence)
	}
	if extra := len(scored) - len(shown); extra > 0 {
		blobs = append(blobs, fmt.Sprintf("+%d more", extra))
	}
	return strings.Join(blobs, " | ")
}
