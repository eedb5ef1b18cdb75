package deviation

import (
	"cmp"
	"math"
	"slices"
)

// accountScore sums metric scores with a breadth bonus for 2 and 3+ scored
// metrics.
func accountScore(scored []metricScore) int {
	total := 0
	for _, ms := range scored {
		total += ms.score
	}
	if len(scored) >= 2 {
		total += 2
	}
	if len(scored) >= 3 {
		total += 2
	}
	return total
}

// assignTier applies the exclusion gates and tier cut-offs. ok is false when
// the account is dropped.
func assignTier(t Tiering, triggers []Trigger, score int, maxMeanPct float64) (Tier, bool) {
	if len(triggers) > 0 && allPureVolatility(triggers) {
		if math.IsNaN(maxMeanPct) || maxMeanPct < t.DropPureVolatilityBelowMeanPct {
			return "", false
		}
	}

	if len(t.RequireAnyOfTriggers) > 0 && !slices.ContainsFunc(triggers, func(tr Trigger) bool {
		return slices.Contains(t.RequireAnyOfTriggers, tr)
	}) {
		return "", false
	}

	switch {
	case score >= t.Tier1MinScore &&
		(passes(maxMeanPct, t.Tier1MaterialityPct) || score >= t.Tier1OverrideScore):
		return Tier1, true
	case score >= t.Tier2MinScore:
		return Tier2, true
	case score >= t.Tier3MinScore && t.IncludeTier3:
		return Tier3, true
	}
	return "", false
}

func allPureVolatility(triggers []Trigger) bool {
	for _, t := range triggers {
		if !pureVolatility[t] {
			return false
		}
	}
	return true
}

// sortRows orders by tier, score descending, then code and name.
func sortRows(rows []Row) {
	slices.SortStableFunc(rows, func(a, b Row) int {
		return cmp.Or(
			cmp.Compare(a.Tier.rank(), b.Tier.rank()),
			cmp.Compare(b.Score, a.Score),
			cmp.Compare(a.AccountCode, b.AccountCode),
			cmp.Compare(a.AccountName, b.AccountName),
		)
	})
}

// capTier1 demotes Tier-1 rows beyond maxTier1 to Tier-2. rows must be sorted.
func capTier1(rows []Row, maxTier1 int) {
	if maxTier1 <= 0 {
		return
	}
	seen, demoted := 0, false
	for i := range rows {
		if rows[i].Tier != Tier1 {
			continue
		}
		seen++
		if seen > maxTier1 {
			rows[i].Tier = Tier2
			demoted = true
		}
	}
	if demoted {
		sortRows(rows)
	}
}
