package deviation_test

import (
	"fmt"
	"testing"

	"github.com/okian/glwatch/internal/domain/accountrow"
	"github.com/okian/glwatch/internal/domain/deviation"
	. "github.com/smartystreets/goconvey/convey"
)

// permissive keeps every scoring account so single rules can be observed.
func permissive() deviation.Config {
	cfg := deviation.DefaultConfig()
	cfg.Tiers.RequireAnyOfTriggers = []deviation.Trigger{}
	cfg.Tiers.DropPureVolatilityBelowMeanPct = 0
	cfg.Tiers.IncludeTier3 = true
	cfg.Tiers.Tier3MinScore = 1
	return cfg
}

// subject is the account under test; its code is "S".
func subject(kv ...any) accountrow.Row {
	return account("S", "Subject", kv...)
}

// larger returns n accounts whose only value is a current-year mean bigger
// than anything the subject uses, pushing the subject down the batch ranking.
func larger(n int, metrics ...string) []accountrow.Row {
	out := make([]accountrow.Row, 0, n)
	for i := range n {
		var kv []any
		for _, m := range metrics {
			kv = append(kv, m+"_CY_Mean", float64(1_000_000+i))
		}
		out = append(out, account(fmt.Sprintf("F%d", i), "Filler", kv...))
	}
	return out
}

// shifted carries every signal for metric m: significant tests, a large
// effect, a jump in volatility and a skewed distribution. It scores 21 on
// any metric with unit weight multipliers.
func shifted(m string) []any {
	return []any{
		m + "_LY_Mean", 100.0,
		m + "_CY_Mean", 500.0,
		m + "_Mean_Diff", 400.0,
		m + "_LY_Std", 100.0,
		m + "_CY_Std", 600.0,
		m + "_Std_Diff", 500.0,
		m + "_CY_Median", 100.0,
		m + "_TTest_Significant", true,
		m + "_KS_Significant", true,
		m + "_Effect_Size", "large",
	}
}

func concat(parts ...[]any) []any {
	var out []any
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestScoringRules(t *testing.T) {
	type want struct {
		triggers []deviation.Trigger
		score    int
		tier     deviation.Tier
	}
	cases := []struct {
		name string
		cfg  func() deviation.Config
		rows []accountrow.Row
		want *want
	}{
		{
			name: "sign reversal on a material mean",
			cfg:  permissive,
			rows: []accountrow.Row{subject("Credit_LY_Mean", -100.0, "Credit_CY_Mean", 100.0)},
			want: &want{[]deviation.Trigger{deviation.TriggerSignReversal}, 3, deviation.Tier3},
		},
		{
			name: "activity starting from a zero prior year",
			cfg:  permissive,
			rows: []accountrow.Row{subject("Credit_LY_Mean", 0.0, "Credit_CY_Mean", 50.0)},
			want: &want{[]deviation.Trigger{deviation.TriggerNewActivity}, 2, deviation.Tier3},
		},
		{
			name: "low mean with high variance",
			cfg:  permissive,
			rows: append([]accountrow.Row{subject("Credit_CY_Mean", 10.0, "Credit_CY_Std", 500.0)},
				larger(4, "Credit")...),
			want: &want{[]deviation.Trigger{deviation.TriggerLowMeanHighVariance}, 2, deviation.Tier3},
		},
		{
			name: "pearson skew without a wide gap or high dispersion",
			cfg:  permissive,
			rows: []accountrow.Row{subject("Credit_CY_Mean", 100.0, "Credit_CY_Median", 80.0, "Credit_CY_Std", 40.0)},
			want: &want{[]deviation.Trigger{deviation.TriggerPearsonSkew}, 1, deviation.Tier3},
		},
		{
			name: "mean-median gap",
			cfg:  permissive,
			rows: []accountrow.Row{subject("Credit_CY_Mean", 100.0, "Credit_CY_Median", 50.0)},
			want: &want{[]deviation.Trigger{deviation.TriggerMeanMedianGap}, 2, deviation.Tier3},
		},
		{
			name: "moderate dispersion",
			cfg:  permissive,
			rows: []accountrow.Row{subject("Credit_CY_Mean", 100.0, "Credit_CY_Std", 80.0)},
			want: &want{[]deviation.Trigger{deviation.TriggerModerateCV}, 1, deviation.Tier3},
		},
		{
			name: "distribution change on a material account takes the full weight",
			cfg:  permissive,
			rows: []accountrow.Row{subject("Credit_CY_Mean", 10.0, "Credit_KS_Significant", true)},
			want: &want{[]deviation.Trigger{deviation.TriggerDistributionChange}, 5, deviation.Tier3},
		},
		{
			name: "distribution change below effect materiality takes 40% of the weight",
			cfg:  permissive,
			rows: append([]accountrow.Row{subject("Credit_CY_Mean", 10.0, "Credit_KS_Significant", true)},
				larger(4, "Credit")...),
			want: &want{[]deviation.Trigger{deviation.TriggerDistributionChange}, 2, deviation.Tier3},
		},
		{
			name: "significant mean change without materiality or a large effect takes half the weight",
			cfg:  permissive,
			rows: append([]accountrow.Row{subject("Credit_CY_Mean", 10.0, "Credit_TTest_Significant", true)},
				larger(4, "Credit")...),
			want: &want{[]deviation.Trigger{deviation.TriggerMeanShift}, 2, deviation.Tier3},
		},
		{
			name: "a large relative move without significant tests is a half-weight mean shift",
			cfg:  permissive,
			rows: []accountrow.Row{subject("Credit_LY_Mean", 100.0, "Credit_CY_Mean", 200.0, "Credit_Mean_Diff", 100.0)},
			want: &want{[]deviation.Trigger{deviation.TriggerMeanShift}, 2, deviation.Tier3},
		},
		{
			name: "a small relative move without significant tests scores nothing",
			cfg:  permissive,
			rows: []accountrow.Row{subject("Credit_LY_Mean", 100.0, "Credit_CY_Mean", 150.0, "Credit_Mean_Diff", 50.0)},
		},
		{
			name: "running balance effect weight truncates 4x0.7 to 2",
			cfg:  permissive,
			rows: []accountrow.Row{subject(
				"Running_Balance_LY_Mean", 100.0,
				"Running_Balance_CY_Mean", 200.0,
				"Running_Balance_Mean_Diff", 100.0,
				"Running_Balance_Effect_Size", "large",
			)},
			want: &want{[]deviation.Trigger{deviation.TriggerMeanShift, deviation.TriggerLargeEffect}, 4, deviation.Tier3},
		},
		{
			name: "running balance cv weight truncates 2x0.8 to 1",
			cfg:  permissive,
			rows: []accountrow.Row{subject("Running_Balance_CY_Mean", 100.0, "Running_Balance_CY_Std", 150.0)},
			want: &want{[]deviation.Trigger{deviation.TriggerHighCV}, 1, deviation.Tier3},
		},
		{
			name: "two scored metrics add a breadth bonus of 2",
			cfg:  permissive,
			rows: []accountrow.Row{subject(
				"Credit_LY_Mean", -100.0, "Credit_CY_Mean", 100.0,
				"Debit_LY_Mean", -100.0, "Debit_CY_Mean", 100.0,
			)},
			want: &want{[]deviation.Trigger{deviation.TriggerSignReversal}, 8, deviation.Tier2},
		},
		{
			name: "three scored metrics add a breadth bonus of 4",
			cfg:  permissive,
			rows: []accountrow.Row{subject(
				"Credit_LY_Mean", -100.0, "Credit_CY_Mean", 100.0,
				"Debit_LY_Mean", -100.0, "Debit_CY_Mean", 100.0,
				"GST_LY_Mean", -100.0, "GST_CY_Mean", 100.0,
			)},
			want: &want{[]deviation.Trigger{deviation.TriggerSignReversal}, 13, deviation.Tier2},
		},
		{
			name: "a score at the override reaches Tier-1 below the materiality gate",
			cfg:  deviation.DefaultConfig,
			rows: []accountrow.Row{
				subject(concat(shifted("Credit"), shifted("Debit"))...),
				account("L", "Smaller", "Credit_CY_Mean", 1.0, "Debit_CY_Mean", 1.0),
				account("H", "Larger", "Credit_CY_Mean", 1e6, "Debit_CY_Mean", 1e6),
			},
			want: &want{[]deviation.Trigger{
				deviation.TriggerDistributionChange,
				deviation.TriggerMeanShift,
				deviation.TriggerLargeEffect,
				deviation.TriggerHighCV,
				deviation.TriggerMeanMedianGap,
				deviation.TriggerPearsonSkew,
				deviation.TriggerVolatilityJump,
			}, 44, deviation.Tier1},
		},
		{
			name: "the same account stays Tier-2 when the override is out of reach",
			cfg: func() deviation.Config {
				cfg := deviation.DefaultConfig()
				cfg.Tiers.Tier1OverrideScore = 45
				return cfg
			},
			rows: []accountrow.Row{
				subject(concat(shifted("Credit"), shifted("Debit"))...),
				account("L", "Smaller", "Credit_CY_Mean", 1.0, "Debit_CY_Mean", 1.0),
				account("H", "Larger", "Credit_CY_Mean", 1e6, "Debit_CY_Mean", 1e6),
			},
			want: &want{[]deviation.Trigger{
				deviation.TriggerDistributionChange,
				deviation.TriggerMeanShift,
				deviation.TriggerLargeEffect,
				deviation.TriggerHighCV,
				deviation.TriggerMeanMedianGap,
				deviation.TriggerPearsonSkew,
				deviation.TriggerVolatilityJump,
			}, 44, deviation.Tier2},
		},
		{
			name: "a tier-3 score is dropped by default",
			cfg:  deviation.DefaultConfig,
			rows: []accountrow.Row{subject("Credit_LY_Mean", -100.0, "Credit_CY_Mean", 100.0, "Credit_CY_Median", 50.0)},
		},
		{
			name: "a tier-3 score is listed when tier 3 is included",
			cfg: func() deviation.Config {
				cfg := deviation.DefaultConfig()
				cfg.Tiers.IncludeTier3 = true
				return cfg
			},
			rows: []accountrow.Row{subject("Credit_LY_Mean", -100.0, "Credit_CY_Mean", 100.0, "Credit_CY_Median", 50.0)},
			want: &want{[]deviation.Trigger{deviation.TriggerMeanMedianGap, deviation.TriggerSignReversal}, 5, deviation.Tier3},
		},
	}

	for _, tc := range cases {
		Convey("Given "+tc.name, t, func() {
			rows := build(tc.cfg(), tableOf(tc.rows...))

			var got *deviation.Row
			for i := range rows {
				So(rows[i].AccountCode, ShouldEqual, "S")
				got = &rows[i]
			}

			if tc.want == nil {
				Convey("Then the account is not listed", func() {
					So(got, ShouldBeNil)
				})
				return
			}
			Convey("Then the triggers, score and tier match", func() {
				So(got, ShouldNotBeNil)
				So(got.Triggers, ShouldResemble, tc.want.triggers)
				So(got.Score, ShouldEqual, tc.want.score)
				So(got.Tier, ShouldEqual, tc.want.tier)
			})
		})
	}
}
