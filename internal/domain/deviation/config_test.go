package deviation_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/glwatch/internal/domain/deviation"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFlatRoundTrip(t *testing.T) {
	Convey("Given the default config", t, func() {
		def := deviation.DefaultConfig()

		Convey("Then it validates", func() {
			So(def.Validate(), ShouldBeNil)
		})

		Convey("Then flat keys use dotted paths", func() {
			flat := def.ToFlat()
			So(flat["thresholds.high_cv"], ShouldEqual, 1.0)
			So(flat["profiles.Running_Balance.cv_weight_mult"], ShouldEqual, 0.8)
			So(flat["tiers.require_any_of_triggers"], ShouldHaveLength, 8)
			So(flat["enabled_checks.cv"], ShouldEqual, true)
		})

		Convey("Then FromFlat(ToFlat) is a fixed point", func() {
			back, err := deviation.FromFlat(def.ToFlat())
			So(err, ShouldBeNil)
			So(back, ShouldResemble, def)
		})

		Convey("Then a customised config survives the round trip", func() {
			c := def.Clone()
			c.Thresholds.HighCV = 1.4
			c.Weights.SignReversal = 6
			c.Tiers.IncludeTier3 = true
			c.Tiers.RequireAnyOfTriggers = []deviation.Trigger{deviation.TriggerSignReversal, deviation.TriggerMeanShift}
			c.EnabledChecks[deviation.CheckPearsonSkew] = false
			c.Language.BucketFinish["payroll"] = "Check payroll runs."
			p := deviation.NewMetricProfile("Fees")
			p.CVWeightMult = 0.5
			c.Profiles["Fees"] = p

			back, err := deviation.FromFlat(c.ToFlat())
			So(err, ShouldBeNil)
			So(back, ShouldResemble, c)
		})

		Convey("Then a nil trigger list and a stray profile name survive the round trip in canonical form", func() {
			c := def
			c.Tiers.RequireAnyOfTriggers = nil
			p := def.Profiles["Credit"]
			p.Name = "Takings"
			c.Profiles = map[string]deviation.MetricProfile{"Credit": p}

			canon := c.Clone()
			So(canon.Tiers.RequireAnyOfTriggers, ShouldNotBeNil)
			So(canon.Tiers.RequireAnyOfTriggers, ShouldBeEmpty)
			So(canon.Profiles["Credit"].Name, ShouldEqual, "Credit")
			So(c.Profiles["Credit"].Name, ShouldEqual, "Takings")

			back, err := deviation.FromFlat(c.ToFlat())
			So(err, ShouldBeNil)
			So(back.Tiers.RequireAnyOfTriggers, ShouldResemble, canon.Tiers.RequireAnyOfTriggers)
			So(back.Profiles["Credit"], ShouldResemble, canon.Profiles["Credit"])

			again, err := deviation.FromFlat(back.ToFlat())
			So(err, ShouldBeNil)
			So(again, ShouldResemble, back)
			So(back.Clone(), ShouldResemble, back)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given several out-of-range percentiles", t, func() {
		c := deviation.DefaultConfig().Clone()
		c.Thresholds.SignReversalMinMeanPct = 2
		c.Tiers.Tier1MaterialityPct = -1
		p := c.Profiles["GST"]
		p.HighStdPct = 3
		c.Profiles["GST"] = p
		p = c.Profiles["Credit"]
		p.LowMeanPct = 4
		c.Profiles["Credit"] = p

		Convey("Then the first key in sorted order is always reported", func() {
			for range 20 {
				err := c.Validate()
				So(errors.Is(err, deviation.ErrInvalidConfig), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "profiles.Credit.low_mean_pct")
			}
		})
	})
}

func TestFromFlat(t *testing.T) {
	Convey("Missing keys keep defaults and unknown keys are ignored", t, func() {
		cfg, err := deviation.FromFlat(map[string]any{
			"thresholds.high_cv":                  "1.5",
			"weights.mean_shift":                  7.0,
			"profiles.Credit.min_mean_pct_for_cv": 0.2,
			"profiles.Other.cv_weight_mult":       0.3,
			"nonsense.key":                        true,
			"enabled_checks.sign_reversal":        "false",
		})
		So(err, ShouldBeNil)
		So(cfg.Thresholds.HighCV, ShouldEqual, 1.5)
		So(cfg.Thresholds.ModerateCV, ShouldEqual, 0.7)
		So(cfg.Weights.MeanShift, ShouldEqual, 7)
		So(cfg.Profiles["Credit"].MinMeanPctForCV, ShouldEqual, 0.2)
		So(cfg.Profiles["Credit"].MinMeanPctForEffect, ShouldEqual, 0.6)
		So(cfg.Profiles["Other"].Name, ShouldEqual, "Other")
		So(cfg.Profiles["Other"].CVWeightMult, ShouldEqual, 0.3)
		So(cfg.Profiles["Other"].LowMeanPct, ShouldEqual, 0.3)
		So(cfg.Enabled(deviation.CheckSignReversal), ShouldBeFalse)
		So(cfg.Enabled(deviation.CheckCV), ShouldBeTrue)
	})

	Convey("Trigger lists accept comma-separated strings", t, func() {
		cfg, err := deviation.FromFlat(map[string]any{
			"tiers.require_any_of_triggers": "Mean Shift, Sign Reversal",
		})
		So(err, ShouldBeNil)
		So(cfg.Tiers.RequireAnyOfTriggers, ShouldResemble,
			[]deviation.Trigger{deviation.TriggerMeanShift, deviation.TriggerSignReversal})
	})

	Convey("Unknown trigger names and versions fail fast", t, func() {
		_, err := deviation.FromFlat(map[string]any{"tiers.require_any_of_triggers": []any{"Mean Shift", "Vibes"}})
		So(errors.Is(err, deviation.ErrInvalidConfig), ShouldBeTrue)

		_, err = deviation.FromFlat(map[string]any{"version": 2})
		So(errors.Is(err, deviation.ErrInvalidConfig), ShouldBeTrue)

		_, err = deviation.FromFlat(map[string]any{"tiers.tier1_materiality_pct": 1.5})
		So(errors.Is(err, deviation.ErrInvalidConfig), ShouldBeTrue)
	})

	Convey("Overlay layers keys over a non-default base", t, func() {
		base := deviation.DefaultConfig()
		base.Thresholds.HighCV = 2.5

		out, err := base.Overlay(map[string]any{
			"tiers":                      map[string]any{"max_tier1": 2},
			"weights.high_cv":            9,
			"profiles.Fx.cv_weight_mult": 0.1,
		})
		So(err, ShouldBeNil)
		So(out.Thresholds.HighCV, ShouldEqual, 2.5)
		So(out.Tiers.MaxTier1, ShouldEqual, 2)
		So(out.Weights.HighCV, ShouldEqual, 9)
		So(out.Profiles["Fx"].CVWeightMult, ShouldEqual, 0.1)
		So(base.Profiles, ShouldNotContainKey, "Fx")
		So(base.Tiers.MaxTier1, ShouldEqual, 10)
	})
}

func TestLoadFile(t *testing.T) {
	Convey("Given a YAML file mixing nested and dotted keys", t, func() {
		path := filepath.Join(t.TempDir(), "deviation.yaml")
		content := `
thresholds:
  high_cv: 1.25
tiers.max_tier1: 4
profiles:
  GST:
    effect_weight_mult: 0.5
`
		So(os.WriteFile(path, []byte(content), 0o600), ShouldBeNil)

		cfg, err := deviation.LoadFile(path)
		So(err, ShouldBeNil)
		So(cfg.Thresholds.HighCV, ShouldEqual, 1.25)
		So(cfg.Tiers.MaxTier1, ShouldEqual, 4)
		So(cfg.Profiles["GST"].EffectWeightMult, ShouldEqual, 0.5)
		So(cfg.Profiles["GST"].CVWeightMult, ShouldEqual, 0.9)
	})

	Convey("A missing file is an invalid config", t, func() {
		_, err := deviation.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
		So(errors.Is(err, deviation.ErrInvalidConfig), ShouldBeTrue)
	})
}
