package config_test

import (
	"context"
	"runtime"
	"testing"

	"github.com/okian/glwatch/internal/config"
	"github.com/okian/glwatch/internal/domain/ledger"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.Period, convey.ShouldEqual, "monthly")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.Metrics, convey.ShouldResemble, ledger.DefaultMetrics)
			convey.So(cfg.MaxRequestBytes, convey.ShouldEqual, 32<<20)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then the metrics slice is not shared with the ledger defaults", func() {
			cfg.Metrics[0] = "changed"
			convey.So(ledger.DefaultMetrics[0], convey.ShouldEqual, "Debit")
		})

		convey.Convey("Then periods and location resolve", func() {
			periods, err := cfg.Periods()
			convey.So(err, convey.ShouldBeNil)
			convey.So(periods, convey.ShouldResemble, []ledger.Granularity{ledger.Monthly})
			loc, err := cfg.Location()
			convey.So(err, convey.ShouldBeNil)
			convey.So(loc.String(), convey.ShouldEqual, "UTC")
		})
	})
}
