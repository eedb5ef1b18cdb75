package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/glwatch/internal/adapters/repository"
	service "github.com/okian/glwatch/internal/app"
	"github.com/okian/glwatch/internal/domain/deviation"
	"github.com/okian/glwatch/internal/domain/ledger"
	"github.com/okian/glwatch/pkg/database"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with run history on SQLite", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := database.New(ctx)
		So(err, ShouldBeNil)
		defer db.Close()

		svc := service.New(
			service.WithWorkerCount(2),
			service.WithStore(repository.NewSQLStore(db)),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		So(svc.GetStats()["history"], ShouldEqual, true)

		Convey("When a run is made with a custom config", func() {
			cfg := deviation.DefaultConfig()
			cfg.Tiers.MaxTier1 = 3
			res, err := svc.Run(ctx, fixturePairs(), ledger.Monthly, &cfg)
			So(err, ShouldBeNil)
			So(res.Run.ID, ShouldNotBeEmpty)

			Convey("Then the run can be read back", func() {
				run, rows, err := svc.GetRun(ctx, res.Run.ID)
				So(err, ShouldBeNil)
				So(run.Period, ShouldEqual, "monthly")
				So(run.Summary.Processed, ShouldEqual, 2)
				So(run.Summary.SkipReasons[service.SkipEmpty], ShouldEqual, 2)
				So(rows, ShouldResemble, res.Rows)

				stored, err := deviation.FromFlat(run.Config)
				So(err, ShouldBeNil)
				So(stored.Tiers.MaxTier1, ShouldEqual, 3)
			})

			Convey("Then it is listed first", func() {
				second, err := svc.Run(ctx, fixturePairs(), ledger.Quarterly, nil)
				So(err, ShouldBeNil)

				runs, err := svc.ListRuns(ctx, 10)
				So(err, ShouldBeNil)
				So(runs, ShouldHaveLength, 2)
				ids := []string{runs[0].ID, runs[1].ID}
				So(ids, ShouldContain, res.Run.ID)
				So(ids, ShouldContain, second.Run.ID)
			})
		})

		Convey("When an unknown run is requested", func() {
			_, _, err := svc.GetRun(ctx, "missing")
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})
	})
}
