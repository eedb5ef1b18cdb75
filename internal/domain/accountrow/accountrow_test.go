package accountrow_test

import (
	"math"
	"testing"

	"github.com/okian/glwatch/internal/domain/accountrow"
	"github.com/okian/glwatch/internal/domain/compare"
	"github.com/okian/glwatch/internal/domain/ledger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDetectMetrics(t *testing.T) {
	Convey("Given wide-table columns", t, func() {
		cols := []string{"Account Code", "Zeta_CY_Mean", "GST_CY_Mean", "Alpha_CY_Mean",
			"Credit_CY_Mean", "Running_Balance_CY_Mean", "Credit_LY_Mean", "Debit_CY_Std"}

		Convey("Then preferred metrics lead and the rest are alphabetical", func() {
			So(accountrow.DetectMetrics(cols), ShouldResemble,
				[]string{"Credit", "Running_Balance", "GST", "Alpha", "Zeta"})
		})

		Convey("Then no CY mean means no metrics", func() {
			So(accountrow.DetectMetrics([]string{"Account Code", "Debit_LY_Mean"}), ShouldBeEmpty)
		})
	})
}

func TestExtract(t *testing.T) {
	Convey("Given a comparison with one compared metric", t, func() {
		prior := ledger.Aggregation{Periods: []string{"a", "b", "c"}, Series: map[string][]float64{
			"Running Balance": {10, 20, 30}, "GST": {1, 1, 1},
		}}
		current := ledger.Aggregation{Periods: []string{"a", "b", "c"}, Series: map[string][]float64{
			"Running Balance": {40, 50, 70}, "GST": {1, 2, 3},
		}}
		res := compare.Compare(prior, current, []string{"Running Balance", "GST"})
		row := accountrow.Extract("400", "Bank Fees", res)

		Convey("Then columns use the underscored prefix", func() {
			So(row.Float("Running_Balance_LY_Mean"), ShouldEqual, 20)
			So(row.Float("Running_Balance_CY_Median"), ShouldEqual, 50)
			So(row.Float("Running_Balance_Mean_Diff"), ShouldAlmostEqual, 100.0/3.0, 1e-9)
			So(row.Text("Running_Balance_Effect_Size"), ShouldEqual, "large")
		})

		Convey("Then significance flags are booleans", func() {
			v, ok := row.Bool("Running_Balance_TTest_Significant")
			So(ok, ShouldBeTrue)
			So(v, ShouldBeTrue)
		})

		Convey("Then skipped metrics contribute nothing", func() {
			_, present := row.Values["GST_CY_Mean"]
			So(present, ShouldBeFalse)
		})

		Convey("Then the table lists identity columns first", func() {
			table := accountrow.NewTable([]accountrow.Row{row}, []string{"Debit", "Running Balance", "GST"})
			So(table.Columns[0], ShouldEqual, accountrow.ColAccountCode)
			So(table.Columns[1], ShouldEqual, accountrow.ColAccountName)
			So(table.Columns[2], ShouldEqual, "Running_Balance_LY_Mean")
			So(len(table.Columns), ShouldEqual, 2+len(accountrow.StatisticSuffixes))
			So(table.Metrics(), ShouldResemble, []string{"Running_Balance"})
			So(table.HasColumn("GST_CY_Mean"), ShouldBeFalse)
		})

		Convey("Then identity columns are readable through Get", func() {
			So(row.Get(accountrow.ColAccountCode), ShouldEqual, "400")
			So(row.Get(accountrow.ColAccountName), ShouldEqual, "Bank Fees")
		})
	})
}

func TestCoercion(t *testing.T) {
	Convey("Floats reject blanks, booleans and infinities", t, func() {
		So(accountrow.ToFloat("1.5"), ShouldEqual, 1.5)
		So(accountrow.ToFloat(2), ShouldEqual, 2)
		So(math.IsNaN(accountrow.ToFloat(" ")), ShouldBeTrue)
		So(math.IsNaN(accountrow.ToFloat(true)), ShouldBeTrue)
		So(math.IsNaN(accountrow.ToFloat("inf")), ShouldBeTrue)
		So(math.IsNaN(accountrow.ToFloat(math.Inf(-1))), ShouldBeTrue)
		So(math.IsNaN(accountrow.ToFloat("abc")), ShouldBeTrue)
		So(math.IsNaN(accountrow.ToFloat(nil)), ShouldBeTrue)
	})

	Convey("Bools accept common spellings", t, func() {
		for _, s := range []string{"True", "t", "1", "YES", "y"} {
			v, ok := accountrow.ToBool(s)
			So(ok, ShouldBeTrue)
			So(v, ShouldBeTrue)
		}
		for _, s := range []string{"false", "F", "0", "no", "N"} {
			v, ok := accountrow.ToBool(s)
			So(ok, ShouldBeTrue)
			So(v, ShouldBeFalse)
		}
		_, ok := accountrow.ToBool("maybe")
		So(ok, ShouldBeFalse)
		_, ok = accountrow.ToBool(1.0)
		So(ok, ShouldBeFalse)
	})
}
