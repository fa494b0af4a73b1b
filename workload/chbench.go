package workload

import (
	"context"
	"sort"
	"time"

	"github.com/hhkbp2/yahb"
	"github.com/pkg/errors"
)

// Analytical queries of CH-benCHmark over the TPC-C schema. Their date
// parameters are drawn from the TPC-H interval the way TPC-H draws them
// and mapped into the time span the OLTP terminals actually populated.
type analyticalQuery struct {
	query   string
	columns int
	params  func(env *yahb.TxEnv) []interface{}
}

var analyticalQueries = map[string]*analyticalQuery{
	// pricing summary report
	"Q1": {
		query: "SELECT ol_number, SUM(ol_quantity) AS sum_qty, SUM(ol_amount) AS sum_amount," +
			" AVG(ol_quantity) AS avg_qty, AVG(ol_amount) AS avg_amount, COUNT(*) AS count_order" +
			" FROM order_line WHERE ol_delivery_d <= ?" +
			" GROUP BY ol_number ORDER BY ol_number",
		columns: 6,
		params: func(env *yahb.TxEnv) []interface{} {
			delta := env.RandInt(60, 120)
			return args(mapDateMinusDays(env, specDate(1998, time.December, 1), delta))
		},
	},
	// shipping priority
	"Q3": {
		query: "SELECT ol_o_id, ol_w_id, ol_d_id, SUM(ol_amount) AS revenue, o_entry_d" +
			" FROM customer, new_order, oorder, order_line" +
			" WHERE c_state LIKE ? AND c_id = o_c_id AND c_w_id = o_w_id AND c_d_id = o_d_id" +
			" AND no_w_id = o_w_id AND no_d_id = o_d_id AND no_o_id = o_id" +
			" AND ol_w_id = o_w_id AND ol_d_id = o_d_id AND ol_o_id = o_id AND o_entry_d > ?" +
			" GROUP BY ol_o_id, ol_w_id, ol_d_id, o_entry_d" +
			" ORDER BY revenue DESC, o_entry_d LIMIT 10",
		columns: 5,
		params: func(env *yahb.TxEnv) []interface{} {
			segment := string(rune('A'+env.RandInt(0, 25))) + "%"
			day := specDate(1995, time.March, int(env.RandInt(1, 31)))
			return args(segment, mapDate(env, day))
		},
	},
	// forecasting revenue change
	"Q6": {
		query: "SELECT SUM(ol_amount) AS revenue FROM order_line" +
			" WHERE ol_delivery_d >= ? AND ol_delivery_d < ? AND ol_quantity BETWEEN ? AND ?",
		columns: 1,
		params: func(env *yahb.TxEnv) []interface{} {
			from := specDate(int(env.RandInt(1993, 1997)), time.January, 1)
			return args(mapDate(env, from), mapDate(env, from.AddDate(1, 0, 0)), 1, 100000)
		},
	},
	// shipping modes and order priority
	"Q12": {
		query: "SELECT o_ol_cnt," +
			" SUM(CASE WHEN o_carrier_id = 1 OR o_carrier_id = 2 THEN 1 ELSE 0 END) AS high_line_count," +
			" SUM(CASE WHEN o_carrier_id <> 1 AND o_carrier_id <> 2 THEN 1 ELSE 0 END) AS low_line_count" +
			" FROM oorder, order_line" +
			" WHERE ol_w_id = o_w_id AND ol_d_id = o_d_id AND ol_o_id = o_id" +
			" AND o_entry_d <= ol_delivery_d AND ol_delivery_d >= ? AND ol_delivery_d < ?" +
			" GROUP BY o_ol_cnt ORDER BY o_ol_cnt",
		columns: 3,
		params: func(env *yahb.TxEnv) []interface{} {
			from := specDate(int(env.RandInt(1993, 1997)), time.January, 1)
			return args(mapDate(env, from), mapDate(env, from.AddDate(1, 0, 0)))
		},
	},
	// promotion effect
	"Q14": {
		query: "SELECT 100.00 * SUM(CASE WHEN i_data LIKE 'PR%' THEN ol_amount ELSE 0 END)" +
			" / (1 + SUM(ol_amount)) AS promo_revenue FROM order_line, item" +
			" WHERE ol_i_id = i_id AND ol_delivery_d >= ? AND ol_delivery_d < ?",
		columns: 1,
		params: func(env *yahb.TxEnv) []interface{} {
			month := env.RandInt(0, 5*12-1)
			from := specDate(1993+int(month/12), time.Month(month%12+1), 1)
			return args(mapDate(env, from), mapDate(env, from.AddDate(0, 1, 0)))
		},
	},
}

// AnalyticalQueryNames returns the names of the analytical queries, sorted.
func AnalyticalQueryNames() []string {
	names := make([]string, 0, len(analyticalQueries))
	for name := range analyticalQueries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func specDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// mapDate maps a TPC-H date into the populated time span.
func mapDate(env *yahb.TxEnv, t time.Time) time.Time {
	return yahb.MillisToTime(env.Clock.TransformDate(t))
}

// mapDateMinusDays subtracts days in the TPC-H calendar and maps the
// result.
func mapDateMinusDays(env *yahb.TxEnv, t time.Time, days int64) time.Time {
	ts := env.Clock.ComputeTsMinusXDays(t.UnixNano()/int64(time.Millisecond), days)
	return yahb.MillisToTime(env.Clock.TransformTsFromSpecToLong(ts))
}

// AnalyticalQuery runs one of the analytical queries and reads its whole
// result.
type AnalyticalQuery struct {
	*procedureBase
	*analyticalQuery
}

func NewAnalyticalQuery(name string) *AnalyticalQuery {
	return &AnalyticalQuery{
		procedureBase: &procedureBase{
			name: name,
			kind: yahb.KindOLAP,
		},
		analyticalQuery: analyticalQueries[name],
	}
}

func (self *AnalyticalQuery) Init(p yahb.Properties) error {
	if self.analyticalQuery == nil {
		return yahb.NewConfigError("unknown analytical query %s", self.name)
	}
	return nil
}

// Params draws the parameters of one execution.
func (self *AnalyticalQuery) Params(env *yahb.TxEnv) []interface{} {
	return self.params(env)
}

func (self *AnalyticalQuery) Execute(ctx context.Context, db yahb.DB, env *yahb.TxEnv) error {
	params := self.Params(env)
	return db.RunTx(ctx, func(tx yahb.Tx) error {
		rows, err := tx.Query(ctx, self.query, params...)
		if err != nil {
			return errors.Wrap(err, self.name)
		}
		defer rows.Close()
		dest := make([]interface{}, self.columns)
		for i := range dest {
			dest[i] = new(interface{})
		}
		for rows.Next() {
			if err = rows.Scan(dest...); err != nil {
				return errors.Wrap(err, self.name)
			}
		}
		return rows.Err()
	})
}
