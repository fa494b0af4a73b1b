package workload

import (
	"context"
	"fmt"
	"time"

	"github.com/hhkbp2/yahb"
	g "github.com/hhkbp2/yahb/generator"
	"github.com/pkg/errors"
)

const (
	// Cardinality of the item table.
	Items = 100000
)

var (
	// NURand constants are drawn once per run and shared by all terminals.
	customerIDs = g.NewNURandGenerator(1023, 1, yahb.CustomersPerDistrict)
	itemIDs     = g.NewNURandGenerator(8191, 1, Items)
	lastNames   = g.NewNURandGenerator(255, 0, 999)

	syllables = []string{
		"BAR", "OUGHT", "ABLE", "PRI", "PRES", "ESE", "ANTI", "CALLY", "ATION", "EING",
	}
)

// LastName builds the customer last name of number n in [0, 999] out of
// three syllables.
func LastName(n int64) string {
	return syllables[n/100] + syllables[(n/10)%10] + syllables[n%10]
}

// procedureBase carries what is static about a procedure.
type procedureBase struct {
	name       string
	kind       yahb.ProcedureKind
	keyingTime time.Duration
	thinkTime  time.Duration
}

func (self *procedureBase) Name() string {
	return self.name
}

func (self *procedureBase) Kind() yahb.ProcedureKind {
	return self.kind
}

func (self *procedureBase) KeyingTime() time.Duration {
	return self.keyingTime
}

func (self *procedureBase) ThinkTime() time.Duration {
	return self.thinkTime
}

func (self *procedureBase) Init(p yahb.Properties) error {
	return nil
}

// otherWarehouse returns a warehouse other than the home one, or the home
// one when there is no other.
func otherWarehouse(env *yahb.TxEnv) int64 {
	if env.Warehouses <= 1 {
		return env.Warehouse
	}
	w := env.RandInt(1, env.Warehouses-1)
	if w >= env.Warehouse {
		w++
	}
	return w
}

// percent returns true with the given probability in percent.
func percent(env *yahb.TxEnv, p int64) bool {
	return env.Rand.Int63n(100) < p
}

func exec(ctx context.Context, tx yahb.Tx, query string, args ...interface{}) (int64, error) {
	affected, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, firstWords(query))
	}
	return affected, nil
}

// execOne runs a statement that must touch exactly one row.
func execOne(ctx context.Context, tx yahb.Tx, query string, args ...interface{}) error {
	affected, err := exec(ctx, tx, query, args...)
	if err != nil {
		return err
	}
	return yahb.ExpectOneRow(affected, "%s %v", firstWords(query), args)
}

func queryRow(ctx context.Context, tx yahb.Tx, query string, args []interface{}, dest ...interface{}) error {
	if err := tx.QueryRow(ctx, query, args...).Scan(dest...); err != nil {
		return errors.Wrap(err, firstWords(query))
	}
	return nil
}

// firstWords shortens a statement for error messages.
func firstWords(query string) string {
	if len(query) > 40 {
		return fmt.Sprintf("%s...", query[:40])
	}
	return query
}

func args(v ...interface{}) []interface{} {
	return v
}

// AddProcedures registers the TPC-C transactions and the analytical
// queries.
func AddProcedures() {
	yahb.Procedures["NewOrder"] = func() yahb.Procedure {
		return NewNewOrder()
	}
	yahb.Procedures["Payment"] = func() yahb.Procedure {
		return NewPayment()
	}
	yahb.Procedures["OrderStatus"] = func() yahb.Procedure {
		return NewOrderStatus()
	}
	yahb.Procedures["Delivery"] = func() yahb.Procedure {
		return NewDelivery()
	}
	yahb.Procedures["StockLevel"] = func() yahb.Procedure {
		return NewStockLevel()
	}
	for name := range analyticalQueries {
		queryName := name
		yahb.Procedures[queryName] = func() yahb.Procedure {
			return NewAnalyticalQuery(queryName)
		}
	}
}
