package yahb

import (
	"context"
	"fmt"
	"strings"
	"time"

	g "github.com/hhkbp2/yahb/generator"
)

func concatArgsStr(args []interface{}) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, fmt.Sprintf("%v", a))
	}
	return strings.Join(parts, ", ")
}

// BasicDB is a database that does nothing but echo the statements it is
// given. Every statement affects one row and every query finds nothing,
// which is enough to drive terminals, the clock and the measurements
// without a server.
type BasicDB struct {
	*DBBase
	verbose        bool
	randomizeDelay bool
	toDelay        int64
}

func NewBasicDB() *BasicDB {
	return &BasicDB{
		DBBase: NewDBBase(),
	}
}

// Delay sleeps for the simulated latency, returning early when ctx is done.
func (self *BasicDB) Delay(ctx context.Context) {
	if self.toDelay <= 0 {
		return
	}
	var millis int64
	if self.randomizeDelay {
		millis = g.NextInt64(self.toDelay)
		if millis == 0 {
			return
		}
	} else {
		millis = self.toDelay
	}
	timer := time.NewTimer(time.Duration(MillisecondToNanosecond(millis)))
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Initialize any state for this DB.
func (self *BasicDB) Init() error {
	p := self.GetProperties()
	var err error
	self.verbose, err = p.GetBool(ConfigBasicDBVerbose, ConfigBasicDBVerboseDefault)
	if err != nil {
		return err
	}
	self.toDelay, err = p.GetInt64(ConfigSimulateDelay, ConfigSimulateDelayDefault)
	if err != nil {
		return err
	}
	self.randomizeDelay, err = p.GetBool(ConfigRandomizeDelay, ConfigRandomizeDelayDefault)
	if err != nil {
		return err
	}
	if self.verbose {
		OutputProperties(p)
	}
	return nil
}

func (self *BasicDB) Cleanup() error {
	return nil
}

func (self *BasicDB) RunTx(ctx context.Context, fn func(tx Tx) error) error {
	if self.verbose {
		Output("BEGIN")
	}
	err := fn(&basicTx{db: self})
	if self.verbose {
		if err != nil {
			Output("ROLLBACK (%s)", err)
		} else {
			Output("COMMIT")
		}
	}
	return err
}

type basicTx struct {
	db *BasicDB
}

func (self *basicTx) echo(ctx context.Context, verb, query string, args []interface{}) {
	self.db.Delay(ctx)
	if self.db.verbose {
		Output("%s %s [%s]", verb, query, concatArgsStr(args))
	}
}

func (self *basicTx) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	self.echo(ctx, "EXEC", query, args)
	return 1, nil
}

func (self *basicTx) QueryRow(ctx context.Context, query string, args ...interface{}) Row {
	self.echo(ctx, "QUERYROW", query, args)
	return basicRow{}
}

func (self *basicTx) Query(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	self.echo(ctx, "QUERY", query, args)
	return &basicRows{}, nil
}

// basicRow leaves the destinations at their zero values.
type basicRow struct{}

func (basicRow) Scan(dest ...interface{}) error {
	return nil
}

type basicRows struct{}

func (self *basicRows) Next() bool {
	return false
}

func (self *basicRows) Scan(dest ...interface{}) error {
	return nil
}

func (self *basicRows) Err() error {
	return nil
}

func (self *basicRows) Close() error {
	return nil
}
