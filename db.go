package yahb

import (
	"context"

	"github.com/pkg/errors"
)

// Row is the result of a query returning at most one row.
type Row interface {
	Scan(dest ...interface{}) error
}

// Rows iterates the result of a query.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close() error
}

// Tx is one open transaction. Statements use '?' placeholders, bindings
// rewrite them for their dialect.
type Tx interface {
	// Exec runs a statement and returns the number of affected rows.
	Exec(ctx context.Context, query string, args ...interface{}) (int64, error)

	QueryRow(ctx context.Context, query string, args ...interface{}) Row

	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
}

// DB is a layer for accessing the database to be benchmarked.
// Each terminal is given its own instance of whatever DB is configured.
// It should be constructed by a no-argument function registered in
// Databases, any argument-based initialization should be done by Init().
//
// The DB does not judge the outcome of a transaction. Procedures return
// errors, terminals classify them into statuses and count them.
type DB interface {
	// Set the properties for this DB.
	SetProperties(p Properties)

	// Get the properties for this DB.
	GetProperties() Properties

	// Initialize any state for this DB.
	// Called once per DB instance; there is one DB instance per terminal.
	Init() error

	// Cleanup any state for this DB.
	// Called once per DB instance; there is one DB instance per terminal.
	Cleanup() error

	// RunTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise, the error of fn is returned
	// unchanged so that it can be classified. Serialization failures and
	// deadlocks are returned as *ConflictError.
	RunTx(ctx context.Context, fn func(tx Tx) error) error
}

type DBBase struct {
	p Properties
}

func NewDBBase() *DBBase {
	return &DBBase{}
}

func (self *DBBase) SetProperties(p Properties) {
	self.p = p
}

func (self *DBBase) GetProperties() Properties {
	return self.p
}

type MakeDBFunc func() DB

var (
	Databases = map[string]MakeDBFunc{
		"basic": func() DB {
			return NewBasicDB()
		},
	}
)

// NewDB creates an uninitialized DB of the named binding.
func NewDB(database string, props Properties) (DB, error) {
	f, ok := Databases[database]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedDatabase, "%q", database)
	}
	db := f()
	db.SetProperties(props)
	return db, nil
}
