package binding

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hhkbp2/yahb"
	"github.com/pkg/errors"
)

const (
	// Isolation level of every transaction: default, read-committed,
	// repeatable-read or serializable.
	PropertySQLIsolation        = "sql.isolation"
	PropertySQLIsolationDefault = "serializable"
)

var (
	isolationLevels = map[string]sql.IsolationLevel{
		"default":          sql.LevelDefault,
		"read-uncommitted": sql.LevelReadUncommitted,
		"read-committed":   sql.LevelReadCommitted,
		"repeatable-read":  sql.LevelRepeatableRead,
		"serializable":     sql.LevelSerializable,
	}
)

// Dialect is what differs between the database/sql backed bindings.
type Dialect interface {
	DriverName() string
	// DataSourceName builds the connection string from the run properties.
	DataSourceName(p yahb.Properties) (string, error)
	// Rebind rewrites '?' placeholders into the dialect's syntax.
	Rebind(query string) string
	// IsConflict reports whether err is a serialization failure or
	// a deadlock, i.e. the transaction may succeed when retried.
	IsConflict(err error) bool
}

// SQLDB runs procedures over database/sql. There is one SQLDB, and so
// one connection, per terminal.
type SQLDB struct {
	*yahb.DBBase
	dialect   Dialect
	isolation sql.IsolationLevel
	// used when sql.isolation is not set
	defaultIsolation string
	db               *sql.DB
	owned            bool
}

func NewSQLDB(dialect Dialect) *SQLDB {
	return &SQLDB{
		DBBase:           yahb.NewDBBase(),
		dialect:          dialect,
		defaultIsolation: PropertySQLIsolationDefault,
	}
}

// NewSQLDBFrom wraps an already opened database. Cleanup leaves it open.
func NewSQLDBFrom(db *sql.DB, dialect Dialect) *SQLDB {
	return &SQLDB{
		DBBase:           yahb.NewDBBase(),
		dialect:          dialect,
		isolation:        sql.LevelDefault,
		defaultIsolation: PropertySQLIsolationDefault,
		db:               db,
	}
}

func ParseIsolation(name string) (sql.IsolationLevel, error) {
	level, ok := isolationLevels[strings.ToLower(name)]
	if !ok {
		return sql.LevelDefault, yahb.NewConfigError("unknown isolation level: %s", name)
	}
	return level, nil
}

func (self *SQLDB) Init() error {
	props := self.GetProperties()
	isolation, err := ParseIsolation(
		props.GetDefault(PropertySQLIsolation, self.defaultIsolation))
	if err != nil {
		return err
	}
	self.isolation = isolation
	if self.db != nil {
		return nil
	}
	sourceName, err := self.dialect.DataSourceName(props)
	if err != nil {
		return err
	}
	db, err := sql.Open(self.dialect.DriverName(), sourceName)
	if err != nil {
		return errors.Wrapf(err, "open %s", self.dialect.DriverName())
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return errors.Wrapf(err, "connect %s", self.dialect.DriverName())
	}
	self.db = db
	self.owned = true
	return nil
}

func (self *SQLDB) Cleanup() error {
	if self.db != nil && self.owned {
		return self.db.Close()
	}
	return nil
}

func (self *SQLDB) RunTx(ctx context.Context, fn func(tx yahb.Tx) error) error {
	tx, err := self.db.BeginTx(ctx, &sql.TxOptions{Isolation: self.isolation})
	if err != nil {
		return self.classify(errors.Wrap(err, "begin"))
	}
	if err = fn(&sqlTx{tx: tx, dialect: self.dialect}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			yahb.Debugf("rollback: %s", rbErr)
		}
		return self.classify(err)
	}
	if err = tx.Commit(); err != nil {
		return self.classify(errors.Wrap(err, "commit"))
	}
	return nil
}

func (self *SQLDB) classify(err error) error {
	if self.dialect.IsConflict(errors.Cause(err)) {
		return yahb.NewConflictError(err)
	}
	return err
}

type sqlTx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (self *sqlTx) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := self.tx.ExecContext(ctx, self.dialect.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (self *sqlTx) QueryRow(ctx context.Context, query string, args ...interface{}) yahb.Row {
	return self.tx.QueryRowContext(ctx, self.dialect.Rebind(query), args...)
}

func (self *sqlTx) Query(ctx context.Context, query string, args ...interface{}) (yahb.Rows, error) {
	rows, err := self.tx.QueryContext(ctx, self.dialect.Rebind(query), args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
