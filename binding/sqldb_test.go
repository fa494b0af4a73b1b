package binding

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/hhkbp2/testify/require"
	"github.com/hhkbp2/yahb"
	"github.com/lib/pq"
	"github.com/pkg/errors"
)

func newMockDB(t *testing.T, dialect Dialect) (*SQLDB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.Nil(t, err)
	sqlDB := NewSQLDBFrom(db, dialect)
	sqlDB.SetProperties(yahb.Properties{PropertySQLIsolation: "default"})
	require.Nil(t, sqlDB.Init())
	return sqlDB, mock
}

func TestSQLDBCommit(t *testing.T) {
	db, mock := newMockDB(t, MysqlDialect{})
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE warehouse SET w_ytd = w_ytd + ? WHERE w_id = ?")).
		WithArgs(10.5, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT w_name FROM warehouse WHERE w_id = ?")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"w_name"}).AddRow("w1"))
	mock.ExpectCommit()

	ctx := context.Background()
	err := db.RunTx(ctx, func(tx yahb.Tx) error {
		affected, err := tx.Exec(ctx, "UPDATE warehouse SET w_ytd = w_ytd + ? WHERE w_id = ?", 10.5, 1)
		if err != nil {
			return err
		}
		if err = yahb.ExpectOneRow(affected, "update warehouse"); err != nil {
			return err
		}
		var name string
		if err = tx.QueryRow(ctx, "SELECT w_name FROM warehouse WHERE w_id = ?", 1).Scan(&name); err != nil {
			return err
		}
		require.Equal(t, "w1", name)
		return nil
	})
	require.Nil(t, err)
	require.Nil(t, mock.ExpectationsWereMet())
}

func TestSQLDBRollbackKeepsError(t *testing.T) {
	db, mock := newMockDB(t, MysqlDialect{})
	mock.ExpectBegin()
	mock.ExpectRollback()
	err := db.RunTx(context.Background(), func(tx yahb.Tx) error {
		return errors.Wrap(yahb.ErrUserAbort, "item not found")
	})
	require.Equal(t, yahb.StatusAborted, yahb.Classify(err))
	require.Nil(t, mock.ExpectationsWereMet())
}

func TestSQLDBQueryRows(t *testing.T) {
	db, mock := newMockDB(t, PostgresDialect{})
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT i_id FROM item WHERE i_id BETWEEN $1 AND $2")).
		WithArgs(1, 3).
		WillReturnRows(sqlmock.NewRows([]string{"i_id"}).AddRow(1).AddRow(2).AddRow(3))
	mock.ExpectCommit()
	ctx := context.Background()
	var ids []int64
	err := db.RunTx(ctx, func(tx yahb.Tx) error {
		rows, err := tx.Query(ctx, "SELECT i_id FROM item WHERE i_id BETWEEN ? AND ?", 1, 3)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err = rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	require.Nil(t, err)
	require.Equal(t, []int64{1, 2, 3}, ids)
	require.Nil(t, mock.ExpectationsWereMet())
}

func TestSQLDBNoRows(t *testing.T) {
	db, mock := newMockDB(t, MysqlDialect{})
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT c_id FROM customer").WillReturnRows(sqlmock.NewRows([]string{"c_id"}))
	mock.ExpectRollback()
	ctx := context.Background()
	err := db.RunTx(ctx, func(tx yahb.Tx) error {
		var id int64
		return tx.QueryRow(ctx, "SELECT c_id FROM customer WHERE c_last = ?", "BARBARBAR").Scan(&id)
	})
	require.Equal(t, sql.ErrNoRows, err)
	require.Equal(t, yahb.StatusNotFound, yahb.Classify(err))
	require.Nil(t, mock.ExpectationsWereMet())
}

func TestSQLDBMysqlConflict(t *testing.T) {
	db, mock := newMockDB(t, MysqlDialect{})
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE stock").WillReturnError(&mysql.MySQLError{Number: 1213, Message: "Deadlock found"})
	mock.ExpectRollback()
	ctx := context.Background()
	err := db.RunTx(ctx, func(tx yahb.Tx) error {
		_, err := tx.Exec(ctx, "UPDATE stock SET s_quantity = ? WHERE s_i_id = ?", 10, 1)
		return err
	})
	require.Equal(t, yahb.StatusConflict, yahb.Classify(err))
	require.Nil(t, mock.ExpectationsWereMet())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE stock").WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()
	err = db.RunTx(ctx, func(tx yahb.Tx) error {
		_, err := tx.Exec(ctx, "UPDATE stock SET s_quantity = ? WHERE s_i_id = ?", 10, 1)
		return err
	})
	require.Equal(t, yahb.StatusError, yahb.Classify(err))
	require.Nil(t, mock.ExpectationsWereMet())
}

func TestSQLDBPostgresCommitConflict(t *testing.T) {
	db, mock := newMockDB(t, PostgresDialect{})
	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(&pq.Error{Code: "40001", Message: "could not serialize access"})
	err := db.RunTx(context.Background(), func(tx yahb.Tx) error {
		return nil
	})
	require.Equal(t, yahb.StatusConflict, yahb.Classify(err))
	require.Nil(t, mock.ExpectationsWereMet())
}

func TestSQLDBBeginFails(t *testing.T) {
	db, mock := newMockDB(t, PostgresDialect{})
	mock.ExpectBegin().WillReturnError(&pq.Error{Code: "40P01"})
	called := false
	err := db.RunTx(context.Background(), func(tx yahb.Tx) error {
		called = true
		return nil
	})
	require.False(t, called)
	require.Equal(t, yahb.StatusConflict, yahb.Classify(err))
}

func TestParseIsolation(t *testing.T) {
	level, err := ParseIsolation("serializable")
	require.Nil(t, err)
	require.Equal(t, sql.LevelSerializable, level)
	level, err = ParseIsolation("Read-Committed")
	require.Nil(t, err)
	require.Equal(t, sql.LevelReadCommitted, level)
	_, err = ParseIsolation("snapshot")
	require.NotNil(t, err)
}

func TestAddBindings(t *testing.T) {
	AddBindings()
	for _, name := range []string{"basic", "mysql", "tidb", "postgres"} {
		db, err := yahb.NewDB(name, yahb.NewProperties())
		require.Nil(t, err)
		require.NotNil(t, db)
	}
}

func TestDefaultIsolation(t *testing.T) {
	db, _, err := sqlmock.New()
	require.Nil(t, err)
	defer db.Close()
	sqlDB := NewSQLDBFrom(db, MysqlDialect{})
	sqlDB.SetProperties(yahb.NewProperties())
	require.Nil(t, sqlDB.Init())
	require.Equal(t, sql.LevelSerializable, sqlDB.isolation)

	tidb := NewTiDB()
	require.Equal(t, "repeatable-read", tidb.defaultIsolation)
	tidb.db = db
	tidb.SetProperties(yahb.NewProperties())
	require.Nil(t, tidb.Init())
	require.Equal(t, sql.LevelRepeatableRead, tidb.isolation)
}
