package binding

import (
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/hhkbp2/yahb"
)

const (
	PropertyMysqlHost            = "mysql.host"
	PropertyMysqlHostDefault     = "127.0.0.1"
	PropertyMysqlPort            = "mysql.port"
	PropertyMysqlPortDefault     = "3306"
	PropertyMysqlDatabase        = "mysql.db"
	PropertyMysqlDatabaseDefault = "tpcc"
	PropertyMysqlUser            = "mysql.user"
	PropertyMysqlUserDefault     = "root"
	PropertyMysqlPassword        = "mysql.password"
	PropertyMysqlPasswordDefault = ""
	PropertyMysqlOptions         = "mysql.options"
	PropertyMysqlOptionsDefault  = "charset=utf8"
)

// Error numbers reported for a transaction that lost against another one.
// 8002 and 9007 are TiDB's write conflicts.
var mysqlConflicts = map[uint16]bool{
	1205: true, // ER_LOCK_WAIT_TIMEOUT
	1213: true, // ER_LOCK_DEADLOCK
	8002: true,
	9007: true,
}

// MysqlDialect drives MySQL and MySQL compatible servers like TiDB.
type MysqlDialect struct{}

func (MysqlDialect) DriverName() string {
	return "mysql"
}

func (MysqlDialect) DataSourceName(props yahb.Properties) (string, error) {
	port, err := props.GetInt64(PropertyMysqlPort, PropertyMysqlPortDefault)
	if err != nil {
		return "", err
	}
	cfg := mysql.NewConfig()
	cfg.User = props.GetDefault(PropertyMysqlUser, PropertyMysqlUserDefault)
	cfg.Passwd = props.GetDefault(PropertyMysqlPassword, PropertyMysqlPasswordDefault)
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", props.GetDefault(PropertyMysqlHost, PropertyMysqlHostDefault), port)
	cfg.DBName = props.GetDefault(PropertyMysqlDatabase, PropertyMysqlDatabaseDefault)
	cfg.ParseTime = true
	options := props.GetDefault(PropertyMysqlOptions, PropertyMysqlOptionsDefault)
	for _, option := range strings.Split(options, "&") {
		if len(option) == 0 {
			continue
		}
		kv := strings.SplitN(option, "=", 2)
		if len(kv) != 2 {
			return "", yahb.NewConfigError("invalid %s: %s", PropertyMysqlOptions, option)
		}
		if cfg.Params == nil {
			cfg.Params = make(map[string]string)
		}
		cfg.Params[kv[0]] = kv[1]
	}
	return cfg.FormatDSN(), nil
}

func (MysqlDialect) Rebind(query string) string {
	return query
}

func (MysqlDialect) IsConflict(err error) bool {
	e, ok := err.(*mysql.MySQLError)
	return ok && mysqlConflicts[e.Number]
}

func NewMysqlDB() *SQLDB {
	return NewSQLDB(MysqlDialect{})
}

// NewTiDB is NewMysqlDB defaulting to repeatable read, TiDB refuses
// serializable unless told to skip the isolation level check.
func NewTiDB() *SQLDB {
	db := NewMysqlDB()
	db.defaultIsolation = "repeatable-read"
	return db
}
