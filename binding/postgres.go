package binding

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/hhkbp2/yahb"
	"github.com/lib/pq"
)

const (
	PropertyPostgresHost            = "postgres.host"
	PropertyPostgresHostDefault     = "127.0.0.1"
	PropertyPostgresPort            = "postgres.port"
	PropertyPostgresPortDefault     = "5432"
	PropertyPostgresDatabase        = "postgres.db"
	PropertyPostgresDatabaseDefault = "tpcc"
	PropertyPostgresUser            = "postgres.user"
	PropertyPostgresUserDefault     = "postgres"
	PropertyPostgresPassword        = "postgres.password"
	PropertyPostgresPasswordDefault = ""
	PropertyPostgresSSLMode         = "postgres.sslmode"
	PropertyPostgresSSLModeDefault  = "disable"
)

// PostgresDialect drives PostgreSQL and wire compatible servers like
// CockroachDB.
type PostgresDialect struct{}

func (PostgresDialect) DriverName() string {
	return "postgres"
}

func (PostgresDialect) DataSourceName(props yahb.Properties) (string, error) {
	port, err := props.GetInt64(PropertyPostgresPort, PropertyPostgresPortDefault)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "host=%s port=%d dbname=%s user=%s sslmode=%s",
		quoteValue(props.GetDefault(PropertyPostgresHost, PropertyPostgresHostDefault)),
		port,
		quoteValue(props.GetDefault(PropertyPostgresDatabase, PropertyPostgresDatabaseDefault)),
		quoteValue(props.GetDefault(PropertyPostgresUser, PropertyPostgresUserDefault)),
		quoteValue(props.GetDefault(PropertyPostgresSSLMode, PropertyPostgresSSLModeDefault)))
	if password := props.GetDefault(PropertyPostgresPassword, PropertyPostgresPasswordDefault); len(password) > 0 {
		fmt.Fprintf(&buf, " password=%s", quoteValue(password))
	}
	return buf.String(), nil
}

// quoteValue quotes a keyword/value connection string value when needed.
func quoteValue(v string) string {
	needQuote := len(v) == 0
	var buf bytes.Buffer
	for _, c := range v {
		switch c {
		case ' ':
			needQuote = true
		case '\'', '\\':
			needQuote = true
			buf.WriteRune('\\')
		}
		buf.WriteRune(c)
	}
	if needQuote {
		return "'" + buf.String() + "'"
	}
	return v
}

// Rebind turns every '?' outside of string literals into $1, $2, ...
func (PostgresDialect) Rebind(query string) string {
	var buf bytes.Buffer
	n := 0
	quoted := false
	for _, c := range query {
		switch {
		case c == '\'':
			quoted = !quoted
			buf.WriteRune(c)
		case c == '?' && !quoted:
			n++
			buf.WriteByte('$')
			buf.WriteString(strconv.Itoa(n))
		default:
			buf.WriteRune(c)
		}
	}
	return buf.String()
}

func (PostgresDialect) IsConflict(err error) bool {
	e, ok := err.(*pq.Error)
	if !ok {
		return false
	}
	// serialization_failure, deadlock_detected
	return e.Code == "40001" || e.Code == "40P01"
}

func NewPostgresDB() *SQLDB {
	return NewSQLDB(PostgresDialect{})
}
