package yahb

import (
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUserAbort marks an expected business-rule rollback, e.g. the 1%
	// of NewOrder transactions that order an unused item.
	ErrUserAbort = errors.New("transaction rolled back by business rule")
	// ErrInconsistent marks an update or delete that touched no row where
	// exactly one was expected. The database is not honoring the
	// configured isolation level.
	ErrInconsistent = errors.New("consistency violation")
	// ErrAlreadyInitialized is returned by a second InitializeWorkers call.
	ErrAlreadyInitialized = errors.New("workers already initialized")
	// ErrUnsupportedDatabase is a configuration error.
	ErrUnsupportedDatabase = errors.New("unsupported database")
)

// ConflictError wraps a serialization failure or deadlock reported by the
// database. Bindings produce it, terminals count it separately.
type ConflictError struct {
	Err error
}

func NewConflictError(err error) *ConflictError {
	return &ConflictError{Err: err}
}

func (self *ConflictError) Error() string {
	return fmt.Sprintf("transaction conflict: %s", self.Err)
}

// ConfigError is raised before any terminal starts.
type ConfigError struct {
	Reason string
}

func NewConfigError(format string, args ...interface{}) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

func (self *ConfigError) Error() string {
	return "configuration error: " + self.Reason
}

// ExpectOneRow turns an update count other than one into ErrInconsistent.
func ExpectOneRow(affected int64, format string, args ...interface{}) error {
	if affected != 1 {
		return errors.Wrapf(ErrInconsistent, "%s affected %d rows",
			fmt.Sprintf(format, args...), affected)
	}
	return nil
}

// Classify maps the error returned by a procedure onto a status.
func Classify(err error) StatusType {
	if err == nil {
		return StatusOK
	}
	cause := errors.Cause(err)
	switch cause {
	case ErrUserAbort:
		return StatusAborted
	case ErrInconsistent:
		return StatusInconsistent
	case sql.ErrNoRows:
		return StatusNotFound
	}
	if _, ok := cause.(*ConflictError); ok {
		return StatusConflict
	}
	return StatusError
}
