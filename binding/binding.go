package binding

import (
	"github.com/hhkbp2/yahb"
)

// AddBindings registers the database/sql backed databases.
func AddBindings() {
	yahb.Databases["mysql"] = func() yahb.DB {
		return NewMysqlDB()
	}
	yahb.Databases["tidb"] = func() yahb.DB {
		return NewTiDB()
	}
	yahb.Databases["postgres"] = func() yahb.DB {
		return NewPostgresDB()
	}
}
