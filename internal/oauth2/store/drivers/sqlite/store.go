// Package sqlite is the embedded single-file driver, backed by the pure Go
// modernc.org/sqlite.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store/sqlstore"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// FileDSN builds a DSN for a database file with foreign keys enforced, WAL
// journaling and immediate write transactions so concurrent redemptions
// queue on the write lock instead of failing with SQLITE_BUSY.
func FileDSN(path string) string {
	return fmt.Sprintf(
		"file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate",
		path,
	)
}

// Dialect is the sqlite flavour of the shared SQL store.
var Dialect = sqlstore.Dialect{
	Name:              "sqlite",
	IsUniqueViolation: isUniqueViolation,
	Migrate:           migrateUp,
}

// NewStore opens dsn. Callers apply migrations separately.
func NewStore(dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return sqlstore.New(db, Dialect), nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
