// Package postgres is the networked driver for deployments that outgrow a
// single sqlite file.
package postgres

import (
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store/sqlstore"
)

const uniqueViolation = pq.ErrorCode("23505")

// Dialect is the postgres flavour of the shared SQL store.
var Dialect = sqlstore.Dialect{
	Name:               "postgres",
	DollarPlaceholders: true,
	IsUniqueViolation:  isUniqueViolation,
	Migrate:            migrateUp,
}

// NewStore opens a pool for the lib/pq connection string dsn.
func NewStore(dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return sqlstore.New(db, Dialect), nil
}

func isUniqueViolation(err error) bool {
	var pe *pq.Error
	return errors.As(err, &pe) && pe.Code == uniqueViolation
}
