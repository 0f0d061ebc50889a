// Package sqlstore implements store.Store over database/sql. The sqlite and
// postgres drivers share it and differ only in their Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
)

type Store struct {
	db      *sql.DB
	q       *queries
	dialect Dialect
}

var _ store.Store = (*Store)(nil)

// New wraps an open pool. The Store owns db and closes it on Close.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		q:       &queries{db: db, dialect: dialect},
		dialect: dialect,
	}
}

// DB exposes the underlying pool for drivers and tests.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ApplyMigrations runs the dialect's embedded migrations.
func (s *Store) ApplyMigrations() error {
	if s.dialect.Migrate == nil {
		return errors.New("sqlstore: dialect " + s.dialect.Name + " has no migrations")
	}
	return s.dialect.Migrate(s.db)
}

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &txStore{tx: tx, q: &queries{db: tx, dialect: s.dialect}}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after Commit
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users                           { return &usersRepo{q: s.q} }
func (s *Store) Clients() store.Clients                       { return &clientsRepo{q: s.q} }
func (s *Store) AuthorizationCodes() store.AuthorizationCodes { return &authorizationCodesRepo{q: s.q} }
func (s *Store) Tokens() store.Tokens                         { return &tokensRepo{q: s.q} }
func (s *Store) ConsentRequests() store.ConsentRequests       { return &consentRequestsRepo{q: s.q} }

type txStore struct {
	tx *sql.Tx
	q  *queries
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the pool outlives the transaction.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

// ApplyMigrations is a no-op inside a transaction.
func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Users() store.Users                           { return &usersRepo{q: t.q} }
func (t *txStore) Clients() store.Clients                       { return &clientsRepo{q: t.q} }
func (t *txStore) AuthorizationCodes() store.AuthorizationCodes { return &authorizationCodesRepo{q: t.q} }
func (t *txStore) Tokens() store.Tokens                         { return &tokensRepo{q: t.q} }
func (t *txStore) ConsentRequests() store.ConsentRequests       { return &consentRequestsRepo{q: t.q} }
