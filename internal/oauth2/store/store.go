package store

import (
	"context"
	"errors"
	"time"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the sqlite and
// postgres drivers. Repositories hang off it so a Tx exposes the same
// surface as the pool.
type Store interface {
	Users() Users
	Clients() Clients
	AuthorizationCodes() AuthorizationCodes
	Tokens() Tokens
	ConsentRequests() ConsentRequests

	ApplyMigrations() error

	// Tx starts a read/write transaction. The caller MUST Commit or Rollback.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. Nested transactions are not supported.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction scoped Store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByPRN looks up by the lowercased registration number.
	GetUserByPRN(ctx context.Context, prn string) (domain.User, error)

	// CreateUser fails with ErrAlreadyExists when the PRN is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUserProfile replaces the stored bag; callers merge first.
	UpdateUserProfile(ctx context.Context, id string, profile domain.Profile, updatedAt time.Time) error
}

type Clients interface {
	GetClientByID(ctx context.Context, id string) (domain.Client, error)

	// ListClientsByOwner returns newest first.
	ListClientsByOwner(ctx context.Context, ownerUserID string) ([]domain.Client, error)

	CreateClient(ctx context.Context, c domain.Client) error

	// DeleteClient removes a client owned by ownerUserID together with its
	// codes and tokens. ErrNotFound if no such client belongs to the owner.
	DeleteClient(ctx context.Context, id, ownerUserID string) error
}

type AuthorizationCodes interface {
	CreateAuthorizationCode(ctx context.Context, code domain.AuthorizationCode) error

	// ConsumeAuthorizationCode deletes the code bound to (hash, clientID) and
	// returns it. Of two concurrent callers at most one gets the row; the
	// other sees ErrNotFound. Run it in a Tx so a failed validation can roll
	// the deletion back.
	ConsumeAuthorizationCode(ctx context.Context, hash, clientID string) (domain.AuthorizationCode, error)

	DeleteAuthorizationCode(ctx context.Context, hash string) error

	// DeleteExpiredAuthorizationCodes returns the number of purged rows.
	DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error)
}

type Tokens interface {
	CreateToken(ctx context.Context, t domain.Token) error

	GetTokenByAccessHash(ctx context.Context, hash string) (domain.Token, error)
	GetTokenByRefreshHash(ctx context.Context, hash string) (domain.Token, error)

	// RevokeRefreshToken flips revoked on the not yet revoked token with the
	// given refresh hash and returns it. ErrNotFound when absent or already
	// revoked; this conditional update is what serializes rotations.
	RevokeRefreshToken(ctx context.Context, hash string) (domain.Token, error)

	// RevokeUserClientTokens revokes every live token of a user+client pair.
	RevokeUserClientTokens(ctx context.Context, userID, clientID string) (int64, error)

	// DeleteDeadTokens purges revoked tokens and tokens whose refresh window
	// closed before now.
	DeleteDeadTokens(ctx context.Context, now time.Time) (int64, error)
}

type ConsentRequests interface {
	CreateConsentRequest(ctx context.Context, r domain.ConsentRequest) error

	// ConsumeConsentRequest deletes the ticket and returns it (single use).
	ConsumeConsentRequest(ctx context.Context, ticketHash string) (domain.ConsentRequest, error)

	DeleteExpiredConsentRequests(ctx context.Context, now time.Time) (int64, error)
}
