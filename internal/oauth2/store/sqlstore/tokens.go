package sqlstore

import (
	"context"
	"time"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
)

type tokensRepo struct {
	q *queries
}

func (r *tokensRepo) CreateToken(ctx context.Context, t domain.Token) error {
	granted, err := encodeJSON(t.GrantedFields)
	if err != nil {
		return err
	}
	_, err = r.q.exec(ctx,
		`INSERT INTO oauth2_tokens (
			id, access_token_hash, refresh_token_hash, client_id, user_id, scopes,
			granted_fields, issued_at, expires_in, revoked
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccessTokenHash, t.RefreshTokenHash, t.ClientID, t.UserID, joinScopes(t.Scopes),
		granted, unix(t.IssuedAt), int64(t.ExpiresIn/time.Second), t.Revoked,
	)
	return err
}

func (r *tokensRepo) GetTokenByAccessHash(ctx context.Context, hash string) (domain.Token, error) {
	return scanToken(r.q.queryRow(ctx,
		`SELECT `+tokenColumns+` FROM oauth2_tokens WHERE access_token_hash = ?`, hash))
}

func (r *tokensRepo) GetTokenByRefreshHash(ctx context.Context, hash string) (domain.Token, error) {
	return scanToken(r.q.queryRow(ctx,
		`SELECT `+tokenColumns+` FROM oauth2_tokens WHERE refresh_token_hash = ?`, hash))
}

func (r *tokensRepo) RevokeRefreshToken(ctx context.Context, hash string) (domain.Token, error) {
	return scanToken(r.q.queryRow(ctx,
		`UPDATE oauth2_tokens SET revoked = ?
		WHERE refresh_token_hash = ? AND revoked = ?
		RETURNING `+tokenColumns, true, hash, false))
}

func (r *tokensRepo) RevokeUserClientTokens(ctx context.Context, userID, clientID string) (int64, error) {
	return r.q.execCount(ctx,
		`UPDATE oauth2_tokens SET revoked = ?
		WHERE user_id = ? AND client_id = ? AND revoked = ?`, true, userID, clientID, false)
}

func (r *tokensRepo) DeleteDeadTokens(ctx context.Context, now time.Time) (int64, error) {
	return r.q.execCount(ctx,
		`DELETE FROM oauth2_tokens WHERE issued_at + 2 * expires_in <= ?`, unix(now))
}
