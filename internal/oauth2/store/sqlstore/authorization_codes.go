package sqlstore

import (
	"context"
	"time"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
)

type authorizationCodesRepo struct {
	q *queries
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	granted, err := encodeJSON(c.GrantedFields)
	if err != nil {
		return err
	}
	_, err = r.q.exec(ctx,
		`INSERT INTO oauth2_authorization_codes (
			id, code_hash, client_id, user_id, redirect_uri, scopes,
			code_challenge, code_challenge_method, granted_fields, issued_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CodeHash, c.ClientID, c.UserID, c.RedirectURI, joinScopes(c.Scopes),
		mapStringNull(c.CodeChallenge), mapStringNull(c.CodeChallengeMethod), granted,
		unix(c.IssuedAt), unix(c.ExpiresAt),
	)
	return err
}

func (r *authorizationCodesRepo) ConsumeAuthorizationCode(ctx context.Context, hash, clientID string) (domain.AuthorizationCode, error) {
	return scanAuthorizationCode(r.q.queryRow(ctx,
		`DELETE FROM oauth2_authorization_codes
		WHERE code_hash = ? AND client_id = ?
		RETURNING `+authorizationCodeColumns, hash, clientID))
}

func (r *authorizationCodesRepo) DeleteAuthorizationCode(ctx context.Context, hash string) error {
	_, err := r.q.exec(ctx, `DELETE FROM oauth2_authorization_codes WHERE code_hash = ?`, hash)
	return err
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context, now time.Time) (int64, error) {
	return r.q.execCount(ctx, `DELETE FROM oauth2_authorization_codes WHERE expires_at <= ?`, unix(now))
}
