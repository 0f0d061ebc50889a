package sqlstore

import (
	"context"
	"time"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
)

type consentRequestsRepo struct {
	q *queries
}

func (r *consentRequestsRepo) CreateConsentRequest(ctx context.Context, c domain.ConsentRequest) error {
	_, err := r.q.exec(ctx,
		`INSERT INTO oauth2_consent_requests (
			id, ticket_hash, user_id, client_id, redirect_uri, scopes, state,
			code_challenge, code_challenge_method, created_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TicketHash, c.UserID, c.ClientID, c.RedirectURI, joinScopes(c.Scopes),
		mapStringNull(c.State), mapStringNull(c.CodeChallenge), mapStringNull(c.CodeChallengeMethod),
		unix(c.CreatedAt), unix(c.ExpiresAt),
	)
	return err
}

func (r *consentRequestsRepo) ConsumeConsentRequest(ctx context.Context, ticketHash string) (domain.ConsentRequest, error) {
	return scanConsentRequest(r.q.queryRow(ctx,
		`DELETE FROM oauth2_consent_requests WHERE ticket_hash = ?
		RETURNING `+consentRequestColumns, ticketHash))
}

func (r *consentRequestsRepo) DeleteExpiredConsentRequests(ctx context.Context, now time.Time) (int64, error) {
	return r.q.execCount(ctx, `DELETE FROM oauth2_consent_requests WHERE expires_at <= ?`, unix(now))
}
