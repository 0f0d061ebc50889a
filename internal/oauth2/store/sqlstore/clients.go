package sqlstore

import (
	"context"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
)

type clientsRepo struct {
	q *queries
}

func (r *clientsRepo) GetClientByID(ctx context.Context, id string) (domain.Client, error) {
	return scanClient(r.q.queryRow(ctx,
		`SELECT `+clientColumns+` FROM oauth2_clients WHERE client_id = ?`, id))
}

func (r *clientsRepo) ListClientsByOwner(ctx context.Context, ownerUserID string) ([]domain.Client, error) {
	rows, err := r.q.query(ctx,
		`SELECT `+clientColumns+` FROM oauth2_clients
		WHERE owner_user_id = ?
		ORDER BY created_at DESC, client_id`, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	clients := []domain.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *clientsRepo) CreateClient(ctx context.Context, c domain.Client) error {
	redirectURIs := c.RedirectURIs
	if redirectURIs == nil {
		redirectURIs = []string{}
	}
	raw, err := encodeJSON(redirectURIs)
	if err != nil {
		return err
	}
	_, err = r.q.exec(ctx,
		`INSERT INTO oauth2_clients (
			client_id, client_name, client_secret_hash, redirect_uris, scopes,
			token_endpoint_auth_method, owner_user_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, mapStringNull(c.SecretHash), raw, joinScopes(c.Scopes),
		c.AuthMethod, mapStringNull(c.OwnerUserID), unix(c.CreatedAt),
	)
	return err
}

func (r *clientsRepo) DeleteClient(ctx context.Context, id, ownerUserID string) error {
	n, err := r.q.execCount(ctx,
		`DELETE FROM oauth2_clients WHERE client_id = ? AND owner_user_id = ?`, id, ownerUserID)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
