package sqlstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func errAlreadyExists(err error) error {
	return fmt.Errorf("%w: %v", store.ErrAlreadyExists, err)
}

func mapNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func mapStringNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Scopes are stored space delimited.
func joinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

func splitScopes(s string) []string {
	return strings.Fields(s)
}

// Times are stored as unix seconds.
func unix(t time.Time) int64 { return t.Unix() }

func fromUnix(sec int64) time.Time { return time.Unix(sec, 0).UTC() }

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJSON(raw string, v any) error {
	if raw == "" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

const userColumns = `id, pesu_prn, profile, created_at, updated_at`

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                domain.User
		profile          string
		created, updated int64
	)
	if err := row.Scan(&u.ID, &u.PESUPRN, &profile, &created, &updated); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.Profile = domain.Profile{}
	if err := decodeJSON(profile, &u.Profile); err != nil {
		return domain.User{}, fmt.Errorf("decode profile of user %s: %w", u.ID, err)
	}
	u.CreatedAt = fromUnix(created)
	u.UpdatedAt = fromUnix(updated)
	return u, nil
}

const clientColumns = `client_id, client_name, client_secret_hash, redirect_uris, scopes,
	token_endpoint_auth_method, owner_user_id, created_at`

func scanClient(row rowScanner) (domain.Client, error) {
	var (
		c            domain.Client
		secret, own  sql.NullString
		redirectURIs string
		scopes       string
		created      int64
	)
	err := row.Scan(&c.ID, &c.Name, &secret, &redirectURIs, &scopes, &c.AuthMethod, &own, &created)
	if err != nil {
		return domain.Client{}, mapNotFound(err)
	}
	if err := decodeJSON(redirectURIs, &c.RedirectURIs); err != nil {
		return domain.Client{}, fmt.Errorf("decode redirect_uris of client %s: %w", c.ID, err)
	}
	c.SecretHash = mapNullString(secret)
	c.OwnerUserID = mapNullString(own)
	c.Scopes = splitScopes(scopes)
	c.CreatedAt = fromUnix(created)
	return c, nil
}

const authorizationCodeColumns = `id, code_hash, client_id, user_id, redirect_uri, scopes,
	code_challenge, code_challenge_method, granted_fields, issued_at, expires_at`

func scanAuthorizationCode(row rowScanner) (domain.AuthorizationCode, error) {
	var (
		c                 domain.AuthorizationCode
		scopes, granted   string
		challenge, method sql.NullString
		issued, expires   int64
	)
	err := row.Scan(&c.ID, &c.CodeHash, &c.ClientID, &c.UserID, &c.RedirectURI, &scopes,
		&challenge, &method, &granted, &issued, &expires)
	if err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}
	c.GrantedFields = domain.GrantedFields{}
	if err := decodeJSON(granted, &c.GrantedFields); err != nil {
		return domain.AuthorizationCode{}, fmt.Errorf("decode granted_fields of code %s: %w", c.ID, err)
	}
	c.Scopes = splitScopes(scopes)
	c.CodeChallenge = mapNullString(challenge)
	c.CodeChallengeMethod = mapNullString(method)
	c.IssuedAt = fromUnix(issued)
	c.ExpiresAt = fromUnix(expires)
	return c, nil
}

const tokenColumns = `id, access_token_hash, refresh_token_hash, client_id, user_id, scopes,
	granted_fields, issued_at, expires_in, revoked`

func scanToken(row rowScanner) (domain.Token, error) {
	var (
		t                 domain.Token
		scopes, granted   string
		issued, expiresIn int64
	)
	err := row.Scan(&t.ID, &t.AccessTokenHash, &t.RefreshTokenHash, &t.ClientID, &t.UserID,
		&scopes, &granted, &issued, &expiresIn, &t.Revoked)
	if err != nil {
		return domain.Token{}, mapNotFound(err)
	}
	t.GrantedFields = domain.GrantedFields{}
	if err := decodeJSON(granted, &t.GrantedFields); err != nil {
		return domain.Token{}, fmt.Errorf("decode granted_fields of token %s: %w", t.ID, err)
	}
	t.Scopes = splitScopes(scopes)
	t.IssuedAt = fromUnix(issued)
	t.ExpiresIn = time.Duration(expiresIn) * time.Second
	return t, nil
}

const consentRequestColumns = `id, ticket_hash, user_id, client_id, redirect_uri, scopes, state,
	code_challenge, code_challenge_method, created_at, expires_at`

func scanConsentRequest(row rowScanner) (domain.ConsentRequest, error) {
	var (
		r                 domain.ConsentRequest
		scopes            string
		state             sql.NullString
		challenge, method sql.NullString
		created, expires  int64
	)
	err := row.Scan(&r.ID, &r.TicketHash, &r.UserID, &r.ClientID, &r.RedirectURI, &scopes, &state,
		&challenge, &method, &created, &expires)
	if err != nil {
		return domain.ConsentRequest{}, mapNotFound(err)
	}
	r.Scopes = splitScopes(scopes)
	r.State = mapNullString(state)
	r.CodeChallenge = mapNullString(challenge)
	r.CodeChallengeMethod = mapNullString(method)
	r.CreatedAt = fromUnix(created)
	r.ExpiresAt = fromUnix(expires)
	return r, nil
}
