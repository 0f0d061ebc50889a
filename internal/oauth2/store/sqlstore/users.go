package sqlstore

import (
	"context"
	"time"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
)

type usersRepo struct {
	q *queries
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByPRN(ctx context.Context, prn string) (domain.User, error) {
	return scanUser(r.q.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE pesu_prn = ?`, prn))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	profile, err := encodeJSON(profileOrEmpty(u.Profile))
	if err != nil {
		return err
	}
	_, err = r.q.exec(ctx,
		`INSERT INTO users (id, pesu_prn, profile, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.PESUPRN, profile, unix(u.CreatedAt), unix(u.UpdatedAt),
	)
	return err
}

func (r *usersRepo) UpdateUserProfile(ctx context.Context, id string, profile domain.Profile, updatedAt time.Time) error {
	raw, err := encodeJSON(profileOrEmpty(profile))
	if err != nil {
		return err
	}
	n, err := r.q.execCount(ctx,
		`UPDATE users SET profile = ?, updated_at = ? WHERE id = ?`,
		raw, unix(updatedAt), id,
	)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func profileOrEmpty(p domain.Profile) domain.Profile {
	if p == nil {
		return domain.Profile{}
	}
	return p
}
