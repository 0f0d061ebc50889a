package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/identity"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/metrics"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
	"github.com/pesuauth/pesu-oauth2/pkg/idx"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

// UserService signs owners in through the identity bridge and keeps their
// profile current.
type UserService struct {
	Store   store.Store
	Bridge  identity.Bridge
	Now     func() time.Time
	Metrics *metrics.Metrics

	// Admins are lowercased PRNs allowed to manage clients.
	Admins []string
}

// Login checks the credentials with the bridge and upserts the owner,
// keyed by the lowercased PRN. A returning owner's profile is merged so
// attributes the portal stopped returning are kept.
func (s *UserService) Login(ctx context.Context, username, password string) (domain.User, error) {
	l := slogx.FromContext(ctx)

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return domain.User{}, describe(ErrLoginFailed, "Username and password are required.")
	}

	start := time.Now()
	res, err := s.Bridge.Authenticate(ctx, username, password)
	s.Metrics.ObserveBridge(time.Since(start))
	if err != nil {
		l.Error("identity bridge failed", "error", err)
		s.Metrics.Login("unavailable")
		return domain.User{}, describe(errors.Join(ErrLoginFailed, ErrIdentityUnavailable), "Unable to reach PESU right now. Try again later.")
	}
	if !res.Success {
		s.Metrics.Login("rejected")
		msg := res.Error
		if msg == "" {
			msg = "Login failed."
		}
		return domain.User{}, describe(ErrLoginFailed, "%s", msg)
	}

	prn := username
	if p, ok := res.Profile["prn"].(string); ok && strings.TrimSpace(p) != "" {
		prn = strings.ToLower(strings.TrimSpace(p))
	}

	user, err := s.upsert(ctx, prn, res.Profile)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Lost a first login race for the same PRN; the row exists now.
		user, err = s.upsert(ctx, prn, res.Profile)
	}
	if err != nil {
		s.Metrics.Login("error")
		return domain.User{}, err
	}

	s.Metrics.Login("ok")
	l.Info("owner signed in", "user_id", user.ID)
	return user, nil
}

func (s *UserService) upsert(ctx context.Context, prn string, profile domain.Profile) (domain.User, error) {
	ts := now(s.Now)

	var user domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Users().GetUserByPRN(ctx, prn)
		switch {
		case err == nil:
			merged := existing.Profile.Merge(profile)
			if err := tx.Users().UpdateUserProfile(ctx, existing.ID, merged, ts); err != nil {
				return err
			}
			existing.Profile = merged
			existing.UpdatedAt = ts
			user = existing
			return nil
		case errors.Is(err, store.ErrNotFound):
			user = domain.User{
				ID:        idx.NewAt(ts).String(),
				PESUPRN:   prn,
				Profile:   domain.Profile{}.Merge(profile),
				CreatedAt: ts,
				UpdatedAt: ts,
			}
			return tx.Users().CreateUser(ctx, user)
		default:
			return err
		}
	})
	return user, err
}

func (s *UserService) Get(ctx context.Context, id string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, id)
}

// IsAdmin reports whether u may manage clients.
func (s *UserService) IsAdmin(u domain.User) bool {
	return slices.Contains(s.Admins, strings.ToLower(u.PESUPRN))
}
