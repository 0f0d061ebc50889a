package http

import (
	"errors"
	"net/http"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/service"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
	"github.com/pesuauth/pesu-oauth2/pkg/httpx"
	"github.com/pesuauth/pesu-oauth2/pkg/sessionx"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

// RequireSession rejects requests without a valid owner session cookie and
// records the owner on the context.
func RequireSession(sessions *sessionx.Manager) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := sessions.UserID(r)
			if err != nil {
				authsdk.ErrLoginRequired.WriteError(w)
				return
			}
			ctx := httpx.WithUserID(r.Context(), userID)
			ctx = slogx.With(ctx, "user_id", userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must follow RequireSession. Owners outside the admin
// allow-list get 403.
func RequireAdmin(users *service.UserService) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			user, err := users.Get(ctx, httpx.UserIDFromContext(ctx))
			switch {
			case errors.Is(err, store.ErrNotFound):
				authsdk.ErrLoginRequired.WriteError(w)
				return
			case err != nil:
				slogx.FromContext(ctx).Error("failed to load session user", "error", err)
				authsdk.ErrServerError.WriteError(w)
				return
			}

			if !users.IsAdmin(user) {
				slogx.SecurityEvent(ctx, "admin_access_denied", "path", r.URL.Path)
				authsdk.ErrAccessDenied.WithDescription("Admin access required").WriteError(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
