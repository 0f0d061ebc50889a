package http

import (
	"net/http"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/consent"
	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
	"github.com/pesuauth/pesu-oauth2/pkg/httpx"
)

// ScopesHandler godoc
//
//	@Summary		Scope catalog
//	@Description	Lists every scope with its description and the profile fields it can disclose.
//	@Tags			OAuth2
//	@Produce		json
//	@Success		200	{object}	authsdk.ScopesResponse
//	@Router			/oauth2/scopes [get]
func ScopesHandler(catalog *consent.Catalog) http.HandlerFunc {
	names := make([]string, 0)
	for _, s := range catalog.Scopes() {
		names = append(names, s.Name)
	}
	response := authsdk.ScopesResponse{Scopes: catalog.Describe(names)}

	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, response)
	}
}
