package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/domain"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/service"
	"github.com/pesuauth/pesu-oauth2/pkg/authsdk"
	"github.com/pesuauth/pesu-oauth2/pkg/httpx"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"
)

// ClientsHandler handles all client management endpoints. Routes are
// guarded by RequireSession and RequireAdmin; every operation is scoped to
// the signed in owner.
type ClientsHandler struct {
	ClientService *service.ClientService
}

// HandleCreate handles POST /v1/clients
//
//	@Summary		Register OAuth2 Client
//	@Description	Registers a client owned by the signed in admin. Confidential clients get a secret that is shown only in this response.
//	@Tags			Clients
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.CreateClientRequest	true	"Client registration request"
//	@Success		201		{object}	authsdk.ClientResponse		"client_id and client_secret (if confidential)"
//	@Failure		400		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		401		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		403		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		500		{object}	authsdk.ErrorResponse		"error, error_description"
//	@Router			/v1/clients [post].
func (h *ClientsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authsdk.CreateClientRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription("Invalid JSON in request body").WriteError(w)
		return
	}

	client, secret, err := h.ClientService.Register(ctx, service.RegisterClientInput{
		Name:         req.Name,
		RedirectURIs: req.RedirectURIs,
		Scopes:       req.Scopes,
		Public:       req.Public,
		OwnerUserID:  httpx.UserIDFromContext(ctx),
	})
	if err != nil {
		writeServiceError(w, r, err, "failed to create client")
		return
	}

	response := clientResponse(client)
	response.ClientSecret = secret

	httpx.WriteJSON(w, http.StatusCreated, response)
}

// HandleList handles GET /v1/clients
//
//	@Summary		List OAuth2 Clients
//	@Description	Returns the clients owned by the signed in admin, newest first.
//	@Tags			Clients
//	@Produce		json
//	@Success		200	{object}	authsdk.ListClientsResponse	"List of clients"
//	@Failure		401	{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		403	{object}	authsdk.ErrorResponse		"error, error_description"
//	@Failure		500	{object}	authsdk.ErrorResponse		"error, error_description"
//	@Router			/v1/clients [get].
func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	clients, err := h.ClientService.List(ctx, httpx.UserIDFromContext(ctx))
	if err != nil {
		log.Error("failed to list clients", "error", err)
		authsdk.ErrServerError.WriteError(w)
		return
	}

	response := authsdk.ListClientsResponse{
		Clients: make([]authsdk.ClientResponse, len(clients)),
	}
	for i, c := range clients {
		response.Clients[i] = clientResponse(c)
	}

	httpx.WriteJSON(w, http.StatusOK, response)
}

// HandleDelete handles DELETE /v1/clients/{id}
//
//	@Summary		Delete OAuth2 Client
//	@Description	Deletes a client owned by the signed in admin, together with its codes and tokens.
//	@Tags			Clients
//	@Produce		json
//	@Param			id	path	string	true	"Client ID"
//	@Success		204	"Client deleted successfully"
//	@Failure		401	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Failure		500	{object}	authsdk.ErrorResponse	"error, error_description"
//	@Router			/v1/clients/{id} [delete].
func (h *ClientsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	clientID := r.PathValue("id")

	err := h.ClientService.Delete(ctx, clientID, httpx.UserIDFromContext(ctx))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			authsdk.NewOAuth2Error(http.StatusNotFound, "client_not_found", "Client not found").WriteError(w)
		default:
			log.Error("failed to delete client", "error", err, "client_id", clientID)
			authsdk.ErrServerError.WriteError(w)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func clientResponse(c domain.Client) authsdk.ClientResponse {
	return authsdk.ClientResponse{
		ClientID:                c.ID,
		Name:                    c.Name,
		RedirectURIs:            c.RedirectURIs,
		Scopes:                  c.Scopes,
		TokenEndpointAuthMethod: c.AuthMethod,
		CreatedAt:               c.CreatedAt.Unix(),
	}
}
