package authsdk

// TokenResponse is the success body of POST /oauth2/token.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

// ErrorResponse documents the token endpoint error body for swagger.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ResourceErrorResponse documents the resource API error body for swagger.
type ResourceErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Field is one disclosable profile attribute.
type Field struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// ScopeDescriptor describes a catalog scope and the fields it covers.
type ScopeDescriptor struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
}

// ConsentPrompt is returned by GET /oauth2/authorize once the owner is signed
// in. A renderer shows it and posts the decision back with ConsentTicket.
type ConsentPrompt struct {
	ConsentTicket string            `json:"consent_ticket"`
	ExpiresIn     int               `json:"expires_in"`
	ClientID      string            `json:"client_id"`
	ClientName    string            `json:"client_name"`
	RedirectURI   string            `json:"redirect_uri"`
	State         string            `json:"state,omitempty"`
	Scopes        []ScopeDescriptor `json:"scopes"`
}

// CreateClientRequest is the body of POST /v1/clients.
type CreateClientRequest struct {
	Name         string   `json:"name"`
	RedirectURIs []string `json:"redirect_uris"`
	Scopes       []string `json:"scopes"`
	Public       bool     `json:"public"`
}

// ClientResponse describes a registered client. ClientSecret is only set
// once, in the response to creation.
type ClientResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret,omitempty"`
	Name                    string   `json:"name"`
	RedirectURIs            []string `json:"redirect_uris"`
	Scopes                  []string `json:"scopes"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	CreatedAt               int64    `json:"created_at"`
}

// LoginResponse is returned by POST /login when no next URL is given.
type LoginResponse struct {
	UserID  string `json:"user_id"`
	PESUPRN string `json:"pesuprn"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
}

// ScopesResponse is the public scope catalog.
type ScopesResponse struct {
	Scopes []ScopeDescriptor `json:"scopes"`
}

// ListClientsResponse is the body of GET /v1/clients.
type ListClientsResponse struct {
	Clients []ClientResponse `json:"clients"`
}
