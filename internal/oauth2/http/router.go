package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/pesuauth/pesu-oauth2/internal/oauth2/consent"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/metrics"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/service"
	"github.com/pesuauth/pesu-oauth2/internal/oauth2/store"
	"github.com/pesuauth/pesu-oauth2/pkg/httpx"
	"github.com/pesuauth/pesu-oauth2/pkg/sessionx"
	"github.com/pesuauth/pesu-oauth2/pkg/slogx"

	_ "github.com/pesuauth/pesu-oauth2/api/oauth2" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// DefaultLoginURL is where owners without a session are sent.
const DefaultLoginURL = "/login"

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	sessions *sessionx.Manager
	metrics  *metrics.Metrics

	// LoginURL receives ?next=<authorize URL> when the owner has no session.
	LoginURL string
	// CORSOrigins apply to the token and resource endpoints.
	CORSOrigins []string

	Catalog          *consent.Catalog
	ClientService    *service.ClientService
	AuthorizeService *service.AuthorizeService
	TokenService     *service.TokenService
	ResourceService  *service.ResourceService
	UserService      *service.UserService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	sessions *sessionx.Manager,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		store:        st,
		sessions:     sessions,
		metrics:      m,
		LoginURL:     DefaultLoginURL,
		CORSOrigins:  []string{"*"},
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerResource()
	r.registerSession()
	r.registerClients()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			PESU OAuth2 API
//	@version		0.1.0
//	@description	OAuth2 authorization server delegating PESU Academy identity to third party applications.
//	@description
//	@description				Access and refresh tokens are opaque. Profile fields are disclosed per scope and per field, as consented by the owner.
//
//	@contact.name				PESU OAuth2 maintainers
//	@contact.url				https://github.com/pesuauth/pesu-oauth2
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Opaque access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth2() {
	authorizeHandler := &AuthorizeHandler{
		AuthorizeService: r.AuthorizeService,
		UserService:      r.UserService,
		Sessions:         r.sessions,
		LoginURL:         r.LoginURL,
	}

	// GET /authorize - lenient rate limit (validation and consent prompt)
	r.Mux.Handle("GET /oauth2/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandleGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /authorize - moderate rate limit (consent decisions mint codes)
	r.Mux.Handle("POST /oauth2/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandlePost),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /token - moderate rate limit by IP (covers all grant types)
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("/oauth2/token",
		httpx.Chain(tokenHandler,
			httpx.CORS(r.CORSOrigins, http.MethodPost),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// GET /scopes - public catalog
	r.Mux.Handle("GET /oauth2/scopes",
		httpx.Chain(ScopesHandler(r.Catalog),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerResource() {
	h := &UserResourceHandler{ResourceService: r.ResourceService}

	r.Mux.Handle("/api/v1/user",
		httpx.Chain(h,
			httpx.CORS(r.CORSOrigins, http.MethodGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSession() {
	h := &SessionHandler{
		UserService: r.UserService,
		Sessions:    r.sessions,
	}

	// POST /login - strict rate limit by IP + username to slow guessing
	r.Mux.Handle("POST /login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "username"),
		),
	)
	r.Mux.Handle("POST /logout", http.HandlerFunc(h.HandleLogout))
}

func (r *Router) registerClients() {
	h := &ClientsHandler{ClientService: r.ClientService}

	admin := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			RequireSession(r.sessions),
			RequireAdmin(r.UserService),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/clients", admin(h.HandleCreate))
	r.Mux.Handle("GET /v1/clients", admin(h.HandleList))
	r.Mux.Handle("DELETE /v1/clients/{id}", admin(h.HandleDelete))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}
