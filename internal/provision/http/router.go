package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/service"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/store"
	"github.com/ppmkfriends/ppmkconnect/pkg/httpx"
	"github.com/ppmkfriends/ppmkconnect/pkg/jwtx"
	"github.com/ppmkfriends/ppmkconnect/pkg/slogx"

	_ "github.com/ppmkfriends/ppmkconnect/api/provision" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store            store.Store
	AuthService      *service.AuthService
	BootstrapService *service.BootstrapService
	BatchService     *service.BatchService
	UserService      *service.UserService
}

func NewRouter(
	keys *jwtx.KeySet,
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
	corsOrigin string,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(corsOrigin),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerInvitations()
	r.registerSystem()
	r.registerBootstrap()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP applies the global middleware chain.
//
//	@title			PPMKFriends Provisioning API
//	@version		0.1.0
//	@description	Bulk member onboarding for PPMKFriends: invitations, accounts, profiles and roles.
//	@description
//	@description				Access tokens are EdDSA-signed JWTs and can be verified with the JWKS endpoint.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// storedRole reads the caller's current role so admin routes see role
// changes made after the token was issued.
func (r *Router) storedRole(ctx context.Context, userID string) (string, bool, error) {
	a, err := r.store.Roles().Get(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return a.Role.String(), true, nil
}

func (r *Router) registerAuth() {
	tokenHandler := &TokenHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/auth/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	passwordHandler := &PasswordHandler{AuthService: r.AuthService}
	r.Mux.Handle("POST /v1/auth/password",
		httpx.Chain(passwordHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByOperator(httpx.StrictLimit),
		),
	)

	meHandler := &MeHandler{AuthService: r.AuthService}
	r.Mux.Handle("GET /v1/me",
		httpx.Chain(meHandler,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByOperator(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerUsers() {
	bulk := &BulkUsersHandler{BatchService: r.BatchService}
	r.Mux.Handle("POST /v1/users/bulk",
		httpx.Chain(bulk,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RefreshRole(r.storedRole),
			httpx.RequireRole(domain.RoleSuperadmin.String()),
			httpx.RateLimitByOperator(httpx.ModerateLimit),
		),
	)

	h := &UsersHandler{UserService: r.UserService}
	admins := []string{domain.RoleAdmin.String(), domain.RoleSuperadmin.String()}

	r.Mux.Handle("GET /v1/users",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RefreshRole(r.storedRole),
			httpx.RequireRole(admins...),
			httpx.RateLimitByOperator(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("PUT /v1/users/{id}/role",
		httpx.Chain(http.HandlerFunc(h.HandleUpdateRole),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RefreshRole(r.storedRole),
			httpx.RequireRole(admins...),
			httpx.RateLimitByOperator(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerInvitations() {
	h := &InvitationsHandler{UserService: r.UserService}
	r.Mux.Handle("GET /v1/invitations",
		httpx.Chain(h,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RefreshRole(r.storedRole),
			httpx.RequireRole(domain.RoleSuperadmin.String()),
			httpx.RateLimitByOperator(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerBootstrap() {
	h := &BootstrapHandler{BootstrapService: r.BootstrapService}
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}
