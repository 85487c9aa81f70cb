package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/koki-kondo/mind-status-app/internal/roster/domain"
	"github.com/koki-kondo/mind-status-app/internal/roster/service"
	"github.com/koki-kondo/mind-status-app/internal/roster/store"
	"github.com/koki-kondo/mind-status-app/pkg/httpx"
	"github.com/koki-kondo/mind-status-app/pkg/jwtx"
	"github.com/koki-kondo/mind-status-app/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/koki-kondo/mind-status-app/api/roster" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	signer       *jwtx.Signer
	verifier     httpx.TokenVerifier
	gatherer     prometheus.Gatherer
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	AuthService    *service.AuthService
	AccountService *service.AccountService
	InviteService  *service.InviteService
	ImportService  *service.ImportService
	MaxUploadBytes int64
}

func NewRouter(
	signer *jwtx.Signer,
	verifier httpx.TokenVerifier,
	gatherer prometheus.Gatherer,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		signer:       signer,
		verifier:     verifier,
		gatherer:     gatherer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccounts()
	r.registerRoster()
	r.registerInvites()
	r.registerPassword()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Roster Service API
//	@version		0.1.0
//	@description	Bulk member registration from CSV or XLSX rosters, invitation links and password management for schools and companies.
//	@description
//	@description				Session tokens are EdDSA signed JWTs obtained from /v1/auth/login.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// admin wraps h for organization admins only.
func (r *Router) admin(h http.Handler) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireRole(string(domain.RoleAdmin)),
		httpx.RateLimitByMember(httpx.LenientLimit),
	)
}

// member wraps h for any signed-in member.
func (r *Router) member(h http.Handler) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByMember(httpx.LenientLimit),
	)
}

func (r *Router) registerAccounts() {
	// POST /auth/login - strict rate limit by IP (credential guessing)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(&LoginHandler{AuthService: r.AuthService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /organizations - strict, registration is rare
	r.Mux.Handle("POST /v1/organizations",
		httpx.Chain(&RegisterOrganizationHandler{AccountService: r.AccountService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("GET /v1/me", r.member(&MeHandler{AccountService: r.AccountService}))
}

func (r *Router) registerRoster() {
	r.Mux.Handle("POST /v1/members/import", r.admin(&ImportHandler{
		ImportService:  r.ImportService,
		MaxUploadBytes: r.MaxUploadBytes,
	}))
	r.Mux.Handle("GET /v1/members/import/template", r.admin(&TemplateHandler{ImportService: r.ImportService}))
	r.Mux.Handle("GET /v1/members/import/runs", r.admin(&ImportRunsHandler{ImportService: r.ImportService}))
}

func (r *Router) registerInvites() {
	// Public endpoints reached from mailed links - moderate rate limit by IP
	r.Mux.Handle("GET /v1/invites/verify",
		httpx.Chain(&VerifyInviteHandler{InviteService: r.InviteService},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/invites/accept",
		httpx.Chain(&ConsumeHandler{InviteService: r.InviteService, Purpose: domain.PurposeEnrollment},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPassword() {
	// POST /password/reset-request - strict, each call may send mail
	r.Mux.Handle("POST /v1/password/reset-request",
		httpx.Chain(&ResetRequestHandler{AccountService: r.AccountService},
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/password/reset",
		httpx.Chain(&ConsumeHandler{InviteService: r.InviteService, Purpose: domain.PurposeReset},
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /v1/password/change", r.member(&ChangePasswordHandler{AccountService: r.AccountService}))
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signer),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	if r.gatherer != nil {
		r.Mux.Handle("GET /metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
	}
}
