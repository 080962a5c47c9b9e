package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/labauth/internal/authority/service"
	"github.com/aussiebroadwan/labauth/internal/authority/store"
	"github.com/aussiebroadwan/labauth/pkg/httpx"
	"github.com/aussiebroadwan/labauth/pkg/jwtx"
	"github.com/aussiebroadwan/labauth/pkg/slogx"
)

// DefaultCookieName is the session cookie set by the login endpoints.
const DefaultCookieName = "labauth_session"

// Config holds the HTTP-level settings of the authority.
type Config struct {
	Issuer       string
	BuildVersion string

	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration
	PendingTTL   time.Duration

	// PrimaryEnabled exposes POST /api/auth/login. Without it only the legacy
	// endpoint answers, which is how older deployments behave.
	PrimaryEnabled bool

	StrictLimit   httpx.RateLimitConfig
	ModerateLimit httpx.RateLimitConfig
	LenientLimit  httpx.RateLimitConfig
}

func (c *Config) applyDefaults() {
	if c.CookieName == "" {
		c.CookieName = DefaultCookieName
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = jwtx.DefaultSessionTTL
	}
	if c.PendingTTL <= 0 {
		c.PendingTTL = jwtx.DefaultPendingTTL
	}
	if c.StrictLimit.RequestsPerWindow == 0 {
		c.StrictLimit = httpx.StrictLimit
	}
	if c.ModerateLimit.RequestsPerWindow == 0 {
		c.ModerateLimit = httpx.ModerateLimit
	}
	if c.LenientLimit.RequestsPerWindow == 0 {
		c.LenientLimit = httpx.LenientLimit
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg       Config
	sessions  *sessionIssuer
	verifier  *jwtx.Verifier
	startTime time.Time
	logger    *slog.Logger
	registry  *prometheus.Registry
	metrics   *Metrics

	store           store.Store
	LoginService    *service.LoginService
	MFAService      *service.MFAService
	RecoveryService *service.RecoveryService
}

func NewRouter(
	cfg Config,
	st store.Store,
	signer *jwtx.Signer,
	verifier *jwtx.Verifier,
	logger *slog.Logger,
) *Router {
	cfg.applyDefaults()

	registry := prometheus.NewRegistry()
	r := &Router{
		Mux:       http.NewServeMux(),
		cfg:       cfg,
		verifier:  verifier,
		startTime: time.Now(),
		logger:    logger,
		registry:  registry,
		metrics:   NewMetrics(registry),
		store:     st,
		sessions: &sessionIssuer{
			signer:     signer,
			issuer:     cfg.Issuer,
			cookieName: cfg.CookieName,
			secure:     cfg.CookieSecure,
			fullTTL:    cfg.SessionTTL,
			pendingTTL: cfg.PendingTTL,
		},
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		r.metrics.Middleware,
	}

	return r
}

// Registry exposes the collectors served on /metrics.
func (r *Router) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerEnrollment()
	r.registerRecovery()
	r.registerAccount()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) session(allowPending, optional bool) httpx.Middleware {
	return httpx.SessionMiddleware(httpx.SessionPolicy{
		CookieName:   r.cfg.CookieName,
		Verifier:     r.verifier,
		AllowPending: allowPending,
		Optional:     optional,
	})
}

func (r *Router) registerLogin() {
	h := &LoginHandler{
		LoginService: r.LoginService,
		Sessions:     r.sessions,
		Metrics:      r.metrics,
	}

	// Older deployments only expose the legacy endpoint; clients fall back
	// to it on 404.
	if r.cfg.PrimaryEnabled {
		r.Mux.Handle("POST /api/auth/login",
			httpx.Chain(http.HandlerFunc(h.HandlePrimary),
				httpx.RateLimitByIPAndField(r.cfg.StrictLimit, "identifier"),
			),
		)
	}

	r.Mux.Handle("POST /api/login",
		httpx.Chain(http.HandlerFunc(h.HandleLegacy),
			httpx.RateLimitByIPAndField(r.cfg.StrictLimit, "identifier"),
		),
	)
}

func (r *Router) registerEnrollment() {
	h := &EnrollmentHandler{
		MFAService: r.MFAService,
		Sessions:   r.sessions,
	}

	// Password or code checks without a session, limited per account.
	r.Mux.Handle("POST /api/auth/2fa/setup-initial",
		httpx.Chain(http.HandlerFunc(h.HandleSetupInitial),
			httpx.RateLimitByIPAndField(r.cfg.StrictLimit, "email"),
		),
	)
	r.Mux.Handle("POST /api/auth/2fa/verify-initial",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyInitial),
			httpx.RateLimitByIPAndField(r.cfg.StrictLimit, "email"),
		),
	)

	r.Mux.Handle("GET /api/auth/2fa/admin-setup",
		httpx.Chain(http.HandlerFunc(h.HandleAdminSetupData),
			httpx.RateLimitByIP(r.cfg.ModerateLimit),
		),
	)

	// A pending session identifies the account; without one the body must
	// carry the setup token.
	r.Mux.Handle("POST /api/auth/2fa/complete-admin-setup",
		httpx.Chain(http.HandlerFunc(h.HandleCompleteAdminSetup),
			r.session(true, true),
			httpx.RateLimitByIP(r.cfg.StrictLimit),
		),
	)

	r.Mux.Handle("POST /api/auth/2fa/backup-codes/regenerate",
		httpx.Chain(http.HandlerFunc(h.HandleRegenerateBackupCodes),
			r.session(false, false),
			httpx.RateLimitByUser(r.cfg.StrictLimit),
		),
	)
	r.Mux.Handle("GET /api/auth/2fa/backup-codes/count",
		httpx.Chain(http.HandlerFunc(h.HandleBackupCodesCount),
			r.session(false, false),
			httpx.RateLimitByUser(r.cfg.ModerateLimit),
		),
	)
}

func (r *Router) registerRecovery() {
	h := &RecoveryHandler{RecoveryService: r.RecoveryService}

	r.Mux.Handle("POST /api/auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIPAndField(r.cfg.StrictLimit, "email"),
		),
	)
	r.Mux.Handle("POST /api/auth/reset-password",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIPAndField(r.cfg.StrictLimit, "email"),
		),
	)
}

func (r *Router) registerAccount() {
	h := &AccountHandler{Store: r.store, Sessions: r.sessions}

	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.session(false, false),
			httpx.RateLimitByUser(r.cfg.LenientLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.cfg.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.cfg.BuildVersion),
			httpx.RateLimitByIP(r.cfg.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.cfg.BuildVersion, r.store),
			httpx.RateLimitByIP(r.cfg.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
}
