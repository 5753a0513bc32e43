// Package httpapi adapts the authentication core onto its HTTP
// surface: a chi-routed set of JSON endpoints plus the middleware
// stack (security headers, CSRF double-submit, DPoP and proof-of-work
// gating) that front it.
package httpapi

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Lento47/GigChain-wcsap/internal/access"
	"github.com/Lento47/GigChain-wcsap/internal/authenticator"
	"github.com/Lento47/GigChain-wcsap/internal/dpop"
	"github.com/Lento47/GigChain-wcsap/internal/pow"
	"github.com/Lento47/GigChain-wcsap/internal/ratelimit"
	"github.com/Lento47/GigChain-wcsap/internal/revocation"
	"github.com/Lento47/GigChain-wcsap/internal/token"
	"github.com/Lento47/GigChain-wcsap/pkg/logging"
)

// Options toggles the optional protocol layers that sit around the core
// state machine, all off by default.
type Options struct {
	RequireHTTPS bool
	CSRFEnabled  bool
	DPoPEnabled  bool
	PoWEnabled   bool
	UseJWTTokens bool
}

// Server holds every dependency the HTTP handlers need. It carries no
// mutable state of its own beyond what the composed components already
// serialize their own access to.
type Server struct {
	auth    *authenticator.Authenticator
	limiter ratelimit.Backend
	revoked revocation.Backend
	dpop    *dpop.Verifier
	pow     *pow.Gate
	grace   *access.GraceTracker
	jwt     *token.JWTManager // non-nil only in JWT mode; backs /.well-known/jwks.json
	logger  *logging.ColoredLogger
	opts    Options
}

// New builds a Server. dpopVerifier, powGate, and jwtManager may be nil
// when their respective protocol layer is disabled by configuration.
func New(
	auth *authenticator.Authenticator,
	limiter ratelimit.Backend,
	revoked revocation.Backend,
	dpopVerifier *dpop.Verifier,
	powGate *pow.Gate,
	grace *access.GraceTracker,
	jwtManager *token.JWTManager,
	logger *logging.ColoredLogger,
	opts Options,
) *Server {
	return &Server{
		auth:    auth,
		limiter: limiter,
		revoked: revoked,
		dpop:    dpopVerifier,
		pow:     powGate,
		grace:   grace,
		jwt:     jwtManager,
		logger:  logger,
		opts:    opts,
	}
}

// Router builds the chi.Router serving the authentication endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.securityHeaders)
	if s.opts.RequireHTTPS {
		r.Use(s.requireHTTPS)
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(s.csrfProtect, s.powGate).Post("/challenge", s.handleChallenge)
		r.With(s.csrfProtect).Post("/verify", s.handleVerify)
		r.With(s.csrfProtect).Post("/refresh", s.handleRefresh)
		r.With(s.csrfProtect).Post("/step-up", s.handleStepUp)
		r.With(s.csrfProtect, s.requireSession).Post("/logout", s.handleLogout)
		r.With(s.requireSession).Get("/status", s.handleStatus)
		r.With(s.requireSession).Get("/sessions", s.handleSessions)
		r.Get("/stats", s.handleStats)
		r.Get("/pow-challenge", s.handlePoWChallenge)
	})

	r.Get("/.well-known/jwks.json", s.handleJWKS)

	return r
}
