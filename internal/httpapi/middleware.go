package httpapi

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"

	wcsaperrors "github.com/Lento47/GigChain-wcsap/pkg/errors"
)

const csrfCookieName = "w_csap_csrf"

// securityHeaders applies the baseline security response headers to
// every endpoint this server fronts.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// requireHTTPS rejects plaintext requests when require_https is set,
// trusting X-Forwarded-Proto behind a reverse proxy.
func (s *Server) requireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
			writeError(w, wcsaperrors.ErrWCSAPUnauthorized("https required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// csrfProtect implements the double-submit cookie pattern: a
// random token is minted into a cookie on first contact, and every
// state-changing request must echo it back in X-CSRF-Token. Disabled
// entirely when CSRFEnabled is false (e.g. for non-browser clients that
// authenticate with Authorization headers only, where CSRF does not
// apply).
func (s *Server) csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.opts.CSRFEnabled {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			token, genErr := randomCSRFToken()
			if genErr != nil {
				writeError(w, wcsaperrors.ErrWCSAPInternal("failed to mint csrf token"))
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     csrfCookieName,
				Value:    token,
				HttpOnly: false,
				Secure:   s.opts.RequireHTTPS,
				SameSite: http.SameSiteStrictMode,
				Path:     "/",
			})
			writeError(w, wcsaperrors.ErrWCSAPUnauthorized("missing csrf cookie, retry with the cookie now set"))
			return
		}

		header := r.Header.Get("X-CSRF-Token")
		if header == "" || subtle.ConstantTimeCompare([]byte(header), []byte(cookie.Value)) != 1 {
			writeError(w, wcsaperrors.ErrWCSAPUnauthorized("csrf token mismatch"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func randomCSRFToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// powGate requires a solved proof-of-work challenge on the request
// before it reaches the handler, when enabled. The solved challenge
// string, nonce, and difficulty travel as headers since this protects
// an otherwise-unauthenticated endpoint (challenge issuance) that
// cannot rely on a bearer token.
func (s *Server) powGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.opts.PoWEnabled || s.pow == nil {
			next.ServeHTTP(w, r)
			return
		}

		challengeStr := r.Header.Get("X-PoW-Challenge")
		nonce := r.Header.Get("X-PoW-Nonce")
		difficulty, _ := strconv.Atoi(r.Header.Get("X-PoW-Difficulty"))
		if challengeStr == "" || nonce == "" {
			writeError(w, wcsaperrors.ErrProofOfWorkRequired())
			return
		}

		ok, err := s.pow.Verify(challengeStr, nonce, difficulty)
		if err != nil || !ok {
			writeError(w, wcsaperrors.ErrProofOfWorkInvalid())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireSession verifies the bearer session token (and, when DPoP is
// enabled, the accompanying proof) and places the resulting claims on
// the request context for downstream handlers.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionToken := bearerToken(r)
		if sessionToken == "" {
			writeError(w, wcsaperrors.ErrWCSAPUnauthorized("missing bearer token"))
			return
		}

		claims, ok := s.auth.Status(r.Context(), sessionToken)
		if !ok {
			writeError(w, wcsaperrors.ErrInvalidSessionToken())
			return
		}

		if s.opts.DPoPEnabled && s.dpop != nil {
			proofJWT := r.Header.Get("DPoP")
			if proofJWT == "" {
				writeError(w, wcsaperrors.ErrDPoPRequired())
				return
			}
			scheme := "https"
			if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
				scheme = "http"
			}
			fullURL := scheme + "://" + r.Host + r.URL.Path
			if _, err := s.dpop.Verify(proofJWT, r.Method, fullURL, claims.JKT, sessionToken); err != nil {
				writeError(w, wcsaperrors.ErrDPoPInvalid(err.Error()))
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(contextWithClaims(r.Context(), claims)))
	})
}
