// Package dpop implements per-request DPoP (RFC 9449) proof validation
// binding a session token to the client's possession of a private key.
package dpop

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// allowedAlgs is the accepted proof algorithm set. HMAC algorithms and
// "none" are never valid for a proof of possession.
var allowedAlgs = map[string]bool{
	"ES256K": true,
	"ES256":  true,
	"EdDSA":  true,
}

// Claims mirrors a DPoP proof's payload.
type Claims struct {
	jwt.RegisteredClaims
	HTTPMethod      string `json:"htm"`
	HTTPURI         string `json:"htu"`
	AccessTokenHash string `json:"ath,omitempty"`
}

// Proof is a parsed, signature-verified DPoP proof.
type Proof struct {
	Claims     *Claims
	Thumbprint string
}

// NonceCache enforces jti uniqueness within a replay window. Cleanup
// runs opportunistically on a timer rather than per-request.
type NonceCache struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	stop   chan struct{}
}

// NewNonceCache builds a NonceCache with the given replay window and
// starts its background cleanup loop.
func NewNonceCache(window time.Duration) *NonceCache {
	nc := &NonceCache{
		seen:   make(map[string]time.Time),
		window: window,
		stop:   make(chan struct{}),
	}
	go nc.cleanupLoop()
	return nc
}

// CheckAndStore reports whether jti is fresh (not a replay within the
// window) and records it if so.
func (nc *NonceCache) CheckAndStore(jti string) bool {
	nc.mu.Lock()
	defer nc.mu.Unlock()

	now := time.Now()
	if expiry, found := nc.seen[jti]; found && expiry.After(now) {
		return false
	}
	nc.seen[jti] = now.Add(nc.window)
	return true
}

func (nc *NonceCache) cleanupLoop() {
	ticker := time.NewTicker(nc.window / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			nc.sweep()
		case <-nc.stop:
			return
		}
	}
}

func (nc *NonceCache) sweep() {
	now := time.Now()
	nc.mu.Lock()
	defer nc.mu.Unlock()
	for jti, expiry := range nc.seen {
		if expiry.Before(now) {
			delete(nc.seen, jti)
		}
	}
}

func (nc *NonceCache) Stop() { close(nc.stop) }

// Verifier validates DPoP proofs per RFC 9449.
type Verifier struct {
	ClockSkew  time.Duration
	NonceCache *NonceCache
}

// NewVerifier builds a Verifier with the given clock-skew tolerance and
// replay-window nonce cache.
func NewVerifier(clockSkew, replayWindow time.Duration) *Verifier {
	return &Verifier{
		ClockSkew:  clockSkew,
		NonceCache: NewNonceCache(replayWindow),
	}
}

func (v *Verifier) Stop() { v.NonceCache.Stop() }

// Verify validates a DPoP proof JWT against the current request's
// method and URL, and optionally against an access token's cnf.jkt and
// ath binding. expectedJKT may be empty when the session token is not
// DPoP-bound; accessToken may be empty when none is attached.
func (v *Verifier) Verify(proofJWT, httpMethod, httpURL, expectedJKT, accessToken string) (*Proof, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	unverified, _, err := parser.ParseUnverified(proofJWT, &Claims{})
	if err != nil {
		return nil, fmt.Errorf("dpop: failed to parse proof: %w", err)
	}

	typ, _ := unverified.Header["typ"].(string)
	if typ != "dpop+jwt" {
		return nil, fmt.Errorf("dpop: typ must be %q, got %q", "dpop+jwt", typ)
	}

	alg, _ := unverified.Header["alg"].(string)
	if !allowedAlgs[alg] {
		return nil, fmt.Errorf("dpop: alg %q is not allowed", alg)
	}

	jwkRaw, ok := unverified.Header["jwk"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("dpop: missing jwk header")
	}

	thumbprint, err := jwkThumbprint(jwkRaw)
	if err != nil {
		return nil, fmt.Errorf("dpop: %w", err)
	}
	if expectedJKT != "" && thumbprint != expectedJKT {
		return nil, fmt.Errorf("dpop: jkt mismatch: token expects %s, proof has %s", expectedJKT, thumbprint)
	}

	pubKey, err := parseJWKPublicKey(jwkRaw)
	if err != nil {
		return nil, fmt.Errorf("dpop: %w", err)
	}

	verified, err := jwt.ParseWithClaims(proofJWT, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if tok.Method.Alg() != alg {
			return nil, fmt.Errorf("dpop: signing method mismatch")
		}
		return pubKey, nil
	})
	if err != nil || !verified.Valid {
		return nil, fmt.Errorf("dpop: signature verification failed: %w", err)
	}

	claims, ok := verified.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("dpop: unexpected claims type")
	}

	if err := v.validateClaims(claims, httpMethod, httpURL, accessToken); err != nil {
		return nil, err
	}

	return &Proof{Claims: claims, Thumbprint: thumbprint}, nil
}

func (v *Verifier) validateClaims(claims *Claims, httpMethod, httpURL, accessToken string) error {
	if claims.ID == "" {
		return fmt.Errorf("dpop: missing jti claim")
	}
	if !strings.EqualFold(claims.HTTPMethod, httpMethod) {
		return fmt.Errorf("dpop: htm mismatch: expected %s, got %s", httpMethod, claims.HTTPMethod)
	}
	if stripQueryFragment(claims.HTTPURI) != stripQueryFragment(httpURL) {
		return fmt.Errorf("dpop: htu mismatch")
	}

	if claims.IssuedAt == nil {
		return fmt.Errorf("dpop: missing iat claim")
	}
	now := time.Now()
	iat := claims.IssuedAt.Time
	if iat.After(now.Add(v.ClockSkew)) || now.Sub(iat) > v.ClockSkew {
		return fmt.Errorf("dpop: iat outside clock-skew window")
	}

	if accessToken != "" {
		hash := sha256.Sum256([]byte(accessToken))
		expectedAth := base64.RawURLEncoding.EncodeToString(hash[:])
		if claims.AccessTokenHash != expectedAth {
			return fmt.Errorf("dpop: ath mismatch")
		}
	}

	if !v.NonceCache.CheckAndStore(claims.ID) {
		return fmt.Errorf("dpop: jti replay detected")
	}
	return nil
}

func stripQueryFragment(uri string) string {
	if idx := strings.IndexAny(uri, "?#"); idx != -1 {
		uri = uri[:idx]
	}
	return uri
}
