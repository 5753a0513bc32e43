// Package wcsapconfig loads and validates the authentication core's
// configuration from environment variables. Validation errors are
// aggregated so a misconfigured deployment sees every problem at once
// rather than one at a time.
package wcsapconfig

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RevocationBackend selects which backend implementation the store,
// revocation cache, and rate limiter build at startup.
type RevocationBackend string

const (
	BackendMemory      RevocationBackend = "memory"
	BackendDistributed RevocationBackend = "distributed"
)

// JWTAlgorithm is the asymmetric signing algorithm for JWT mode.
type JWTAlgorithm string

const (
	JWTAlgES256 JWTAlgorithm = "ES256"
	JWTAlgEdDSA JWTAlgorithm = "EdDSA"
)

// Config is the single explicit settings struct for the whole core,
// populated once at startup and never mutated afterward.
type Config struct {
	// Core secret and TTLs.
	SecretKey    string
	ChallengeTTL time.Duration
	SessionTTL   time.Duration
	RefreshTTL   time.Duration

	// Rate limiting.
	RateLimitEnabled       bool
	RateLimitMaxAttempts   int
	RateLimitWindowSeconds int

	RequireHTTPS bool

	// DPoP proof validation.
	DPoPEnabled          bool
	DPoPClockSkewSeconds int
	DPoPNonceCacheTTL    time.Duration

	// Token mode.
	UseJWTTokens  bool
	JWTAlgorithm  JWTAlgorithm
	TokenIssuer   string
	TokenAudience string

	// Backend selection, shared by the store, revocation cache, and
	// rate limiter.
	RevocationCacheType RevocationBackend
	RevocationCacheURL  string

	MaxActiveSessionsPerWallet int
}

const (
	minChallengeTTL     = 60 * time.Second
	maxChallengeTTL     = 3600 * time.Second
	defaultChallengeTTL = 300 * time.Second

	minSessionTTL     = 300 * time.Second
	maxSessionTTL     = 2_592_000 * time.Second
	defaultSessionTTL = 86_400 * time.Second

	minRefreshTTL     = 3_600 * time.Second
	maxRefreshTTL     = 7_776_000 * time.Second
	defaultRefreshTTL = 604_800 * time.Second

	minSecretKeyLength = 32

	defaultDPoPClockSkewSeconds = 60
	defaultDPoPNonceCacheTTL    = 300 * time.Second
)

// Load reads configuration from the environment. Callers MUST call
// Validate before using the result: Load never fails on its own, bad
// values are caught, with aggregated detail, by Validate.
func Load() *Config {
	return &Config{
		SecretKey:    os.Getenv("W_CSAP_SECRET_KEY"),
		ChallengeTTL: envDuration("W_CSAP_CHALLENGE_TTL", defaultChallengeTTL),
		SessionTTL:   envDuration("W_CSAP_SESSION_TTL", defaultSessionTTL),
		RefreshTTL:   envDuration("W_CSAP_REFRESH_TTL", defaultRefreshTTL),

		RateLimitEnabled:       envBool("W_CSAP_RATE_LIMIT_ENABLED", true),
		RateLimitMaxAttempts:   envInt("W_CSAP_RATE_LIMIT_MAX_ATTEMPTS", 50),
		RateLimitWindowSeconds: envInt("W_CSAP_RATE_LIMIT_WINDOW_SECONDS", 3600),

		RequireHTTPS: envBool("W_CSAP_REQUIRE_HTTPS", true),

		DPoPEnabled:          envBool("W_CSAP_DPOP_ENABLED", false),
		DPoPClockSkewSeconds: envInt("W_CSAP_DPOP_CLOCK_SKEW_SECONDS", defaultDPoPClockSkewSeconds),
		DPoPNonceCacheTTL:    envDuration("W_CSAP_DPOP_NONCE_CACHE_TTL", defaultDPoPNonceCacheTTL),

		UseJWTTokens:  envBool("W_CSAP_USE_JWT_TOKENS", false),
		JWTAlgorithm:  JWTAlgorithm(envString("W_CSAP_JWT_ALGORITHM", string(JWTAlgES256))),
		TokenIssuer:   envString("W_CSAP_TOKEN_ISSUER", "w-csap"),
		TokenAudience: envString("W_CSAP_TOKEN_AUDIENCE", "w-csap-clients"),

		RevocationCacheType: RevocationBackend(envString("W_CSAP_REVOCATION_CACHE_TYPE", string(BackendMemory))),
		RevocationCacheURL:  os.Getenv("W_CSAP_REVOCATION_CACHE_URL"),

		MaxActiveSessionsPerWallet: envInt("W_CSAP_MAX_ACTIVE_SESSIONS_PER_WALLET", 0),
	}
}

// Validate checks every configuration bound. Missing or short
// secret_key is fatal here; JWT mode without a usable key pair is
// enforced by the caller once it has loaded the key pair, since that
// material isn't carried by this struct. Returns every violation
// found, not just the first.
func (c *Config) Validate() []error {
	var errs []error

	if len(c.SecretKey) < minSecretKeyLength {
		errs = append(errs, fmt.Errorf("secret_key: must be at least %d characters, got %d", minSecretKeyLength, len(c.SecretKey)))
	}

	if c.ChallengeTTL < minChallengeTTL || c.ChallengeTTL > maxChallengeTTL {
		errs = append(errs, fmt.Errorf("challenge_ttl: must be between %s and %s, got %s", minChallengeTTL, maxChallengeTTL, c.ChallengeTTL))
	}
	if c.SessionTTL < minSessionTTL || c.SessionTTL > maxSessionTTL {
		errs = append(errs, fmt.Errorf("session_ttl: must be between %s and %s, got %s", minSessionTTL, maxSessionTTL, c.SessionTTL))
	}
	if c.RefreshTTL < minRefreshTTL || c.RefreshTTL > maxRefreshTTL {
		errs = append(errs, fmt.Errorf("refresh_ttl: must be between %s and %s, got %s", minRefreshTTL, maxRefreshTTL, c.RefreshTTL))
	}

	if c.RateLimitMaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit_max_attempts: must be positive, got %d", c.RateLimitMaxAttempts))
	}
	if c.RateLimitWindowSeconds <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit_window_seconds: must be positive, got %d", c.RateLimitWindowSeconds))
	}

	if c.UseJWTTokens && c.JWTAlgorithm != JWTAlgES256 && c.JWTAlgorithm != JWTAlgEdDSA {
		errs = append(errs, fmt.Errorf("jwt_algorithm: must be ES256 or EdDSA when use_jwt_tokens is set, got %q", c.JWTAlgorithm))
	}

	switch c.RevocationCacheType {
	case BackendMemory:
	case BackendDistributed:
		if c.RevocationCacheURL == "" {
			errs = append(errs, fmt.Errorf("revocation_cache_url: required when revocation_cache_type is %q", BackendDistributed))
		}
	default:
		errs = append(errs, fmt.Errorf("revocation_cache_type: must be %q or %q, got %q", BackendMemory, BackendDistributed, c.RevocationCacheType))
	}

	if c.MaxActiveSessionsPerWallet < 0 {
		errs = append(errs, fmt.Errorf("max_active_sessions_per_wallet: must be >= 0, got %d", c.MaxActiveSessionsPerWallet))
	}

	return errs
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return time.Duration(n) * time.Second
}
