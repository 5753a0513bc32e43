// Command wcsapd runs the W-CSAP authentication core as a standalone
// HTTP service: it loads and validates configuration, derives key
// material, wires the memory or distributed backends selected by
// configuration, and serves the authentication endpoints until an
// interrupt or terminate signal arrives.
package main

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Lento47/GigChain-wcsap/internal/access"
	"github.com/Lento47/GigChain-wcsap/internal/audit"
	"github.com/Lento47/GigChain-wcsap/internal/authenticator"
	"github.com/Lento47/GigChain-wcsap/internal/dpop"
	"github.com/Lento47/GigChain-wcsap/internal/httpapi"
	"github.com/Lento47/GigChain-wcsap/internal/pow"
	"github.com/Lento47/GigChain-wcsap/internal/ratelimit"
	"github.com/Lento47/GigChain-wcsap/internal/revocation"
	"github.com/Lento47/GigChain-wcsap/internal/store"
	"github.com/Lento47/GigChain-wcsap/internal/token"
	"github.com/Lento47/GigChain-wcsap/internal/wcsapconfig"
	"github.com/Lento47/GigChain-wcsap/pkg/logging"
)

func main() {
	logger, err := logging.NewColoredLogger(logging.ComponentGeneral, true)
	if err != nil {
		panic(err)
	}

	cfg := wcsapconfig.Load()
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			logger.ComponentError(logging.ComponentGeneral, "configuration invalid", zap.Error(e))
		}
		os.Exit(1)
	}

	sweepInterval := 5 * time.Minute

	storeBackend, revokedBackend, limiterBackend := buildBackends(cfg, logger, sweepInterval)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = storeBackend.Close(ctx)
		_ = revokedBackend.Close(ctx)
		_ = limiterBackend.Close(ctx)
	}()

	tokenManager, jwtManager := buildTokenManager(cfg, logger)

	auditLog := audit.NewMemoryLog()

	auth := authenticator.New(authenticator.Config{
		ChallengeTTL:               cfg.ChallengeTTL,
		SessionTTL:                 cfg.SessionTTL,
		RefreshTTL:                 cfg.RefreshTTL,
		MaxActiveSessionsPerWallet: cfg.MaxActiveSessionsPerWallet,
	}, tokenManager, storeBackend, revokedBackend, limiterBackend, auditLog, logger)

	var dpopVerifier *dpop.Verifier
	if cfg.DPoPEnabled {
		dpopVerifier = dpop.NewVerifier(time.Duration(cfg.DPoPClockSkewSeconds)*time.Second, cfg.DPoPNonceCacheTTL)
		defer dpopVerifier.Stop()
	}

	powGate := pow.NewGate(pow.DefaultConfig())
	graceTracker := access.NewGraceTracker()

	server := httpapi.New(auth, limiterBackend, revokedBackend, dpopVerifier, powGate, graceTracker, jwtManager, logger, httpapi.Options{
		RequireHTTPS: cfg.RequireHTTPS,
		CSRFEnabled:  true,
		DPoPEnabled:  cfg.DPoPEnabled,
		PoWEnabled:   os.Getenv("W_CSAP_POW_ENABLED") == "true",
		UseJWTTokens: cfg.UseJWTTokens,
	})

	listenAddr := envOr("W_CSAP_LISTEN_ADDR", ":8443")
	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: server.Router(),
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		logger.ComponentError(logging.ComponentGeneral, "failed to listen", zap.String("addr", listenAddr), zap.Error(err))
		os.Exit(1)
	}

	serveErrCh := make(chan error, 1)
	go func() {
		logger.ComponentInfo(logging.ComponentGeneral, "w-csap authentication core listening", zap.String("addr", listenAddr))
		serveErrCh <- httpServer.Serve(listener)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
		logger.ComponentInfo(logging.ComponentGeneral, "shutdown signal received")
	case err := <-serveErrCh:
		if err != nil && err != http.ErrServerClosed {
			logger.ComponentError(logging.ComponentGeneral, "server error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.ComponentError(logging.ComponentGeneral, "graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
	logger.ComponentInfo(logging.ComponentGeneral, "shutdown complete")
}

func buildBackends(cfg *wcsapconfig.Config, logger *logging.ColoredLogger, sweepInterval time.Duration) (store.Backend, revocation.Backend, ratelimit.Backend) {
	if cfg.RevocationCacheType != wcsapconfig.BackendDistributed {
		st, err := store.NewMemoryBackend([]byte(cfg.SecretKey), sweepInterval)
		if err != nil {
			logger.ComponentError(logging.ComponentGeneral, "failed to build memory store", zap.Error(err))
			os.Exit(1)
		}
		return st, revocation.NewMemoryBackend(sweepInterval), ratelimit.NewMemoryBackend(defaultRateLimitConfig(cfg), sweepInterval)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	servers := []string{cfg.RevocationCacheURL}
	st, err := store.NewOlricBackend(ctx, servers, []byte(cfg.SecretKey))
	if err != nil {
		logger.ComponentError(logging.ComponentGeneral, "failed to connect distributed store", zap.Error(err))
		os.Exit(1)
	}
	revoked, err := revocation.NewOlricBackend(ctx, servers)
	if err != nil {
		logger.ComponentError(logging.ComponentGeneral, "failed to connect distributed revocation cache", zap.Error(err))
		os.Exit(1)
	}
	limiter, err := ratelimit.NewOlricBackend(ctx, servers, defaultRateLimitConfig(cfg))
	if err != nil {
		logger.ComponentError(logging.ComponentGeneral, "failed to connect distributed rate limiter", zap.Error(err))
		os.Exit(1)
	}
	return st, revoked, limiter
}

func defaultRateLimitConfig(cfg *wcsapconfig.Config) ratelimit.Config {
	rlCfg := ratelimit.DefaultConfig()
	if !cfg.RateLimitEnabled {
		// Still runs through the same Check/Record path, but with
		// ceilings effectively unreachable.
		for action := range rlCfg.PerAction {
			rlCfg.PerAction[action] = ratelimit.Limits{Hourly: 1 << 30, Daily: 1 << 30}
		}
		return rlCfg
	}
	for action := range rlCfg.PerAction {
		rlCfg.PerAction[action] = ratelimit.Limits{
			Hourly: cfg.RateLimitMaxAttempts,
			Daily:  cfg.RateLimitMaxAttempts * 24,
		}
	}
	return rlCfg
}

func buildTokenManager(cfg *wcsapconfig.Config, logger *logging.ColoredLogger) (token.Manager, *token.JWTManager) {
	if !cfg.UseJWTTokens {
		return token.NewHMACManager([]byte(cfg.SecretKey)), nil
	}

	keyPath := os.Getenv("W_CSAP_JWT_PRIVATE_KEY_PATH")
	if keyPath == "" {
		logger.ComponentError(logging.ComponentGeneral, "use_jwt_tokens is set but W_CSAP_JWT_PRIVATE_KEY_PATH is empty")
		os.Exit(1)
	}

	alg := token.Alg(cfg.JWTAlgorithm)
	var signingKey crypto.Signer
	var err error
	switch alg {
	case token.AlgEdDSA:
		signingKey, err = loadEd25519Key(keyPath)
	default:
		signingKey, err = loadECDSAKey(keyPath)
	}
	if err != nil {
		logger.ComponentError(logging.ComponentGeneral, "failed to load jwt signing key", zap.String("path", keyPath), zap.String("algorithm", string(alg)), zap.Error(err))
		os.Exit(1)
	}

	jwtManager, err := token.NewJWTManager(alg, "w-csap-1", signingKey, cfg.TokenIssuer, cfg.TokenAudience, []byte(cfg.SecretKey))
	if err != nil {
		logger.ComponentError(logging.ComponentGeneral, "failed to build jwt manager", zap.Error(err))
		os.Exit(1)
	}
	return jwtManager, jwtManager
}

func loadECDSAKey(path string) (*ecdsa.PrivateKey, error) {
	block, err := readPEMBlock(path)
	if err != nil {
		return nil, err
	}
	return x509.ParseECPrivateKey(block.Bytes)
}

// loadEd25519Key reads a PKCS8-encoded Ed25519 private key, the format
// produced by `openssl genpkey -algorithm ed25519`.
func loadEd25519Key(path string) (ed25519.PrivateKey, error) {
	block, err := readPEMBlock(path)
	if err != nil {
		return nil, err
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	edKey, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("jwt signing key at %s is not an Ed25519 private key", path)
	}
	return edKey, nil
}

func readPEMBlock(path string) (*pem.Block, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, os.ErrInvalid
	}
	return block, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
