// Package authenticator implements the orchestrator driving the
// challenge/response state machine (`NO_AUTH -> CHALLENGE_PENDING ->
// AUTHENTICATED -> refresh/revoke -> NO_AUTH`). It holds no state of its
// own; every fact about a wallet's session lives in the composed
// store/revocation/rate-limit backends.
package authenticator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Lento47/GigChain-wcsap/internal/audit"
	"github.com/Lento47/GigChain-wcsap/internal/challenge"
	"github.com/Lento47/GigChain-wcsap/internal/ratelimit"
	"github.com/Lento47/GigChain-wcsap/internal/revocation"
	"github.com/Lento47/GigChain-wcsap/internal/sigverify"
	"github.com/Lento47/GigChain-wcsap/internal/store"
	"github.com/Lento47/GigChain-wcsap/internal/token"
	"github.com/Lento47/GigChain-wcsap/pkg/errors"
	"github.com/Lento47/GigChain-wcsap/pkg/logging"
	"go.uber.org/zap"
)

// Config carries the knobs the authenticator needs that aren't owned by
// one of its composed components. The TTLs arrive pre-validated against
// the wcsapconfig bounds.
type Config struct {
	ChallengeTTL               time.Duration
	SessionTTL                 time.Duration
	RefreshTTL                 time.Duration
	MaxActiveSessionsPerWallet int // 0 = unlimited
}

// Authenticator composes the signature verifier (used directly), the
// challenge generator, store, token manager, revocation cache, rate
// limiter, and audit log behind the single entry point handlers
// call into. None of its fields are mutated after construction.
type Authenticator struct {
	cfg        Config
	challenges *challenge.Generator
	store      store.Backend
	tokens     token.Manager
	revoked    revocation.Backend
	limiter    ratelimit.Backend
	log        audit.Log
	logger     *logging.ColoredLogger
}

// New builds an Authenticator from its composed dependencies. Construct
// once at startup (cmd/wcsapd); there is no package-level singleton.
func New(cfg Config, tokens token.Manager, st store.Backend, revoked revocation.Backend, limiter ratelimit.Backend, auditLog audit.Log, logger *logging.ColoredLogger) *Authenticator {
	return &Authenticator{
		cfg:        cfg,
		challenges: challenge.NewGenerator(cfg.ChallengeTTL),
		store:      st,
		tokens:     tokens,
		revoked:    revoked,
		limiter:    limiter,
		log:        auditLog,
		logger:     logger,
	}
}

// RequestChallenge implements the NO_AUTH -> CHALLENGE_PENDING
// transition: rate-limits the request, mints a Challenge, and persists
// it under its own TTL.
func (a *Authenticator) RequestChallenge(ctx context.Context, wallet, ip, ua string) (*challenge.Challenge, error) {
	if err := a.checkRateLimit(ctx, wallet, ratelimit.ActionChallengeRequest); err != nil {
		return nil, err
	}

	c, err := a.challenges.Generate(wallet, ip, ua)
	if err != nil {
		a.logger.ComponentWarn(logging.ComponentAuthenticator, "challenge generation rejected", zap.String("wallet", wallet), zap.Error(err))
		return nil, errors.ErrInvalidWalletAddress(wallet)
	}

	if err := a.store.PutChallenge(ctx, c, a.cfg.ChallengeTTL); err != nil {
		return nil, errors.ErrWCSAPInternal("failed to persist challenge").WithCause(err)
	}

	a.recordRateLimit(ctx, wallet, ratelimit.ActionChallengeRequest, true)
	a.recordAudit(ctx, audit.Event{
		Wallet: c.WalletAddress, Type: audit.EventChallengeIssued,
		ChallengeID: c.ChallengeID, Success: true, IP: ip, UserAgent: ua,
	})
	return c, nil
}

// VerifySignature implements CHALLENGE_PENDING -> AUTHENTICATED: it
// atomically consumes the challenge (single-use), recovers the
// signer, and on success mints a session via the configured token
// manager. A missing or already-consumed challenge returns
// ChallengeNotFound and an expired one ChallengeExpired; every
// signature or wallet mismatch maps to the single generic
// InvalidSignature error, with the specific reason only logged.
func (a *Authenticator) VerifySignature(ctx context.Context, challengeID, signature, wallet, ip, ua string) (*store.Session, error) {
	if err := a.checkRateLimit(ctx, wallet, ratelimit.ActionVerifyAttempt); err != nil {
		return nil, err
	}

	c, err := a.store.ConsumeChallenge(ctx, challengeID)
	if err != nil {
		return nil, errors.ErrWCSAPInternal("failed to read challenge").WithCause(err)
	}
	if c == nil {
		a.recordRateLimit(ctx, wallet, ratelimit.ActionFailedAuth, false)
		a.recordAudit(ctx, audit.Event{Wallet: wallet, Type: audit.EventVerifyFailed, ChallengeID: challengeID, Success: false, Error: "challenge not found or already consumed", IP: ip, UserAgent: ua})
		return nil, errors.ErrChallengeNotFound()
	}
	if c.IsExpired(time.Now()) {
		a.recordRateLimit(ctx, wallet, ratelimit.ActionFailedAuth, false)
		a.recordAudit(ctx, audit.Event{Wallet: wallet, Type: audit.EventVerifyFailed, ChallengeID: challengeID, Success: false, Error: "challenge expired", IP: ip, UserAgent: ua})
		return nil, errors.ErrChallengeExpired()
	}

	result := sigverify.Verify(c.ChallengeMsg, signature, wallet)
	walletMatches := sigverify.EqualAddresses(c.WalletAddress, wallet)
	ok := result.OK && walletMatches

	if !ok {
		a.recordRateLimit(ctx, wallet, ratelimit.ActionFailedAuth, false)
		a.logger.ComponentWarn(logging.ComponentAuthenticator, "signature verification failed",
			zap.String("wallet", wallet), zap.String("challenge_id", challengeID), zap.Bool("wallet_matches", walletMatches))
		a.recordAudit(ctx, audit.Event{Wallet: wallet, Type: audit.EventVerifyFailed, ChallengeID: challengeID, Success: false, Error: "signature mismatch", IP: ip, UserAgent: ua})
		return nil, errors.ErrInvalidSignature()
	}

	session, err := a.mintSession(ctx, c.WalletAddress, signature, ip, ua)
	if err != nil {
		return nil, err
	}

	a.recordRateLimit(ctx, wallet, ratelimit.ActionLoginSuccess, true)
	a.recordAudit(ctx, audit.Event{
		Wallet: session.WalletAddress, Type: audit.EventSessionMinted,
		ChallengeID: challengeID, AssertionID: session.AssertionID, Success: true, IP: ip, UserAgent: ua,
	})
	return session, nil
}

// mintSession issues fresh session/refresh tokens and persists the
// resulting SessionAssertion, enforcing max_active_sessions_per_wallet by
// evicting the oldest session when the cap is reached.
func (a *Authenticator) mintSession(ctx context.Context, wallet, signature, ip, ua string) (*store.Session, error) {
	if a.cfg.MaxActiveSessionsPerWallet > 0 {
		if err := a.evictOldestIfAtCapacity(ctx, wallet); err != nil {
			return nil, err
		}
	}

	assertionID, err := randomAssertionID()
	if err != nil {
		return nil, errors.ErrWCSAPInternal("failed to generate assertion id")
	}

	issued, err := a.tokens.Issue(token.IssueParams{
		WalletAddress: wallet,
		AssertionID:   assertionID,
		TTL:           a.cfg.SessionTTL,
		RefreshTTL:    a.cfg.RefreshTTL,
	})
	if err != nil {
		return nil, errors.ErrWCSAPInternal("failed to issue session token").WithCause(err)
	}

	now := time.Now().Unix()
	session := &store.Session{
		AssertionID:   assertionID,
		WalletAddress: wallet,
		IssuedAt:      now,
		NotBefore:     now,
		ExpiresAt:     issued.ExpiresAt,
		LastActivity:  now,
		SessionToken:  issued.SessionToken,
		RefreshToken:  issued.RefreshToken,
		Signature:     signature,
		Metadata:      map[string]string{"auth_method": "wallet_signature", "protocol": "w-csap", "ip": ip, "user_agent": ua},
	}

	if err := a.store.PutSession(ctx, session, a.cfg.SessionTTL); err != nil {
		return nil, errors.ErrWCSAPInternal("failed to persist session").WithCause(err)
	}
	return session, nil
}

func (a *Authenticator) evictOldestIfAtCapacity(ctx context.Context, wallet string) error {
	sessions, err := a.store.SessionsByWallet(ctx, wallet)
	if err != nil {
		return errors.ErrWCSAPInternal("failed to list sessions").WithCause(err)
	}
	if len(sessions) < a.cfg.MaxActiveSessionsPerWallet {
		return nil
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].IssuedAt < sessions[j].IssuedAt })
	oldest := sessions[0]
	if err := a.store.DeleteSession(ctx, oldest.AssertionID); err != nil {
		return errors.ErrWCSAPInternal("failed to evict oldest session").WithCause(err)
	}
	return nil
}

// Status verifies a session token and reports the authenticated
// principal, checking token validity and revocation. It never
// distinguishes the failure reason to the caller (format vs expiry vs
// revoked): any non-ok outcome is simply "not authenticated".
//
// The opaque HMAC token form carries no assertion_id, so it cannot be
// checked against the revocation cache directly. The store is the
// source of truth for "does this token still denote a live session":
// HMAC tokens are matched back to their store record by wallet+token,
// and a record missing from the store (deleted by Revoke/Refresh/TTL)
// is exactly as unauthenticated as one present but revoked.
func (a *Authenticator) Status(ctx context.Context, sessionToken string) (*token.Claims, bool) {
	claims, ok := a.tokens.Verify(sessionToken)
	if !ok {
		return nil, false
	}

	assertionID := claims.AssertionID
	if assertionID == "" {
		session, err := a.findSessionByToken(ctx, claims.WalletAddress, sessionToken)
		if err != nil {
			a.logger.ComponentWarn(logging.ComponentAuthenticator, "session lookup failed, failing closed", zap.Error(err))
			return nil, false
		}
		if session == nil {
			return nil, false
		}
		assertionID = session.AssertionID
		claims.AssertionID = assertionID
	}

	revoked, err := a.revoked.IsRevoked(ctx, assertionID)
	if err != nil {
		a.logger.ComponentWarn(logging.ComponentAuthenticator, "revocation check failed, failing closed", zap.Error(err))
		return nil, false
	}
	if revoked {
		return nil, false
	}
	return claims, true
}

func (a *Authenticator) findSessionByToken(ctx context.Context, wallet, sessionToken string) (*store.Session, error) {
	sessions, err := a.store.SessionsByWallet(ctx, wallet)
	if err != nil {
		return nil, err
	}
	for _, s := range sessions {
		if s.SessionToken == sessionToken {
			return s, nil
		}
	}
	return nil, nil
}

// Refresh implements the `AUTHENTICATED -> AUTHENTICATED'` transition: it
// accepts a possibly-expired (but format-valid) session token together
// with a still-valid refresh token for the same assertion, invalidates
// the old session, and mints a new one.
func (a *Authenticator) Refresh(ctx context.Context, sessionToken, refreshToken, ip, ua string) (*store.Session, error) {
	// The session token may be expired, but a structurally malformed
	// one means the caller never held a real session.
	if !a.tokens.ValidFormat(sessionToken) {
		a.recordAudit(ctx, audit.Event{Type: audit.EventSessionRefreshed, Success: false, Error: "malformed session token", IP: ip, UserAgent: ua})
		return nil, errors.ErrInvalidSessionToken()
	}

	wallet, assertionID, ok := a.tokens.VerifyRefresh(refreshToken)
	if !ok {
		a.recordAudit(ctx, audit.Event{Type: audit.EventSessionRefreshed, Success: false, Error: "invalid refresh token", IP: ip, UserAgent: ua})
		return nil, errors.ErrInvalidRefreshToken()
	}

	if err := a.checkRateLimit(ctx, wallet, ratelimit.ActionRefreshRequest); err != nil {
		return nil, err
	}

	old, err := a.store.GetSession(ctx, assertionID)
	if err != nil {
		return nil, errors.ErrWCSAPInternal("failed to read session").WithCause(err)
	}
	if old == nil {
		return nil, errors.ErrSessionNotFound()
	}
	if old.RefreshToken != refreshToken {
		return nil, errors.ErrInvalidRefreshToken()
	}

	if err := a.store.DeleteSession(ctx, assertionID); err != nil {
		return nil, errors.ErrWCSAPInternal("failed to invalidate prior session").WithCause(err)
	}
	if err := a.revoked.Revoke(ctx, assertionID, old.ExpiresAt); err != nil {
		a.logger.ComponentWarn(logging.ComponentAuthenticator, "failed to revoke superseded session", zap.String("assertion_id", assertionID), zap.Error(err))
	}

	session, err := a.mintSession(ctx, wallet, old.Signature, ip, ua)
	if err != nil {
		return nil, err
	}

	a.recordRateLimit(ctx, wallet, ratelimit.ActionRefreshRequest, true)
	a.recordAudit(ctx, audit.Event{Wallet: wallet, Type: audit.EventSessionRefreshed, AssertionID: session.AssertionID, Success: true, IP: ip, UserAgent: ua})
	return session, nil
}

// Revoke invalidates one session immediately (e.g. logout).
func (a *Authenticator) Revoke(ctx context.Context, assertionID string, ip, ua string) error {
	session, err := a.store.GetSession(ctx, assertionID)
	if err != nil {
		return errors.ErrWCSAPInternal("failed to read session").WithCause(err)
	}
	if session == nil {
		return errors.ErrSessionNotFound()
	}
	if err := a.revoked.Revoke(ctx, assertionID, session.ExpiresAt); err != nil {
		return errors.ErrWCSAPInternal("failed to revoke session").WithCause(err)
	}
	if err := a.store.DeleteSession(ctx, assertionID); err != nil {
		a.logger.ComponentWarn(logging.ComponentAuthenticator, "session revoked but delete failed", zap.String("assertion_id", assertionID), zap.Error(err))
	}
	a.recordAudit(ctx, audit.Event{Wallet: session.WalletAddress, Type: audit.EventSessionRevoked, AssertionID: assertionID, Success: true, IP: ip, UserAgent: ua})
	return nil
}

// RevokeAllForWallet logs a wallet out of every active session
// ("log out all devices").
func (a *Authenticator) RevokeAllForWallet(ctx context.Context, wallet, ip, ua string) error {
	sessions, err := a.store.SessionsByWallet(ctx, wallet)
	if err != nil {
		return errors.ErrWCSAPInternal("failed to list sessions").WithCause(err)
	}

	walletSessions := make([]revocation.WalletSession, 0, len(sessions))
	for _, s := range sessions {
		walletSessions = append(walletSessions, revocation.WalletSession{AssertionID: s.AssertionID, ExpiresAt: s.ExpiresAt})
	}
	if err := revocation.RevokeAllForWallet(ctx, a.revoked, walletSessions); err != nil {
		return errors.ErrWCSAPInternal("failed to revoke sessions").WithCause(err)
	}
	for _, s := range sessions {
		_ = a.store.DeleteSession(ctx, s.AssertionID)
	}

	a.recordAudit(ctx, audit.Event{Wallet: wallet, Type: audit.EventSessionRevoked, Success: true, IP: ip, UserAgent: ua, Error: fmt.Sprintf("revoked %d sessions (all devices)", len(sessions))})
	return nil
}

// Sessions lists a wallet's active sessions, for the /auth/sessions
// endpoint.
func (a *Authenticator) Sessions(ctx context.Context, wallet string) ([]*store.Session, error) {
	sessions, err := a.store.SessionsByWallet(ctx, wallet)
	if err != nil {
		return nil, errors.ErrWCSAPInternal("failed to list sessions").WithCause(err)
	}
	return sessions, nil
}

func (a *Authenticator) checkRateLimit(ctx context.Context, wallet string, action ratelimit.Action) error {
	result, err := a.limiter.Check(ctx, wallet, action)
	if err != nil {
		// Fail open: a down rate-limit backend must never block
		// legitimate traffic. Correctness is guarded by signature
		// verification, not the limiter.
		a.logger.ComponentWarn(logging.ComponentAuthenticator, "rate limiter degraded, failing open", zap.String("wallet", wallet), zap.String("action", string(action)), zap.Error(err))
		return nil
	}
	if !result.Allowed {
		a.recordAudit(ctx, audit.Event{Wallet: wallet, Type: audit.EventRateLimitViolated, Success: false, Error: result.Reason})
		return errors.ErrWCSAPRateLimited(int(time.Hour.Seconds())).WithDetails(map[string]interface{}{
			"retry_after": int(time.Hour.Seconds()),
			"remaining":   result.Remaining,
		})
	}
	return nil
}

func (a *Authenticator) recordRateLimit(ctx context.Context, wallet string, action ratelimit.Action, success bool) {
	if err := a.limiter.Record(ctx, wallet, action, success); err != nil {
		a.logger.ComponentWarn(logging.ComponentAuthenticator, "failed to record rate-limit outcome", zap.Error(err))
	}
}

func (a *Authenticator) recordAudit(ctx context.Context, e audit.Event) {
	if a.log == nil {
		return
	}
	if err := a.log.Record(ctx, e); err != nil {
		a.logger.ComponentWarn(logging.ComponentAuthenticator, "failed to record audit event", zap.Error(err))
	}
}
