// Package token implements issuing and verifying session and
// refresh tokens in either opaque-HMAC or asymmetric-JWT mode.
package token

import "time"

// Claims is the verified result of a session token, independent of
// which mode (HMAC or JWT) produced it.
type Claims struct {
	WalletAddress string
	ExpiresAt     int64
	ExpiresIn     int64
	AssertionID   string
	Scope         string
	JKT           string // cnf.jkt, empty when the token isn't DPoP-bound
}

// Issued is the result of minting a session.
type Issued struct {
	SessionToken string
	RefreshToken string
	ExpiresAt    int64
	ExpiresIn    int64
}

// IssueParams carries everything a Manager needs to mint a session
// token, independent of mode.
type IssueParams struct {
	WalletAddress string
	AssertionID   string
	Scope         string
	TTL           time.Duration
	RefreshTTL    time.Duration
	JKT           string // set only for DPoP-bound tokens
}

// Manager is the capability interface both token modes satisfy so the
// authenticator stays agnostic to which one is configured.
type Manager interface {
	Issue(p IssueParams) (*Issued, error)
	Verify(sessionToken string) (*Claims, bool)
	VerifyRefresh(refreshToken string) (wallet, assertionID string, ok bool)
	// ValidFormat reports whether sessionToken is structurally a token
	// this manager could have issued, without checking its MAC,
	// signature, or expiry. The refresh flow accepts an expired session
	// token but not a malformed one.
	ValidFormat(sessionToken string) bool
}
