// Package revocation implements a sender-bound blocklist of revoked
// assertion IDs that lives until the token's natural expiry, never
// longer.
package revocation

import "context"

// Backend is the capability interface both revocation implementations
// satisfy, selected at startup from configuration (memory or a
// distributed KV), matching the same selector the store and rate
// limiter use.
type Backend interface {
	// Revoke marks assertionID as revoked until expiresAt. Revoking an
	// already-revoked ID is idempotent.
	Revoke(ctx context.Context, assertionID string, expiresAt int64) error
	// IsRevoked reports whether assertionID is currently revoked. Once
	// true, it MUST continue to return true until expiresAt, then false.
	IsRevoked(ctx context.Context, assertionID string) (bool, error)
	Stats(ctx context.Context) (Stats, error)
	Close(ctx context.Context) error
}

// Stats summarizes the revocation cache for diagnostics.
type Stats struct {
	Backend string `json:"backend"`
	Entries int    `json:"entries"`
}

// WalletSession is the minimal session shape RevokeAllForWallet needs
// from the store: an assertion ID and its expiry. The authenticator
// builds these from store.Session to avoid an import cycle between
// store and revocation (it composes both directly rather than one
// depending on the other).
type WalletSession struct {
	AssertionID string
	ExpiresAt   int64
}

// RevokeAllForWallet revokes every session in sessions (which the caller
// builds from the store's SessionsByWallet for one wallet), used for
// "log out all devices" and security incidents.
func RevokeAllForWallet(ctx context.Context, b Backend, sessions []WalletSession) error {
	for _, s := range sessions {
		if err := b.Revoke(ctx, s.AssertionID, s.ExpiresAt); err != nil {
			return err
		}
	}
	return nil
}
