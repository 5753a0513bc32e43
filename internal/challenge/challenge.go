// Package challenge implements minting of unique, time-bound,
// human-readable authentication challenges bound to a wallet address.
package challenge

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/Lento47/GigChain-wcsap/internal/sigverify"
)

// Status tracks a Challenge through its one-way lifecycle:
// pending -> used or pending -> expired. It never transitions back.
type Status string

const (
	StatusPending Status = "pending"
	StatusUsed    Status = "used"
	StatusExpired Status = "expired"
)

const appName = "GigChain.io"

// Metadata carries the request context a challenge was issued under.
type Metadata struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	AppName   string `json:"app_name"`
	Version   string `json:"version"`
}

// Challenge is a one-time nonce envelope a wallet signs to authenticate.
type Challenge struct {
	ChallengeID   string   `json:"challenge_id"`
	WalletAddress string   `json:"wallet_address"`
	ChallengeMsg  string   `json:"challenge_message"`
	Nonce         string   `json:"nonce"`
	IssuedAt      int64    `json:"issued_at"`
	ExpiresAt     int64    `json:"expires_at"`
	Metadata      Metadata `json:"metadata"`
	Status        Status   `json:"status"`
}

// IsExpired reports whether the challenge's TTL has elapsed as of now.
func (c *Challenge) IsExpired(now time.Time) bool {
	return now.Unix() > c.ExpiresAt
}

// Generator mints Challenge records with a configured TTL.
type Generator struct {
	ttl time.Duration
}

// NewGenerator builds a Generator. ttl must already have been validated
// against the [60s, 3600s] bound from configuration.
func NewGenerator(ttl time.Duration) *Generator {
	return &Generator{ttl: ttl}
}

// Generate mints a fresh Challenge for wallet, rejecting malformed
// addresses before any randomness is spent.
func (g *Generator) Generate(wallet, ip, userAgent string) (*Challenge, error) {
	checksum, err := sigverify.NormalizeChecksum(wallet)
	if err != nil {
		return nil, fmt.Errorf("challenge: invalid wallet address: %w", err)
	}

	nonce, err := randomHex(32)
	if err != nil {
		return nil, fmt.Errorf("challenge: failed to generate nonce: %w", err)
	}

	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(g.ttl)

	id, err := challengeID(checksum, nonce)
	if err != nil {
		return nil, err
	}

	msg := buildMessage(checksum, id, nonce, issuedAt, expiresAt)

	return &Challenge{
		ChallengeID:   id,
		WalletAddress: checksum,
		ChallengeMsg:  msg,
		Nonce:         nonce,
		IssuedAt:      issuedAt.Unix(),
		ExpiresAt:     expiresAt.Unix(),
		Metadata: Metadata{
			IPAddress: ip,
			UserAgent: userAgent,
			AppName:   appName,
			Version:   "1.0.0",
		},
		Status: StatusPending,
	}, nil
}

// challengeID derives a 32-byte hex identifier from the wallet, current
// time, and a random salt so that no two challenges collide even when
// issued for the same wallet in the same second.
func challengeID(checksumWallet, nonce string) (string, error) {
	salt, err := randomHex(16)
	if err != nil {
		return "", fmt.Errorf("challenge: failed to generate id salt: %w", err)
	}
	data := checksumWallet + ":" + strconv.FormatInt(time.Now().UnixNano(), 10) + ":" + nonce + ":" + salt
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:]), nil
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// buildMessage renders the wallet-facing text. It must stay stable in
// shape across calls (field order, banner wording) since client wallets
// and audits rely on it being recognizable as a W-CSAP challenge.
func buildMessage(wallet, challengeID, nonce string, issuedAt, expiresAt time.Time) string {
	idPrefix := shortPrefix(challengeID, 16)
	noncePrefix := shortPrefix(nonce, 16)

	return fmt.Sprintf(
		"\U0001F510 %s - Wallet Authentication\n\n"+
			"Sign this message to authenticate your wallet.\n\n"+
			"Wallet: %s\n"+
			"Challenge ID: %s...\n"+
			"Nonce: %s...\n\n"+
			"Issued: %s\n"+
			"Expires: %s\n\n"+
			"⚠️ Only sign this if you initiated this login.\n"+
			"Never share this signature with anyone.\n\n"+
			"Security: this is a one-time authentication challenge.",
		appName,
		wallet,
		idPrefix,
		noncePrefix,
		issuedAt.Format(time.RFC3339),
		expiresAt.Format(time.RFC3339),
	)
}

func shortPrefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
