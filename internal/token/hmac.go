package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Lento47/GigChain-wcsap/internal/cryptoutil"
)

// minVerifyDuration is the floor execution time Verify pads up to, so a
// caller timing the call cannot distinguish "malformed token" from
// "well-formed but MAC mismatch" from "expired" by response latency.
const minVerifyDuration = 5 * time.Millisecond

// HMACManager issues and verifies opaque, four-field, dot-separated
// tokens whose only secret-dependent step is an HMAC-SHA256 MAC.
type HMACManager struct {
	kMac []byte
}

// NewHMACManager builds an HMACManager from the process key material's
// MAC key.
func NewHMACManager(kMac []byte) *HMACManager {
	return &HMACManager{kMac: kMac}
}

func (m *HMACManager) Issue(p IssueParams) (*Issued, error) {
	now := time.Now()
	exp := now.Add(p.TTL).Unix()

	random, err := randomURLSafe(32)
	if err != nil {
		return nil, fmt.Errorf("token: failed to generate random: %w", err)
	}
	mac := m.mac(random, p.WalletAddress, exp)
	sessionToken := strings.Join([]string{random, p.WalletAddress, strconv.FormatInt(exp, 10), mac}, ".")

	refreshExp := now.Add(p.RefreshTTL).Unix()
	refreshToken, err := m.issueRefresh(p.AssertionID, p.WalletAddress, refreshExp)
	if err != nil {
		return nil, err
	}

	return &Issued{
		SessionToken: sessionToken,
		RefreshToken: refreshToken,
		ExpiresAt:    exp,
		ExpiresIn:    exp - now.Unix(),
	}, nil
}

// Verify parses and checks a session token. It always performs the same
// sequence of work regardless of where the input is malformed, and pads
// execution to minVerifyDuration, so timing carries no oracle.
func (m *HMACManager) Verify(sessionToken string) (*Claims, bool) {
	start := time.Now()
	claims, ok := m.verifyInner(sessionToken)
	if elapsed := time.Since(start); elapsed < minVerifyDuration {
		time.Sleep(minVerifyDuration - elapsed)
	}
	return claims, ok
}

func (m *HMACManager) verifyInner(sessionToken string) (*Claims, bool) {
	random, wallet, expStr, mac, wellFormed := splitFour(sessionToken)

	exp, parseErr := strconv.ParseInt(expStr, 10, 64)
	expectedMAC := m.mac(random, wallet, exp)

	macOK := cryptoutil.ConstantTimeEqual(mac, expectedMAC)
	notExpired := parseErr == nil && time.Now().Unix() < exp

	if !wellFormed || !macOK || !notExpired {
		return nil, false
	}

	return &Claims{
		WalletAddress: wallet,
		ExpiresAt:     exp,
		ExpiresIn:     exp - time.Now().Unix(),
	}, true
}

// ValidFormat reports whether sessionToken parses as the four-field
// dot-separated shape with a decimal expiry. No MAC or expiry check.
func (m *HMACManager) ValidFormat(sessionToken string) bool {
	_, _, expStr, _, wellFormed := splitFour(sessionToken)
	if !wellFormed {
		return false
	}
	_, err := strconv.ParseInt(expStr, 10, 64)
	return err == nil
}

func (m *HMACManager) issueRefresh(assertionID, wallet string, exp int64) (string, error) {
	random, err := randomURLSafe(32)
	if err != nil {
		return "", fmt.Errorf("token: failed to generate refresh random: %w", err)
	}
	mac := m.refreshMAC(random, assertionID, wallet, exp)
	return strings.Join([]string{random, assertionID, wallet, strconv.FormatInt(exp, 10), mac}, "."), nil
}

// VerifyRefresh succeeds even when the paired session token has already
// expired; it only checks the refresh token's own MAC and expiry.
func (m *HMACManager) VerifyRefresh(refreshToken string) (wallet, assertionID string, ok bool) {
	parts := strings.Split(refreshToken, ".")
	if len(parts) != 5 {
		return "", "", false
	}
	random, aid, w, expStr, mac := parts[0], parts[1], parts[2], parts[3], parts[4]

	exp, err := strconv.ParseInt(expStr, 10, 64)
	expectedMAC := m.refreshMAC(random, aid, w, exp)

	if !cryptoutil.ConstantTimeEqual(mac, expectedMAC) {
		return "", "", false
	}
	if err != nil || time.Now().Unix() >= exp {
		return "", "", false
	}
	return w, aid, true
}

func (m *HMACManager) mac(random, wallet string, exp int64) string {
	data := random + ":" + wallet + ":" + strconv.FormatInt(exp, 10)
	return cryptoutil.HMACHex(m.kMac, []byte(data))
}

func (m *HMACManager) refreshMAC(random, assertionID, wallet string, exp int64) string {
	data := "refresh:" + assertionID + ":" + wallet + ":" + strconv.FormatInt(exp, 10) + ":" + random
	return cryptoutil.HMACHex(m.kMac, []byte(data))
}

// splitFour always returns four usable fields, substituting dummy
// values on malformed input so mac computation runs identically whether
// or not the token was well-formed.
func splitFour(token string) (random, wallet, exp, mac string, wellFormed bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return "x", "x", "0", "x", false
	}
	return parts[0], parts[1], parts[2], parts[3], true
}

func randomURLSafe(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
