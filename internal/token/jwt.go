package token

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Alg identifies which asymmetric signing algorithm a JWTManager uses.
// HS256 and "none" are never valid values here.
type Alg string

const (
	AlgES256 Alg = "ES256"
	AlgEdDSA Alg = "EdDSA"
)

// wcsapClaims extends the standard registered claims with the
// W-CSAP-specific confirmation (DPoP binding) and scope fields.
type wcsapClaims struct {
	jwt.RegisteredClaims
	Scope         string                 `json:"scope,omitempty"`
	WalletAddress string                 `json:"wallet_address,omitempty"`
	AssertionID   string                 `json:"assertion_id,omitempty"`
	Confirmation  map[string]interface{} `json:"cnf,omitempty"`
}

// JWTManager issues and verifies standard-claims JWTs signed with
// ES256 or EdDSA. HMAC algorithms and "none" are rejected unconditionally
// since jwt.ParseWithClaims's keyFunc below never hands back an HMAC key.
type JWTManager struct {
	alg        Alg
	keyID      string
	signingKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	refresh    *HMACManager // refresh tokens stay opaque-HMAC in both modes
}

// NewJWTManager builds a JWTManager. signingKey must be *ecdsa.PrivateKey
// (for AlgES256) or ed25519.PrivateKey (for AlgEdDSA).
func NewJWTManager(alg Alg, keyID string, signingKey crypto.Signer, issuer, audience string, refreshKey []byte) (*JWTManager, error) {
	var pub crypto.PublicKey
	switch alg {
	case AlgES256:
		key, ok := signingKey.(*ecdsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("token: ES256 manager requires an *ecdsa.PrivateKey")
		}
		pub = &key.PublicKey
	case AlgEdDSA:
		key, ok := signingKey.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("token: EdDSA manager requires an ed25519.PrivateKey")
		}
		pub = key.Public()
	default:
		return nil, fmt.Errorf("token: unsupported algorithm %q", alg)
	}

	return &JWTManager{
		alg:        alg,
		keyID:      keyID,
		signingKey: signingKey,
		publicKey:  pub,
		issuer:     issuer,
		audience:   audience,
		refresh:    NewHMACManager(refreshKey),
	}, nil
}

func (m *JWTManager) signingMethod() jwt.SigningMethod {
	if m.alg == AlgEdDSA {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodES256
}

func (m *JWTManager) Issue(p IssueParams) (*Issued, error) {
	now := time.Now()
	exp := now.Add(p.TTL)

	jti, err := randomHexID()
	if err != nil {
		return nil, fmt.Errorf("token: failed to generate jti: %w", err)
	}

	claims := wcsapClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   p.WalletAddress,
			Audience:  jwt.ClaimStrings{m.audience},
			ExpiresAt: jwt.NewNumericDate(exp),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        jti,
		},
		Scope:         p.Scope,
		WalletAddress: p.WalletAddress,
		AssertionID:   p.AssertionID,
	}
	if p.JKT != "" {
		claims.Confirmation = map[string]interface{}{"jkt": p.JKT}
	}

	tok := jwt.NewWithClaims(m.signingMethod(), claims)
	tok.Header["kid"] = m.keyID

	signed, err := tok.SignedString(m.signingKey)
	if err != nil {
		return nil, fmt.Errorf("token: failed to sign jwt: %w", err)
	}

	refreshExp := now.Add(p.RefreshTTL).Unix()
	refreshToken, err := m.refresh.issueRefresh(p.AssertionID, p.WalletAddress, refreshExp)
	if err != nil {
		return nil, err
	}

	return &Issued{
		SessionToken: signed,
		RefreshToken: refreshToken,
		ExpiresAt:    exp.Unix(),
		ExpiresIn:    int64(p.TTL.Seconds()),
	}, nil
}

// Verify validates signature, iss, aud, exp, nbf, iat. Unknown alg,
// HMAC algorithms, and "none" are rejected by construction: the keyFunc
// only ever returns a key for the manager's own asymmetric method.
func (m *JWTManager) Verify(sessionToken string) (*Claims, bool) {
	parsed, err := jwt.ParseWithClaims(sessionToken, &wcsapClaims{}, func(tok *jwt.Token) (interface{}, error) {
		if tok.Method.Alg() != m.signingMethod().Alg() {
			return nil, fmt.Errorf("token: unexpected signing method %s", tok.Method.Alg())
		}
		return m.publicKey, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil || !parsed.Valid {
		return nil, false
	}

	claims, ok := parsed.Claims.(*wcsapClaims)
	if !ok {
		return nil, false
	}

	jkt := ""
	if claims.Confirmation != nil {
		if v, ok := claims.Confirmation["jkt"].(string); ok {
			jkt = v
		}
	}

	exp := int64(0)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Unix()
	}

	return &Claims{
		WalletAddress: claims.WalletAddress,
		ExpiresAt:     exp,
		ExpiresIn:     exp - time.Now().Unix(),
		AssertionID:   claims.AssertionID,
		Scope:         claims.Scope,
		JKT:           jkt,
	}, true
}

func (m *JWTManager) VerifyRefresh(refreshToken string) (wallet, assertionID string, ok bool) {
	return m.refresh.VerifyRefresh(refreshToken)
}

// ValidFormat reports whether sessionToken parses structurally as a
// JWT. Signature and claims are not checked, so an expired token still
// passes, a malformed one does not.
func (m *JWTManager) ValidFormat(sessionToken string) bool {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	_, _, err := parser.ParseUnverified(sessionToken, &wcsapClaims{})
	return err == nil
}

// JWK is this manager's public key in JSON Web Key form, for JWKS
// publication to sibling services doing remote verification.
func (m *JWTManager) JWK() (map[string]interface{}, error) {
	switch m.alg {
	case AlgES256:
		pub := m.publicKey.(*ecdsa.PublicKey)
		return map[string]interface{}{
			"kty": "EC",
			"crv": "P-256",
			"x":   b64URL(pub.X.Bytes()),
			"y":   b64URL(pub.Y.Bytes()),
			"use": "sig",
			"alg": string(AlgES256),
			"kid": m.keyID,
		}, nil
	case AlgEdDSA:
		pub := m.publicKey.(ed25519.PublicKey)
		return map[string]interface{}{
			"kty": "OKP",
			"crv": "Ed25519",
			"x":   b64URL(pub),
			"use": "sig",
			"alg": string(AlgEdDSA),
			"kid": m.keyID,
		}, nil
	default:
		return nil, fmt.Errorf("token: unsupported algorithm %q", m.alg)
	}
}

func randomHexID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func b64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
