package dpop

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"
)

// signingMethodES256K implements jwt.SigningMethod for secp256k1-signed
// JWTs (JWS alg "ES256K", RFC 8812: ECDSA over secp256k1 with SHA-256),
// which golang-jwt does not ship. It reuses go-ethereum's secp256k1
// verification rather than vendoring a separate curve implementation,
// matching how signature recovery is done elsewhere in this codebase.
type signingMethodES256K struct{}

// SigningMethodES256K is registered under jwt.GetSigningMethod("ES256K")
// so DPoP proofs using a wallet-style secp256k1 key verify the same way
// ES256/EdDSA proofs do.
var SigningMethodES256K = &signingMethodES256K{}

func init() {
	jwt.RegisterSigningMethod("ES256K", func() jwt.SigningMethod {
		return SigningMethodES256K
	})
}

func (m *signingMethodES256K) Alg() string { return "ES256K" }

// Verify checks sig (raw r||s, 64 bytes) against signingString's SHA-256
// digest using the secp256k1 public key in key.
func (m *signingMethodES256K) Verify(signingString string, sig []byte, key interface{}) error {
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return errors.New("dpop: ES256K verify expects an *ecdsa.PublicKey")
	}
	if len(sig) != 64 {
		return errors.New("dpop: ES256K signature must be 64 bytes (r||s)")
	}

	hash := sha256.Sum256([]byte(signingString))
	pubBytes := ethcrypto.FromECDSAPub(pub)
	if !ethcrypto.VerifySignature(pubBytes, hash[:], sig) {
		return errors.New("dpop: ES256K signature verification failed")
	}
	return nil
}

// Sign is implemented only so signingMethodES256K satisfies
// jwt.SigningMethod; this codebase never mints ES256K tokens itself,
// only verifies client-presented DPoP proofs.
func (m *signingMethodES256K) Sign(signingString string, key interface{}) ([]byte, error) {
	priv, ok := key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, errors.New("dpop: ES256K sign expects an *ecdsa.PrivateKey")
	}
	hash := sha256.Sum256([]byte(signingString))
	sig, err := ethcrypto.Sign(hash[:], priv)
	if err != nil {
		return nil, err
	}
	return sig[:64], nil
}
