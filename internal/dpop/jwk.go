package dpop

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// parseJWKPublicKey converts a JWK (decoded from a DPoP proof header) to
// a Go public key usable with the matching jwt.SigningMethod.
func parseJWKPublicKey(jwk map[string]interface{}) (interface{}, error) {
	kty, _ := jwk["kty"].(string)
	switch kty {
	case "EC":
		return parseECJWK(jwk)
	case "OKP":
		return parseOKPJWK(jwk)
	default:
		return nil, fmt.Errorf("dpop: unsupported jwk kty %q", kty)
	}
}

func parseECJWK(jwk map[string]interface{}) (*ecdsa.PublicKey, error) {
	crv, _ := jwk["crv"].(string)
	x, err := decodeCoord(jwk, "x")
	if err != nil {
		return nil, err
	}
	y, err := decodeCoord(jwk, "y")
	if err != nil {
		return nil, err
	}

	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "secp256k1":
		curve = ethcrypto.S256()
	default:
		return nil, fmt.Errorf("dpop: unsupported EC curve %q", crv)
	}

	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}

func parseOKPJWK(jwk map[string]interface{}) (ed25519.PublicKey, error) {
	crv, _ := jwk["crv"].(string)
	if crv != "Ed25519" {
		return nil, fmt.Errorf("dpop: unsupported OKP curve %q", crv)
	}
	xStr, ok := jwk["x"].(string)
	if !ok {
		return nil, fmt.Errorf("dpop: OKP jwk missing x")
	}
	raw, err := base64.RawURLEncoding.DecodeString(xStr)
	if err != nil {
		return nil, fmt.Errorf("dpop: invalid OKP x coordinate: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("dpop: ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

func decodeCoord(jwk map[string]interface{}, field string) (*big.Int, error) {
	s, ok := jwk[field].(string)
	if !ok {
		return nil, fmt.Errorf("dpop: jwk missing %s", field)
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("dpop: invalid %s coordinate: %w", field, err)
	}
	return new(big.Int).SetBytes(raw), nil
}

// jwkThumbprint computes the RFC 7638 thumbprint: base64url(SHA-256(canonical
// JSON)), with members in lexicographic order and no whitespace.
func jwkThumbprint(jwk map[string]interface{}) (string, error) {
	kty, _ := jwk["kty"].(string)

	var canonical map[string]string
	switch kty {
	case "EC":
		crv, _ := jwk["crv"].(string)
		x, _ := jwk["x"].(string)
		y, _ := jwk["y"].(string)
		if crv == "" || x == "" || y == "" {
			return "", fmt.Errorf("dpop: EC jwk missing crv/x/y")
		}
		canonical = map[string]string{"crv": crv, "kty": kty, "x": x, "y": y}
	case "OKP":
		crv, _ := jwk["crv"].(string)
		x, _ := jwk["x"].(string)
		if crv == "" || x == "" {
			return "", fmt.Errorf("dpop: OKP jwk missing crv/x")
		}
		canonical = map[string]string{"crv": crv, "kty": kty, "x": x}
	default:
		return "", fmt.Errorf("dpop: unsupported jwk kty %q", kty)
	}

	// encoding/json marshals map[string]string keys in sorted order,
	// which matches RFC 7638's required lexicographic member ordering.
	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("dpop: failed to marshal canonical jwk: %w", err)
	}
	sum := sha256.Sum256(data)
	return base64.RawURLEncoding.EncodeToString(sum[:]), nil
}
