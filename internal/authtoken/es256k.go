// Package authtoken signs and verifies compact JWTs with ES256K
// (ECDSA over secp256k1 with SHA-256), the algorithm used by auth
// requests, auth responses and hub tokens.
package authtoken

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/golang-jwt/jwt/v5"
)

// Alg is the JOSE algorithm name.
const Alg = "ES256K"

const signatureSize = 64

// ErrInvalidPublicKey indicates a public key that cannot be parsed.
var ErrInvalidPublicKey = errors.New("invalid secp256k1 public key")

// SigningMethodES256K implements jwt.SigningMethod for secp256k1 keys.
type SigningMethodES256K struct{}

// ES256K is the registered signing method instance.
//
//nolint:gochecknoglobals // jwt signing methods are registered singletons
var ES256K = &SigningMethodES256K{}

//nolint:gochecknoinits // jwt resolves algorithms through its registry
func init() {
	jwt.RegisterSigningMethod(Alg, func() jwt.SigningMethod { return ES256K })
}

// Alg returns the algorithm name.
func (*SigningMethodES256K) Alg() string { return Alg }

// Sign signs signingString with a *secp256k1.PrivateKey and returns the
// 64-byte R||S signature.
func (*SigningMethodES256K) Sign(signingString string, key any) ([]byte, error) {
	priv, ok := key.(*secp256k1.PrivateKey)
	if !ok {
		return nil, jwt.ErrInvalidKeyType
	}

	hash := sha256.Sum256([]byte(signingString))
	compact := ecdsa.SignCompact(priv, hash[:], true)
	// Drop the recovery byte.
	return compact[1:], nil
}

// Verify checks an R||S signature against a *secp256k1.PublicKey.
func (*SigningMethodES256K) Verify(signingString string, sig []byte, key any) error {
	pub, ok := key.(*secp256k1.PublicKey)
	if !ok {
		return jwt.ErrInvalidKeyType
	}
	if len(sig) != signatureSize {
		return jwt.ErrSignatureInvalid
	}

	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(sig[:32]); overflow {
		return jwt.ErrSignatureInvalid
	}
	if overflow := s.SetByteSlice(sig[32:]); overflow {
		return jwt.ErrSignatureInvalid
	}

	hash := sha256.Sum256([]byte(signingString))
	if !ecdsa.NewSignature(&r, &s).Verify(hash[:], pub) {
		return jwt.ErrSignatureInvalid
	}
	return nil
}

// Sign returns the compact serialization of claims signed with key.
func Sign(claims jwt.Claims, key *secp256k1.PrivateKey) (string, error) {
	token := jwt.NewWithClaims(ES256K, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses token into claims and checks its ES256K signature against
// pub. opts are added to the parser, e.g. jwt.WithTimeFunc.
func Verify(token string, claims jwt.Claims, pub *secp256k1.PublicKey, opts ...jwt.ParserOption) error {
	opts = append([]jwt.ParserOption{jwt.WithValidMethods([]string{Alg})}, opts...)
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return pub, nil
	}, opts...)
	return err
}

// ParseUnverified decodes token into claims without checking the signature.
func ParseUnverified(token string, claims jwt.Claims) error {
	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	return err
}

// ParsePublicKeyHex parses a hex encoded compressed or uncompressed key.
func ParsePublicKeyHex(s string) (*secp256k1.PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPublicKey, err)
	}
	return pub, nil
}
