// Package sigilcrypto wraps the cryptographic primitives the wallet consumes:
// password encryption of the master secret, secure randomness and
// zeroable memory for key material.
package sigilcrypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"filippo.io/age"
)

// ErrEmptyCiphertext indicates there was nothing to decrypt.
var ErrEmptyCiphertext = errors.New("ciphertext is empty")

// scryptWorkFactor overrides the age default (log2 N = 18) when non-zero.
//
//nolint:gochecknoglobals // Process-wide tuning knob, lowered in tests
var scryptWorkFactor atomic.Int32

// SetScryptWorkFactor sets the scrypt work factor (log2 N) used for new
// ciphertexts. Zero restores the age default. Decryption accepts any factor
// up to the age maximum.
func SetScryptWorkFactor(logN int) {
	scryptWorkFactor.Store(int32(logN)) //nolint:gosec // G115: small configuration value
}

// Encrypt encrypts plaintext using age with a password-based recipient.
func Encrypt(plaintext []byte, password string) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if wf := scryptWorkFactor.Load(); wf > 0 {
		recipient.SetWorkFactor(int(wf))
	}

	buf := &bytes.Buffer{}
	w, err := age.Encrypt(buf, recipient)
	if err != nil {
		return nil, fmt.Errorf("initializing encryption: %w", err)
	}

	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing encrypted data: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing encryption: %w", err)
	}

	return buf.Bytes(), nil
}

// Decrypt decrypts ciphertext using age with a password-based identity.
func Decrypt(ciphertext []byte, password string) ([]byte, error) {
	if len(ciphertext) == 0 {
		return nil, ErrEmptyCiphertext
	}

	identity, err := age.NewScryptIdentity(password)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("initializing decryption: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted data: %w", err)
	}

	return plaintext, nil
}

// EncryptHex encrypts plaintext and returns the ciphertext hex-encoded,
// the persisted form of an encrypted secret key.
func EncryptHex(plaintext []byte, password string) (string, error) {
	ciphertext, err := Encrypt(plaintext, password)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ciphertext), nil
}

// DecryptHex decodes a hex ciphertext produced by EncryptHex and decrypts it
// into SecureBytes. The caller owns the result and must Destroy it.
func DecryptHex(blob, password string) (*SecureBytes, error) {
	ciphertext, err := hex.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}
	return DecryptSecure(ciphertext, password)
}

// EncryptSecure encrypts SecureBytes using age with a password-based recipient.
func EncryptSecure(sb *SecureBytes, password string) ([]byte, error) {
	data := sb.Bytes()
	if data == nil {
		return nil, nil
	}
	return Encrypt(data, password)
}

// DecryptSecure decrypts ciphertext into SecureBytes.
func DecryptSecure(ciphertext []byte, password string) (*SecureBytes, error) {
	plaintext, err := Decrypt(ciphertext, password)
	if err != nil {
		return nil, err
	}

	// Ensure plaintext is zeroed on all paths including errors
	defer Zero(plaintext)

	return SecureBytesFromSlice(plaintext)
}
