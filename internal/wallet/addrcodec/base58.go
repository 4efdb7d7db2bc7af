// Package addrcodec encodes public key hashes into the address formats
// used by the wallet: Base58Check identity addresses and c32check
// account addresses.
package addrcodec

import (
	"crypto/sha256"
	"errors"

	"github.com/btcsuite/btcutil/base58"
	//nolint:gosec,staticcheck // G507,SA1019: RIPEMD160 is part of the address format
	"golang.org/x/crypto/ripemd160"
)

var (
	// ErrInvalidBase58 indicates invalid Base58 encoding.
	ErrInvalidBase58 = errors.New("invalid Base58 encoding")

	// ErrChecksumMismatch indicates the trailing checksum did not verify.
	ErrChecksumMismatch = errors.New("address checksum mismatch")
)

// Hash160 computes RIPEMD160(SHA256(data)).
//
//nolint:gosec // G406: RIPEMD160 is part of the address format
func Hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}

// DoubleSHA256 computes SHA256(SHA256(data)).
func DoubleSHA256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// Base58CheckEncode encodes payload with a version byte and checksum.
func Base58CheckEncode(version byte, payload []byte) string {
	return base58.CheckEncode(payload, version)
}

// Base58CheckDecode decodes a Base58Check string, verifies the checksum and
// returns the version byte and payload.
func Base58CheckDecode(s string) (byte, []byte, error) {
	payload, version, err := base58.CheckDecode(s)
	switch {
	case errors.Is(err, base58.ErrChecksum):
		return 0, nil, ErrChecksumMismatch
	case err != nil:
		return 0, nil, ErrInvalidBase58
	}
	return version, payload, nil
}
