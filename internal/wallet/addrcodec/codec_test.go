package addrcodec

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestHash160(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty input",
			input:    "",
			expected: "b472a266d0bd89c13706a4132ccfb16f7c3b9fcb",
		},
		{
			name:     "generator point public key",
			input:    "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798",
			expected: "751e76e8199196d454941c45d1b3a323f1433bd6",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := Hash160(mustHex(t, tc.input))
			assert.Equal(t, tc.expected, hex.EncodeToString(result))
			assert.Len(t, result, 20)
		})
	}
}

func TestBase58CheckEncode_IdentityAddress(t *testing.T) {
	hash := mustHex(t, "751e76e8199196d454941c45d1b3a323f1433bd6")
	addr := Base58CheckEncode(0x00, hash)
	assert.Equal(t, "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH", addr)

	version, payload, err := Base58CheckDecode(addr)
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), version)
	assert.Equal(t, hash, payload)
}

func TestBase58CheckDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"empty", "", ErrInvalidBase58},
		{"invalid character", "0OIl", ErrInvalidBase58},
		{"too short", "1", ErrInvalidBase58},
		{"bad checksum", "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMJ", ErrChecksumMismatch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Base58CheckDecode(tc.input)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestBase58Check_LeadingZeros(t *testing.T) {
	payload := []byte{0, 0, 1, 2, 3}
	addr := Base58CheckEncode(0x00, payload)
	assert.Equal(t, "111", addr[:3])

	version, dec, err := Base58CheckDecode(addr)
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), version)
	assert.Equal(t, payload, dec)
}

func TestC32Encode(t *testing.T) {
	assert.Equal(t, "MHQZH246RBQSERPSE2TD5HHPF21NQMWX",
		C32Encode(mustHex(t, "a46ff88886c2ef9762d970b4d2c63678835bd39d")))
	assert.Equal(t, "38CNP6RVS0EXQQ4V34", C32Encode([]byte("hello world")))
	assert.Empty(t, C32Encode(nil))
}

func TestC32_RoundTripKeepsLeadingZeros(t *testing.T) {
	data := []byte{0, 0, 0xff, 0x10}
	enc := C32Encode(data)
	assert.Equal(t, "00", enc[:2])

	dec, err := C32Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, data, dec)
}

func TestC32Address(t *testing.T) {
	hash := mustHex(t, "a46ff88886c2ef9762d970b4d2c63678835bd39d")

	mainnet, err := C32Address(VersionMainnetSingleSig, hash)
	require.NoError(t, err)
	assert.Equal(t, "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", mainnet)

	testnet, err := C32Address(VersionTestnetSingleSig, hash)
	require.NoError(t, err)
	assert.Equal(t, "ST", testnet[:2])

	version, decoded, err := ParseC32Address(testnet)
	require.NoError(t, err)
	assert.Equal(t, VersionTestnetSingleSig, version)
	assert.Equal(t, hash, decoded)
}

func TestC32Address_InvalidVersion(t *testing.T) {
	_, err := C32Address(32, make([]byte, 20))
	require.ErrorIs(t, err, ErrInvalidVersion)
}

func TestParseC32Address_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		err   error
	}{
		{"empty", "", ErrInvalidC32},
		{"wrong prefix", "XP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", ErrInvalidC32},
		{"bad character", "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJU", ErrInvalidC32},
		{"bad checksum", "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ8", ErrChecksumMismatch},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseC32Address(tc.input)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestParseC32Address_Normalizes(t *testing.T) {
	version, _, err := ParseC32Address("sp2j6zy48gv1ez5v2v5rb9mp66sw86pykknrv9ej7")
	require.NoError(t, err)
	assert.Equal(t, VersionMainnetSingleSig, version)
}
