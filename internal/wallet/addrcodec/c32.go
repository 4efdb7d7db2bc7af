package addrcodec

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
)

// Crockford-style alphabet used by c32check.
const c32Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// Account address versions.
const (
	VersionMainnetSingleSig byte = 22 // "SP" prefix
	VersionTestnetSingleSig byte = 26 // "ST" prefix
)

var (
	// ErrInvalidC32 indicates the string is not valid c32 text.
	ErrInvalidC32 = errors.New("invalid c32 encoding")

	// ErrInvalidVersion indicates a version outside the 5-bit range.
	ErrInvalidVersion = errors.New("c32 version must be below 32")
)

// C32Encode encodes data as c32. Each leading zero byte is kept as a
// leading '0' character.
func C32Encode(data []byte) string {
	var zeros int
	for zeros < len(data) && data[zeros] == 0 {
		zeros++
	}

	n := new(big.Int).SetBytes(data)
	base := big.NewInt(32)
	mod := new(big.Int)

	var digits []byte
	for n.Sign() > 0 {
		n.DivMod(n, base, mod)
		digits = append(digits, c32Alphabet[mod.Int64()])
	}
	for i := 0; i < zeros; i++ {
		digits = append(digits, '0')
	}

	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}

// C32Decode decodes c32 text. Input is normalized first, so lower case
// and the ambiguous letters O, L and I are accepted.
func C32Decode(s string) ([]byte, error) {
	s = c32Normalize(s)
	if s == "" {
		return nil, ErrInvalidC32
	}

	zeros := 0
	for zeros < len(s) && s[zeros] == '0' {
		zeros++
	}

	n := new(big.Int)
	base := big.NewInt(32)
	for i := zeros; i < len(s); i++ {
		v := strings.IndexByte(c32Alphabet, s[i])
		if v < 0 {
			return nil, ErrInvalidC32
		}
		n.Mul(n, base)
		n.Add(n, big.NewInt(int64(v)))
	}

	body := n.Bytes()
	out := make([]byte, zeros+len(body))
	copy(out[zeros:], body)
	return out, nil
}

// C32CheckEncode encodes data with a version and a four byte checksum.
func C32CheckEncode(version byte, data []byte) (string, error) {
	if version >= 32 {
		return "", ErrInvalidVersion
	}

	checked := make([]byte, 0, 1+len(data))
	checked = append(checked, version)
	checked = append(checked, data...)
	sum := DoubleSHA256(checked)[:4]

	payload := make([]byte, 0, len(data)+4)
	payload = append(payload, data...)
	payload = append(payload, sum...)

	return string(c32Alphabet[version]) + C32Encode(payload), nil
}

// C32CheckDecode reverses C32CheckEncode.
func C32CheckDecode(s string) (byte, []byte, error) {
	s = c32Normalize(s)
	if len(s) < 2 {
		return 0, nil, ErrInvalidC32
	}

	v := strings.IndexByte(c32Alphabet, s[0])
	if v < 0 {
		return 0, nil, ErrInvalidC32
	}
	version := byte(v)

	payload, err := C32Decode(s[1:])
	if err != nil {
		return 0, nil, err
	}
	if len(payload) < 4 {
		return 0, nil, ErrInvalidC32
	}

	data := payload[:len(payload)-4]
	checked := make([]byte, 0, 1+len(data))
	checked = append(checked, version)
	checked = append(checked, data...)
	if !bytes.Equal(payload[len(payload)-4:], DoubleSHA256(checked)[:4]) {
		return 0, nil, ErrChecksumMismatch
	}
	return version, data, nil
}

// C32Address builds an account address ("S" + c32check) from a hash160.
func C32Address(version byte, hash160 []byte) (string, error) {
	enc, err := C32CheckEncode(version, hash160)
	if err != nil {
		return "", err
	}
	return "S" + enc, nil
}

// ParseC32Address returns the version and hash160 carried by an account address.
func ParseC32Address(addr string) (byte, []byte, error) {
	if len(addr) < 2 || (addr[0] != 'S' && addr[0] != 's') {
		return 0, nil, ErrInvalidC32
	}
	version, data, err := C32CheckDecode(addr[1:])
	if err != nil {
		return 0, nil, err
	}
	if len(data) != 20 {
		return 0, nil, ErrInvalidC32
	}
	return version, data, nil
}

func c32Normalize(s string) string {
	s = strings.ToUpper(s)
	return strings.NewReplacer("O", "0", "L", "1", "I", "1").Replace(s)
}
