package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/hdkeychain/v3"

	"github.com/mrz1836/sigilid/internal/sigilcrypto"
)

// Derivation paths. %d is the account index.
const (
	StxPathTemplate      = "m/44'/5757'/0'/0/%d"
	IdentityPathTemplate = "m/888'/0'/%d'"
	IdentitiesRootPath   = "m/888'/0'"
	WalletConfigPath     = "m/44/5757'/0'/1"
)

// MaxAccounts bounds account derivation to the non-hardened index range.
const MaxAccounts = hdkeychain.HardenedKeyStart - 1

var (
	// ErrInvalidPath indicates a derivation path that cannot be parsed.
	ErrInvalidPath = errors.New("invalid derivation path")

	// ErrIndexOutOfRange indicates an account index above MaxAccounts.
	ErrIndexOutOfRange = errors.New("account index out of range")
)

// hdNetParams satisfies hdkeychain.NetworkParams for BIP32 key derivation.
// Uses standard Bitcoin mainnet HD version bytes.
type hdNetParams struct{}

func (hdNetParams) HDPrivKeyVersion() [4]byte { return [4]byte{0x04, 0x88, 0xAD, 0xE4} }
func (hdNetParams) HDPubKeyVersion() [4]byte  { return [4]byte{0x04, 0x88, 0xB2, 0x1E} }

// ParsePath parses "m/44'/5757'/0'/0/1" into child indices. A trailing ' or h
// marks a hardened index.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	indices := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		if hardened {
			part = part[:len(part)-1]
		}
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil || n >= hdkeychain.HardenedKeyStart {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
		idx := uint32(n)
		if hardened {
			idx += hdkeychain.HardenedKeyStart
		}
		indices = append(indices, idx)
	}
	return indices, nil
}

// rootKey builds the BIP32 master key of a master secret phrase.
func rootKey(secret []byte) (*hdkeychain.ExtendedKey, error) {
	seed, err := seedFromSecret(secret)
	if err != nil {
		return nil, err
	}
	defer sigilcrypto.Zero(seed)

	master, err := hdkeychain.NewMaster(seed, hdNetParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	return master, nil
}

// deriveKey walks path from root and returns the private key at its end.
func deriveKey(root *hdkeychain.ExtendedKey, path string) (*secp256k1.PrivateKey, error) {
	key, err := deriveExtended(root, path)
	if err != nil {
		return nil, err
	}
	defer key.Zero()

	serialized, err := key.SerializedPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize private key: %w", err)
	}
	priv := secp256k1.PrivKeyFromBytes(serialized)
	sigilcrypto.Zero(serialized)
	return priv, nil
}

func deriveExtended(root *hdkeychain.ExtendedKey, path string) (*hdkeychain.ExtendedKey, error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	key := root
	for i, idx := range indices {
		child, err := key.ChildBIP32Std(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to derive %s at depth %d: %w", path, i+1, err)
		}
		if key != root {
			key.Zero()
		}
		key = child
	}
	return key, nil
}

// walletSalt returns hex(sha256(hex(pubkey at m/888'/0'))).
func walletSalt(root *hdkeychain.ExtendedKey) (string, error) {
	key, err := deriveExtended(root, IdentitiesRootPath)
	if err != nil {
		return "", err
	}
	defer key.Zero()

	sum := sha256.Sum256([]byte(hex.EncodeToString(key.SerializedPubKey())))
	return hex.EncodeToString(sum[:]), nil
}

func deriveAccountFromRoot(root *hdkeychain.ExtendedKey, salt string, index uint32) (*Account, error) {
	if index > MaxAccounts {
		return nil, ErrIndexOutOfRange
	}

	stxKey, err := deriveKey(root, fmt.Sprintf(StxPathTemplate, index))
	if err != nil {
		return nil, err
	}
	dataKey, err := deriveKey(root, fmt.Sprintf(IdentityPathTemplate, index))
	if err != nil {
		stxKey.Zero()
		return nil, err
	}

	return &Account{
		Index:          index,
		Salt:           salt,
		StxPrivateKey:  stxKey,
		DataPrivateKey: dataKey,
	}, nil
}

// DeriveAccount derives the account at index from a master secret phrase.
// The result depends only on its inputs.
func DeriveAccount(secret []byte, index uint32) (*Account, error) {
	root, err := rootKey(secret)
	if err != nil {
		return nil, err
	}
	defer root.Zero()

	salt, err := walletSalt(root)
	if err != nil {
		return nil, err
	}
	return deriveAccountFromRoot(root, salt, index)
}

// DeriveConfigKey derives the wallet config key used to address the
// wallet's hub storage.
func DeriveConfigKey(secret []byte) (*secp256k1.PrivateKey, error) {
	root, err := rootKey(secret)
	if err != nil {
		return nil, err
	}
	defer root.Zero()
	return deriveKey(root, WalletConfigPath)
}
