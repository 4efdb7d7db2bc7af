package wallet

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/mrz1836/sigilid/internal/sigilcrypto"
	"github.com/mrz1836/sigilid/internal/wallet/addrcodec"
)

// IdentityAddressVersion is the Base58Check version of identity addresses.
const IdentityAddressVersion byte = 0x00

// Account is one derived identity of the wallet.
type Account struct {
	Index    uint32
	Username string
	Salt     string

	// StxPrivateKey controls the account address.
	StxPrivateKey *secp256k1.PrivateKey

	// DataPrivateKey is the identity key that signs auth responses.
	DataPrivateKey *secp256k1.PrivateKey
}

// AccountInfo is the public, persistable view of an account.
type AccountInfo struct {
	Index           uint32 `json:"index"`
	Username        string `json:"username,omitempty"`
	DisplayName     string `json:"display_name"`
	MainnetAddress  string `json:"mainnet_address"`
	TestnetAddress  string `json:"testnet_address"`
	IdentityAddress string `json:"identity_address"`
	DataPublicKey   string `json:"data_public_key"`
}

// Address returns the account address for a c32 version.
func (i AccountInfo) Address(version byte) string {
	if version == addrcodec.VersionTestnetSingleSig {
		return i.TestnetAddress
	}
	return i.MainnetAddress
}

// DisplayName formats the label shown for an account: the first label of
// the username when one is registered, otherwise "Account N" (1-based).
func DisplayName(index uint32, username string) string {
	if username != "" {
		if name, _, _ := strings.Cut(username, "."); name != "" {
			return name
		}
	}
	return "Account " + strconv.FormatUint(uint64(index)+1, 10)
}

// DisplayName returns the account's label.
func (a *Account) DisplayName() string {
	return DisplayName(a.Index, a.Username)
}

// StxAddress returns the c32check address of the account for version.
func (a *Account) StxAddress(version byte) (string, error) {
	return addrcodec.C32Address(version, addrcodec.Hash160(a.StxPrivateKey.PubKey().SerializeCompressed()))
}

// IdentityAddress returns the Base58Check address of the data key.
func (a *Account) IdentityAddress() string {
	return addrcodec.Base58CheckEncode(IdentityAddressVersion, addrcodec.Hash160(a.DataPublicKey()))
}

// DataPublicKey returns the compressed identity public key.
func (a *Account) DataPublicKey() []byte {
	return a.DataPrivateKey.PubKey().SerializeCompressed()
}

// DataPublicKeyHex returns DataPublicKey hex encoded.
func (a *Account) DataPublicKeyHex() string {
	return hex.EncodeToString(a.DataPublicKey())
}

// Info returns the public view of the account.
func (a *Account) Info() AccountInfo {
	mainnet, _ := a.StxAddress(addrcodec.VersionMainnetSingleSig)
	testnet, _ := a.StxAddress(addrcodec.VersionTestnetSingleSig)
	return AccountInfo{
		Index:           a.Index,
		Username:        a.Username,
		DisplayName:     a.DisplayName(),
		MainnetAddress:  mainnet,
		TestnetAddress:  testnet,
		IdentityAddress: a.IdentityAddress(),
		DataPublicKey:   a.DataPublicKeyHex(),
	}
}

// Clone returns a copy with independent key material.
func (a *Account) Clone() *Account {
	return &Account{
		Index:          a.Index,
		Username:       a.Username,
		Salt:           a.Salt,
		StxPrivateKey:  clonePrivKey(a.StxPrivateKey),
		DataPrivateKey: clonePrivKey(a.DataPrivateKey),
	}
}

// Wipe zeroes the account's private keys.
func (a *Account) Wipe() {
	if a.StxPrivateKey != nil {
		a.StxPrivateKey.Zero()
	}
	if a.DataPrivateKey != nil {
		a.DataPrivateKey.Zero()
	}
}

func clonePrivKey(k *secp256k1.PrivateKey) *secp256k1.PrivateKey {
	if k == nil {
		return nil
	}
	raw := k.Serialize()
	defer sigilcrypto.Zero(raw)
	return secp256k1.PrivKeyFromBytes(raw)
}
