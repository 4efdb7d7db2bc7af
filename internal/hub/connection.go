package hub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mrz1836/sigilid/internal/authtoken"
	"github.com/mrz1836/sigilid/internal/sigilcrypto"
	"github.com/mrz1836/sigilid/internal/wallet"
	"github.com/mrz1836/sigilid/internal/wallet/addrcodec"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// tokenPrefix versions the hub auth token.
const tokenPrefix = "v1:"

// Connection is an authenticated view of one wallet's storage bucket.
type Connection struct {
	// URL is the hub server that accepts writes.
	URL string

	// ReadURLPrefix is prepended to "<address>/<path>" for reads.
	ReadURLPrefix string

	// Address identifies the bucket; derived from the wallet config key.
	Address string

	// Token authorizes writes.
	Token string

	// configSecret encrypts the wallet config at rest on the hub.
	configSecret string
}

// BucketAddress returns the storage address for a wallet config key.
func BucketAddress(key *secp256k1.PrivateKey) string {
	return addrcodec.Base58CheckEncode(wallet.IdentityAddressVersion,
		addrcodec.Hash160(key.PubKey().SerializeCompressed()))
}

// Connect fetches the hub description and signs a write token with the
// wallet config key.
func (c *Client) Connect(ctx context.Context, w *wallet.Wallet) (*Connection, error) {
	if w == nil || w.ConfigPrivateKey == nil {
		return nil, sigilerr.ErrNotAuthenticated
	}

	info, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}

	token, err := c.makeToken(info.ChallengeText, w.ConfigPrivateKey)
	if err != nil {
		return nil, sigilerr.WithCause(sigilerr.ErrRemoteStorage, err)
	}

	return &Connection{
		URL:           c.url,
		ReadURLPrefix: info.ReadURLPrefix,
		Address:       BucketAddress(w.ConfigPrivateKey),
		Token:         token,
		configSecret:  configSecret(w.ConfigPrivateKey),
	}, nil
}

func (c *Client) makeToken(challenge string, key *secp256k1.PrivateKey) (string, error) {
	if challenge == "" {
		return "", errors.New("hub did not provide a challenge")
	}

	salt, err := sigilcrypto.RandomBytes(16)
	if err != nil {
		return "", fmt.Errorf("generating token salt: %w", err)
	}

	signed, err := authtoken.Sign(jwt.MapClaims{
		"gaiaChallenge": challenge,
		"hubUrl":        c.url,
		"iss":           hex.EncodeToString(key.PubKey().SerializeCompressed()),
		"salt":          hex.EncodeToString(salt),
	}, key)
	if err != nil {
		return "", err
	}
	return tokenPrefix + signed, nil
}

// configSecret derives the passphrase protecting the wallet config.
func configSecret(key *secp256k1.PrivateKey) string {
	raw := key.Serialize()
	defer sigilcrypto.Zero(raw)

	h := sha256.New()
	h.Write([]byte("wallet-config"))
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil))
}
