package auth

import (
	"context"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/mrz1836/sigilid/internal/hub"
	"github.com/mrz1836/sigilid/internal/session"
	"github.com/mrz1836/sigilid/internal/wallet"
)

// HubClient is the subset of the hub client the handshake uses.
type HubClient interface {
	Connect(ctx context.Context, w *wallet.Wallet) (*hub.Connection, error)
	GetOrCreateWalletConfig(ctx context.Context, conn *hub.Connection, w *wallet.Wallet, skipUpload bool) (*hub.WalletConfig, error)
	UpdateWalletConfig(ctx context.Context, conn *hub.Connection, cfg *hub.WalletConfig) error
}

// Signer signs response claims with an account's identity key.
type Signer interface {
	Sign(claims jwt.Claims, key *secp256k1.PrivateKey) (string, error)
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(claims jwt.Claims, key *secp256k1.PrivateKey) (string, error)

// Sign calls f.
func (f SignerFunc) Sign(claims jwt.Claims, key *secp256k1.PrivateKey) (string, error) {
	return f(claims, key)
}

// SessionStore is the session view FinishSignIn needs.
type SessionStore interface {
	// Wallet returns a private copy of the signed-in wallet.
	Wallet() (*wallet.Wallet, error)
	SelectAccount(index int) (session.Snapshot, error)
}

var (
	_ HubClient    = (*hub.Client)(nil)
	_ SessionStore = (*session.Manager)(nil)
)
