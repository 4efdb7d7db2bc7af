package session

import (
	"context"

	"github.com/mrz1836/sigilid/internal/hub"
	"github.com/mrz1836/sigilid/internal/wallet"
)

// HubClient is the subset of the hub client the session uses.
type HubClient interface {
	Connect(ctx context.Context, w *wallet.Wallet) (*hub.Connection, error)
	FetchWalletConfig(ctx context.Context, conn *hub.Connection) (*hub.WalletConfig, error)
	GetOrCreateWalletConfig(ctx context.Context, conn *hub.Connection, w *wallet.Wallet, skipUpload bool) (*hub.WalletConfig, error)
	UpdateWalletConfig(ctx context.Context, conn *hub.Connection, cfg *hub.WalletConfig) error
}

// StateStore persists the session between runs.
type StateStore interface {
	// Load returns the stored state, or nil when nothing is stored.
	Load() (*PersistedState, error)
	Save(state *PersistedState) error
	Clear() error
}

var _ HubClient = (*hub.Client)(nil)
