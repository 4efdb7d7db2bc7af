package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mrz1836/sigilid/internal/sigilcrypto"
	"github.com/mrz1836/sigilid/internal/wallet"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// WalletConfigPath is the hub path of the encrypted wallet config.
const WalletConfigPath = "wallet-config.json"

// App is an application the user has signed in to.
type App struct {
	Origin      string   `json:"origin"`
	Scopes      []string `json:"scopes"`
	LastLoginAt int64    `json:"lastLoginAt"`
	AppIcon     string   `json:"appIcon"`
	Name        string   `json:"name"`
}

// ConfigIdentity is the hub record of one account.
type ConfigIdentity struct {
	Username string         `json:"username,omitempty"`
	Address  string         `json:"address"`
	Apps     map[string]App `json:"apps"`
}

// WalletConfig is the wallet's app-registration config kept on the hub.
// Identities are index-aligned with the wallet's accounts.
type WalletConfig struct {
	Identities []ConfigIdentity `json:"identities"`
}

// NewWalletConfig builds a config with one identity per account.
func NewWalletConfig(accounts []wallet.AccountInfo) *WalletConfig {
	cfg := &WalletConfig{}
	cfg.SyncIdentities(accounts)
	return cfg
}

// SyncIdentities appends identities for accounts the config does not know
// yet and refreshes username and address of the rest. Registered apps are
// kept.
func (w *WalletConfig) SyncIdentities(accounts []wallet.AccountInfo) {
	for _, a := range accounts {
		idx := int(a.Index)
		for len(w.Identities) <= idx {
			w.Identities = append(w.Identities, ConfigIdentity{Apps: map[string]App{}})
		}
		id := &w.Identities[idx]
		id.Address = a.MainnetAddress
		if a.Username != "" {
			id.Username = a.Username
		}
		if id.Apps == nil {
			id.Apps = map[string]App{}
		}
	}
}

// RegisterApp records app under the identity at accountIndex, replacing any
// previous entry for the same origin.
func (w *WalletConfig) RegisterApp(accountIndex int, app App) error {
	if accountIndex < 0 || accountIndex >= len(w.Identities) {
		return sigilerr.ErrAccountNotFound
	}
	id := &w.Identities[accountIndex]
	if id.Apps == nil {
		id.Apps = map[string]App{}
	}
	id.Apps[app.Origin] = app
	return nil
}

// FetchWalletConfig downloads and decrypts the wallet config. A bucket with
// no config yields (nil, nil).
func (c *Client) FetchWalletConfig(ctx context.Context, conn *Connection) (*WalletConfig, error) {
	data, err := c.GetFile(ctx, conn, WalletConfigPath)
	if errors.Is(err, ErrFileNotFound) {
		return nil, nil //nolint:nilnil // absence is not an error
	}
	if err != nil {
		return nil, err
	}

	plaintext, err := sigilcrypto.Decrypt(data, conn.configSecret)
	if err != nil {
		return nil, sigilerr.WithCause(sigilerr.ErrRemoteStorage, fmt.Errorf("decrypting wallet config: %w", err))
	}
	defer sigilcrypto.Zero(plaintext)

	var cfg WalletConfig
	if err := json.Unmarshal(plaintext, &cfg); err != nil {
		return nil, sigilerr.WithCause(sigilerr.ErrRemoteStorage, fmt.Errorf("decoding wallet config: %w", err))
	}
	return &cfg, nil
}

// GetOrCreateWalletConfig returns the stored config, or a fresh one built
// from the wallet's accounts. The fresh config is uploaded unless
// skipUpload is set, leaving persistence timing to the caller.
func (c *Client) GetOrCreateWalletConfig(ctx context.Context, conn *Connection, w *wallet.Wallet, skipUpload bool) (*WalletConfig, error) {
	cfg, err := c.FetchWalletConfig(ctx, conn)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		return cfg, nil
	}

	cfg = NewWalletConfig(w.Infos())
	if !skipUpload {
		if err := c.UpdateWalletConfig(ctx, conn, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// UpdateWalletConfig encrypts and uploads cfg.
func (c *Client) UpdateWalletConfig(ctx context.Context, conn *Connection, cfg *WalletConfig) error {
	plaintext, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding wallet config: %w", err)
	}
	defer sigilcrypto.Zero(plaintext)

	ciphertext, err := sigilcrypto.Encrypt(plaintext, conn.configSecret)
	if err != nil {
		return sigilerr.WithCause(sigilerr.ErrRemoteStorage, fmt.Errorf("encrypting wallet config: %w", err))
	}
	return c.PutFile(ctx, conn, WalletConfigPath, ciphertext, "application/octet-stream")
}
