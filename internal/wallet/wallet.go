package wallet

import (
	"strconv"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/hdkeychain/v3"

	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// Wallet is the in-memory wallet. Account indices are stable and
// append-only; accounts are never reordered or removed.
type Wallet struct {
	// ConfigPrivateKey addresses the wallet's hub storage.
	ConfigPrivateKey *secp256k1.PrivateKey

	// Salt is shared by every account of the wallet.
	Salt string

	// Accounts in index order. Never empty after New.
	Accounts []*Account

	// EncryptedSecretKey is the hex encoded, password encrypted master secret.
	EncryptedSecretKey string

	root *hdkeychain.ExtendedKey
}

// New derives a wallet with its first account from a master secret phrase.
func New(secret []byte, encryptedSecretKey string) (*Wallet, error) {
	root, err := rootKey(secret)
	if err != nil {
		return nil, err
	}

	salt, err := walletSalt(root)
	if err != nil {
		root.Zero()
		return nil, err
	}

	configKey, err := deriveKey(root, WalletConfigPath)
	if err != nil {
		root.Zero()
		return nil, err
	}

	w := &Wallet{
		ConfigPrivateKey:   configKey,
		Salt:               salt,
		EncryptedSecretKey: encryptedSecretKey,
		root:               root,
	}
	if _, err := w.NewAccount(); err != nil {
		w.Wipe()
		return nil, err
	}
	return w, nil
}

// CanDerive reports whether the wallet still holds its root key.
func (w *Wallet) CanDerive() bool {
	return w.root != nil
}

// NewAccount derives and appends the account at index len(Accounts).
func (w *Wallet) NewAccount() (*Account, error) {
	if w.root == nil {
		return nil, sigilerr.ErrNotAuthenticated
	}

	account, err := deriveAccountFromRoot(w.root, w.Salt, uint32(len(w.Accounts))) //nolint:gosec // bounded by MaxAccounts
	if err != nil {
		return nil, err
	}
	w.Accounts = append(w.Accounts, account)
	return account, nil
}

// RestoreAccounts derives accounts until the wallet holds at least n.
func (w *Wallet) RestoreAccounts(n int) error {
	for len(w.Accounts) < n {
		if _, err := w.NewAccount(); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of accounts.
func (w *Wallet) Len() int {
	return len(w.Accounts)
}

// Account returns the account at index.
func (w *Wallet) Account(index int) (*Account, error) {
	if index < 0 || index >= len(w.Accounts) {
		return nil, sigilerr.WithDetails(sigilerr.ErrAccountNotFound, map[string]string{
			"index": strconv.Itoa(index),
			"count": strconv.Itoa(len(w.Accounts)),
		})
	}
	return w.Accounts[index], nil
}

// SetUsername records a registered username on an account.
func (w *Wallet) SetUsername(index int, username string) error {
	account, err := w.Account(index)
	if err != nil {
		return err
	}
	account.Username = username
	return nil
}

// Infos returns the public view of every account.
func (w *Wallet) Infos() []AccountInfo {
	infos := make([]AccountInfo, len(w.Accounts))
	for i, a := range w.Accounts {
		infos[i] = a.Info()
	}
	return infos
}

// Clone returns a deep copy of the wallet without its root key, so the copy
// can sign with existing accounts but cannot derive new ones.
func (w *Wallet) Clone() *Wallet {
	c := &Wallet{
		ConfigPrivateKey:   clonePrivKey(w.ConfigPrivateKey),
		Salt:               w.Salt,
		EncryptedSecretKey: w.EncryptedSecretKey,
		Accounts:           make([]*Account, len(w.Accounts)),
	}
	for i, a := range w.Accounts {
		c.Accounts[i] = a.Clone()
	}
	return c
}

// Wipe zeroes all key material held by the wallet.
func (w *Wallet) Wipe() {
	if w.root != nil {
		w.root.Zero()
		w.root = nil
	}
	if w.ConfigPrivateKey != nil {
		w.ConfigPrivateKey.Zero()
	}
	for _, a := range w.Accounts {
		a.Wipe()
	}
}
