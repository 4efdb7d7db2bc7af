// Package session owns the wallet session: the master secret, the derived
// wallet and the SignedOut, SignedIn and Locked state machine. All state
// changes go through Manager, which serializes them.
package session

import (
	"github.com/mrz1836/sigilid/internal/wallet"
)

// State is the session state.
type State int

// Session states.
const (
	SignedOut State = iota
	SignedIn
	Locked
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case SignedOut:
		return "signed_out"
	case SignedIn:
		return "signed_in"
	case Locked:
		return "locked"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a copy of the session state returned by every Manager
// operation. It never contains secret material.
type Snapshot struct {
	State               State                `json:"state"`
	CurrentAccountIndex int                  `json:"current_account_index"`
	HasPassword         bool                 `json:"has_password"`
	EncryptedSecretKey  string               `json:"encrypted_secret_key,omitempty"`
	Accounts            []wallet.AccountInfo `json:"accounts"`
}

// CurrentAccount returns the selected account, if any.
func (s Snapshot) CurrentAccount() (wallet.AccountInfo, bool) {
	if s.CurrentAccountIndex < 0 || s.CurrentAccountIndex >= len(s.Accounts) {
		return wallet.AccountInfo{}, false
	}
	return s.Accounts[s.CurrentAccountIndex], true
}

// PersistedState is what a StateStore keeps between runs: the encrypted
// secret and public account data, never the secret itself.
type PersistedState struct {
	EncryptedSecretKey  string               `json:"encrypted_secret_key"`
	HasPassword         bool                 `json:"has_password"`
	CurrentAccountIndex int                  `json:"current_account_index"`
	Accounts            []wallet.AccountInfo `json:"accounts"`
}
