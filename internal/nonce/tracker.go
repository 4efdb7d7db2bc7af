// Package nonce tracks the latest known transaction nonce per network and
// address, fed by transaction submissions and the chain tip height.
package nonce

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// Key identifies a tracked address on one network.
type Key struct {
	Network string `json:"network"`
	Address string `json:"address"`
}

// Record is the latest nonce seen for a key and the chain height at the
// time it was recorded.
type Record struct {
	BlockHeight uint64 `json:"block_height"`
	Nonce       uint64 `json:"nonce"`
}

// Entry is a Record together with its Key.
type Entry struct {
	Key
	Record
}

// Store persists tracked records.
type Store interface {
	Load() ([]Entry, error)
	Save(entries []Entry) error
}

// ChainTip reports the current chain height of a network.
type ChainTip interface {
	TipHeight(ctx context.Context) (uint64, error)
}

// Tracker holds one Record per Key. Writes for a key overwrite the previous
// record unconditionally. It is safe for concurrent use.
type Tracker struct {
	store  Store
	logger zerolog.Logger

	mu      sync.Mutex
	records map[Key]Record
}

// NewTracker creates an empty tracker. store may be nil to keep records in
// memory only.
func NewTracker(store Store, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:   store,
		logger:  logger,
		records: make(map[Key]Record),
	}
}

// Load replaces the tracked records with the stored ones.
func (t *Tracker) Load() error {
	if t.store == nil {
		return nil
	}
	entries, err := t.store.Load()
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[Key]Record, len(entries))
	for _, e := range entries {
		t.records[e.Key] = e.Record
	}
	return nil
}

// RecordNonce stores nonce and blockHeight for (network, address),
// replacing any earlier record for that pair.
func (t *Tracker) RecordNonce(network, address string, blockHeight, nonce uint64) error {
	if network == "" || address == "" {
		return sigilerr.WithDetails(sigilerr.ErrInvalidInput, map[string]string{
			"network": network,
			"address": address,
		})
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := Key{Network: network, Address: address}
	prev, had := t.records[key]
	t.records[key] = Record{BlockHeight: blockHeight, Nonce: nonce}

	if had && nonce < prev.Nonce {
		t.logger.Debug().
			Str("network", network).
			Str("address", address).
			Uint64("previous_nonce", prev.Nonce).
			Uint64("nonce", nonce).
			Msg("nonce moved backwards")
	}

	if t.store == nil {
		return nil
	}
	return t.store.Save(t.entriesLocked())
}

// RecordSubmission records the nonce of a submitted transaction at the
// current chain tip height. A zero nonce is ignored and reported as not
// recorded.
func (t *Tracker) RecordSubmission(ctx context.Context, tip ChainTip, network, address string, nonce uint64) (bool, error) {
	if nonce == 0 {
		return false, nil
	}

	height, err := tip.TipHeight(ctx)
	if err != nil {
		return false, err
	}
	if err := t.RecordNonce(network, address, height, nonce); err != nil {
		return false, err
	}
	return true, nil
}

// Latest returns the record for (network, address).
func (t *Tracker) Latest(network, address string) (Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.records[Key{Network: network, Address: address}]
	return r, ok
}

// Records returns every record ordered by network then address.
func (t *Tracker) Records() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entriesLocked()
}

func (t *Tracker) entriesLocked() []Entry {
	entries := make([]Entry, 0, len(t.records))
	for k, r := range t.records {
		entries = append(entries, Entry{Key: k, Record: r})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Network != entries[j].Network {
			return entries[i].Network < entries[j].Network
		}
		return entries[i].Address < entries[j].Address
	})
	return entries
}
