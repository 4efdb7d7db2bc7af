package session

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrz1836/sigilid/internal/metrics"
	"github.com/mrz1836/sigilid/internal/sigilcrypto"
	"github.com/mrz1836/sigilid/internal/wallet"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// DefaultPassword encrypts a newly created wallet until the user sets a
// password of their own.
const DefaultPassword = "password"

// Config holds the manager's dependencies.
type Config struct {
	// Hub is optional; without it restore and account persistence skip
	// remote storage.
	Hub HubClient

	// Store is optional; without it state lives only in memory.
	Store StateStore

	DefaultPassword   string
	MinPasswordLength int

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Manager is the single owner of the session. Its methods are serialized
// and each returns a Snapshot of the resulting state.
type Manager struct {
	hub               HubClient
	store             StateStore
	defaultPassword   string
	minPasswordLength int
	logger            zerolog.Logger
	metrics           *metrics.Metrics

	mu                 sync.Mutex
	state              State
	secret             *sigilcrypto.SecureBytes
	wallet             *wallet.Wallet
	currentIndex       int
	hasPassword        bool
	encryptedSecretKey string
	lockedAccounts     []wallet.AccountInfo

	tasksMu sync.Mutex
	tasks   []*Task
}

// NewManager creates a manager in the SignedOut state.
func NewManager(cfg Config) *Manager {
	if cfg.DefaultPassword == "" {
		cfg.DefaultPassword = DefaultPassword
	}
	return &Manager{
		hub:               cfg.Hub,
		store:             cfg.Store,
		defaultPassword:   cfg.DefaultPassword,
		minPasswordLength: cfg.MinPasswordLength,
		logger:            cfg.Logger,
		metrics:           cfg.Metrics,
	}
}

// Load rehydrates a stored session as Locked. With nothing stored the
// session stays SignedOut. It does nothing once a session is active.
func (m *Manager) Load() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != SignedOut || m.store == nil {
		return m.snapshot(), nil
	}

	st, err := m.store.Load()
	m.metrics.RecordWalletOp("load", err)
	if err != nil {
		return m.snapshot(), sigilerr.Wrap(err, "loading session state")
	}
	if st == nil || st.EncryptedSecretKey == "" {
		return m.snapshot(), nil
	}

	m.state = Locked
	m.encryptedSecretKey = st.EncryptedSecretKey
	m.hasPassword = st.HasPassword
	m.currentIndex = st.CurrentAccountIndex
	m.lockedAccounts = st.Accounts
	return m.snapshot(), nil
}

// CreateWallet generates a new master secret and signs in with account 0.
// The secret is encrypted under the default password until SetPassword.
// It does no network I/O.
func (m *Manager) CreateWallet(_ context.Context) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.createWallet()
	m.metrics.RecordWalletOp("create_wallet", err)
	if err != nil {
		return m.snapshot(), err
	}
	m.logger.Info().Msg("wallet created")
	return m.snapshot(), m.persist()
}

func (m *Manager) createWallet() error {
	secret, err := wallet.GenerateSecretKey(wallet.SecretKeyBits)
	if err != nil {
		return fmt.Errorf("generating secret key: %w", err)
	}

	blob, err := sigilcrypto.EncryptHex(secret.Bytes(), m.defaultPassword)
	if err != nil {
		secret.Destroy()
		return fmt.Errorf("encrypting secret key: %w", err)
	}

	w, err := wallet.New(secret.Bytes(), blob)
	if err != nil {
		secret.Destroy()
		return err
	}

	m.clear()
	m.signIn(secret, w, 0, false)
	return nil
}

// RestoreWallet signs in with an existing master secret. Accounts
// registered in the hub config are restored on a best-effort basis; a hub
// failure is logged and the wallet is restored with what is known locally.
// An empty password keeps the default password and hasPassword false.
func (m *Manager) RestoreWallet(ctx context.Context, secret []byte, password string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.restoreWallet(ctx, secret, password)
	m.metrics.RecordWalletOp("restore_wallet", err)
	if err != nil {
		return m.snapshot(), err
	}
	return m.snapshot(), m.persist()
}

func (m *Manager) restoreWallet(ctx context.Context, secret []byte, password string) error {
	if err := wallet.ValidateMnemonic(string(secret)); err != nil {
		return err
	}

	hasPassword := password != ""
	if !hasPassword {
		password = m.defaultPassword
	}

	normalized := []byte(wallet.NormalizeMnemonicInput(string(secret)))
	defer sigilcrypto.Zero(normalized)

	sb, err := sigilcrypto.SecureBytesFromSlice(normalized)
	if err != nil {
		return err
	}

	blob, err := sigilcrypto.EncryptHex(sb.Bytes(), password)
	if err != nil {
		sb.Destroy()
		return fmt.Errorf("encrypting secret key: %w", err)
	}

	m.clear()
	return m.deriveAndSignIn(ctx, sb, blob, hasPassword, nil, 0)
}

// deriveAndSignIn derives the wallet, restores accounts from the hub and
// from known account info, then signs in. It takes ownership of secret.
func (m *Manager) deriveAndSignIn(ctx context.Context, secret *sigilcrypto.SecureBytes, blob string,
	hasPassword bool, known []wallet.AccountInfo, index int,
) error {
	w, err := wallet.New(secret.Bytes(), blob)
	if err != nil {
		secret.Destroy()
		return err
	}

	m.restoreFromHub(ctx, w)

	if err := w.RestoreAccounts(len(known)); err != nil {
		w.Wipe()
		secret.Destroy()
		return err
	}
	for _, info := range known {
		if int(info.Index) < w.Len() && info.Username != "" && w.Accounts[info.Index].Username == "" {
			w.Accounts[info.Index].Username = info.Username
		}
	}

	if index < 0 || index >= w.Len() {
		index = 0
	}
	m.signIn(secret, w, index, hasPassword)
	return nil
}

// restoreFromHub grows w to the number of identities in the hub config and
// copies their usernames. Failures are logged, not returned.
func (m *Manager) restoreFromHub(ctx context.Context, w *wallet.Wallet) {
	if m.hub == nil {
		return
	}

	conn, err := m.hub.Connect(ctx, w)
	if err != nil {
		m.logger.Warn().Err(err).Msg("restoring accounts from hub failed")
		return
	}
	cfg, err := m.hub.FetchWalletConfig(ctx, conn)
	if err != nil {
		m.logger.Warn().Err(err).Msg("restoring accounts from hub failed")
		return
	}
	if cfg == nil {
		return
	}

	if err := w.RestoreAccounts(len(cfg.Identities)); err != nil {
		m.logger.Warn().Err(err).Int("identities", len(cfg.Identities)).Msg("restoring accounts from hub failed")
		return
	}
	for i, id := range cfg.Identities {
		if id.Username != "" {
			w.Accounts[i].Username = id.Username
		}
	}
	m.logger.Debug().Int("accounts", w.Len()).Msg("accounts restored from hub")
}

// CreateAccount derives the next account and makes it current. The hub
// config is updated in the background; the returned Task reports that
// upload, whose failure is logged and counted but does not fail the call.
func (m *Manager) CreateAccount(ctx context.Context) (wallet.AccountInfo, *Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireSecret(); err != nil {
		m.metrics.RecordWalletOp("create_account", err)
		return wallet.AccountInfo{}, nil, err
	}

	account, err := m.wallet.NewAccount()
	m.metrics.RecordWalletOp("create_account", err)
	if err != nil {
		return wallet.AccountInfo{}, nil, err
	}
	m.currentIndex = int(account.Index)
	m.logger.Info().Int("account_index", m.currentIndex).Msg("account created")

	if err := m.persist(); err != nil {
		m.logger.Error().Err(err).Int("account_index", m.currentIndex).Msg("saving session state failed")
	}

	task := m.persistHubConfig(context.WithoutCancel(ctx), m.wallet.Clone())
	return account.Info(), task, nil
}

func (m *Manager) persistHubConfig(ctx context.Context, w *wallet.Wallet) *Task {
	if m.hub == nil {
		w.Wipe()
		return completedTask(nil)
	}

	task := newTask()
	m.track(task)

	go func() {
		defer w.Wipe()
		err := m.uploadWalletConfig(ctx, w)
		if err != nil {
			m.metrics.RecordPersistFailure()
			m.logger.Error().Err(err).Int("account_index", w.Len()-1).Msg("persisting wallet config to hub failed")
		}
		task.finish(err)
	}()
	return task
}

func (m *Manager) uploadWalletConfig(ctx context.Context, w *wallet.Wallet) error {
	conn, err := m.hub.Connect(ctx, w)
	if err != nil {
		return err
	}
	cfg, err := m.hub.GetOrCreateWalletConfig(ctx, conn, w, true)
	if err != nil {
		return err
	}
	cfg.SyncIdentities(w.Infos())
	return m.hub.UpdateWalletConfig(ctx, conn, cfg)
}

// SetPassword re-encrypts the master secret under password.
func (m *Manager) SetPassword(password string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.setPassword(password)
	m.metrics.RecordWalletOp("set_password", err)
	if err != nil {
		return m.snapshot(), err
	}
	return m.snapshot(), m.persist()
}

func (m *Manager) setPassword(password string) error {
	if err := m.requireSecret(); err != nil {
		return err
	}
	if password == "" || len(password) < m.minPasswordLength {
		return sigilerr.WithSuggestion(sigilerr.ErrInvalidInput,
			"password must be at least "+strconv.Itoa(max(m.minPasswordLength, 1))+" characters")
	}

	blob, err := sigilcrypto.EncryptHex(m.secret.Bytes(), password)
	if err != nil {
		return fmt.Errorf("encrypting secret key: %w", err)
	}
	m.encryptedSecretKey = blob
	m.wallet.EncryptedSecretKey = blob
	m.hasPassword = true
	return nil
}

// Unlock decrypts the stored secret and signs in again with the accounts
// known before locking and the same current account. Any decrypt failure
// is reported as ErrInvalidPassword.
func (m *Manager) Unlock(ctx context.Context, password string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.unlock(ctx, password)
	m.metrics.RecordWalletOp("unlock", err)
	if err != nil {
		return m.snapshot(), err
	}
	return m.snapshot(), m.persist()
}

func (m *Manager) unlock(ctx context.Context, password string) error {
	if m.encryptedSecretKey == "" {
		return sigilerr.ErrNoStoredKey
	}

	secret, err := sigilcrypto.DecryptHex(m.encryptedSecretKey, password)
	if err != nil {
		return sigilerr.ErrInvalidPassword
	}

	if m.state == SignedIn {
		secret.Destroy()
		m.hasPassword = true
		return nil
	}

	known := m.lockedAccounts
	index := m.currentIndex
	return m.deriveAndSignIn(ctx, secret, m.encryptedSecretKey, true, known, index)
}

// Lock wipes the master secret and keys from memory and keeps the
// encrypted secret and account info for Unlock.
func (m *Manager) Lock() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case SignedOut:
		m.metrics.RecordWalletOp("lock", sigilerr.ErrNotAuthenticated)
		return m.snapshot(), sigilerr.ErrNotAuthenticated
	case Locked:
		return m.snapshot(), nil
	}

	m.lockedAccounts = m.wallet.Infos()
	m.wipeSecrets()
	m.state = Locked
	m.metrics.RecordWalletOp("lock", nil)
	m.logger.Debug().Msg("session locked")
	return m.snapshot(), m.persist()
}

// SignOut wipes the secret and clears all session state, including the
// stored state.
func (m *Manager) SignOut() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clear()
	m.metrics.RecordWalletOp("sign_out", nil)
	m.logger.Info().Msg("signed out")

	if m.store != nil {
		if err := m.store.Clear(); err != nil {
			return m.snapshot(), sigilerr.Wrap(err, "clearing session state")
		}
	}
	return m.snapshot(), nil
}

// SelectAccount makes the account at index current.
func (m *Manager) SelectAccount(index int) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != SignedIn {
		return m.snapshot(), sigilerr.ErrNotAuthenticated
	}
	if _, err := m.wallet.Account(index); err != nil {
		return m.snapshot(), err
	}
	m.currentIndex = index
	return m.snapshot(), m.persist()
}

// Snapshot returns the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// Wallet returns a copy of the signed-in wallet. The copy cannot derive new
// accounts; the caller wipes it when done.
func (m *Manager) Wallet() (*wallet.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != SignedIn {
		return nil, sigilerr.ErrNotAuthenticated
	}
	return m.wallet.Clone(), nil
}

// RevealSecret returns a copy of the master secret for backup display.
// The caller destroys it.
func (m *Manager) RevealSecret() (*sigilcrypto.SecureBytes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireSecret(); err != nil {
		return nil, err
	}
	return m.secret.Clone()
}

// Wait blocks until every background task started so far has finished
// or ctx is done.
func (m *Manager) Wait(ctx context.Context) error {
	m.tasksMu.Lock()
	pending := m.tasks
	m.tasks = nil
	m.tasksMu.Unlock()

	for i, t := range pending {
		select {
		case <-t.Done():
		case <-ctx.Done():
			m.tasksMu.Lock()
			m.tasks = append(pending[i:], m.tasks...)
			m.tasksMu.Unlock()
			return ctx.Err()
		}
	}
	return nil
}

func (m *Manager) track(t *Task) {
	m.tasksMu.Lock()
	defer m.tasksMu.Unlock()
	m.tasks = append(m.tasks, t)
}

func (m *Manager) requireSecret() error {
	if m.state != SignedIn || m.secret == nil || m.wallet == nil || !m.wallet.CanDerive() {
		return sigilerr.ErrNotAuthenticated
	}
	return nil
}

func (m *Manager) signIn(secret *sigilcrypto.SecureBytes, w *wallet.Wallet, index int, hasPassword bool) {
	m.secret = secret
	m.wallet = w
	m.encryptedSecretKey = w.EncryptedSecretKey
	m.currentIndex = index
	m.hasPassword = hasPassword
	m.lockedAccounts = nil
	m.state = SignedIn
}

func (m *Manager) wipeSecrets() {
	if m.secret != nil {
		m.secret.Destroy()
		m.secret = nil
	}
	if m.wallet != nil {
		m.wallet.Wipe()
		m.wallet = nil
	}
}

func (m *Manager) clear() {
	m.wipeSecrets()
	m.state = SignedOut
	m.currentIndex = 0
	m.hasPassword = false
	m.encryptedSecretKey = ""
	m.lockedAccounts = nil
}

func (m *Manager) snapshot() Snapshot {
	snap := Snapshot{
		State:               m.state,
		CurrentAccountIndex: m.currentIndex,
		HasPassword:         m.hasPassword,
		EncryptedSecretKey:  m.encryptedSecretKey,
	}
	switch m.state {
	case SignedIn:
		snap.Accounts = m.wallet.Infos()
	case Locked:
		snap.Accounts = append([]wallet.AccountInfo(nil), m.lockedAccounts...)
	}
	return snap
}

func (m *Manager) persist() error {
	if m.store == nil || m.state == SignedOut {
		return nil
	}
	snap := m.snapshot()
	if err := m.store.Save(&PersistedState{
		EncryptedSecretKey:  snap.EncryptedSecretKey,
		HasPassword:         snap.HasPassword,
		CurrentAccountIndex: snap.CurrentAccountIndex,
		Accounts:            snap.Accounts,
	}); err != nil {
		return sigilerr.Wrap(err, "saving session state")
	}
	return nil
}
