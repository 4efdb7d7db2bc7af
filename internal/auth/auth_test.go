package auth

import (
	"context"
	"encoding/hex"
	"os"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/sigilid/internal/authtoken"
	"github.com/mrz1836/sigilid/internal/hub"
	"github.com/mrz1836/sigilid/internal/hub/hubtest"
	"github.com/mrz1836/sigilid/internal/metrics"
	"github.com/mrz1836/sigilid/internal/sigilcrypto"
	"github.com/mrz1836/sigilid/internal/wallet"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"

func TestMain(m *testing.M) {
	sigilcrypto.SetScryptWorkFactor(10) // Fast for tests
	os.Exit(m.Run())
}

// transitKey signs test requests; its public key is public_keys[0].
func transitKey(t *testing.T) *secp256k1.PrivateKey {
	t.Helper()
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

// makeRequest signs a request token for an app at https://app.example.com.
// mutate may adjust the claims before signing.
func makeRequest(t *testing.T, key *secp256k1.PrivateKey, manifestURI string, mutate func(*requestClaims)) string {
	t.Helper()
	claims := &requestClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       "req-1",
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
		RedirectURI: "https://app.example.com/callback",
		ManifestURI: manifestURI,
		PublicKeys:  []string{makePubHex(key)},
		Scopes:      []string{"store_write", "publish_data"},
		Version:     "1.3.1",
	}
	if mutate != nil {
		mutate(claims)
	}
	token, err := authtoken.Sign(claims, key)
	require.NoError(t, err)
	return token
}

func newTestWallet(t *testing.T, accounts int) *wallet.Wallet {
	t.Helper()
	w, err := wallet.New([]byte(testPhrase), "")
	require.NoError(t, err)
	require.NoError(t, w.RestoreAccounts(accounts))
	t.Cleanup(w.Wipe)
	return w
}

func newHubClient(srv *hubtest.Server) *hub.Client {
	return hub.NewClient(hub.Config{
		URL:   srv.URL,
		Retry: hub.RetryConfig{MaxAttempts: 1},
	})
}

type engineFixture struct {
	srv     *hubtest.Server
	client  *hub.Client
	metrics *metrics.Metrics
	engine  *Engine
}

// fixtureNow is the engine clock in tests.
var fixtureNow = time.Unix(1_700_000_000, 0)

func newEngineFixture(t *testing.T, mutate func(*Config)) *engineFixture {
	t.Helper()
	f := &engineFixture{srv: hubtest.New(t), metrics: metrics.New()}
	f.client = newHubClient(f.srv)
	cfg := Config{
		Hub:             f.client,
		ManifestTimeout: 2 * time.Second,
		Metrics:         f.metrics,
		Now:             func() time.Time { return fixtureNow },
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.engine = NewEngine(cfg)
	return f
}

// walletConfig fetches the wallet config stored on the fake hub.
func (f *engineFixture) walletConfig(t *testing.T, w *wallet.Wallet) *hub.WalletConfig {
	t.Helper()
	conn, err := f.client.Connect(context.Background(), w)
	require.NoError(t, err)
	cfg, err := f.client.FetchWalletConfig(context.Background(), conn)
	require.NoError(t, err)
	return cfg
}

func makePubHex(key *secp256k1.PrivateKey) string {
	return hex.EncodeToString(key.PubKey().SerializeCompressed())
}
