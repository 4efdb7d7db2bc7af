package cli

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/sigilid/internal/config"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// writeNetworkAPI points the mainnet API of the config in home at url.
func writeNetworkAPI(t *testing.T, home, url string) {
	t.Helper()
	data := "networks:\n  mainnet:\n    name: Mainnet\n    api_url: " + url + "\n    version: mainnet\n"
	require.NoError(t, os.WriteFile(filepath.Join(home, config.FileName), []byte(data), 0o600))
}

func TestNonceRecord_ExplicitHeight(t *testing.T) {
	setupTestEnv(t)
	res := restoreTestWallet(t)

	var rec nonceResult
	runJSON(t, &rec, "nonce", "record", "--nonce", "5", "--height", "100")
	assert.Equal(t, "mainnet", rec.Network)
	assert.Equal(t, res.Accounts[0].MainnetAddress, rec.Address)
	assert.Equal(t, uint64(100), rec.BlockHeight)
	assert.Equal(t, uint64(5), rec.Nonce)

	// A later record replaces the earlier one, even with a lower nonce.
	runJSON(t, &rec, "nonce", "record", "--nonce", "3", "--height", "101")

	var list []nonceResult
	runJSON(t, &list, "nonce", "show")
	require.Len(t, list, 1)
	assert.Equal(t, uint64(3), list[0].Nonce)
	assert.Equal(t, uint64(101), list[0].BlockHeight)
}

func TestNonceRecord_ChainTip(t *testing.T) {
	home, _ := setupTestEnv(t)
	restoreTestWallet(t)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/info" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stacks_tip_height":4242}`))
	}))
	t.Cleanup(api.Close)
	writeNetworkAPI(t, home, api.URL)

	var rec nonceResult
	runJSON(t, &rec, "nonce", "record", "--nonce", "9", "--address", "SP000000000000000000002Q6VF78")
	assert.Equal(t, uint64(4242), rec.BlockHeight)
	assert.Equal(t, uint64(9), rec.Nonce)
	assert.Equal(t, "SP000000000000000000002Q6VF78", rec.Address)
}

func TestNonceRecord_ZeroNonceSkipped(t *testing.T) {
	home, _ := setupTestEnv(t)
	restoreTestWallet(t)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("chain tip must not be fetched for nonce 0")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(api.Close)
	writeNetworkAPI(t, home, api.URL)

	var out map[string]bool
	runJSON(t, &out, "nonce", "record", "--nonce", "0")
	assert.False(t, out["recorded"])

	var list []nonceResult
	runJSON(t, &list, "nonce", "show")
	assert.Empty(t, list)
}

func TestNonceRecord_ChainTipDown(t *testing.T) {
	home, _ := setupTestEnv(t)
	restoreTestWallet(t)

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(api.Close)
	writeNetworkAPI(t, home, api.URL)

	_, err := runCLI(t, "nonce", "record", "--nonce", "2", "-o", "json")
	require.ErrorIs(t, err, sigilerr.ErrNetworkError)
}

func TestNonceRecord_RequiresNonce(t *testing.T) {
	setupTestEnv(t)
	restoreTestWallet(t)

	_, err := runCLI(t, "nonce", "record", "--height", "1", "-o", "json")
	require.Error(t, err)
}

func TestNonceRecord_NoWallet(t *testing.T) {
	setupTestEnv(t)

	_, err := runCLI(t, "nonce", "record", "--nonce", "1", "--height", "1", "-o", "json")
	require.ErrorIs(t, err, sigilerr.ErrNoStoredKey)
}

func TestNonceShow(t *testing.T) {
	setupTestEnv(t)
	restoreTestWallet(t)

	var rec nonceResult
	runJSON(t, &rec, "nonce", "record", "--nonce", "1", "--height", "10", "--address", "SP1")
	runJSON(t, &rec, "nonce", "record", "--nonce", "2", "--height", "11", "--address", "SP2")

	var list []nonceResult
	runJSON(t, &list, "nonce", "show")
	require.Len(t, list, 2)
	assert.Equal(t, "SP1", list[0].Address)
	assert.Equal(t, "SP2", list[1].Address)

	runJSON(t, &list, "nonce", "show", "--address", "SP2")
	require.Len(t, list, 1)
	assert.Equal(t, uint64(2), list[0].Nonce)

	out, err := runCLI(t, "nonce", "show", "-o", "text")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "NONCE")
	assert.Contains(t, lines[2], "SP1")
}

func TestNonceShow_Empty(t *testing.T) {
	setupTestEnv(t)

	out, err := runCLI(t, "nonce", "show", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "no nonces recorded")
}
