package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/sigilid/internal/config"
	"github.com/mrz1836/sigilid/internal/hub"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// accountJSON mirrors accountResult for decoding.
type accountJSON struct {
	Index       uint32 `json:"index"`
	DisplayName string `json:"display_name"`
	Address     string `json:"address"`
	Current     bool   `json:"current"`
	Synced      *bool  `json:"hub_synced"`
}

func TestAccountCreate(t *testing.T) {
	_, srv := setupTestEnv(t)
	restoreTestWallet(t)

	var acct accountJSON
	runJSON(t, &acct, "account", "create")

	assert.Equal(t, uint32(1), acct.Index)
	assert.Equal(t, "Account 2", acct.DisplayName)
	assert.True(t, acct.Current)
	require.NotNil(t, acct.Synced)
	assert.True(t, *acct.Synced)
	assert.Positive(t, srv.Writes())

	var found bool
	for _, key := range srv.Keys() {
		if strings.HasSuffix(key, hub.WalletConfigPath) {
			found = true
		}
	}
	assert.True(t, found, "wallet config uploaded")

	var list []accountJSON
	runJSON(t, &list, "account", "list")
	require.Len(t, list, 2)
	assert.False(t, list[0].Current)
	assert.True(t, list[1].Current)
	assert.NotEqual(t, list[0].Address, list[1].Address)
}

func TestAccountCreate_HubFailureKeepsAccount(t *testing.T) {
	setupTestEnv(t)
	restoreTestWallet(t)
	t.Setenv(config.EnvHubURL, "http://127.0.0.1:1")

	var acct accountJSON
	runJSON(t, &acct, "account", "create")
	require.NotNil(t, acct.Synced)
	assert.False(t, *acct.Synced)

	var list []accountJSON
	runJSON(t, &list, "account", "list")
	assert.Len(t, list, 2)
}

func TestAccountCreate_RestoredOnNewMachine(t *testing.T) {
	setupTestEnv(t)
	restoreTestWallet(t)

	var acct accountJSON
	runJSON(t, &acct, "account", "create")
	runJSON(t, &acct, "account", "create")

	// Sign out and restore: the hub config brings the accounts back.
	var res walletJSON
	runJSON(t, &res, "wallet", "signout", "--force")
	res = restoreTestWallet(t)
	assert.Len(t, res.Accounts, 3)
}

func TestAccountList_Text(t *testing.T) {
	setupTestEnv(t)
	restoreTestWallet(t)

	out, err := runCLI(t, "account", "list", "-o", "text")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "INDEX")
	assert.True(t, strings.HasPrefix(lines[2], "*"))
	assert.Contains(t, lines[2], "Account 1")
}

func TestAccountSelect(t *testing.T) {
	setupTestEnv(t)
	restoreTestWallet(t)

	var acct accountJSON
	runJSON(t, &acct, "account", "create")
	require.True(t, acct.Current)

	var selected accountJSON
	runJSON(t, &selected, "account", "select", "0")
	assert.Equal(t, uint32(0), selected.Index)
	assert.True(t, selected.Current)

	var status walletJSON
	runJSON(t, &status, "wallet", "status")
	require.NotNil(t, status.Current)
	assert.Equal(t, uint32(0), status.Current.Index)
}

func TestAccountSelect_Errors(t *testing.T) {
	setupTestEnv(t)
	restoreTestWallet(t)

	_, err := runCLI(t, "account", "select", "5", "-o", "json")
	require.ErrorIs(t, err, sigilerr.ErrAccountNotFound)

	_, err = runCLI(t, "account", "select", "-1", "-o", "json")
	require.Error(t, err)

	_, err = runCLI(t, "account", "select", "first", "-o", "json")
	require.ErrorIs(t, err, sigilerr.ErrInvalidInput)
}

func TestAccountReceive(t *testing.T) {
	setupTestEnv(t)
	res := restoreTestWallet(t)

	var acct accountJSON
	runJSON(t, &acct, "account", "receive")
	assert.Equal(t, res.Accounts[0].MainnetAddress, acct.Address)

	out, err := runCLI(t, "account", "receive", "--qr", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, acct.Address)
	assert.Greater(t, strings.Count(out, "\n"), 10, "QR code rendered")

	_, err = runCLI(t, "account", "receive", "--index", "9", "-o", "json")
	require.ErrorIs(t, err, sigilerr.ErrAccountNotFound)
}

func TestAccountReceive_Testnet(t *testing.T) {
	setupTestEnv(t)
	restoreTestWallet(t)
	t.Setenv(config.EnvNetwork, "testnet")

	var acct accountJSON
	runJSON(t, &acct, "account", "receive")
	assert.True(t, strings.HasPrefix(acct.Address, "ST"), acct.Address)
}

func TestParseAccountIndex(t *testing.T) {
	t.Parallel()
	i, err := parseAccountIndex("3")
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	for _, bad := range []string{"", "-2", "x", "1.5"} {
		_, err := parseAccountIndex(bad)
		require.ErrorIs(t, err, sigilerr.ErrInvalidInput, bad)
	}
}
