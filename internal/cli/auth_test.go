package cli

import (
	"encoding/hex"
	"net/url"
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/sigilid/internal/authtoken"
	"github.com/mrz1836/sigilid/internal/config"
	"github.com/mrz1836/sigilid/internal/hub"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// signedRequest returns an auth request token carrying app details, so no
// manifest fetch is needed.
func signedRequest(t *testing.T) string {
	t.Helper()
	key, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	token, err := authtoken.Sign(jwt.MapClaims{
		"jti":          "req-cli",
		"iat":          1_700_000_000,
		"redirect_uri": "https://app.example.com/callback",
		"manifest_uri": "https://app.example.com/manifest.json",
		"public_keys":  []string{hex.EncodeToString(key.PubKey().SerializeCompressed())},
		"scopes":       []string{"store_write"},
		"version":      "1.3.1",
		"appDetails": map[string]string{
			"name": "Example App",
			"icon": "https://app.example.com/icon.png",
		},
	}, key)
	require.NoError(t, err)
	return token
}

func TestAuthRequestToken(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"raw token", "eyJ.abc.def", "eyJ.abc.def"},
		{"trims whitespace", "  eyJ.abc.def\n", "eyJ.abc.def"},
		{"query", "https://wallet.example/sign-in?authRequest=eyJ.abc.def", "eyJ.abc.def"},
		{"fragment query", "https://wallet.example/#/sign-in?authRequest=eyJ.abc.def", "eyJ.abc.def"},
		{"url without token", "https://wallet.example/sign-in", "https://wallet.example/sign-in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, authRequestToken(tt.in))
		})
	}
}

func TestAuthDecode(t *testing.T) {
	setupTestEnv(t)
	token := signedRequest(t)

	var res struct {
		App *struct {
			Name    string `json:"name"`
			IconURL string `json:"icon_url"`
		} `json:"app"`
		AppDomain   string   `json:"app_domain"`
		RedirectURI string   `json:"redirect_uri"`
		Scopes      []string `json:"scopes"`
	}
	runJSON(t, &res, "auth", "decode", token)

	require.NotNil(t, res.App)
	assert.Equal(t, "Example App", res.App.Name)
	assert.Equal(t, "https://app.example.com/icon.png", res.App.IconURL)
	assert.Equal(t, "https://app.example.com", res.AppDomain)
	assert.Equal(t, []string{"store_write"}, res.Scopes)

	out, err := runCLI(t, "auth", "decode", "https://wallet.example/?authRequest="+token, "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "App:       Example App")
	assert.Contains(t, out, "Scopes:    store_write")
}

func TestAuthDecode_Malformed(t *testing.T) {
	setupTestEnv(t)

	_, err := runCLI(t, "auth", "decode", "not-a-token", "-o", "json")
	require.ErrorIs(t, err, sigilerr.ErrMalformedToken)
	assert.Equal(t, sigilerr.ExitInput, ExitCode(err))
}

func TestAuthRespond(t *testing.T) {
	_, srv := setupTestEnv(t)
	res := restoreTestWallet(t)
	token := signedRequest(t)

	var out struct {
		App struct {
			Name string `json:"name"`
		} `json:"app"`
		AccountIndex int    `json:"account_index"`
		RedirectURL  string `json:"redirect_url"`
	}
	runJSON(t, &out, "auth", "respond", token)

	assert.Equal(t, "Example App", out.App.Name)
	assert.Equal(t, 0, out.AccountIndex)

	u, err := url.Parse(out.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", u.Host)
	assert.Equal(t, "/callback", u.Path)

	claims := jwt.MapClaims{}
	require.NoError(t, authtoken.ParseUnverified(u.Query().Get("authResponse"), claims))
	assert.Equal(t, "did:btc-addr:"+res.Accounts[0].IdentityAddress, claims["iss"])
	assert.Equal(t, "https://app.example.com", claims["appDomain"])

	// The app is registered in the hub's wallet config.
	var registered bool
	for _, key := range srv.Keys() {
		if strings.HasSuffix(key, hub.WalletConfigPath) {
			registered = true
		}
	}
	assert.True(t, registered)
}

func TestAuthRespond_SelectsAccount(t *testing.T) {
	setupTestEnv(t)
	restoreTestWallet(t)

	var acct accountJSON
	runJSON(t, &acct, "account", "create")
	runJSON(t, &acct, "account", "select", "0")

	var out struct {
		AccountIndex int `json:"account_index"`
	}
	runJSON(t, &out, "auth", "respond", signedRequest(t), "--account", "1")
	assert.Equal(t, 1, out.AccountIndex)

	var status walletJSON
	runJSON(t, &status, "wallet", "status")
	require.NotNil(t, status.Current)
	assert.Equal(t, uint32(1), status.Current.Index)
}

func TestAuthRespond_AccountNotFound(t *testing.T) {
	_, srv := setupTestEnv(t)
	restoreTestWallet(t)
	writes := srv.Writes()

	_, err := runCLI(t, "auth", "respond", signedRequest(t), "--account", "4", "-o", "json")
	require.ErrorIs(t, err, sigilerr.ErrAccountNotFound)
	assert.Equal(t, writes, srv.Writes())
}

func TestAuthRespond_HubDown(t *testing.T) {
	setupTestEnv(t)
	restoreTestWallet(t)
	t.Setenv(config.EnvHubURL, "http://127.0.0.1:1")

	_, err := runCLI(t, "auth", "respond", signedRequest(t), "-o", "json")
	require.ErrorIs(t, err, sigilerr.ErrRemoteStorage)
}

func TestAuthRespond_NoWallet(t *testing.T) {
	setupTestEnv(t)

	_, err := runCLI(t, "auth", "respond", signedRequest(t), "-o", "json")
	require.ErrorIs(t, err, sigilerr.ErrNoStoredKey)
}
