package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/sigilid/internal/config"
	"github.com/mrz1836/sigilid/internal/hub/hubtest"
)

const (
	testPhrase   = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon art"
	testPassword = "correct horse battery"
)

// envVars are cleared so the developer's environment cannot leak in.
//
//nolint:gochecknoglobals // Test fixture
var envVars = []string{
	config.EnvHome,
	config.EnvHubURL,
	config.EnvNetwork,
	config.EnvLogLevel,
	config.EnvOutputFormat,
	config.EnvVerbose,
	config.EnvTestMode,
	config.EnvVerifyRequests,
	config.EnvScryptWorkFactor,
	config.EnvNoColor,
}

// setupTestEnv points sigilid at a temporary home and a fake hub.
func setupTestEnv(t *testing.T) (string, *hubtest.Server) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}

	home := t.TempDir()
	srv := hubtest.New(t)

	t.Setenv("HOME", home)
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvHubURL, srv.URL)
	t.Setenv(config.EnvLogLevel, "off")
	t.Setenv(config.EnvScryptWorkFactor, "10")
	return home, srv
}

// withMockPrompts replaces prompt functions for testing and restores on cleanup.
func withMockPrompts(t *testing.T, password, secret string, confirm bool) {
	t.Helper()
	origPW := promptPasswordFn
	origNewPW := promptNewPasswordFn
	origSecret := promptSecretFn
	origConfirm := promptConfirmFn
	t.Cleanup(func() {
		promptPasswordFn = origPW
		promptNewPasswordFn = origNewPW
		promptSecretFn = origSecret
		promptConfirmFn = origConfirm
	})

	promptPasswordFn = func(_ string) ([]byte, error) {
		return []byte(password), nil
	}
	promptNewPasswordFn = func(_ int) ([]byte, error) {
		return []byte(password), nil
	}
	promptSecretFn = func() ([]byte, error) {
		return []byte(secret), nil
	}
	promptConfirmFn = func(_ string) bool { return confirm }
}

// resetFlags restores every flag to its default so commands can run
// repeatedly in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes the root command with args and returns its standard
// output. Warnings written to standard error are discarded.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var buf, errBuf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// runJSON executes a command with JSON output and decodes it into v.
func runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := runCLI(t, append(args, "-o", "json")...)
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

// restoreTestWallet restores testPhrase under testPassword.
func restoreTestWallet(t *testing.T) walletJSON {
	t.Helper()
	withMockPrompts(t, testPassword, testPhrase, true)
	var res walletJSON
	runJSON(t, &res, "wallet", "restore")
	return res
}

// walletJSON mirrors walletResult for decoding.
type walletJSON struct {
	State       string `json:"state"`
	HasPassword bool   `json:"has_password"`
	Network     string `json:"network"`
	Current     *struct {
		Index          uint32 `json:"index"`
		MainnetAddress string `json:"mainnet_address"`
	} `json:"current_account"`
	Accounts []struct {
		Index           uint32 `json:"index"`
		DisplayName     string `json:"display_name"`
		MainnetAddress  string `json:"mainnet_address"`
		IdentityAddress string `json:"identity_address"`
	} `json:"accounts"`
	SecretKey string `json:"secret_key"`
}
