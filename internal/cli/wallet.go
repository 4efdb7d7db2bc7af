package cli

import (
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/sigilid/internal/output"
	"github.com/mrz1836/sigilid/internal/session"
	"github.com/mrz1836/sigilid/internal/sigilcrypto"
	"github.com/mrz1836/sigilid/internal/wallet"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// walletForce replaces an existing wallet or skips confirmation.
	walletForce bool
	// walletNoPassword keeps the default password on create and restore.
	walletNoPassword bool
)

// walletCmd is the parent command for wallet operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the wallet session",
	Long:  `Create, restore, lock down and sign out of the wallet.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new wallet",
	Long: `Generate a new 24-word secret key and derive the first account.

The secret key is shown once. Write it down and keep it offline; it is the
only way to restore the wallet.

Example:
  sigilid wallet create
  sigilid wallet create --force`,
	Args: cobra.NoArgs,
	RunE: runWalletCreate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a wallet from its secret key",
	Long: `Restore a wallet from a 12 or 24-word secret key. Accounts registered
in the hub are restored too.

Example:
  sigilid wallet restore
  echo "word1 word2 ..." | sigilid wallet restore --no-password`,
	Args: cobra.NoArgs,
	RunE: runWalletRestore,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state",
	Args:  cobra.NoArgs,
	RunE:  runWalletStatus,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletPasswordCmd = &cobra.Command{
	Use:   "password",
	Short: "Set or change the wallet password",
	Args:  cobra.NoArgs,
	RunE:  runWalletPassword,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletRevealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Show the secret key",
	Args:  cobra.NoArgs,
	RunE:  runWalletReveal,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletSignOutCmd = &cobra.Command{
	Use:   "signout",
	Short: "Sign out and delete the stored session",
	Long: `Sign out and delete the encrypted secret key and account data from
this machine. Without the secret key phrase the wallet cannot be restored.`,
	Args: cobra.NoArgs,
	RunE: runWalletSignOut,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(walletCreateCmd)
	walletCmd.AddCommand(walletRestoreCmd)
	walletCmd.AddCommand(walletStatusCmd)
	walletCmd.AddCommand(walletPasswordCmd)
	walletCmd.AddCommand(walletRevealCmd)
	walletCmd.AddCommand(walletSignOutCmd)

	walletCreateCmd.Flags().BoolVar(&walletForce, "force", false, "replace an existing wallet")
	walletCreateCmd.Flags().BoolVar(&walletNoPassword, "no-password", false, "keep the default password")
	walletRestoreCmd.Flags().BoolVar(&walletForce, "force", false, "replace an existing wallet")
	walletRestoreCmd.Flags().BoolVar(&walletNoPassword, "no-password", false, "keep the default password")
	walletRevealCmd.Flags().BoolVar(&walletForce, "yes", false, "skip confirmation")
	walletSignOutCmd.Flags().BoolVar(&walletForce, "force", false, "skip confirmation")
}

// walletResult is the JSON view of a session.
type walletResult struct {
	State       session.State        `json:"state"`
	HasPassword bool                 `json:"has_password"`
	Network     string               `json:"network"`
	Current     *wallet.AccountInfo  `json:"current_account,omitempty"`
	Accounts    []wallet.AccountInfo `json:"accounts"`
	SecretKey   string               `json:"secret_key,omitempty"`
}

func newWalletResult(cc *CommandContext, snap session.Snapshot) walletResult {
	res := walletResult{
		State:       snap.State,
		HasPassword: snap.HasPassword,
		Network:     cc.Cfg.CurrentNetwork,
		Accounts:    snap.Accounts,
	}
	if res.Accounts == nil {
		res.Accounts = []wallet.AccountInfo{}
	}
	if acct, ok := snap.CurrentAccount(); ok {
		res.Current = &acct
	}
	return res
}

func (r walletResult) writeText(w io.Writer, cc *CommandContext) {
	out(w, "State:     %s\n", r.State)
	if r.State == session.SignedOut {
		return
	}
	out(w, "Password:  %t\n", r.HasPassword)
	out(w, "Accounts:  %d\n", len(r.Accounts))
	if r.Current != nil {
		out(w, "Current:   %s (%s)\n", r.Current.DisplayName, r.Current.Address(cc.addressVersion()))
	}
}

// ensureNoWallet fails when a wallet is stored and force is not set.
func ensureNoWallet(mgr *session.Manager) error {
	snap, err := mgr.Load()
	if err != nil {
		return err
	}
	if snap.State != session.SignedOut && !walletForce {
		return sigilerr.WithSuggestion(sigilerr.ErrInvalidInput,
			"a wallet already exists; use --force to replace it")
	}
	return nil
}

// newPassword prompts for the password a new wallet is encrypted under.
// It returns "" when --no-password is set.
func newPassword(cc *CommandContext) (string, error) {
	if walletNoPassword {
		return "", nil
	}
	pw, err := promptNewPasswordFn(cc.Cfg.Security.MinPasswordLength)
	if err != nil {
		return "", err
	}
	defer sigilcrypto.Zero(pw)
	return string(pw), nil
}

func runWalletCreate(cmd *cobra.Command, _ []string) error {
	cc := newCommandContext()
	ctx, cancel := contextWithTimeout(cmd, commandTimeout)
	defer cancel()

	// Creating a wallet does no hub I/O.
	mgr := cc.Session(nil)
	if err := ensureNoWallet(mgr); err != nil {
		return err
	}
	password, err := newPassword(cc)
	if err != nil {
		return err
	}

	snap, err := mgr.CreateWallet(ctx)
	if err != nil {
		return err
	}
	defer closeSession(ctx, cmd, cc, mgr)

	if password != "" {
		if snap, err = mgr.SetPassword(password); err != nil {
			return err
		}
	}

	secret, err := mgr.RevealSecret()
	if err != nil {
		return err
	}
	defer secret.Destroy()

	res := newWalletResult(cc, snap)
	res.SecretKey = secret.String()
	return cc.Formatter.Result(res, func(w io.Writer) error {
		output.Success(w, "Wallet created")
		res.writeText(w, cc)
		outln(w)
		output.Warn(w, "Write down your secret key and keep it offline. It will not be shown again.")
		outln(w, res.SecretKey)
		return nil
	})
}

func runWalletRestore(cmd *cobra.Command, _ []string) error {
	cc := newCommandContext()
	ctx, cancel := contextWithTimeout(cmd, commandTimeout)
	defer cancel()

	mgr := cc.Session(cc.Hub())
	if err := ensureNoWallet(mgr); err != nil {
		return err
	}

	secret, err := promptSecretFn()
	if err != nil {
		return err
	}
	defer sigilcrypto.Zero(secret)

	// Validate before asking for a password.
	if err := wallet.ValidateMnemonic(string(secret)); err != nil {
		return err
	}

	password, err := newPassword(cc)
	if err != nil {
		return err
	}

	snap, err := mgr.RestoreWallet(ctx, secret, password)
	if err != nil {
		return err
	}
	defer closeSession(ctx, cmd, cc, mgr)

	res := newWalletResult(cc, snap)
	return cc.Formatter.Result(res, func(w io.Writer) error {
		output.Success(w, "Wallet restored with %d account(s)", len(res.Accounts))
		res.writeText(w, cc)
		return nil
	})
}

func runWalletStatus(_ *cobra.Command, _ []string) error {
	cc := newCommandContext()
	mgr := cc.Session(nil)
	snap, err := mgr.Load()
	if err != nil {
		return err
	}

	res := newWalletResult(cc, snap)
	return cc.Formatter.Result(res, func(w io.Writer) error {
		res.writeText(w, cc)
		return nil
	})
}

func runWalletPassword(cmd *cobra.Command, _ []string) error {
	return withUnlockedSession(cmd, func(_ context.Context, cc *CommandContext, mgr *session.Manager) error {
		pw, err := promptNewPasswordFn(cc.Cfg.Security.MinPasswordLength)
		if err != nil {
			return err
		}
		defer sigilcrypto.Zero(pw)

		snap, err := mgr.SetPassword(string(pw))
		if err != nil {
			return err
		}
		res := newWalletResult(cc, snap)
		return cc.Formatter.Result(res, func(w io.Writer) error {
			output.Success(w, "Password updated")
			return nil
		})
	})
}

func runWalletReveal(cmd *cobra.Command, _ []string) error {
	if !walletForce && !promptConfirmFn("Show the secret key on screen?") {
		return sigilerr.WithSuggestion(sigilerr.ErrGeneral, "cancelled")
	}
	return withUnlockedSession(cmd, func(_ context.Context, cc *CommandContext, mgr *session.Manager) error {
		secret, err := mgr.RevealSecret()
		if err != nil {
			return err
		}
		defer secret.Destroy()

		phrase := secret.String()
		return cc.Formatter.Result(map[string]string{"secret_key": phrase}, func(w io.Writer) error {
			words := strings.Fields(phrase)
			for i, word := range words {
				out(w, "%2d. %s\n", i+1, word)
			}
			return nil
		})
	})
}

func runWalletSignOut(_ *cobra.Command, _ []string) error {
	cc := newCommandContext()
	mgr := cc.Session(nil)
	snap, err := mgr.Load()
	if err != nil {
		return err
	}
	if snap.State == session.SignedOut {
		return sigilerr.ErrNotAuthenticated
	}
	if !walletForce && !promptConfirmFn("Delete the stored wallet from this machine?") {
		return sigilerr.WithSuggestion(sigilerr.ErrGeneral, "cancelled")
	}

	snap, err = mgr.SignOut()
	if err != nil {
		return err
	}
	res := newWalletResult(cc, snap)
	return cc.Formatter.Result(res, func(w io.Writer) error {
		output.Success(w, "Signed out")
		return nil
	})
}
