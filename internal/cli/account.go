package cli

import (
	"context"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/sigilid/internal/output"
	"github.com/mrz1836/sigilid/internal/session"
	"github.com/mrz1836/sigilid/internal/wallet"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	receiveIndex int
	receiveQR    bool
)

// accountCmd is the parent command for account operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage wallet accounts",
	Long:  `Derive, list and select the accounts of the wallet.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Derive the next account",
	Long: `Derive the next account and make it current. The hub copy of the
wallet config is updated afterwards; a hub failure is reported but the
account is kept.`,
	Args: cobra.NoArgs,
	RunE: runAccountCreate,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE:  runAccountList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountSelectCmd = &cobra.Command{
	Use:   "select <index>",
	Short: "Make an account current",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountSelect,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountReceiveCmd = &cobra.Command{
	Use:   "receive",
	Short: "Show an account's address",
	Long: `Show the address of the current account, or of --index, on the
current network.

Example:
  sigilid account receive
  sigilid account receive --index 1 --qr`,
	Args: cobra.NoArgs,
	RunE: runAccountReceive,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountSelectCmd)
	accountCmd.AddCommand(accountReceiveCmd)

	accountReceiveCmd.Flags().IntVar(&receiveIndex, "index", -1, "account index (default: current account)")
	accountReceiveCmd.Flags().BoolVar(&receiveQR, "qr", false, "show the address as a QR code")
}

// accountResult is the JSON view of one account.
type accountResult struct {
	wallet.AccountInfo

	Address string `json:"address"`
	Current bool   `json:"current"`
	Synced  *bool  `json:"hub_synced,omitempty"`
}

func newAccountResult(cc *CommandContext, info wallet.AccountInfo, current int) accountResult {
	return accountResult{
		AccountInfo: info,
		Address:     info.Address(cc.addressVersion()),
		Current:     int(info.Index) == current,
	}
}

func parseAccountIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, sigilerr.WithDetails(sigilerr.ErrInvalidInput, map[string]string{"index": s})
	}
	return i, nil
}

func runAccountCreate(cmd *cobra.Command, _ []string) error {
	return withUnlockedSession(cmd, func(ctx context.Context, cc *CommandContext, mgr *session.Manager) error {
		info, task, err := mgr.CreateAccount(ctx)
		if err != nil {
			return err
		}

		// The upload runs in the background; report how it went.
		synced := task.Wait(ctx) == nil
		res := newAccountResult(cc, info, int(info.Index))
		res.Synced = &synced

		return cc.Formatter.Result(res, func(w io.Writer) error {
			output.Success(w, "Created %s", info.DisplayName)
			out(w, "Address: %s\n", res.Address)
			if !synced {
				output.Warn(w, "the hub was not updated; the account will sync on the next account change")
			}
			return nil
		})
	})
}

func runAccountList(_ *cobra.Command, _ []string) error {
	cc := newCommandContext()
	snap, err := loadSession(cc.Session(nil))
	if err != nil {
		return err
	}

	results := make([]accountResult, 0, len(snap.Accounts))
	for _, info := range snap.Accounts {
		results = append(results, newAccountResult(cc, info, snap.CurrentAccountIndex))
	}

	return cc.Formatter.Result(results, func(w io.Writer) error {
		table := output.NewTable("", "INDEX", "NAME", "ADDRESS")
		for _, r := range results {
			marker := ""
			if r.Current {
				marker = "*"
			}
			table.AddRow(marker, strconv.Itoa(int(r.Index)), r.DisplayName, r.Address)
		}
		return table.Render(w)
	})
}

func runAccountSelect(cmd *cobra.Command, args []string) error {
	index, err := parseAccountIndex(args[0])
	if err != nil {
		return err
	}
	return withUnlockedSession(cmd, func(_ context.Context, cc *CommandContext, mgr *session.Manager) error {
		snap, err := mgr.SelectAccount(index)
		if err != nil {
			return err
		}
		info, _ := snap.CurrentAccount()
		res := newAccountResult(cc, info, snap.CurrentAccountIndex)
		return cc.Formatter.Result(res, func(w io.Writer) error {
			output.Success(w, "Selected %s", info.DisplayName)
			return nil
		})
	})
}

func runAccountReceive(_ *cobra.Command, _ []string) error {
	cc := newCommandContext()
	snap, err := loadSession(cc.Session(nil))
	if err != nil {
		return err
	}

	index := receiveIndex
	if index < 0 {
		index = snap.CurrentAccountIndex
	}
	if index >= len(snap.Accounts) {
		return sigilerr.WithDetails(sigilerr.ErrAccountNotFound, map[string]string{
			"index": strconv.Itoa(index),
			"count": strconv.Itoa(len(snap.Accounts)),
		})
	}

	res := newAccountResult(cc, snap.Accounts[index], snap.CurrentAccountIndex)
	return cc.Formatter.Result(res, func(w io.Writer) error {
		out(w, "%s\n", res.DisplayName)
		outln(w, res.Address)
		if receiveQR {
			output.WriteQR(w, res.Address, output.DefaultQRConfig())
		}
		return nil
	})
}
