package cli

import (
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mrz1836/sigilid/internal/nonce"
	"github.com/mrz1836/sigilid/internal/output"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	nonceAddress string
	nonceValue   uint64
	nonceHeight  uint64
)

// nonceCmd is the parent command for nonce tracking.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var nonceCmd = &cobra.Command{
	Use:   "nonce",
	Short: "Track the latest submitted nonce per address",
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var nonceRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a submitted transaction nonce",
	Long: `Record the nonce of a transaction submitted from an address on the
current network. Without --height the chain tip is fetched from the network
API. The new record replaces any earlier one for the address.

Example:
  sigilid nonce record --nonce 7
  sigilid nonce record --address SP2J6... --nonce 7 --height 150000`,
	Args: cobra.NoArgs,
	RunE: runNonceRecord,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var nonceShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show recorded nonces",
	Args:  cobra.NoArgs,
	RunE:  runNonceShow,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(nonceCmd)
	nonceCmd.AddCommand(nonceRecordCmd)
	nonceCmd.AddCommand(nonceShowCmd)

	nonceRecordCmd.Flags().StringVar(&nonceAddress, "address", "", "sending address (default: current account)")
	nonceRecordCmd.Flags().Uint64Var(&nonceValue, "nonce", 0, "submitted nonce")
	nonceRecordCmd.Flags().Uint64Var(&nonceHeight, "height", 0, "block height at submission (default: chain tip)")
	_ = nonceRecordCmd.MarkFlagRequired("nonce")

	nonceShowCmd.Flags().StringVar(&nonceAddress, "address", "", "only show this address")
}

// nonceResult is the JSON view of one record.
type nonceResult struct {
	Network     string `json:"network"`
	Address     string `json:"address"`
	BlockHeight uint64 `json:"block_height"`
	Nonce       uint64 `json:"nonce"`
}

func toNonceResult(e nonce.Entry) nonceResult {
	return nonceResult{
		Network:     e.Network,
		Address:     e.Address,
		BlockHeight: e.BlockHeight,
		Nonce:       e.Nonce,
	}
}

// currentAddress returns the current account's address on the current
// network.
func currentAddress(cc *CommandContext) (string, error) {
	snap, err := loadSession(cc.Session(nil))
	if err != nil {
		return "", err
	}
	info, ok := snap.CurrentAccount()
	if !ok {
		return "", sigilerr.ErrAccountNotFound
	}
	return info.Address(cc.addressVersion()), nil
}

func runNonceRecord(cmd *cobra.Command, _ []string) error {
	cc := newCommandContext()
	ctx, cancel := contextWithTimeout(cmd, commandTimeout)
	defer cancel()

	address := nonceAddress
	if address == "" {
		var err error
		if address, err = currentAddress(cc); err != nil {
			return err
		}
	}

	tracker, err := cc.Nonces()
	if err != nil {
		return err
	}

	network := cc.Cfg.CurrentNetwork
	recorded := true
	if cmd.Flags().Changed("height") {
		err = tracker.RecordNonce(network, address, nonceHeight, nonceValue)
	} else {
		netCfg, _ := cc.Cfg.Network()
		recorded, err = tracker.RecordSubmission(ctx, nonce.NewAPIChainTip(netCfg.APIURL, nonce.DefaultTimeout),
			network, address, nonceValue)
	}
	if err != nil {
		return err
	}
	if !recorded {
		return cc.Formatter.Result(map[string]bool{"recorded": false}, func(w io.Writer) error {
			output.Info(w, "nonce 0 is not recorded")
			return nil
		})
	}

	rec, _ := tracker.Latest(network, address)
	res := toNonceResult(nonce.Entry{Key: nonce.Key{Network: network, Address: address}, Record: rec})
	return cc.Formatter.Result(res, func(w io.Writer) error {
		output.Success(w, "Recorded nonce %d for %s at height %d", res.Nonce, res.Address, res.BlockHeight)
		return nil
	})
}

func runNonceShow(_ *cobra.Command, _ []string) error {
	cc := newCommandContext()
	tracker, err := cc.Nonces()
	if err != nil {
		return err
	}

	results := make([]nonceResult, 0)
	for _, e := range tracker.Records() {
		if nonceAddress != "" && e.Address != nonceAddress {
			continue
		}
		results = append(results, toNonceResult(e))
	}

	return cc.Formatter.Result(results, func(w io.Writer) error {
		if len(results) == 0 {
			output.Info(w, "no nonces recorded")
			return nil
		}
		table := output.NewTable("NETWORK", "ADDRESS", "HEIGHT", "NONCE")
		for _, r := range results {
			table.AddRow(r.Network, r.Address,
				strconv.FormatUint(r.BlockHeight, 10), strconv.FormatUint(r.Nonce, 10))
		}
		return table.Render(w)
	})
}
