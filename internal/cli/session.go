package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/sigilid/internal/output"
	"github.com/mrz1836/sigilid/internal/session"
	"github.com/mrz1836/sigilid/internal/sigilcrypto"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// commandTimeout bounds a command's network work.
const commandTimeout = 2 * time.Minute

// loadSession rehydrates the stored session. A wallet must exist.
func loadSession(mgr *session.Manager) (session.Snapshot, error) {
	snap, err := mgr.Load()
	if err != nil {
		return snap, err
	}
	if snap.State == session.SignedOut {
		return snap, sigilerr.WithSuggestion(sigilerr.ErrNoStoredKey,
			"run 'sigilid wallet create' or 'sigilid wallet restore' first")
	}
	return snap, nil
}

// unlockSession loads the stored session and unlocks it, prompting for the
// password when one has been set.
func unlockSession(ctx context.Context, cmd *cobra.Command, cc *CommandContext, mgr *session.Manager) (session.Snapshot, error) {
	snap, err := loadSession(mgr)
	if err != nil {
		return snap, err
	}
	if snap.State == session.SignedIn {
		return snap, nil
	}

	password := cc.Cfg.Security.DefaultPassword
	if snap.HasPassword {
		pw, err := promptPasswordFn("Enter wallet password: ")
		if err != nil {
			return snap, err
		}
		password = string(pw)
		sigilcrypto.Zero(pw)
	} else {
		output.Warn(cmd.ErrOrStderr(), "wallet has no password; run 'sigilid wallet password' to set one")
	}
	return mgr.Unlock(ctx, password)
}

// closeSession waits for background hub writes and locks the session so
// the secret never outlives the command.
func closeSession(ctx context.Context, cmd *cobra.Command, cc *CommandContext, mgr *session.Manager) {
	if err := mgr.Wait(ctx); err != nil {
		cc.Log.Warn().Err(err).Msg("background hub writes still pending")
		output.Warn(cmd.ErrOrStderr(), "hub sync did not finish: %v", err)
	}
	if mgr.Snapshot().State != session.SignedIn {
		return
	}
	if _, err := mgr.Lock(); err != nil {
		cc.Log.Error().Err(err).Msg("locking session failed")
	}
}

// withUnlockedSession runs fn against an unlocked session and locks it
// again afterwards.
func withUnlockedSession(cmd *cobra.Command, fn func(ctx context.Context, cc *CommandContext, mgr *session.Manager) error) error {
	cc := newCommandContext()
	ctx, cancel := contextWithTimeout(cmd, commandTimeout)
	defer cancel()

	mgr := cc.Session(cc.Hub())
	if _, err := unlockSession(ctx, cmd, cc, mgr); err != nil {
		return err
	}
	defer closeSession(ctx, cmd, cc, mgr)

	return fn(ctx, cc, mgr)
}
