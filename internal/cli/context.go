package cli

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mrz1836/sigilid/internal/auth"
	"github.com/mrz1836/sigilid/internal/config"
	"github.com/mrz1836/sigilid/internal/hub"
	"github.com/mrz1836/sigilid/internal/metrics"
	"github.com/mrz1836/sigilid/internal/nonce"
	"github.com/mrz1836/sigilid/internal/output"
	"github.com/mrz1836/sigilid/internal/session"
)

// CommandContext holds the dependencies a command runs with.
type CommandContext struct {
	Cfg       *config.Config
	Log       zerolog.Logger
	Formatter *output.Formatter
	Metrics   *metrics.Metrics
}

// newCommandContext builds a context from the globals set by initGlobals.
func newCommandContext() *CommandContext {
	log := zerolog.Nop()
	if logger != nil {
		log = logger.Zerolog()
	}
	return &CommandContext{
		Cfg:       cfg,
		Log:       log,
		Formatter: formatter,
		Metrics:   metrics.Global,
	}
}

// Hub returns a hub client for the configured hub.
func (c *CommandContext) Hub() *hub.Client {
	retry := hub.DefaultRetryConfig()
	retry.MaxAttempts = c.Cfg.Hub.RetryAttempts
	return hub.NewClient(hub.Config{
		URL:       c.Cfg.Hub.URL,
		Timeout:   c.Cfg.Hub.Timeout,
		Retry:     retry,
		RateLimit: c.Cfg.Hub.RateLimit,
		Burst:     c.Cfg.Hub.Burst,
		Logger:    c.Log.With().Str("component", "hub").Logger(),
		Metrics:   c.Metrics,
	})
}

// Session returns a session manager backed by the state file in home.
// A nil client keeps the session off the network.
func (c *CommandContext) Session(hubClient *hub.Client) *session.Manager {
	var h session.HubClient
	if hubClient != nil {
		h = hubClient
	}
	return session.NewManager(session.Config{
		Hub:               h,
		Store:             session.NewFileStore(c.Cfg.GetHome()),
		DefaultPassword:   c.Cfg.Security.DefaultPassword,
		MinPasswordLength: c.Cfg.Security.MinPasswordLength,
		Logger:            c.Log.With().Str("component", "session").Logger(),
		Metrics:           c.Metrics,
	})
}

// Engine returns an auth engine using hubClient for app registration.
// Decoding and manifest lookups work without one.
func (c *CommandContext) Engine(hubClient *hub.Client) *auth.Engine {
	var h auth.HubClient
	if hubClient != nil {
		h = hubClient
	}
	return auth.NewEngine(auth.Config{
		Hub:                     h,
		ManifestTimeout:         c.Cfg.Auth.ManifestTimeout,
		ResponseTTL:             c.Cfg.Auth.ResponseTTL,
		DeterministicUsernames:  c.Cfg.Auth.DeterministicUsernames,
		VerifyRequestSignatures: c.Cfg.Auth.VerifyRequestSignatures,
		Logger:                  c.Log.With().Str("component", "auth").Logger(),
		Metrics:                 c.Metrics,
	})
}

// Nonces returns a loaded nonce tracker backed by the nonce file in home.
func (c *CommandContext) Nonces() (*nonce.Tracker, error) {
	t := nonce.NewTracker(nonce.NewFileStore(c.Cfg.GetHome()),
		c.Log.With().Str("component", "nonce").Logger())
	if err := t.Load(); err != nil {
		return nil, err
	}
	return t, nil
}

// addressVersion returns the c32 version of the current network.
func (c *CommandContext) addressVersion() byte {
	n, _ := c.Cfg.Network()
	return n.AddressVersion()
}

// contextWithTimeout returns a timeout context rooted in the command context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, d)
}
