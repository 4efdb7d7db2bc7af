package cli

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/sigilid/internal/auth"
	"github.com/mrz1836/sigilid/internal/output"
	"github.com/mrz1836/sigilid/internal/session"
)

// authRequestParam is the query parameter apps pass the request token in.
const authRequestParam = "authRequest"

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var respondAccount int

// authCmd is the parent command for app sign-in.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Answer app sign-in requests",
	Long: `Inspect and answer decentralized-identity sign-in requests.

A request is either the raw authRequest token or the full sign-in URL that
carries it.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var authDecodeCmd = &cobra.Command{
	Use:   "decode <authRequest>",
	Short: "Show what an app is asking for",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuthDecode,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var authRespondCmd = &cobra.Command{
	Use:   "respond <authRequest>",
	Short: "Sign in to an app",
	Long: `Register the app in the wallet config, sign an auth response with the
chosen account and print the URL that returns it to the app.

Example:
  sigilid auth respond 'https://wallet.example/#/sign-in?authRequest=eyJ...'
  sigilid auth respond eyJ... --account 1`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthRespond,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authDecodeCmd)
	authCmd.AddCommand(authRespondCmd)

	authRespondCmd.Flags().IntVar(&respondAccount, "account", -1, "account index (default: current account)")
}

// authRequestToken returns the request token from a raw token or from a
// URL carrying it in its query or fragment.
func authRequestToken(arg string) string {
	arg = strings.TrimSpace(arg)
	u, err := url.Parse(arg)
	if err != nil || u.Scheme == "" {
		return arg
	}
	if tok := u.Query().Get(authRequestParam); tok != "" {
		return tok
	}
	if _, query, ok := strings.Cut(u.Fragment, "?"); ok {
		if q, err := url.ParseQuery(query); err == nil && q.Get(authRequestParam) != "" {
			return q.Get(authRequestParam)
		}
	}
	return arg
}

// authRequestResult is the JSON view of a decoded request.
type authRequestResult struct {
	App         *auth.AppMetadata `json:"app,omitempty"`
	AppDomain   string            `json:"app_domain"`
	RedirectURI string            `json:"redirect_uri"`
	ManifestURI string            `json:"manifest_uri,omitempty"`
	Scopes      []string          `json:"scopes"`
	Version     string            `json:"version,omitempty"`
}

func runAuthDecode(cmd *cobra.Command, args []string) error {
	cc := newCommandContext()
	ctx, cancel := contextWithTimeout(cmd, commandTimeout)
	defer cancel()

	engine := cc.Engine(nil)
	req, err := engine.DecodeAuthRequest(authRequestToken(args[0]))
	if err != nil {
		return err
	}

	res := authRequestResult{
		AppDomain:   req.AppDomain(),
		RedirectURI: req.RedirectURI,
		ManifestURI: req.ManifestURI,
		Scopes:      req.Scopes,
		Version:     req.Version,
	}
	if res.Scopes == nil {
		res.Scopes = []string{}
	}
	meta, metaErr := engine.ResolveAppMetadata(ctx, req)
	if metaErr == nil {
		res.App = &meta
	}

	return cc.Formatter.Result(res, func(w io.Writer) error {
		if res.App != nil {
			out(w, "App:       %s\n", res.App.Name)
			out(w, "Icon:      %s\n", res.App.IconURL)
		} else {
			output.Warn(w, "app details unavailable: %v", metaErr)
		}
		out(w, "Origin:    %s\n", res.AppDomain)
		out(w, "Redirect:  %s\n", res.RedirectURI)
		out(w, "Scopes:    %s\n", strings.Join(res.Scopes, ", "))
		return nil
	})
}

// authResponseResult is the JSON view of a signed response.
type authResponseResult struct {
	App          auth.AppMetadata `json:"app"`
	AccountIndex int              `json:"account_index"`
	RedirectURL  string           `json:"redirect_url"`
}

func runAuthRespond(cmd *cobra.Command, args []string) error {
	token := authRequestToken(args[0])
	return withUnlockedSession(cmd, func(ctx context.Context, cc *CommandContext, mgr *session.Manager) error {
		engine := cc.Engine(cc.Hub())
		req, err := engine.DecodeAuthRequest(token)
		if err != nil {
			return err
		}

		index := respondAccount
		if index < 0 {
			index = mgr.Snapshot().CurrentAccountIndex
		}

		resp, err := engine.FinishSignIn(ctx, mgr, req, index)
		if err != nil {
			return err
		}
		redirect, err := auth.RedirectURL(resp)
		if err != nil {
			return err
		}

		res := authResponseResult{App: resp.App, AccountIndex: resp.AccountIndex, RedirectURL: redirect}
		return cc.Formatter.Result(res, func(w io.Writer) error {
			output.Success(w, "Signed in to %s", resp.App.Name)
			outln(w, redirect)
			return nil
		})
	})
}
