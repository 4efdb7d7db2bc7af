package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mrz1836/sigilid/internal/hub"
	"github.com/mrz1836/sigilid/internal/wallet"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// ResponseVersion is the auth response protocol version.
const ResponseVersion = "1.3.1"

// StxAddress carries the account address on both networks.
type StxAddress struct {
	Mainnet string `json:"mainnet"`
	Testnet string `json:"testnet"`
}

// responseClaims is the signed payload delivered to the app.
type responseClaims struct {
	jwt.RegisteredClaims

	PublicKeys       []string   `json:"public_keys"`
	Username         *string    `json:"username"`
	ProfileURL       string     `json:"profile_url"`
	HubURL           string     `json:"hubUrl"`
	AppDomain        string     `json:"appDomain"`
	Scopes           []string   `json:"scopes"`
	TransitPublicKey string     `json:"transitPublicKey"`
	StxAddress       StxAddress `json:"stxAddress"`
	Version          string     `json:"version"`
}

// Response is a signed auth response with the request it answers.
type Response struct {
	Token        string
	Request      *Request
	AccountIndex int
	App          AppMetadata
}

// BuildAuthResponse signs a response to req for the account at accountIndex.
// It registers the app in the wallet's hub config first; no response is
// returned if any step fails. A request can be answered once.
func (e *Engine) BuildAuthResponse(ctx context.Context, w *wallet.Wallet, accountIndex int, req *Request, meta AppMetadata) (*Response, error) {
	resp, err := e.buildAuthResponse(ctx, w, accountIndex, req, meta)
	e.metrics.RecordAuthResponse(err)
	if err != nil {
		e.logger.Error().Err(err).Int("account_index", accountIndex).Str("origin", req.AppDomain()).Msg("auth response failed")
		return nil, err
	}
	e.logger.Info().Int("account_index", accountIndex).Str("origin", req.AppDomain()).Msg("auth response signed")
	return resp, nil
}

func (e *Engine) buildAuthResponse(ctx context.Context, w *wallet.Wallet, accountIndex int, req *Request, meta AppMetadata) (*Response, error) {
	if err := e.reserve(req.RawToken); err != nil {
		return nil, err
	}

	resp, err := e.signResponse(ctx, w, accountIndex, req, meta)
	if err != nil {
		e.release(req.RawToken)
		return nil, err
	}
	e.markConsumed(req.RawToken)
	return resp, nil
}

func (e *Engine) signResponse(ctx context.Context, w *wallet.Wallet, accountIndex int, req *Request, meta AppMetadata) (*Response, error) {
	account, err := w.Account(accountIndex)
	if err != nil {
		return nil, err
	}
	if e.hub == nil {
		return nil, sigilerr.WithCause(sigilerr.ErrRemoteStorage, errors.New("no hub configured"))
	}

	conn, err := e.hub.Connect(ctx, w)
	if err != nil {
		return nil, err
	}

	cfg, err := e.hub.GetOrCreateWalletConfig(ctx, conn, w, true)
	if err != nil {
		return nil, err
	}
	cfg.SyncIdentities(w.Infos())
	if err := cfg.RegisterApp(accountIndex, hub.App{
		Origin:      req.AppDomain(),
		Scopes:      req.Scopes,
		LastLoginAt: e.now().UnixMilli(),
		AppIcon:     meta.IconURL,
		Name:        meta.Name,
	}); err != nil {
		return nil, err
	}
	if err := e.hub.UpdateWalletConfig(ctx, conn, cfg); err != nil {
		return nil, err
	}

	var token string
	err = withBlankUsername(account, e.deterministic, func() error {
		var signErr error
		token, signErr = e.signer.Sign(e.responseClaims(account, conn, req), account.DataPrivateKey)
		return signErr
	})
	if err != nil {
		return nil, err
	}
	return &Response{Token: token, Request: req, AccountIndex: accountIndex, App: meta}, nil
}

func (e *Engine) responseClaims(account *wallet.Account, conn *hub.Connection, req *Request) responseClaims {
	now := e.now()
	info := account.Info()

	var username *string
	if account.Username != "" {
		name := account.Username
		username = &name
	}

	return responseClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    "did:btc-addr:" + info.IdentityAddress,
			IssuedAt:  jwt.NewNumericDate(now.Truncate(time.Second)),
			ExpiresAt: jwt.NewNumericDate(now.Add(e.responseTTL).Truncate(time.Second)),
		},
		PublicKeys:       []string{info.DataPublicKey},
		Username:         username,
		ProfileURL:       conn.ReadURLPrefix + info.IdentityAddress + "/profile.json",
		HubURL:           conn.URL,
		AppDomain:        req.AppDomain(),
		Scopes:           req.Scopes,
		TransitPublicKey: req.TransitPublicKey,
		StxAddress:       StxAddress{Mainnet: info.MainnetAddress, Testnet: info.TestnetAddress},
		Version:          ResponseVersion,
	}
}

// withBlankUsername runs fn with the account's username cleared when
// enabled, restoring it afterwards whatever fn returns.
func withBlankUsername(account *wallet.Account, enabled bool, fn func() error) error {
	if !enabled {
		return fn()
	}
	saved := account.Username
	account.Username = ""
	defer func() { account.Username = saved }()
	return fn()
}
