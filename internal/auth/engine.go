package auth

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/mrz1836/sigilid/internal/authtoken"
	"github.com/mrz1836/sigilid/internal/metrics"
	"github.com/mrz1836/sigilid/internal/session"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// DefaultResponseTTL is how long a signed auth response stays valid.
const DefaultResponseTTL = 30 * 24 * time.Hour

// Config holds the engine's dependencies and settings.
type Config struct {
	Hub HubClient

	// Signer defaults to ES256K signing.
	Signer Signer

	// HTTPClient is used for manifest fetches.
	HTTPClient *http.Client

	ManifestTimeout time.Duration
	ResponseTTL     time.Duration

	// DeterministicUsernames blanks the account username while signing so
	// responses are reproducible in test fixtures.
	DeterministicUsernames bool

	// VerifyRequestSignatures rejects requests not signed by public_keys[0].
	VerifyRequestSignatures bool

	Logger  zerolog.Logger
	Metrics *metrics.Metrics

	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine runs the auth handshake. It is safe for concurrent use.
type Engine struct {
	hub             HubClient
	signer          Signer
	http            *resty.Client
	manifestTimeout time.Duration
	responseTTL     time.Duration
	deterministic   bool
	verify          bool
	logger          zerolog.Logger
	metrics         *metrics.Metrics
	now             func() time.Time

	fetches singleflight.Group

	mu       sync.Mutex
	metadata map[string]AppMetadata
	requests map[string]requestState
}

// requestState tracks a raw request token through response building.
type requestState int

const (
	requestPending requestState = iota + 1
	requestConsumed
)

// NewEngine creates an engine.
func NewEngine(cfg Config) *Engine {
	if cfg.Signer == nil {
		cfg.Signer = SignerFunc(authtoken.Sign)
	}
	if cfg.ResponseTTL <= 0 {
		cfg.ResponseTTL = DefaultResponseTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	httpClient := resty.New()
	if cfg.HTTPClient != nil {
		httpClient = resty.NewWithClient(cfg.HTTPClient)
	}

	return &Engine{
		hub:             cfg.Hub,
		signer:          cfg.Signer,
		http:            httpClient,
		manifestTimeout: cfg.ManifestTimeout,
		responseTTL:     cfg.ResponseTTL,
		deterministic:   cfg.DeterministicUsernames,
		verify:          cfg.VerifyRequestSignatures,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		now:             cfg.Now,
		metadata:        make(map[string]AppMetadata),
		requests:        make(map[string]requestState),
	}
}

// DecodeAuthRequest decodes raw with the engine's verification setting.
func (e *Engine) DecodeAuthRequest(raw string) (*Request, error) {
	return DecodeAuthRequest(raw, e.verify)
}

// FinishSignIn answers req with the account at accountIndex of the
// signed-in wallet and makes that account current.
func (e *Engine) FinishSignIn(ctx context.Context, sess SessionStore, req *Request, accountIndex int) (*Response, error) {
	w, err := sess.Wallet()
	if err != nil {
		return nil, err
	}
	defer w.Wipe()

	meta, err := e.ResolveAppMetadata(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := e.BuildAuthResponse(ctx, w, accountIndex, req, meta)
	if err != nil {
		return nil, err
	}

	if _, err := sess.SelectAccount(accountIndex); err != nil {
		return nil, err
	}
	return resp, nil
}

// RedirectURL returns redirect_uri with the signed response appended as the
// authResponse query parameter.
func RedirectURL(resp *Response) (string, error) {
	u, err := url.Parse(resp.Request.RedirectURI)
	if err != nil {
		return "", sigilerr.WithCause(sigilerr.ErrMalformedToken, err)
	}
	q := u.Query()
	q.Set("authResponse", resp.Token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ChooseAccountNeeded reports whether the user should pick an account for
// an incoming request, which is the case once the wallet has accounts.
func ChooseAccountNeeded(snap session.Snapshot) bool {
	return len(snap.Accounts) > 0
}

// reserve claims raw for one response build. It fails while another build
// of the same request is in flight or after one has succeeded.
func (e *Engine) reserve(raw string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.requests[raw]; ok {
		return sigilerr.ErrRequestConsumed
	}
	e.requests[raw] = requestPending
	return nil
}

// release gives up a reservation after a failed build.
func (e *Engine) release(raw string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.requests[raw] == requestPending {
		delete(e.requests, raw)
	}
}

func (e *Engine) markConsumed(raw string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests[raw] = requestConsumed
	delete(e.metadata, raw)
}
