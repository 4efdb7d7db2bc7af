// Package hub talks to the remote identity hub, an opaque key/value store
// addressed per wallet, and keeps the wallet's app-registration config
// there.
package hub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/mrz1836/sigilid/internal/metrics"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// DefaultURL is the public hub used when none is configured.
const DefaultURL = "https://hub.blockstack.org"

// ErrFileNotFound indicates the hub has no file at the requested path.
var ErrFileNotFound = errors.New("hub file not found")

// Request ops, used as metric labels and rate-limit endpoints.
const (
	opInfo = "info"
	opGet  = "get"
	opPut  = "put"
)

// Config holds the client's dependencies.
type Config struct {
	URL       string
	Timeout   time.Duration
	Retry     RetryConfig
	RateLimit float64
	Burst     int
	Logger    zerolog.Logger
	Metrics   *metrics.Metrics

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client is a hub HTTP client with retry and per-endpoint rate limiting.
type Client struct {
	url     string
	http    *resty.Client
	retry   RetryConfig
	limiter *RateLimiter
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewClient creates a hub client.
func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	httpClient := resty.New()
	if cfg.HTTPClient != nil {
		httpClient = resty.NewWithClient(cfg.HTTPClient)
	}
	httpClient.SetTimeout(cfg.Timeout)

	return &Client{
		url:     strings.TrimRight(cfg.URL, "/"),
		http:    httpClient,
		retry:   cfg.Retry,
		limiter: NewRateLimiter(cfg.RateLimit, cfg.Burst),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}
}

// URL returns the hub server URL.
func (c *Client) URL() string {
	return c.url
}

// Info is the hub's self description returned by /hub_info.
type Info struct {
	ReadURLPrefix       string  `json:"read_url_prefix"`
	ChallengeText       string  `json:"challenge_text"`
	MaxFileUploadSizeMB float64 `json:"max_file_upload_size_megabytes"`
}

// Info fetches the hub description.
func (c *Client) Info(ctx context.Context) (*Info, error) {
	resp, err := c.do(ctx, opInfo, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetResult(&Info{}).
			Get(c.url + "/hub_info")
	})
	if err != nil {
		return nil, err
	}

	info, ok := resp.Result().(*Info)
	if !ok || info.ReadURLPrefix == "" {
		return nil, sigilerr.WithCause(sigilerr.ErrRemoteStorage, errors.New("hub_info response missing read_url_prefix"))
	}
	return info, nil
}

// GetFile reads path from the connection's storage bucket.
func (c *Client) GetFile(ctx context.Context, conn *Connection, path string) ([]byte, error) {
	resp, err := c.do(ctx, opGet, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			Get(conn.ReadURLPrefix + conn.Address + "/" + path)
	})
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return resp.Body(), nil
}

// PutFile writes data to path in the connection's storage bucket.
func (c *Client) PutFile(ctx context.Context, conn *Connection, path string, data []byte, contentType string) error {
	_, err := c.do(ctx, opPut, func() (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", contentType).
			SetAuthToken(conn.Token).
			SetBody(data).
			Post(conn.URL + "/store/" + conn.Address + "/" + path)
	})
	return err
}

// do runs a request with rate limiting and retry and maps the outcome to
// the hub error kinds. 404 maps to ErrFileNotFound; 429 and 5xx are retried.
func (c *Client) do(ctx context.Context, op string, send func() (*resty.Response, error)) (*resty.Response, error) {
	resp, err := Retry(ctx, c.retry, func() (*resty.Response, error) {
		if err := c.limiter.Wait(ctx, op); err != nil {
			return nil, err
		}

		resp, err := send()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, WrapRetryable(err)
		}
		return resp, classifyStatus(resp)
	})

	c.metrics.RecordHubRequest(op, ignoreNotFound(err))
	if err == nil || errors.Is(err, ErrFileNotFound) {
		return resp, err
	}

	c.logger.Warn().Err(err).Str("hub_url", c.url).Str("op", op).Msg("hub request failed")
	return nil, sigilerr.WithCause(sigilerr.ErrRemoteStorage, err)
}

func classifyStatus(resp *resty.Response) error {
	status := resp.StatusCode()
	switch {
	case status == http.StatusNotFound:
		return ErrFileNotFound
	case status == http.StatusTooManyRequests:
		return &retryAfterError{
			err:   fmt.Errorf("%w: status %d", ErrRateLimited, status),
			after: ParseRetryAfter(resp.Header().Get("Retry-After")),
		}
	case status >= http.StatusInternalServerError:
		return WrapRetryable(fmt.Errorf("hub returned status %d", status))
	case status >= http.StatusBadRequest:
		return fmt.Errorf("hub returned status %d: %s", status, strings.TrimSpace(resp.String()))
	}
	return nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrFileNotFound) {
		return nil
	}
	return err
}
