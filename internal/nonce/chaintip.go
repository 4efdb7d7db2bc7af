package nonce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// DefaultTimeout bounds a chain tip request.
const DefaultTimeout = 10 * time.Second

// errNoTip is returned when the node reports no tip height.
var errNoTip = errors.New("node info has no stacks_tip_height")

// APIChainTip reads the tip height from a node's /v2/info endpoint.
type APIChainTip struct {
	client *resty.Client
}

// NewAPIChainTip creates a chain tip provider for the node API at baseURL.
func NewAPIChainTip(baseURL string, timeout time.Duration) *APIChainTip {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &APIChainTip{
		client: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

type nodeInfo struct {
	StacksTipHeight *uint64 `json:"stacks_tip_height"`
}

// TipHeight returns the node's current tip height.
func (a *APIChainTip) TipHeight(ctx context.Context) (uint64, error) {
	var info nodeInfo
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&info).
		Get("/v2/info")
	if err != nil {
		return 0, sigilerr.WithCause(sigilerr.ErrNetworkError, err)
	}
	if resp.IsError() {
		return 0, sigilerr.WithCause(sigilerr.ErrNetworkError,
			fmt.Errorf("chain tip: status %d", resp.StatusCode()))
	}
	if info.StacksTipHeight == nil {
		return 0, sigilerr.WithCause(sigilerr.ErrNetworkError, errNoTip)
	}
	return *info.StacksTipHeight, nil
}
