package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// AppMetadata describes the requesting application.
type AppMetadata struct {
	Name      string `json:"name"`
	IconURL   string `json:"icon_url"`
	OriginURL string `json:"origin_url"`
}

// manifest is the subset of a web app manifest that is read.
type manifest struct {
	Name  string `json:"name"`
	Icons []struct {
		Src string `json:"src"`
	} `json:"icons"`
}

// ResolveAppMetadata returns the app's name and icon. Details carried by the
// request are used as is; otherwise the manifest is fetched exactly once and
// the result is cached for the request. Concurrent callers share one fetch.
// A failed or canceled fetch caches nothing.
func (e *Engine) ResolveAppMetadata(ctx context.Context, req *Request) (AppMetadata, error) {
	if d := req.AppDetails; d != nil && d.Name != "" && d.Icon != "" {
		return AppMetadata{Name: d.Name, IconURL: d.Icon, OriginURL: req.AppDomain()}, nil
	}

	if meta, ok := e.cachedMetadata(req.RawToken); ok {
		return meta, nil
	}

	for {
		ch := e.fetches.DoChan(req.RawToken, func() (any, error) {
			return e.loadManifest(ctx, req)
		})

		select {
		case <-ctx.Done():
			return AppMetadata{}, sigilerr.WithCause(sigilerr.ErrManifestUnavailable, ctx.Err())
		case res := <-ch:
			// A shared fetch canceled by another caller is retried while
			// this caller's context is live.
			if res.Err != nil && res.Shared && ctx.Err() == nil && errors.Is(res.Err, context.Canceled) {
				continue
			}
			if res.Err != nil {
				return AppMetadata{}, res.Err
			}
			meta, _ := res.Val.(AppMetadata)
			return meta, nil
		}
	}
}

// loadManifest fetches and caches the manifest unless an earlier fetch
// already cached it.
func (e *Engine) loadManifest(ctx context.Context, req *Request) (AppMetadata, error) {
	if meta, ok := e.cachedMetadata(req.RawToken); ok {
		return meta, nil
	}

	meta, err := e.fetchManifest(ctx, req)
	e.metrics.RecordManifestFetch(err)
	if err != nil {
		e.logger.Warn().Err(err).Str("origin", req.AppDomain()).Str("manifest_uri", req.ManifestURI).Msg("app manifest unavailable")
		return AppMetadata{}, sigilerr.WithCause(sigilerr.ErrManifestUnavailable, err)
	}

	e.mu.Lock()
	e.metadata[req.RawToken] = meta
	e.mu.Unlock()
	return meta, nil
}

func (e *Engine) cachedMetadata(raw string) (AppMetadata, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	meta, ok := e.metadata[raw]
	return meta, ok
}

func (e *Engine) fetchManifest(ctx context.Context, req *Request) (AppMetadata, error) {
	base, err := url.Parse(req.ManifestURI)
	if req.ManifestURI == "" || err != nil || base.Host == "" {
		return AppMetadata{}, errors.New("request has no usable manifest_uri")
	}

	if e.manifestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.manifestTimeout)
		defer cancel()
	}

	resp, err := e.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		Get(base.String())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return AppMetadata{}, ctxErr
		}
		return AppMetadata{}, fmt.Errorf("fetching manifest: %w", err)
	}
	if resp.IsError() {
		return AppMetadata{}, fmt.Errorf("fetching manifest: status %d", resp.StatusCode())
	}

	var m manifest
	if err := json.Unmarshal(resp.Body(), &m); err != nil {
		return AppMetadata{}, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Name == "" || len(m.Icons) == 0 || m.Icons[0].Src == "" {
		return AppMetadata{}, errors.New("manifest is missing name or icons")
	}

	icon, err := base.Parse(m.Icons[0].Src)
	if err != nil {
		return AppMetadata{}, fmt.Errorf("parsing manifest icon: %w", err)
	}
	return AppMetadata{Name: m.Name, IconURL: icon.String(), OriginURL: req.AppDomain()}, nil
}
