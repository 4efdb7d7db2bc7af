// Package auth implements the sign-in handshake with requesting
// applications: it decodes auth request tokens, resolves the app's
// metadata and builds signed auth responses bound to one account.
package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mrz1836/sigilid/internal/authtoken"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

// AppDetails is the optional app description carried in a request.
type AppDetails struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// requestClaims is the payload of an auth request token.
type requestClaims struct {
	jwt.RegisteredClaims

	RedirectURI string      `json:"redirect_uri"`
	ManifestURI string      `json:"manifest_uri"`
	DomainName  string      `json:"domain_name"`
	PublicKeys  []string    `json:"public_keys"`
	Scopes      []string    `json:"scopes"`
	Version     string      `json:"version"`
	AppDetails  *AppDetails `json:"appDetails,omitempty"`
}

// Request is a decoded auth request. It is not modified after decoding.
type Request struct {
	RawToken    string
	RedirectURI string
	ManifestURI string
	DomainName  string
	Scopes      []string
	Version     string
	AppDetails  *AppDetails

	// TransitPublicKey is the first entry of public_keys; the response
	// echoes it back.
	TransitPublicKey string
	PublicKeys       []string
}

// AppDomain returns the origin of redirect_uri, where the response is
// delivered.
func (r *Request) AppDomain() string {
	u, err := url.Parse(r.RedirectURI)
	if err != nil {
		return ""
	}
	return origin(u)
}

func origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// HasScope reports whether the app requested scope.
func (r *Request) HasScope(scope string) bool {
	for _, s := range r.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// DecodeAuthRequest parses a raw request token. redirect_uri must be an
// absolute URL, domain_name (when present) must be its origin and
// public_keys must be non-empty. When verify is set the token's signature
// must match public_keys[0].
func DecodeAuthRequest(raw string, verify bool) (*Request, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, sigilerr.ErrMalformedToken
	}

	var claims requestClaims
	if err := authtoken.ParseUnverified(raw, &claims); err != nil {
		return nil, sigilerr.WithCause(sigilerr.ErrMalformedToken, err)
	}

	redirect, err := url.Parse(claims.RedirectURI)
	if claims.RedirectURI == "" || err != nil || redirect.Scheme == "" || redirect.Host == "" {
		return nil, sigilerr.WithCause(sigilerr.ErrMalformedToken, errors.New("missing or invalid redirect_uri"))
	}
	if claims.DomainName != "" && strings.TrimRight(claims.DomainName, "/") != origin(redirect) {
		return nil, sigilerr.WithCause(sigilerr.ErrMalformedToken,
			fmt.Errorf("domain_name %q does not match redirect_uri origin %q", claims.DomainName, origin(redirect)))
	}
	if len(claims.PublicKeys) == 0 || claims.PublicKeys[0] == "" {
		return nil, sigilerr.WithCause(sigilerr.ErrMalformedToken, errors.New("missing public_keys"))
	}

	if verify {
		if err := verifyRequest(raw, claims.PublicKeys[0]); err != nil {
			return nil, sigilerr.WithCause(sigilerr.ErrMalformedToken, err)
		}
	}

	return &Request{
		RawToken:         raw,
		RedirectURI:      claims.RedirectURI,
		ManifestURI:      claims.ManifestURI,
		DomainName:       claims.DomainName,
		Scopes:           uniqueScopes(claims.Scopes),
		Version:          claims.Version,
		AppDetails:       claims.AppDetails,
		TransitPublicKey: claims.PublicKeys[0],
		PublicKeys:       append([]string(nil), claims.PublicKeys...),
	}, nil
}

func verifyRequest(raw, publicKeyHex string) error {
	pub, err := authtoken.ParsePublicKeyHex(publicKeyHex)
	if err != nil {
		return err
	}
	if err := authtoken.Verify(raw, &requestClaims{}, pub); err != nil {
		return fmt.Errorf("verifying request signature: %w", err)
	}
	return nil
}

func uniqueScopes(scopes []string) []string {
	seen := make(map[string]struct{}, len(scopes))
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		if _, ok := seen[s]; ok || s == "" {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
