package auth

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

func TestDecodeAuthRequest(t *testing.T) {
	t.Parallel()
	key := transitKey(t)
	raw := makeRequest(t, key, "https://app.example.com/manifest.json", func(c *requestClaims) {
		c.Scopes = []string{"store_write", "store_write", "", "publish_data"}
		c.AppDetails = &AppDetails{Name: "Example", Icon: "https://app.example.com/icon.png"}
	})

	req, err := DecodeAuthRequest("  "+raw+"\n", false)
	require.NoError(t, err)

	assert.Equal(t, raw, req.RawToken)
	assert.Equal(t, "https://app.example.com/callback", req.RedirectURI)
	assert.Equal(t, "https://app.example.com/manifest.json", req.ManifestURI)
	assert.Equal(t, []string{"store_write", "publish_data"}, req.Scopes)
	assert.Equal(t, "1.3.1", req.Version)
	assert.Equal(t, "Example", req.AppDetails.Name)
	assert.Len(t, req.PublicKeys, 1)
	assert.Equal(t, req.PublicKeys[0], req.TransitPublicKey)
	assert.Equal(t, "https://app.example.com", req.AppDomain())
	assert.True(t, req.HasScope("publish_data"))
	assert.False(t, req.HasScope("email"))
}

func TestDecodeAuthRequest_DomainNameMatchesRedirect(t *testing.T) {
	t.Parallel()
	raw := makeRequest(t, transitKey(t), "", func(c *requestClaims) {
		c.DomainName = "https://app.example.com/"
	})

	req, err := DecodeAuthRequest(raw, false)
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com", req.AppDomain())
}

func TestDecodeAuthRequest_DomainNameMismatch(t *testing.T) {
	t.Parallel()
	raw := makeRequest(t, transitKey(t), "", func(c *requestClaims) {
		c.RedirectURI = "https://evil.example/cb"
		c.DomainName = "https://victim.example"
	})

	req, err := DecodeAuthRequest(raw, false)
	require.ErrorIs(t, err, sigilerr.ErrMalformedToken)
	assert.Nil(t, req)
}

func TestDecodeAuthRequest_Malformed(t *testing.T) {
	t.Parallel()
	key := transitKey(t)
	unsignedPayload := base64.RawURLEncoding.EncodeToString([]byte(`{"redirect_uri":"https://a.example"}`))

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"not a jwt", "hello"},
		{"garbage segments", "a.b.c"},
		{"bad payload", "eyJhbGciOiJFUzI1NksifQ." + unsignedPayload[:5] + ".sig"},
		{"missing redirect", makeRequest(t, key, "", func(c *requestClaims) { c.RedirectURI = "" })},
		{"relative redirect", makeRequest(t, key, "", func(c *requestClaims) { c.RedirectURI = "/callback" })},
		{"missing public keys", makeRequest(t, key, "", func(c *requestClaims) { c.PublicKeys = nil })},
		{"empty public key", makeRequest(t, key, "", func(c *requestClaims) { c.PublicKeys = []string{""} })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req, err := DecodeAuthRequest(tt.raw, false)
			require.ErrorIs(t, err, sigilerr.ErrMalformedToken)
			assert.Nil(t, req)
		})
	}
}

func TestDecodeAuthRequest_Verify(t *testing.T) {
	t.Parallel()
	key := transitKey(t)
	other := transitKey(t)

	signed := makeRequest(t, key, "", nil)
	_, err := DecodeAuthRequest(signed, true)
	require.NoError(t, err)

	// Claims name one key, the signature comes from another.
	forged := makeRequest(t, other, "", func(c *requestClaims) {
		c.PublicKeys = []string{makePubHex(key)}
	})
	_, err = DecodeAuthRequest(forged, false)
	require.NoError(t, err)
	_, err = DecodeAuthRequest(forged, true)
	require.ErrorIs(t, err, sigilerr.ErrMalformedToken)

	badKey := makeRequest(t, key, "", func(c *requestClaims) {
		c.PublicKeys = []string{"not-hex"}
	})
	_, err = DecodeAuthRequest(badKey, true)
	require.ErrorIs(t, err, sigilerr.ErrMalformedToken)

	parts := strings.Split(signed, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))
	_, err = DecodeAuthRequest(tampered, true)
	require.ErrorIs(t, err, sigilerr.ErrMalformedToken)
}

func TestEngineDecodeAuthRequest_UsesVerifySetting(t *testing.T) {
	t.Parallel()
	key := transitKey(t)
	forged := makeRequest(t, transitKey(t), "", func(c *requestClaims) {
		c.PublicKeys = []string{makePubHex(key)}
	})

	lenient := newEngineFixture(t, nil)
	_, err := lenient.engine.DecodeAuthRequest(forged)
	require.NoError(t, err)

	strict := newEngineFixture(t, func(c *Config) { c.VerifyRequestSignatures = true })
	_, err = strict.engine.DecodeAuthRequest(forged)
	require.ErrorIs(t, err, sigilerr.ErrMalformedToken)
}
