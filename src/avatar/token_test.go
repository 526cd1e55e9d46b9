package avatar

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTokenProviderEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret-key", r.Header.Get("X-Api-Key"))
		io.WriteString(w, `{"data":{"token":"tok-123"}}`)
	}))
	defer srv.Close()

	p := &HTTPTokenProvider{Endpoint: srv.URL, APIKey: "secret-key"}
	token, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)
}

func TestHTTPTokenProviderBareBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "tok-raw\n")
	}))
	defer srv.Close()

	p := &HTTPTokenProvider{Endpoint: srv.URL, APIKey: "k"}
	token, err := p.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-raw", token)
}

func TestHTTPTokenProviderUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := &HTTPTokenProvider{Endpoint: srv.URL, APIKey: "bad"}
	_, err := p.AccessToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestStaticTokenProvider(t *testing.T) {
	token, err := StaticTokenProvider("tok").AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	_, err = StaticTokenProvider("").AccessToken(context.Background())
	assert.Error(t, err)
}
