package avatar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TokenProvider issues the short-lived access credential used to open an
// avatar session.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// HTTPTokenProvider fetches tokens from the avatar platform's token endpoint.
type HTTPTokenProvider struct {
	// Endpoint is the full token URL, e.g.
	// "https://api.example.com/v1/streaming.create_token".
	Endpoint string

	// APIKey authenticates the token request.
	APIKey string

	Client *http.Client
}

func (p *HTTPTokenProvider) AccessToken(ctx context.Context) (string, error) {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("X-Api-Key", p.APIKey)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching access token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// The endpoint answers either {"data":{"token":"..."}} or a bare token.
	var envelope struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Data.Token != "" {
		return envelope.Data.Token, nil
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", fmt.Errorf("token endpoint returned an empty credential")
	}
	return token, nil
}

// StaticTokenProvider returns a fixed token; used in tests and examples.
type StaticTokenProvider string

func (p StaticTokenProvider) AccessToken(ctx context.Context) (string, error) {
	if p == "" {
		return "", fmt.Errorf("no token configured")
	}
	return string(p), nil
}
