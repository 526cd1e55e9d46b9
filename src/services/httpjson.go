// Package services holds the HTTP clients for the persona backends and the
// plumbing they share: a bounded-timeout client and the upstream error
// taxonomy (non-2xx vs. non-JSON responses).
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds every backend turn call. A timeout is treated the
// same as any other failed call: logged, no retry, turn abandoned.
const DefaultTimeout = 30 * time.Second

// UpstreamError reports a non-2xx status from a persona backend.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// ProtocolError reports a response body that was expected to be JSON but was
// not. The raw body is preserved for diagnostics.
type ProtocolError struct {
	RawBody string
	Err     error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("upstream returned invalid JSON: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewHTTPClient returns the client used for all backend calls.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}

// PostJSON posts in as JSON and decodes the response into out. out may be a
// *json.RawMessage when the caller wants to defer shape interpretation.
func PostJSON(ctx context.Context, client *http.Client, url string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return do(client, req, out)
}

// GetJSON issues a GET and decodes the response into out.
func GetJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return do(client, req, out)
}

func do(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{Status: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProtocolError{RawBody: truncate(string(body), 200), Err: err}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
