package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSONRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "hola", in["greeting"])
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := PostJSON(context.Background(), srv.Client(), srv.URL, map[string]string{"greeting": "hola"}, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
}

func TestNonTwoHundredBecomesUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "conversation not found", http.StatusNotFound)
	}))
	defer srv.Close()

	err := GetJSON(context.Background(), srv.Client(), srv.URL, &json.RawMessage{})
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusNotFound, ue.Status)
	assert.Contains(t, ue.Body, "conversation not found")
}

func TestInvalidJSONBecomesProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>oops</html>")
	}))
	defer srv.Close()

	var out json.RawMessage
	err := GetJSON(context.Background(), srv.Client(), srv.URL, &out)
	require.Error(t, err)

	var pe *ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Contains(t, pe.RawBody, "<html>oops</html>")
}

func TestProtocolErrorTruncatesLongBodies(t *testing.T) {
	long := strings.Repeat("x", 5000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, long)
	}))
	defer srv.Close()

	var out json.RawMessage
	err := GetJSON(context.Background(), srv.Client(), srv.URL, &out)

	var pe *ProtocolError
	require.True(t, errors.As(err, &pe))
	assert.Len(t, pe.RawBody, 200)
}

func TestRawMessageDefersShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"anything":["goes",1,true]}`)
	}))
	defer srv.Close()

	var raw json.RawMessage
	require.NoError(t, GetJSON(context.Background(), srv.Client(), srv.URL, &raw))
	assert.JSONEq(t, `{"anything":["goes",1,true]}`, string(raw))
}

func TestContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := GetJSON(ctx, srv.Client(), srv.URL, &json.RawMessage{})
	assert.Error(t, err)
}
