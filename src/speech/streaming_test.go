package speech

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

type recognizerStub struct {
	*httptest.Server

	mu    sync.Mutex
	conn  *websocket.Conn
	query map[string]string
	audio [][]byte
}

func newRecognizerStub(t *testing.T) *recognizerStub {
	t.Helper()
	s := &recognizerStub{query: make(map[string]string)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		for k := range r.URL.Query() {
			s.query[k] = r.URL.Query().Get(k)
		}
		s.mu.Unlock()

		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()

		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.BinaryMessage {
				s.mu.Lock()
				s.audio = append(s.audio, data)
				s.mu.Unlock()
			}
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *recognizerStub) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *recognizerStub) push(t *testing.T, v interface{}) {
	t.Helper()
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	require.NotNil(t, conn)
	require.NoError(t, conn.WriteJSON(v))
}

func newStubEngine(t *testing.T, stub *recognizerStub) *StreamingEngine {
	t.Helper()
	return NewStreamingEngine(StreamingConfig{
		APIKey:   "key",
		Language: "es",
		Model:    "nova-2",
		BaseURL:  stub.wsURL(),
	})
}

func TestStreamingEngineConnectionParams(t *testing.T) {
	stub := newRecognizerStub(t)
	e := newStubEngine(t, stub)

	require.NoError(t, e.Start())
	defer e.Abort()

	stub.mu.Lock()
	defer stub.mu.Unlock()
	assert.Equal(t, "es", stub.query["language"])
	assert.Equal(t, "nova-2", stub.query["model"])
	assert.Equal(t, "linear16", stub.query["encoding"])
	assert.Equal(t, "16000", stub.query["sample_rate"])
	assert.Equal(t, "true", stub.query["interim_results"])
}

func TestStreamingEngineDeliversResults(t *testing.T) {
	stub := newRecognizerStub(t)
	e := newStubEngine(t, stub)

	type result struct {
		text  string
		final bool
	}
	var mu sync.Mutex
	var results []result
	e.SetHandlers(Handlers{
		OnResult: func(text string, isFinal bool) {
			mu.Lock()
			defer mu.Unlock()
			results = append(results, result{text, isFinal})
		},
	})

	require.NoError(t, e.Start())
	defer e.Abort()

	stub.push(t, map[string]interface{}{
		"is_final": false,
		"channel": map[string]interface{}{
			"alternatives": []map[string]interface{}{{"transcript": "nece"}},
		},
	})
	stub.push(t, map[string]interface{}{
		"is_final": true,
		"channel": map[string]interface{}{
			"alternatives": []map[string]interface{}{{"transcript": "necesito ayuda"}},
		},
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(results) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, result{"nece", false}, results[0])
	assert.Equal(t, result{"necesito ayuda", true}, results[1])
}

func TestStreamingEngineSkipsEmptyTranscripts(t *testing.T) {
	stub := newRecognizerStub(t)
	e := newStubEngine(t, stub)

	var called bool
	var mu sync.Mutex
	e.SetHandlers(Handlers{
		OnResult: func(text string, isFinal bool) {
			mu.Lock()
			defer mu.Unlock()
			called = true
		},
	})

	require.NoError(t, e.Start())
	defer e.Abort()

	stub.push(t, map[string]interface{}{
		"is_final": true,
		"channel": map[string]interface{}{
			"alternatives": []map[string]interface{}{{"transcript": ""}},
		},
	})

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.False(t, called)
}

func TestStreamingEngineForwardsAudio(t *testing.T) {
	stub := newRecognizerStub(t)
	e := newStubEngine(t, stub)

	require.NoError(t, e.Start())
	defer e.Abort()

	require.NoError(t, e.WriteAudio([]byte{1, 2, 3}))

	assert.Eventually(t, func() bool {
		stub.mu.Lock()
		defer stub.mu.Unlock()
		return len(stub.audio) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestStreamingEngineStartIsIdempotent(t *testing.T) {
	stub := newRecognizerStub(t)
	e := newStubEngine(t, stub)

	require.NoError(t, e.Start())
	require.NoError(t, e.Start())
	require.NoError(t, e.Abort())
	require.NoError(t, e.Abort())
}

func TestWriteAudioBeforeStartFails(t *testing.T) {
	stub := newRecognizerStub(t)
	e := newStubEngine(t, stub)
	assert.Error(t, e.WriteAudio([]byte{1}))
}
