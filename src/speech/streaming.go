package speech

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/altavoz-labs/avatarflow/src/logger"
)

// StreamingConfig holds connection settings for a hosted streaming
// recognizer (Deepgram-compatible listen endpoint).
type StreamingConfig struct {
	APIKey   string
	Language string // e.g. "es"
	Model    string // e.g. "nova-2"
	Encoding string // "linear16", "mulaw" or "alaw" (default "linear16")
	BaseURL  string // default "wss://api.deepgram.com/v1/listen"
}

// StreamingEngine implements Engine over a websocket recognizer.
// Callers feed captured audio through WriteAudio; transcripts come
// back through the registered Handlers.
type StreamingEngine struct {
	cfg      StreamingConfig
	handlers Handlers
	log      *logger.Logger

	mu      sync.Mutex // protects conn, done and concurrent writes
	conn    *websocket.Conn
	done    chan struct{}
	started bool
}

// NewStreamingEngine creates an engine. Start must be called before
// audio is written.
func NewStreamingEngine(cfg StreamingConfig) *StreamingEngine {
	if cfg.Encoding == "" {
		cfg.Encoding = "linear16"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "wss://api.deepgram.com/v1/listen"
	}
	return &StreamingEngine{
		cfg: cfg,
		log: logger.WithComponent("StreamingEngine"),
	}
}

func (e *StreamingEngine) SetHandlers(h Handlers) {
	e.handlers = h
}

func (e *StreamingEngine) SetLanguage(lang string) {
	e.mu.Lock()
	e.cfg.Language = lang
	e.mu.Unlock()
}

// Start dials the recognizer and begins receiving transcripts. It is
// a no-op if the engine is already running.
func (e *StreamingEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return nil
	}

	sampleRate := "16000"
	if e.cfg.Encoding == "mulaw" || e.cfg.Encoding == "alaw" {
		sampleRate = "8000"
	}

	params := url.Values{}
	params.Set("language", e.cfg.Language)
	if e.cfg.Model != "" {
		params.Set("model", e.cfg.Model)
	}
	params.Set("encoding", e.cfg.Encoding)
	params.Set("sample_rate", sampleRate)
	params.Set("channels", "1")
	params.Set("interim_results", "true")

	wsURL := fmt.Sprintf("%s?%s", e.cfg.BaseURL, params.Encode())
	header := map[string][]string{
		"Authorization": {fmt.Sprintf("Token %s", e.cfg.APIKey)},
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return fmt.Errorf("failed to connect to recognizer: %w", err)
	}

	e.conn = conn
	e.done = make(chan struct{})
	e.started = true

	go e.receiveResults(conn, e.done)
	go e.keepalive(conn, e.done)

	e.log.Info("Connected (language=%s, encoding=%s)", e.cfg.Language, e.cfg.Encoding)
	return nil
}

// Stop asks the recognizer to flush the current utterance and then
// closes the stream, so a pending final result can still arrive.
func (e *StreamingEngine) Stop() error {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()
	if conn == nil {
		return nil
	}

	e.mu.Lock()
	err := conn.WriteJSON(map[string]string{"type": "Finalize"})
	e.mu.Unlock()
	if err != nil {
		e.log.Warn("Finalize failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	return e.Abort()
}

// Abort closes the stream immediately.
func (e *StreamingEngine) Abort() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}
	e.started = false
	close(e.done)
	err := e.conn.Close()
	e.conn = nil
	return err
}

// WriteAudio forwards a chunk of captured audio to the recognizer.
func (e *StreamingEngine) WriteAudio(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return fmt.Errorf("engine not started")
	}
	return e.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (e *StreamingEngine) receiveResults(conn *websocket.Conn, done chan struct{}) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
				strings.Contains(err.Error(), "use of closed network connection") {
				e.log.Debug("Connection closed")
				e.markStopped()
				if e.handlers.OnEnd != nil {
					e.handlers.OnEnd()
				}
				return
			}
			e.log.Warn("Read error: %v", err)
			e.markStopped()
			if e.handlers.OnError != nil {
				e.handlers.OnError(err)
			}
			return
		}

		text, isFinal, ok := parseListenResult(message)
		if !ok || text == "" {
			continue
		}
		e.log.Debug("Transcript (final=%v): %s", isFinal, text)
		if e.handlers.OnResult != nil {
			e.handlers.OnResult(text, isFinal)
		}
	}
}

// keepalive pings the recognizer so it does not time out between
// utterances. The endpoint expects traffic within ~10 seconds.
func (e *StreamingEngine) keepalive(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			e.mu.Lock()
			err := conn.WriteJSON(map[string]string{"type": "KeepAlive"})
			e.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// parseListenResult extracts the top alternative from a listen-API
// response message.
func parseListenResult(data []byte) (text string, isFinal bool, ok bool) {
	var response struct {
		IsFinal bool `json:"is_final"`
		Channel struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
			} `json:"alternatives"`
		} `json:"channel"`
	}
	if err := json.Unmarshal(data, &response); err != nil {
		return "", false, false
	}
	if len(response.Channel.Alternatives) == 0 {
		return "", response.IsFinal, false
	}
	return response.Channel.Alternatives[0].Transcript, response.IsFinal, true
}

func (e *StreamingEngine) markStopped() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return
	}
	e.started = false
	close(e.done)
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
}
