package avatar

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/altavoz-labs/avatarflow/src/frames"
	"github.com/altavoz-labs/avatarflow/src/logger"
)

// FramePublisher receives the typed frames decoded from the event stream.
// The session bootstrap passes the pipeline task's QueueFrame here.
type FramePublisher func(frames.Frame) error

// ClientConfig holds connection parameters for the streaming-avatar service.
type ClientConfig struct {
	// URL is the websocket endpoint, e.g. "wss://api.example.com/v1/streaming".
	URL string

	// Token is the short-lived access credential from the token endpoint.
	Token string
}

// Client is the websocket implementation of Controller. A single Client is
// scoped to one avatar session; switching personas creates a new one.
type Client struct {
	cfg     ClientConfig
	publish FramePublisher

	conn   *websocket.Conn
	connMu sync.Mutex // protects concurrent websocket writes

	ctx    context.Context
	cancel context.CancelFunc

	// Outstanding sync speak tasks waiting for task_finished.
	pending   map[string]chan struct{}
	pendingMu sync.Mutex

	log *logger.Logger
}

// NewClient creates a client. Connect must be called before any Controller
// method.
func NewClient(cfg ClientConfig, publish FramePublisher) *Client {
	return &Client{
		cfg:     cfg,
		publish: publish,
		pending: make(map[string]chan struct{}),
		log:     logger.WithComponent("AvatarClient"),
	}
}

// Connect dials the event stream and starts the receive loop.
func (c *Client) Connect(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	header := map[string][]string{
		"Authorization": {"Bearer " + c.cfg.Token},
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("failed to connect to avatar service: %w", err)
	}
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	go c.receiveEvents(conn)

	c.log.Info("connected")
	return nil
}

// StartSession sends the session configuration. The service answers with a
// stream_ready event once media is negotiated.
func (c *Client) StartSession(ctx context.Context, req StartRequest) error {
	quality := req.Quality
	if quality == "" {
		quality = QualityHigh
	}
	rate := req.VoiceRate
	if rate == 0 {
		rate = 1.0
	}

	msg := map[string]interface{}{
		"type":       "start_session",
		"avatar_id":  req.AvatarID,
		"quality":    string(quality),
		"language":   req.Language,
		"voice_rate": rate,
	}
	if req.KnowledgeID != "" {
		msg["knowledge_id"] = req.KnowledgeID
	}
	if req.Emotion != "" {
		msg["emotion"] = req.Emotion
	}
	return c.writeJSON(msg)
}

// Speak submits a speech task. In sync mode it blocks until the service
// reports the task finished or ctx expires.
func (c *Client) Speak(ctx context.Context, req SpeakRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return fmt.Errorf("refusing to speak empty text")
	}

	taskID := uuid.NewString()
	var done chan struct{}
	if req.Mode == TaskModeSync {
		done = make(chan struct{})
		c.pendingMu.Lock()
		c.pending[taskID] = done
		c.pendingMu.Unlock()
	}

	msg := map[string]interface{}{
		"type":      "task",
		"task_id":   taskID,
		"task_type": req.Type.String(),
		"task_mode": req.Mode.String(),
		"text":      req.Text,
	}
	if err := c.writeJSON(msg); err != nil {
		if done != nil {
			c.pendingMu.Lock()
			delete(c.pending, taskID)
			c.pendingMu.Unlock()
		}
		return fmt.Errorf("speak: %w", err)
	}

	c.log.Debug("speak task=%s type=%s mode=%s", taskID, req.Type, req.Mode)

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, taskID)
		c.pendingMu.Unlock()
		return ctx.Err()
	}
}

// Interrupt cancels the current speech task, if any.
func (c *Client) Interrupt(ctx context.Context) error {
	return c.writeJSON(map[string]interface{}{"type": "interrupt"})
}

// StartVoiceChat enables SDK-managed microphone capture.
func (c *Client) StartVoiceChat(ctx context.Context, opts VoiceChatOptions) error {
	return c.writeJSON(map[string]interface{}{
		"type":                 "start_voice_chat",
		"is_input_audio_muted": opts.InputAudioMuted,
	})
}

// CloseVoiceChat disables SDK-managed microphone capture.
func (c *Client) CloseVoiceChat() error {
	return c.writeJSON(map[string]interface{}{"type": "close_voice_chat"})
}

func (c *Client) MuteInputAudio() error {
	return c.writeJSON(map[string]interface{}{"type": "mute_input_audio"})
}

func (c *Client) UnmuteInputAudio() error {
	return c.writeJSON(map[string]interface{}{"type": "unmute_input_audio"})
}

// Stop ends the session and closes the event stream.
func (c *Client) Stop() error {
	// Best effort; the connection is going away regardless.
	_ = c.writeJSON(map[string]interface{}{"type": "stop_session"})
	if c.cancel != nil {
		c.cancel()
	}
	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) writeJSON(msg interface{}) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("avatar client not connected")
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) receiveEvents(conn *websocket.Conn) {
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
					strings.Contains(err.Error(), "use of closed network connection") {
					c.log.Debug("connection closed normally")
					return
				}
				c.log.Error("reading event: %v", err)
				c.emit(frames.NewStreamDisconnectedFrame(err.Error()))
				return
			}

			frame, ev, err := decodeEvent(data)
			if err != nil {
				c.log.Warn("%v", err)
				continue
			}

			if ev.Type == eventTaskFinished {
				c.finishTask(ev.TaskID)
				continue
			}
			if frame != nil {
				c.emit(frame)
			}
		}
	}
}

func (c *Client) emit(frame frames.Frame) {
	if c.publish == nil {
		return
	}
	if err := c.publish(frame); err != nil {
		c.log.Warn("publishing %s: %v", frame.Name(), err)
	}
}

func (c *Client) finishTask(taskID string) {
	c.pendingMu.Lock()
	done, ok := c.pending[taskID]
	if ok {
		delete(c.pending, taskID)
	}
	c.pendingMu.Unlock()
	if ok {
		close(done)
	}
}
