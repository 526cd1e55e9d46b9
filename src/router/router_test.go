package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altavoz-labs/avatarflow/src/avatar"
	"github.com/altavoz-labs/avatarflow/src/history"
	"github.com/altavoz-labs/avatarflow/src/personas"
	"github.com/altavoz-labs/avatarflow/src/processors"
	"github.com/altavoz-labs/avatarflow/src/store"
)

type fakeSpeaker struct {
	mu         sync.Mutex
	spoken     []avatar.SpeakRequest
	interrupts int
	speakErr   error
}

func (f *fakeSpeaker) Speak(ctx context.Context, req avatar.SpeakRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.speakErr != nil {
		return f.speakErr
	}
	f.spoken = append(f.spoken, req)
	return nil
}

func (f *fakeSpeaker) Interrupt(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interrupts++
	return nil
}

func (f *fakeSpeaker) requests() []avatar.SpeakRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]avatar.SpeakRequest, len(f.spoken))
	copy(out, f.spoken)
	return out
}

type fakeBackend struct {
	mu       sync.Mutex
	calls    int
	lastSess *store.Session
	lastText string
	response json.RawMessage
	err      error
}

func (f *fakeBackend) SendTurn(ctx context.Context, sess *store.Session, utterance string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastSess = sess
	f.lastText = utterance
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func newTestRouter(t *testing.T) (*Router, *fakeSpeaker, *store.Store, *history.Tracker, *processors.TalkingState) {
	t.Helper()
	speaker := &fakeSpeaker{}
	st := store.New()
	tracker := history.NewTracker()
	talking := processors.NewTalkingState()
	r := New(personas.NewRegistry(), st, speaker, tracker, talking)
	return r, speaker, st, tracker, talking
}

func TestDispatchKnowledgePersonaTalksVerbatim(t *testing.T) {
	r, speaker, _, _, _ := newTestRouter(t)
	backend := &fakeBackend{}
	r.Register(personas.GestorCobranza, Route{Backend: backend, Extract: ExtractCollectionsReply})

	err := r.Dispatch(context.Background(), personas.Volcano, "cuéntame sobre los volcanes")
	require.NoError(t, err)

	reqs := speaker.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "cuéntame sobre los volcanes", reqs[0].Text)
	assert.Equal(t, avatar.TaskTypeTalk, reqs[0].Type)
	assert.Equal(t, 0, backend.calls, "knowledge personas never hit a backend")
}

func TestDispatchCollectionsTurn(t *testing.T) {
	r, speaker, st, _, _ := newTestRouter(t)
	backend := &fakeBackend{response: json.RawMessage(`{"agent_response":"Su saldo pendiente es de $5,000"}`)}
	r.Register(personas.GestorCobranza, Route{Backend: backend, Extract: ExtractCollectionsReply})

	st.SetSession(personas.GestorCobranza, store.Session{SessionID: "abc-123"})

	err := r.Dispatch(context.Background(), personas.GestorCobranza, "¿cuánto debo?")
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, "abc-123", backend.lastSess.SessionID)
	assert.Equal(t, "¿cuánto debo?", backend.lastText)

	reqs := speaker.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Su saldo pendiente es de $5,000", reqs[0].Text)
	assert.Equal(t, avatar.TaskTypeRepeat, reqs[0].Type, "backend replies are repeated verbatim")
}

func TestDispatchMissingSessionIsSilentNoOp(t *testing.T) {
	r, speaker, _, tracker, _ := newTestRouter(t)
	r.Register(personas.GestorCobranza, Route{Backend: &CollectionsBackend{}, Extract: ExtractCollectionsReply})

	err := r.Dispatch(context.Background(), personas.GestorCobranza, "hola")
	require.NoError(t, err, "missing session is recoverable, never an error")
	assert.Empty(t, speaker.requests(), "nothing is spoken without a session")

	// The user's message is still recorded.
	msgs := tracker.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hola", msgs[0].Content)
}

func TestDispatchEmptyReplySpeaksNothing(t *testing.T) {
	r, speaker, st, _, _ := newTestRouter(t)
	backend := &fakeBackend{response: json.RawMessage(`{"agent_response":""}`)}
	r.Register(personas.GestorCobranza, Route{Backend: backend, Extract: ExtractCollectionsReply})
	st.SetSession(personas.GestorCobranza, store.Session{SessionID: "abc"})

	err := r.Dispatch(context.Background(), personas.GestorCobranza, "hola")
	require.NoError(t, err)
	assert.Equal(t, 1, backend.calls)
	assert.Empty(t, speaker.requests())
}

func TestDispatchEmptyUtteranceIsNoOp(t *testing.T) {
	r, speaker, _, tracker, _ := newTestRouter(t)

	require.NoError(t, r.Dispatch(context.Background(), personas.Volcano, "   "))
	assert.Empty(t, speaker.requests())
	assert.Zero(t, tracker.Len())
}

func TestDispatchUnknownPersonaIsNoOp(t *testing.T) {
	r, speaker, _, _, _ := newTestRouter(t)

	require.NoError(t, r.Dispatch(context.Background(), "nope", "hola"))
	assert.Empty(t, speaker.requests())
}

func TestDispatchInterruptsWhenAvatarTalking(t *testing.T) {
	r, speaker, _, _, talking := newTestRouter(t)
	talking.SetAvatarTalking(true)

	require.NoError(t, r.Dispatch(context.Background(), personas.Volcano, "espera un momento"))
	assert.Equal(t, 1, speaker.interrupts)
}

func TestDispatchNoInterruptWhenAvatarSilent(t *testing.T) {
	r, speaker, _, _, _ := newTestRouter(t)

	require.NoError(t, r.Dispatch(context.Background(), personas.Volcano, "hola avatar"))
	assert.Zero(t, speaker.interrupts)
}

func TestDispatchPortfolioImageReply(t *testing.T) {
	r, speaker, st, tracker, _ := newTestRouter(t)
	backend := &fakeBackend{response: json.RawMessage(`{"response":"Aquí está la gráfica","image_base64":"aW1n"}`)}
	r.Register(personas.BCGProduct, Route{Backend: backend, Extract: ExtractPortfolioReply})
	st.SetSession(personas.BCGProduct, store.Session{ConversationID: "c1", SelectedProduct: "fondo-a"})

	err := r.Dispatch(context.Background(), personas.BCGProduct, "muéstrame el rendimiento")
	require.NoError(t, err)

	assert.Equal(t, []string{"aW1n"}, st.Images())
	selected, open := st.SelectedImage()
	assert.Equal(t, "aW1n", selected)
	assert.True(t, open)

	reqs := speaker.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Aquí está la gráfica", reqs[0].Text)

	// Image is attached to the avatar's history entry once it speaks.
	msgs := tracker.Messages()
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, "aW1n", last.ImageB64)
}

func TestDispatchBackendErrorPropagates(t *testing.T) {
	r, speaker, st, _, _ := newTestRouter(t)
	backend := &fakeBackend{err: fmt.Errorf("boom")}
	r.Register(personas.GestorCobranza, Route{Backend: backend, Extract: ExtractCollectionsReply})
	st.SetSession(personas.GestorCobranza, store.Session{SessionID: "abc"})

	err := r.Dispatch(context.Background(), personas.GestorCobranza, "hola")
	require.Error(t, err)
	assert.Empty(t, speaker.requests())
}

func TestDispatchSerializesTurnsPerPersona(t *testing.T) {
	r, speaker, st, _, _ := newTestRouter(t)

	release := make(chan struct{})
	started := make(chan struct{}, 2)
	backend := &blockingBackend{release: release, started: started}
	r.Register(personas.GestorCobranza, Route{Backend: backend, Extract: ExtractCollectionsReply})
	st.SetSession(personas.GestorCobranza, store.Session{SessionID: "abc"})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Dispatch(context.Background(), personas.GestorCobranza, "hola")
		}()
	}

	<-started
	time.Sleep(50 * time.Millisecond)
	select {
	case <-started:
		t.Fatal("second turn entered the backend while the first was in flight")
	default:
	}

	close(release)
	wg.Wait()
	assert.Len(t, speaker.requests(), 2)
}

type blockingBackend struct {
	release <-chan struct{}
	started chan<- struct{}
}

func (b *blockingBackend) SendTurn(ctx context.Context, sess *store.Session, utterance string) (json.RawMessage, error) {
	b.started <- struct{}{}
	<-b.release
	return json.RawMessage(`{"agent_response":"ok"}`), nil
}

func TestCollectionsBackendRequiresSessionID(t *testing.T) {
	b := &CollectionsBackend{}
	_, err := b.SendTurn(context.Background(), nil, "hola")
	assert.True(t, errors.Is(err, ErrNoSession))

	_, err = b.SendTurn(context.Background(), &store.Session{}, "hola")
	assert.True(t, errors.Is(err, ErrNoSession))
}

func TestPortfolioBackendRequiresConversation(t *testing.T) {
	b := &PortfolioBackend{}
	_, err := b.SendTurn(context.Background(), &store.Session{ConversationID: "c1"}, "hola")
	assert.True(t, errors.Is(err, ErrNoSession), "selected product is required")

	_, err = b.SendTurn(context.Background(), &store.Session{SelectedProduct: "fondo-a"}, "hola")
	assert.True(t, errors.Is(err, ErrNoSession), "conversation id is required")
}
