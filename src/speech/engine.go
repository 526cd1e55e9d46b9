package speech

// Engine is a streaming speech recognizer. Implementations deliver
// interim and final transcripts through the callbacks registered with
// SetHandlers before Start is called.
type Engine interface {
	// Start begins (or resumes) recognition.
	Start() error
	// Stop ends recognition gracefully; buffered audio may still
	// produce a final result before OnEnd fires.
	Stop() error
	// Abort ends recognition immediately, discarding pending results.
	Abort() error
	// SetLanguage changes the recognition language for the next Start.
	SetLanguage(lang string)
	// SetHandlers registers the result callbacks.
	SetHandlers(h Handlers)
}

// Handlers receives recognizer output. Any field may be nil.
type Handlers struct {
	// OnResult is called for every transcript, interim and final.
	OnResult func(text string, isFinal bool)
	// OnError is called when the engine fails mid-stream.
	OnError func(err error)
	// OnEnd is called when the engine stops on its own, without an
	// explicit Stop or Abort.
	OnEnd func()
}
