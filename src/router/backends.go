package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/altavoz-labs/avatarflow/src/services/collections"
	"github.com/altavoz-labs/avatarflow/src/services/portfolio"
	"github.com/altavoz-labs/avatarflow/src/store"
)

// CollectionsBackend routes turns to the debt-collection backend, keyed on
// the backend-issued session id.
type CollectionsBackend struct {
	Client *collections.Client
}

func (b *CollectionsBackend) SendTurn(ctx context.Context, sess *store.Session, utterance string) (json.RawMessage, error) {
	if sess == nil || sess.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrNoSession)
	}
	return b.Client.Chat(ctx, sess.SessionID, utterance)
}

// PortfolioBackend routes turns to the portfolio-analysis backend, keyed on
// the client-generated conversation id. The conversation must have been
// initialized (empty input plus selected product) when the session was
// created.
type PortfolioBackend struct {
	Client *portfolio.Client
}

func (b *PortfolioBackend) SendTurn(ctx context.Context, sess *store.Session, utterance string) (json.RawMessage, error) {
	if sess == nil || sess.ConversationID == "" || sess.SelectedProduct == "" {
		return nil, fmt.Errorf("%w: missing conversation id or product", ErrNoSession)
	}
	return b.Client.Chat(ctx, sess.ConversationID, utterance)
}
