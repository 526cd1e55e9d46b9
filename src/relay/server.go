// Package relay exposes the conversation backends and the avatar
// token exchange over a small HTTP surface, so browser clients never
// hold backend URLs or the vendor API key.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/altavoz-labs/avatarflow/src/avatar"
	"github.com/altavoz-labs/avatarflow/src/forms"
	"github.com/altavoz-labs/avatarflow/src/logger"
	"github.com/altavoz-labs/avatarflow/src/personas"
	"github.com/altavoz-labs/avatarflow/src/services"
	"github.com/altavoz-labs/avatarflow/src/services/collections"
	"github.com/altavoz-labs/avatarflow/src/services/portfolio"
	"github.com/altavoz-labs/avatarflow/src/store"
)

// Server is the relay HTTP server.
type Server struct {
	collections *collections.Client
	portfolio   *portfolio.Client
	tokens      avatar.TokenProvider
	store       *store.Store
	mux         *http.ServeMux
	log         *logger.Logger
}

// Deps bundles the server's collaborators. Store may be nil when the
// relay runs standalone.
type Deps struct {
	Collections *collections.Client
	Portfolio   *portfolio.Client
	Tokens      avatar.TokenProvider
	Store       *store.Store
}

func New(deps Deps) *Server {
	s := &Server{
		collections: deps.Collections,
		portfolio:   deps.Portfolio,
		tokens:      deps.Tokens,
		store:       deps.Store,
		mux:         http.NewServeMux(),
		log:         logger.WithComponent("Relay"),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/gestor-cobranza", s.handleCollectionsStart)
	s.mux.HandleFunc("/api/gestor-cobranza/chat", s.handleCollectionsChat)
	s.mux.HandleFunc("/api/bcg/chat", s.handlePortfolioChat)
	s.mux.HandleFunc("/api/bcg/available-products", s.handleAvailableProducts)
	s.mux.HandleFunc("/api/get-access-token", s.handleAccessToken)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// Handler returns the mux wrapped in logging and panic recovery.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = recoverMW(s.log, h)
	h = accessLog(s.log, h)
	return h
}

// handleCollectionsStart validates the debtor intake form, opens a
// backend session and remembers it for the collections persona.
func (s *Server) handleCollectionsStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var form forms.CollectionsForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := form.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.collections.StartSession(r.Context(), collections.StartRequest{
		DebtorName:         form.DebtorName,
		DebtAmount:         form.DebtAmount,
		DiscountPercentage: form.DiscountPercentage,
		LateFee:            form.LateFee,
	})
	if err != nil {
		s.upstreamFailure(w, "collections start", err)
		return
	}

	if s.store != nil {
		s.store.SetSession(personas.GestorCobranza, store.Session{
			SessionID: res.SessionID,
			Message:   res.Message,
		})
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCollectionsChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		SessionID string `json:"session_id"`
		UserInput string `json:"user_input"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}

	raw, err := s.collections.Chat(r.Context(), req.SessionID, req.UserInput)
	if err != nil {
		s.upstreamFailure(w, "collections chat", err)
		return
	}
	writeRaw(w, raw)
}

// handlePortfolioChat forwards a portfolio turn. A request carrying a
// selected product is the conversation opener; later turns omit it.
func (s *Server) handlePortfolioChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		UserInput       string `json:"user_input"`
		ConversationID  string `json:"conversation_id"`
		SelectedProduct string `json:"selected_product"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	var (
		raw json.RawMessage
		err error
	)
	if req.SelectedProduct != "" {
		raw, err = s.portfolio.InitializeConversation(r.Context(), req.ConversationID, req.SelectedProduct)
	} else {
		raw, err = s.portfolio.Chat(r.Context(), req.ConversationID, req.UserInput)
	}
	if err != nil {
		s.upstreamFailure(w, "portfolio chat", err)
		return
	}
	writeRaw(w, raw)
}

func (s *Server) handleAvailableProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	products, err := s.portfolio.AvailableProducts(r.Context())
	if err != nil {
		s.upstreamFailure(w, "available products", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"products": products})
}

// handleAccessToken exchanges the server-held API key for a
// short-lived streaming token.
func (s *Server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), services.DefaultTimeout)
	defer cancel()

	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		s.upstreamFailure(w, "token exchange", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// upstreamFailure translates backend client errors into relay
// responses: upstream HTTP errors pass their status through, malformed
// upstream bodies become a 502 carrying the raw payload for debugging.
func (s *Server) upstreamFailure(w http.ResponseWriter, op string, err error) {
	s.log.Warn("%s failed: %v", op, err)

	var ue *services.UpstreamError
	if errors.As(err, &ue) {
		writeJSON(w, ue.Status, errorEnvelope{Error: ue.Body})
		return
	}

	var pe *services.ProtocolError
	if errors.As(err, &pe) {
		writeJSON(w, http.StatusBadGateway, errorEnvelope{
			Error:       "invalid response from upstream service",
			RawResponse: pe.RawBody,
		})
		return
	}

	writeError(w, http.StatusBadGateway, "upstream service unavailable")
}

func writeRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
