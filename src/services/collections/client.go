// Package collections is the client for the debt-collection persona backend.
package collections

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/altavoz-labs/avatarflow/src/logger"
	"github.com/altavoz-labs/avatarflow/src/services"
)

// StartRequest is the form payload that opens a collections session.
type StartRequest struct {
	DebtorName         string  `json:"nombre_deudor"`
	DebtAmount         float64 `json:"monto_deuda"`
	DiscountPercentage float64 `json:"porcentaje_descuento"`
	LateFee            float64 `json:"multa_atraso"`
}

// StartResult is the backend's answer to a session start: an opaque session
// identifier plus the greeting the avatar should speak.
type StartResult struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Client talks to the collections backend.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = services.NewHTTPClient()
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		log:     logger.WithComponent("CollectionsClient"),
	}
}

// StartSession opens a new session for the given debtor form.
func (c *Client) StartSession(ctx context.Context, form StartRequest) (*StartResult, error) {
	var result StartResult
	if err := services.PostJSON(ctx, c.http, c.baseURL+"/start", form, &result); err != nil {
		return nil, err
	}
	c.log.Debug("session started: %s", result.SessionID)
	return &result, nil
}

// Chat sends one conversation turn. The raw response is returned so the
// per-persona reply extractor owns shape interpretation.
func (c *Client) Chat(ctx context.Context, sessionID, userInput string) (json.RawMessage, error) {
	body := map[string]string{
		"session_id": sessionID,
		"user_input": userInput,
	}
	var raw json.RawMessage
	if err := services.PostJSON(ctx, c.http, c.baseURL+"/chat", body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
