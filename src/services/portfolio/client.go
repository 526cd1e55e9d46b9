// Package portfolio is the client for the portfolio-analysis persona
// backend (BCG growth/share analysis over a selected product).
package portfolio

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/altavoz-labs/avatarflow/src/logger"
	"github.com/altavoz-labs/avatarflow/src/services"
)

// Client talks to the portfolio-analysis backend.
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
		log:     logger.WithComponent("PortfolioClient"),
	}
}

// AvailableProducts lists the product names selectable in the pre-chat form.
func (c *Client) AvailableProducts(ctx context.Context) ([]string, error) {
	var result struct {
		Products []string `json:"products"`
	}
	if err := services.GetJSON(ctx, c.http, c.baseURL+"/available-products", &result); err != nil {
		return nil, err
	}
	return result.Products, nil
}

// InitializeConversation performs the backend's required opening call: an
// empty user input bundled with the selected product. It is a distinct
// operation from Chat; the backend only accepts the product on this first
// exchange.
func (c *Client) InitializeConversation(ctx context.Context, conversationID, selectedProduct string) (json.RawMessage, error) {
	body := map[string]string{
		"user_input":       "",
		"selected_product": selectedProduct,
		"conversation_id":  conversationID,
	}
	var raw json.RawMessage
	if err := services.PostJSON(ctx, c.http, c.baseURL+"/chat", body, &raw); err != nil {
		return nil, err
	}
	c.log.Debug("conversation %s initialized with product %q", conversationID, selectedProduct)
	return raw, nil
}

// Chat sends one conversation turn scoped to an initialized conversation.
// selected_product is deliberately omitted after initialization.
func (c *Client) Chat(ctx context.Context, conversationID, userInput string) (json.RawMessage, error) {
	body := map[string]string{
		"user_input":      userInput,
		"conversation_id": conversationID,
	}
	var raw json.RawMessage
	if err := services.PostJSON(ctx, c.http, c.baseURL+"/chat", body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
