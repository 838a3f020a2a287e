package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ikkim/cartsync/internal/app/model"
)

// CartStore is the remote side of the sync engine. Quantity 0 on
// SetQuantity is the removal signal.
type CartStore interface {
	SetQuantity(ctx context.Context, itemID string, category model.Category, quantity int) error
	Clear(ctx context.Context) error
	Merge(ctx context.Context, local []model.MergeTuple) ([]model.LineItem, error)
}

// Config holds the remote client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	return nil
}

// TokenFunc supplies the current bearer token, or "" when anonymous.
type TokenFunc func() string

// Client talks to the remote cart store over HTTP.
type Client struct {
	config     Config
	token      TokenFunc
	httpClient *http.Client
}

func NewClient(config Config, token TokenFunc) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		config:     config,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type setQuantityRequest struct {
	Category model.Category `json:"category"`
	Quantity int            `json:"quantity"`
}

type mergeRequest struct {
	Items []model.MergeTuple `json:"items"`
}

type mergeResponse struct {
	Items []model.LineItem `json:"items"`
}

// SetQuantity issues a single absolute-quantity write for one item.
// Quantity 0 tells the store to delete the row.
func (c *Client) SetQuantity(ctx context.Context, itemID string, category model.Category, quantity int) error {
	url := fmt.Sprintf("%s/api/v1/cart/items/%s", c.config.BaseURL, itemID)
	body := setQuantityRequest{Category: category, Quantity: quantity}

	_, err := c.doRequest(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("failed to set quantity for %s: %w", itemID, err)
	}
	return nil
}

// Clear removes every item in the server-held cart.
func (c *Client) Clear(ctx context.Context) error {
	url := fmt.Sprintf("%s/api/v1/cart", c.config.BaseURL)

	_, err := c.doRequest(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to clear remote cart: %w", err)
	}
	return nil
}

// Merge sends the locally accumulated tuples and returns the canonical
// merged collection. The server owns the merge policy.
func (c *Client) Merge(ctx context.Context, local []model.MergeTuple) ([]model.LineItem, error) {
	url := fmt.Sprintf("%s/api/v1/cart/merge", c.config.BaseURL)

	resp, err := c.doRequest(ctx, http.MethodPost, url, mergeRequest{Items: local})
	if err != nil {
		return nil, fmt.Errorf("failed to merge cart: %w", err)
	}

	var merged mergeResponse
	if err := json.Unmarshal(resp, &merged); err != nil {
		return nil, fmt.Errorf("failed to unmarshal merge response: %w", err)
	}
	if merged.Items == nil {
		merged.Items = []model.LineItem{}
	}
	return merged.Items, nil
}

func (c *Client) doRequest(ctx context.Context, method, url string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != nil {
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
