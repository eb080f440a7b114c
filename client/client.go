// Package client is a small HTTP client for the pre-order API, used by the
// command-line tool and the pollers it runs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ray-remotestate/preorder/models"
)

// ErrUnauthorized is returned for 401 and 403 responses: the token is
// missing, expired or lacks the role for the call.
var ErrUnauthorized = errors.New("login required")

// APIError is any other non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for baseURL. An empty token sends no Authorization
// header. httpClient may be nil.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

// Quote is the server's pricing of a prospective cart.
type Quote struct {
	VendorID string       `json:"vendorId"`
	Lines    []QuoteLine  `json:"lines"`
	Total    models.Money `json:"total"`
}

type QuoteLine struct {
	MenuItemID string       `json:"menuItemId"`
	Name       string       `json:"name"`
	UnitPrice  models.Money `json:"unitPrice"`
	Quantity   int          `json:"quantity"`
	Subtotal   models.Money `json:"subtotal"`
}

func (c *Client) DailyMenu(ctx context.Context, date string) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := c.do(ctx, http.MethodGet, "/menu/daily/"+date, nil, &items)
	return items, err
}

func (c *Client) Quote(ctx context.Context, lines []models.LineEntry) (*Quote, error) {
	var q Quote
	if err := c.do(ctx, http.MethodPost, "/cart/quote", map[string]interface{}{"items": lines}, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *Client) CreateOrder(ctx context.Context, lines []models.LineEntry, pickup time.Time) (*models.Order, error) {
	body := map[string]interface{}{"items": lines, "pickupTime": pickup}
	var o models.Order
	if err := c.do(ctx, http.MethodPost, "/orders", body, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// MyOrders lists the caller's orders, newest first.
func (c *Client) MyOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := c.do(ctx, http.MethodGet, "/orders/my", nil, &orders)
	return orders, err
}

// AllOrders is the vendor dashboard listing.
func (c *Client) AllOrders(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := c.do(ctx, http.MethodGet, "/orders", nil, &orders)
	return orders, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		var msg struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &msg) != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(raw))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
