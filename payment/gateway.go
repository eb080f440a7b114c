// Package payment talks to the payment provider and authenticates the signed
// confirmations it sends back through the client.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"

	"github.com/ray-remotestate/preorder/apperr"
	"github.com/ray-remotestate/preorder/models"
)

// Intent is a pending payment held by the provider. It is never stored
// locally; the order created after verification records its id.
type Intent struct {
	ID       string       `json:"intentId"`
	Amount   models.Money `json:"-"`
	Currency string       `json:"currency"`
	Receipt  string       `json:"receipt"`
}

// AmountMinorUnits is what the client widget expects.
func (i Intent) AmountMinorUnits() int64 { return i.Amount.Minor() }

type Gateway interface {
	CreateIntent(ctx context.Context, amount models.Money) (Intent, error)
	FetchIntent(ctx context.Context, id string) (Intent, error)
	PublicKey() string
}

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ReceiptGenerator hands out time-based receipt tags that never repeat within
// the process, even when two intents are opened in the same nanosecond.
type ReceiptGenerator struct {
	last atomic.Int64
	now  func() time.Time
}

func NewReceiptGenerator() *ReceiptGenerator {
	return &ReceiptGenerator{now: time.Now}
}

func (g *ReceiptGenerator) Next() string {
	for {
		prev := g.last.Load()
		n := g.now().UnixNano()
		if n <= prev {
			n = prev + 1
		}
		if g.last.CompareAndSwap(prev, n) {
			return "receipt_" + strconv.FormatInt(n, 10)
		}
	}
}

type RazorpayConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Currency  string
	Timeout   time.Duration
}

// RazorpayGateway opens orders through the Razorpay REST API.
type RazorpayGateway struct {
	cfg      RazorpayConfig
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[Intent]
	receipts *ReceiptGenerator
}

// statusError is a non-2xx answer from the provider.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.code, e.body)
}

func NewRazorpayGateway(cfg RazorpayConfig, client *http.Client) *RazorpayGateway {
	if client == nil {
		client = &http.Client{}
	}
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	breaker := gobreaker.NewCircuitBreaker[Intent](gobreaker.Settings{
		Name:        "razorpay",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A rejected request means the provider is up.
		IsSuccessful: func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.code < http.StatusInternalServerError
			}
			return err == nil || apperr.KindOf(err) == apperr.KindValidation
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	})

	return &RazorpayGateway{
		cfg:      cfg,
		client:   client,
		breaker:  breaker,
		receipts: NewReceiptGenerator(),
	}
}

func (g *RazorpayGateway) PublicKey() string {
	return g.cfg.KeyID
}

func (g *RazorpayGateway) CreateIntent(ctx context.Context, amount models.Money) (Intent, error) {
	if amount <= 0 {
		return Intent{}, apperr.Invalid("amount", "must be positive")
	}

	payload, err := json.Marshal(orderRequest{
		Amount:   amount.Minor(),
		Currency: g.cfg.Currency,
		Receipt:  g.receipts.Next(),
	})
	if err != nil {
		return Intent{}, err
	}
	return g.execute(ctx, http.MethodPost, "/v1/orders", payload)
}

// FetchIntent reads back an intent so its amount can be checked against what
// the client claims it paid for.
func (g *RazorpayGateway) FetchIntent(ctx context.Context, id string) (Intent, error) {
	if id == "" || strings.ContainsAny(id, "/?#") {
		return Intent{}, apperr.Invalid("intentId", "is malformed")
	}
	return g.execute(ctx, http.MethodGet, "/v1/orders/"+id, nil)
}

func (g *RazorpayGateway) execute(ctx context.Context, method, path string, payload []byte) (Intent, error) {
	intent, err := g.breaker.Execute(func() (Intent, error) {
		return g.send(ctx, method, path, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Intent{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return intent, err
}

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

func (g *RazorpayGateway) send(ctx context.Context, method, path string, payload []byte) (Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.cfg.BaseURL+path, body)
	if err != nil {
		return Intent{}, fmt.Errorf("build gateway request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(g.cfg.KeyID, g.cfg.KeySecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return Intent{}, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return Intent{}, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}

	var out orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Intent{}, fmt.Errorf("decode gateway response: %w", err)
	}
	if out.ID == "" {
		return Intent{}, errors.New("gateway response missing order id")
	}

	return Intent{
		ID:       out.ID,
		Amount:   models.Money(out.Amount),
		Currency: out.Currency,
		Receipt:  out.Receipt,
	}, nil
}
