package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ray-remotestate/preorder/models"
)

func TestClient_SendsTokenAndDecodes(t *testing.T) {
	orderID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/orders/my", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]models.Order{{ID: orderID, Status: models.StatusReady, Total: 4500}})
	}))
	defer srv.Close()

	orders, err := New(srv.URL+"/", "tok", srv.Client()).MyOrders(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, orderID, orders[0].ID)
	assert.Equal(t, models.Money(4500), orders[0].Total)
}

func TestClient_CreateOrderBody(t *testing.T) {
	itemID := uuid.New()
	pickup := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body struct {
			Items      []models.LineEntry `json:"items"`
			PickupTime time.Time          `json:"pickupTime"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []models.LineEntry{{MenuItemID: itemID, Quantity: 3}}, body.Items)
		assert.True(t, pickup.Equal(body.PickupTime))
		json.NewEncoder(w).Encode(models.Order{Status: models.StatusReceived})
	}))
	defer srv.Close()

	order, err := New(srv.URL, "tok", srv.Client()).CreateOrder(context.Background(),
		[]models.LineEntry{{MenuItemID: itemID, Quantity: 3}}, pickup)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReceived, order.Status)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"unauthorized: missing token"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnauthorized)
		}},
		{"forbidden", http.StatusForbidden, `{"message":"forbidden: insufficient role"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrUnauthorized)
		}},
		{"validation", http.StatusBadRequest, `{"message":"all items must come from the same vendor"}`, func(t *testing.T, err error) {
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, "all items must come from the same vendor", apiErr.Message)
		}},
		{"plain text", http.StatusBadGateway, "bad gateway", func(t *testing.T, err error) {
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "bad gateway", apiErr.Message)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "", srv.Client()).AllOrders(context.Background())
			tt.check(t, err)
		})
	}
}

func TestClient_DailyMenuAndQuote(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/menu/daily/2026-10-16", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]models.MenuItem{{Name: "Idli", Price: 4000}})
	})
	mux.HandleFunc("/cart/quote", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"vendorId":"v","lines":[{"name":"Idli","unitPrice":40,"quantity":2,"subtotal":80}],"total":80}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, "", srv.Client())
	items, err := c.DailyMenu(context.Background(), "2026-10-16")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Idli", items[0].Name)

	q, err := c.Quote(context.Background(), []models.LineEntry{{MenuItemID: uuid.New(), Quantity: 2}})
	require.NoError(t, err)
	assert.Equal(t, models.FromMajor(80), q.Total)
	require.Len(t, q.Lines, 1)
	assert.Equal(t, models.FromMajor(40), q.Lines[0].UnitPrice)
}
