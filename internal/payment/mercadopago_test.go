package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asbjj/shop-api/internal/config"
	"github.com/asbjj/shop-api/internal/model"
)

func testOrder() *model.Order {
	return &model.Order{
		ID:            uuid.New(),
		OrderNumber:   "ASBJJ-20260830-0001",
		CustomerName:  "Maria Silva",
		CustomerEmail: "maria@example.com",
		Items: []model.OrderItem{
			{ProductName: "Kimono Adulto", Quantity: 2, Price: decimal.NewFromFloat(125)},
		},
	}
}

func newTestClient(baseURL string) *Client {
	return NewClient(config.MercadoPagoConfig{
		AccessToken: "test-token",
		BaseURL:     baseURL,
		SiteURL:     "https://shop.example.com",
		Descriptor:  "ASBJJ",
	}, "BRL")
}

func TestClient_CreatePreference(t *testing.T) {
	order := testOrder()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/checkout/preferences", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, order.ID.String(), body["external_reference"])
		assert.Equal(t, "approved", body["auto_return"])
		assert.Equal(t, "ASBJJ", body["statement_descriptor"])
		backURLs := body["back_urls"].(map[string]any)
		assert.Equal(t, "https://shop.example.com/pedido/sucesso/", backURLs["success"])

		json.NewEncoder(w).Encode(Preference{
			ID: "pref-1", InitPoint: "https://mp/init", SandboxInitPoint: "https://mp/sandbox",
		})
	}))
	defer srv.Close()

	pref, err := newTestClient(srv.URL).CreatePreference(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, "pref-1", pref.ID)
	assert.Equal(t, "https://mp/init", pref.InitPoint)
}

func TestClient_CreatePreference_IncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(Preference{ID: "pref-1"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreatePreference(context.Background(), testOrder())
	assert.Error(t, err)
}

func TestClient_GetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payments/42", r.URL.Path)
		json.NewEncoder(w).Encode(Payment{
			ID: "42", Status: "approved", ExternalReference: "order-1",
		})
	}))
	defer srv.Close()

	p, err := newTestClient(srv.URL).GetPayment(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "approved", p.Status)
	assert.Equal(t, "order-1", p.ExternalReference)
}

func TestClient_GetPayment_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetPayment(context.Background(), "42")
	assert.ErrorContains(t, err, "status 404")
}
