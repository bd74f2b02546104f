package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/asbjj/shop-api/internal/config"
	"github.com/asbjj/shop-api/internal/model"
)

// Client talks to the Mercado Pago REST API: checkout preferences out,
// payment lookups back in during webhook processing.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	siteURL     string
	descriptor  string
	currency    string
}

func NewClient(cfg config.MercadoPagoConfig, currency string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		baseURL:     cfg.BaseURL,
		accessToken: cfg.AccessToken,
		siteURL:     cfg.SiteURL,
		descriptor:  cfg.Descriptor,
		currency:    currency,
	}
}

type preferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type preferencePayer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone struct {
		Number string `json:"number"`
	} `json:"phone"`
	Address struct {
		StreetName string `json:"street_name"`
		CityName   string `json:"city_name"`
		StateName  string `json:"state_name"`
		ZipCode    string `json:"zip_code"`
	} `json:"address"`
}

type preferenceRequest struct {
	Items             []preferenceItem  `json:"items"`
	Payer             preferencePayer   `json:"payer"`
	BackURLs          map[string]string `json:"back_urls"`
	AutoReturn        string            `json:"auto_return"`
	ExternalReference string            `json:"external_reference"`
	NotificationURL   string            `json:"notification_url"`
	Descriptor        string            `json:"statement_descriptor"`
	Metadata          map[string]any    `json:"metadata"`
}

// Preference is the created checkout preference; InitPoint is the hosted
// checkout URL the customer is redirected to.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// Payment is the subset of the gateway's payment resource the webhook flow
// needs.
type Payment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
}

// CreatePreference registers the order with the gateway and returns the
// hosted checkout preference. The order id rides along as the external
// reference so webhooks can be correlated back.
func (c *Client) CreatePreference(ctx context.Context, order *model.Order) (*Preference, error) {
	items := make([]preferenceItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, preferenceItem{
			Title:      item.ProductName,
			Quantity:   item.Quantity,
			UnitPrice:  item.Price.InexactFloat64(),
			CurrencyID: c.currency,
		})
	}

	payer := preferencePayer{Name: order.CustomerName, Email: order.CustomerEmail}
	payer.Phone.Number = order.CustomerPhone
	payer.Address.StreetName = order.ShippingAddress
	payer.Address.CityName = order.ShippingCity
	payer.Address.StateName = order.ShippingState
	payer.Address.ZipCode = order.ShippingZipCode

	reqBody := preferenceRequest{
		Items: items,
		Payer: payer,
		BackURLs: map[string]string{
			"success": c.siteURL + "/pedido/sucesso/",
			"failure": c.siteURL + "/pedido/erro/",
			"pending": c.siteURL + "/pedido/pendente/",
		},
		AutoReturn:        "approved",
		ExternalReference: order.ID.String(),
		NotificationURL:   c.siteURL + "/webhooks/mercadopago",
		Descriptor:        c.descriptor,
		Metadata: map[string]any{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
		},
	}

	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", reqBody, &pref); err != nil {
		return nil, err
	}
	if pref.ID == "" || pref.InitPoint == "" {
		return nil, fmt.Errorf("gateway returned an incomplete preference")
	}
	return &pref, nil
}

// GetPayment fetches payment status and external reference for a webhook's
// payment id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("gateway %s %s: status %d: %s", method, path, resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
