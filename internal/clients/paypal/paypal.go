// Package paypal is a small PayPal Orders v2 client.
package paypal

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
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"rentshare-backend-go/internal/core"
)

const issueAlreadyCaptured = "ORDER_ALREADY_CAPTURED"

// Config holds the REST app credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	BaseURL      string // https://api-m.sandbox.paypal.com or https://api-m.paypal.com
	Timeout      time.Duration
}

// Client talks to the Orders API with an auto-refreshed client-credentials token.
type Client struct {
	http    *http.Client
	baseURL string
	logger  *zap.Logger
}

// NewClient builds the client. ctx scopes token refreshes and should outlive requests.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout})
	httpCli := cc.Client(ctx)
	httpCli.Timeout = cfg.Timeout
	return &Client{http: httpCli, baseURL: base, logger: logger}
}

type money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Amount      money  `json:"amount"`
	Description string `json:"description,omitempty"`
	CustomID    string `json:"custom_id,omitempty"`
}

type applicationContext struct {
	ReturnURL          string `json:"return_url"`
	CancelURL          string `json:"cancel_url"`
	UserAction         string `json:"user_action"`
	ShippingPreference string `json:"shipping_preference"`
}

type createOrderBody struct {
	Intent             string             `json:"intent"`
	PurchaseUnits      []purchaseUnit     `json:"purchase_units"`
	ApplicationContext applicationContext `json:"application_context"`
}

type link struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

type capture struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount money  `json:"amount"`
}

type order struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	Links         []link `json:"links"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []capture `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// APIError is a non-2xx answer from PayPal.
type APIError struct {
	StatusCode int
	Name       string `json:"name"`
	Message    string `json:"message"`
	DebugID    string `json:"debug_id"`
	Details    []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal: status %d %s: %s (debug_id %s)", e.StatusCode, e.Name, e.Message, e.DebugID)
}

func (e *APIError) hasIssue(issue string) bool {
	for _, d := range e.Details {
		if d.Issue == issue {
			return true
		}
	}
	return false
}

// CreateOrder creates a CAPTURE-intent order and returns its approval link.
func (c *Client) CreateOrder(ctx context.Context, req core.OrderRequest) (*core.CreatedOrder, error) {
	body := createOrderBody{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Amount:      money{CurrencyCode: req.Currency, Value: formatAmount(req.Amount)},
			Description: req.Description,
			CustomID:    req.CustomID,
		}},
		ApplicationContext: applicationContext{
			ReturnURL:          req.ReturnURL,
			CancelURL:          req.CancelURL,
			UserAction:         "PAY_NOW",
			ShippingPreference: "NO_SHIPPING",
		},
	}
	var out order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", "", body, &out); err != nil {
		return nil, err
	}
	approval := ""
	for _, l := range out.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			approval = l.Href
			break
		}
	}
	if approval == "" {
		return nil, fmt.Errorf("paypal: order %s has no approval link", out.ID)
	}
	return &core.CreatedOrder{ID: out.ID, Status: out.Status, ApprovalURL: approval}, nil
}

// CaptureOrder captures an approved order. An order captured earlier is read back instead.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*core.CaptureResult, error) {
	var out order
	err := c.do(ctx, http.MethodPost, "/v2/checkout/orders/"+orderID+"/capture", orderID, struct{}{}, &out)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.hasIssue(issueAlreadyCaptured) {
		c.logger.Info("Order already captured, reading it back", zap.String("orderID", orderID))
		err = c.do(ctx, http.MethodGet, "/v2/checkout/orders/"+orderID, "", nil, &out)
	}
	if err != nil {
		return nil, err
	}
	res := &core.CaptureResult{OrderID: out.ID, Status: out.Status}
	if len(out.PurchaseUnits) > 0 && len(out.PurchaseUnits[0].Payments.Captures) > 0 {
		cp := out.PurchaseUnits[0].Payments.Captures[0]
		res.CaptureID = cp.ID
		res.Currency = cp.Amount.CurrencyCode
		res.Amount, _ = strconv.ParseFloat(cp.Amount.Value, 64)
		if cp.Status != "" {
			res.Status = cp.Status
		}
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path, requestID string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("paypal: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if requestID != "" {
		req.Header.Set("PayPal-Request-Id", requestID)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("paypal: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: res.StatusCode}
		_ = json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(apiErr)
		c.logger.Warn("PayPal request failed", zap.String("path", path), zap.Int("status", res.StatusCode),
			zap.String("name", apiErr.Name), zap.String("debugID", apiErr.DebugID))
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("paypal: decode %s response: %w", path, err)
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
