package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"rentshare-backend-go/internal/core"
)

// newTestServer fakes the token endpoint and the routes in handlers.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) (*Client, *int) {
	t.Helper()
	tokens := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "cid" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		tokens++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	for pattern, h := range handlers {
		h := h
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			h(w, r)
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient(context.Background(), Config{ClientID: "cid", ClientSecret: "secret", BaseURL: srv.URL}, zap.NewNop()), &tokens
}

func TestCreateOrder(t *testing.T) {
	var got createOrderBody
	c, tokens := newTestServer(t, map[string]http.HandlerFunc{
		"POST /v2/checkout/orders": func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"5O190127TN364715T","status":"CREATED","links":[
				{"href":"https://api.sandbox.paypal.com/v2/checkout/orders/5O190127TN364715T","rel":"self"},
				{"href":"https://www.sandbox.paypal.com/checkoutnow?token=5O190127TN364715T","rel":"approve"}]}`))
		},
	})

	order, err := c.CreateOrder(context.Background(), core.OrderRequest{
		Amount: 8.7325, Currency: "USD", Description: "Premium", CustomID: "u1:premium",
		ReturnURL: "https://rentshare.test/r?paymentId=success", CancelURL: "https://rentshare.test/r?paymentId=cancel",
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID != "5O190127TN364715T" || order.ApprovalURL != "https://www.sandbox.paypal.com/checkoutnow?token=5O190127TN364715T" {
		t.Errorf("order = %+v", order)
	}
	pu := got.PurchaseUnits[0]
	if got.Intent != "CAPTURE" || pu.Amount.Value != "8.73" || pu.Amount.CurrencyCode != "USD" || pu.CustomID != "u1:premium" {
		t.Errorf("request = %+v", got)
	}
	if got.ApplicationContext.CancelURL != "https://rentshare.test/r?paymentId=cancel" {
		t.Errorf("application context = %+v", got.ApplicationContext)
	}

	c.CreateOrder(context.Background(), core.OrderRequest{Amount: 1, Currency: "USD"})
	if *tokens != 1 {
		t.Errorf("token fetched %d times, want 1", *tokens)
	}
}

const capturedOrder = `{"id":"O1","status":"COMPLETED","purchase_units":[{"payments":{"captures":[
	{"id":"3C679366HH908993F","status":"COMPLETED","amount":{"currency_code":"USD","value":"8.73"}}]}}]}`

func TestCaptureOrder(t *testing.T) {
	var requestID string
	c, _ := newTestServer(t, map[string]http.HandlerFunc{
		"POST /v2/checkout/orders/O1/capture": func(w http.ResponseWriter, r *http.Request) {
			requestID = r.Header.Get("PayPal-Request-Id")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(capturedOrder))
		},
	})
	res, err := c.CaptureOrder(context.Background(), "O1")
	if err != nil {
		t.Fatalf("CaptureOrder: %v", err)
	}
	if res.Status != "COMPLETED" || res.CaptureID != "3C679366HH908993F" || res.Amount != 8.73 || res.Currency != "USD" {
		t.Errorf("capture = %+v", res)
	}
	if requestID != "O1" {
		t.Errorf("PayPal-Request-Id = %q", requestID)
	}
}

func TestCaptureOrderAlreadyCaptured(t *testing.T) {
	c, _ := newTestServer(t, map[string]http.HandlerFunc{
		"POST /v2/checkout/orders/O1/capture": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY","details":[{"issue":"ORDER_ALREADY_CAPTURED"}],"debug_id":"d1"}`))
		},
		"GET /v2/checkout/orders/O1": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(capturedOrder))
		},
	})
	res, err := c.CaptureOrder(context.Background(), "O1")
	if err != nil {
		t.Fatalf("CaptureOrder: %v", err)
	}
	if res.CaptureID != "3C679366HH908993F" {
		t.Errorf("capture = %+v", res)
	}
}

func TestCaptureOrderError(t *testing.T) {
	c, _ := newTestServer(t, map[string]http.HandlerFunc{
		"POST /v2/checkout/orders/O2/capture": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY","message":"payer action required","details":[{"issue":"ORDER_NOT_APPROVED"}],"debug_id":"d2"}`))
		},
	})
	_, err := c.CaptureOrder(context.Background(), "O2")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity || !apiErr.hasIssue("ORDER_NOT_APPROVED") {
		t.Fatalf("err = %v", err)
	}
}
