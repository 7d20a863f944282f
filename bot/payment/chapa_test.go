package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestChapaInitializeTransaction(t *testing.T) {
	var gotAuth string
	var gotBody InitializeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/transaction/initialize" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","message":"ok","data":{"checkout_url":"https://checkout.chapa.co/pay/abc"}}`))
	}))
	defer srv.Close()

	c := NewChapaClient(srv.URL, "CHASECK_TEST-secret")
	url, err := c.InitializeTransaction(context.Background(), InitializeRequest{
		Amount:      100,
		Currency:    "ETB",
		Email:       "abebe@example.com",
		FirstName:   "Abebe Kebede",
		TxRef:       "tx-200-1-aaaa",
		CallbackURL: "https://bot.example.com/verify",
		ReturnURL:   "https://bot.example.com",
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if url != "https://checkout.chapa.co/pay/abc" {
		t.Fatalf("checkout url = %q", url)
	}
	if gotAuth != "Bearer CHASECK_TEST-secret" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if gotBody.TxRef != "tx-200-1-aaaa" || gotBody.Amount != 100 {
		t.Fatalf("request body = %+v", gotBody)
	}
}

func TestChapaInitializeGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"status":"failed","message":"invalid currency"}`))
	}))
	defer srv.Close()

	c := NewChapaClient(srv.URL, "secret")
	if _, err := c.InitializeTransaction(context.Background(), InitializeRequest{}); err == nil {
		t.Fatal("expected error on HTTP 400")
	}
}

func TestChapaInitializeRejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"failed","message":"insufficient data"}`))
	}))
	defer srv.Close()

	c := NewChapaClient(srv.URL, "secret")
	_, err := c.InitializeTransaction(context.Background(), InitializeRequest{})
	if err == nil || !strings.Contains(err.Error(), "insufficient data") {
		t.Fatalf("err = %v", err)
	}
}

func TestChapaVerifyTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.HasPrefix(r.URL.Path, "/v1/transaction/verify/") {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		switch strings.TrimPrefix(r.URL.Path, "/v1/transaction/verify/") {
		case "tx-ok":
			_, _ = w.Write([]byte(`{"status":"success"}`))
		default:
			_, _ = w.Write([]byte(`{"status":"failed"}`))
		}
	}))
	defer srv.Close()

	c := NewChapaClient(srv.URL, "secret")
	ok, err := c.VerifyTransaction(context.Background(), "tx-ok")
	if err != nil || !ok {
		t.Fatalf("verify tx-ok = %v, %v", ok, err)
	}
	ok, err = c.VerifyTransaction(context.Background(), "tx-bad")
	if err != nil || ok {
		t.Fatalf("verify tx-bad = %v, %v", ok, err)
	}
}
