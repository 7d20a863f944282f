// Package payment integrates the Chapa payment gateway: fee selection,
// transaction initialization, and the asynchronous confirmation webhook.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// InitializeRequest carries the fields Chapa requires to create a checkout
// session.
type InitializeRequest struct {
	Amount      int    `json:"amount"`
	Currency    string `json:"currency"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	TxRef       string `json:"tx_ref"`
	CallbackURL string `json:"callback_url"`
	ReturnURL   string `json:"return_url"`
}

// Gateway abstracts the remote payment API for the orchestrator and the
// webhook receiver.
type Gateway interface {
	// InitializeTransaction creates a checkout session and returns its URL.
	InitializeTransaction(ctx context.Context, req InitializeRequest) (string, error)
	// VerifyTransaction reports whether the referenced transaction is
	// confirmed. The error covers transport faults only; a clean "not
	// successful" answer is (false, nil).
	VerifyTransaction(ctx context.Context, txRef string) (bool, error)
}

// ChapaClient talks to the Chapa REST API with bearer-token auth.
type ChapaClient struct {
	baseURL string
	secret  string
	client  *http.Client
}

// NewChapaClient builds a gateway client for the given API base URL.
func NewChapaClient(baseURL, secret string) *ChapaClient {
	return &ChapaClient{
		baseURL: baseURL,
		secret:  secret,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type initializeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

// InitializeTransaction implements Gateway.
func (c *ChapaClient) InitializeTransaction(ctx context.Context, req InitializeRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("chapa initialize: encode request: %w", err)
	}

	url := c.baseURL + "/v1/transaction/initialize"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chapa initialize: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("chapa initialize: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chapa initialize: status %d: %s", resp.StatusCode, payload)
	}

	var parsed initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("chapa initialize: decode response: %w", err)
	}
	if parsed.Status != "success" || parsed.Data.CheckoutURL == "" {
		return "", fmt.Errorf("chapa initialize: gateway status %q: %s", parsed.Status, parsed.Message)
	}
	return parsed.Data.CheckoutURL, nil
}

type verifyResponse struct {
	Status string `json:"status"`
}

// VerifyTransaction implements Gateway.
func (c *ChapaClient) VerifyTransaction(ctx context.Context, txRef string) (bool, error) {
	url := c.baseURL + "/v1/transaction/verify/" + txRef
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("chapa verify: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return false, fmt.Errorf("chapa verify: %w", err)
	}
	defer resp.Body.Close()

	var parsed verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return false, fmt.Errorf("chapa verify: decode response: %w", err)
	}
	return parsed.Status == "success", nil
}
