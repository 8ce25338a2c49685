// Package paystack is a minimal client for the Paystack REST API covering
// transaction initialization, subscription lookup/disable, and webhook
// signature verification.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.paystack.co"

// APIError is a non-2xx reply from Paystack, carrying the processor's own
// message where it provided one.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("paystack error: status=%d message=%s", e.Status, e.Message)
}

type Client struct {
	secretKey string
	baseURL   string
	httpc     *http.Client
}

// NewClient builds a Paystack client. An empty baseURL selects the public
// endpoint; timeout <= 0 falls back to 30s.
func NewClient(secretKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		secretKey: secretKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpc:     &http.Client{Timeout: timeout},
	}
}

// InitializeRequest describes a checkout to start.
type InitializeRequest struct {
	Email      string         `json:"email"`
	AmountKobo int            `json:"amount"`
	Currency   string         `json:"currency,omitempty"`
	PlanCode   string         `json:"plan,omitempty"`
	Reference  string         `json:"reference,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// InitializeTransaction starts a checkout and returns the hosted payment
// page URL.
func (c *Client) InitializeTransaction(ctx context.Context, req InitializeRequest) (string, error) {
	var data struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	}
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", req, &data); err != nil {
		return "", err
	}
	if data.AuthorizationURL == "" {
		return "", fmt.Errorf("paystack initialize: empty authorization_url")
	}
	return data.AuthorizationURL, nil
}

// DisableSubscription stops future charges for a subscription. Paystack's
// disable endpoint wants the subscription's email token, so the
// subscription is fetched first.
func (c *Client) DisableSubscription(ctx context.Context, subscriptionCode string) error {
	var sub struct {
		SubscriptionCode string `json:"subscription_code"`
		EmailToken       string `json:"email_token"`
	}
	if err := c.do(ctx, http.MethodGet, "/subscription/"+subscriptionCode, nil, &sub); err != nil {
		return err
	}

	payload := map[string]string{
		"code":  subscriptionCode,
		"token": sub.EmailToken,
	}
	return c.do(ctx, http.MethodPost, "/subscription/disable", payload, nil)
}

// do performs one API call, unwrapping Paystack's {status, message, data}
// envelope into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal paystack request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("new paystack request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("call paystack: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read paystack response: %w", err)
	}

	var envelope struct {
		Status  bool            `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	// Decode even on errors; Paystack error bodies carry the message.
	_ = json.Unmarshal(raw, &envelope)

	if resp.StatusCode >= 300 || !envelope.Status {
		message := envelope.Message
		if message == "" {
			message = truncate(raw)
		}
		return APIError{Status: resp.StatusCode, Message: message}
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode paystack data: %w", err)
		}
	}
	return nil
}

func truncate(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
