package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
)

// Webhook event types we act on. Everything else is acknowledged and
// ignored.
const (
	EventChargeSuccess        = "charge.success"
	EventSubscriptionCreate   = "subscription.create"
	EventSubscriptionNotRenew = "subscription.not_renew"
	EventSubscriptionDisable  = "subscription.disable"
)

// Event is the processor's webhook payload, narrowed to the fields the
// service reconciles on.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

type EventData struct {
	Reference        string   `json:"reference"`
	Status           string   `json:"status"`
	SubscriptionCode string   `json:"subscription_code"`
	Customer         Customer `json:"customer"`
	Plan             PlanInfo `json:"plan"`
	Metadata         Metadata `json:"metadata"`
}

type Customer struct {
	CustomerCode string `json:"customer_code"`
	Email        string `json:"email"`
}

type PlanInfo struct {
	PlanCode string `json:"plan_code"`
}

// Metadata is what the service attached when initializing the transaction.
type Metadata struct {
	UserID string `json:"user_id"`
	PlanID string `json:"plan_id"`
}

// ParseEvent decodes a webhook body. Call VerifySignature first.
func ParseEvent(body []byte) (Event, error) {
	var ev Event
	err := json.Unmarshal(body, &ev)
	return ev, err
}

// ComputeSignature returns the hex HMAC-SHA512 of body under the secret
// key, the scheme Paystack uses for the X-Paystack-Signature header.
func ComputeSignature(secretKey string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature in constant time.
func VerifySignature(secretKey string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := ComputeSignature(secretKey, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
