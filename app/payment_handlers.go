package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/IsaacKoome/glowscanweb/app/models"
	"github.com/IsaacKoome/glowscanweb/paystack"

	"github.com/gin-gonic/gin"
)

const paymentTimeout = 30 * time.Second

type createPaymentRequest struct {
	PlanID    string `json:"planId"`
	UserEmail string `json:"userEmail"`
}

// CreatePaystackPayment initializes a Paystack checkout for a paid plan
// and returns the hosted payment page URL.
func (s *Server) CreatePaystackPayment(c *gin.Context) {
	if s.payments == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payments not configured"})
		return
	}

	userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-User-ID header"})
		return
	}

	var req createPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	plan := models.Plan(strings.ToLower(strings.TrimSpace(req.PlanID)))
	if !models.ValidPlan(plan) || plan == models.PlanFree {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid plan"})
		return
	}
	pol := s.plans.Get(plan)

	email := strings.TrimSpace(req.UserEmail)
	if email == "" {
		// Paystack requires an email; fall back to a stable synthetic
		// address keyed on the opaque user id.
		email = fmt.Sprintf("%s@users.glowscan.app", userID)
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), paymentTimeout)
	defer cancel()

	reference := fmt.Sprintf("glowscan-%s-%s-%d", userID, plan, time.Now().Unix())
	checkoutURL, err := s.payments.InitializeTransaction(ctx, paystack.InitializeRequest{
		Email:      email,
		AmountKobo: pol.AmountKobo,
		Currency:   pol.Currency,
		PlanCode:   pol.PlanCode,
		Reference:  reference,
		Metadata: map[string]any{
			"user_id": userID,
			"plan_id": string(plan),
		},
	})
	if err != nil {
		var apiErr paystack.APIError
		if errors.As(err, &apiErr) {
			log.Printf("paystack initialize failed user=%s plan=%s status=%d message=%s", userID, plan, apiErr.Status, apiErr.Message)
			c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message})
			return
		}
		log.Printf("paystack initialize failed user=%s plan=%s err=%v", userID, plan, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to initialize payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"checkout_url": checkoutURL})
}

// CancelSubscription disables the user's active Paystack subscription and
// moves them back to the free plan.
func (s *Server) CancelSubscription(c *gin.Context) {
	if s.payments == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "payments not configured"})
		return
	}
	if s.store == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user record store not configured"})
		return
	}

	userID := strings.TrimSpace(c.GetHeader("X-User-ID"))
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing X-User-ID header"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), paymentTimeout)
	defer cancel()

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		log.Printf("cancel lookup failed user=%s err=%v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	if user.PaystackSubscriptionCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no active subscription"})
		return
	}

	if err := s.payments.DisableSubscription(ctx, user.PaystackSubscriptionCode); err != nil {
		var apiErr paystack.APIError
		if errors.As(err, &apiErr) {
			log.Printf("paystack disable failed user=%s status=%d message=%s", userID, apiErr.Status, apiErr.Message)
			c.JSON(http.StatusBadGateway, gin.H{"error": apiErr.Message})
			return
		}
		log.Printf("paystack disable failed user=%s err=%v", userID, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to cancel subscription"})
		return
	}

	// The processor has disabled the subscription; losing this write only
	// delays the downgrade until the webhook lands.
	if _, err := s.store.MutateUser(ctx, userID, func(u *models.User) error {
		u.Plan = models.PlanFree
		u.PaystackSubscriptionStatus = "cancelled"
		return nil
	}); err != nil {
		log.Printf("cancel downgrade write failed user=%s err=%v", userID, err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// PaystackWebhook reconciles payment and subscription lifecycle events.
// The signature check gates everything; once a payload is authentic the
// processor always gets a 200 acknowledgment, even when our own record
// updates fail, so it never retry-storms us over internal errors.
func (s *Server) PaystackWebhook(c *gin.Context) {
	if s.webhookSecret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhook not configured"})
		return
	}

	const maxBodyBytes = int64(1 << 20)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Printf("paystack webhook read failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	signature := c.GetHeader("X-Paystack-Signature")
	if !paystack.VerifySignature(s.webhookSecret, body, signature) {
		log.Printf("paystack webhook signature failed computed=%s received=%s",
			paystack.ComputeSignature(s.webhookSecret, body), signature)
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	event, err := paystack.ParseEvent(body)
	if err != nil {
		log.Printf("paystack webhook unmarshal failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), paymentTimeout)
	defer cancel()

	switch event.Event {
	case paystack.EventChargeSuccess:
		s.applyChargeSuccess(ctx, event.Data)
	case paystack.EventSubscriptionCreate:
		s.applySubscriptionCreate(ctx, event.Data)
	case paystack.EventSubscriptionNotRenew, paystack.EventSubscriptionDisable:
		s.applySubscriptionStatus(ctx, event.Event, event.Data)
	default:
		// Intentionally ignore unhandled events.
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// applyChargeSuccess upgrades the paying user and resets their daily
// counters. Failures are logged only; acknowledgment is decoupled from
// materialization success.
func (s *Server) applyChargeSuccess(ctx context.Context, data paystack.EventData) {
	if s.store == nil {
		log.Printf("charge.success dropped: record store not configured reference=%s", data.Reference)
		return
	}

	userID := data.Metadata.UserID
	if userID == "" {
		log.Printf("charge.success missing user_id metadata reference=%s", data.Reference)
		return
	}

	plan := models.Plan(data.Metadata.PlanID)
	if !models.ValidPlan(plan) {
		if mapped, ok := s.plans.ByPlanCode(data.Plan.PlanCode); ok {
			plan = mapped
		} else {
			log.Printf("charge.success unrecognized plan user=%s plan_id=%q plan_code=%q", userID, data.Metadata.PlanID, data.Plan.PlanCode)
			return
		}
	}

	_, err := s.store.MutateUser(ctx, userID, func(u *models.User) error {
		u.Plan = plan
		u.GeminiCountToday = 0
		u.GPT4oCountToday = 0
		u.PaystackCustomerID = data.Customer.CustomerCode
		u.PaystackSubscriptionStatus = "active"
		return nil
	})
	if err != nil {
		log.Printf("charge.success upgrade failed user=%s plan=%s err=%v", userID, plan, err)
		return
	}
	log.Printf("charge.success applied user=%s plan=%s", userID, plan)
}

func (s *Server) applySubscriptionCreate(ctx context.Context, data paystack.EventData) {
	if s.store == nil {
		log.Printf("subscription.create dropped: record store not configured customer=%s", data.Customer.CustomerCode)
		return
	}

	user, err := s.store.FindByCustomerCode(ctx, data.Customer.CustomerCode)
	if err != nil {
		log.Printf("subscription.create lookup failed customer=%s err=%v", data.Customer.CustomerCode, err)
		return
	}

	plan, ok := s.plans.ByPlanCode(data.Plan.PlanCode)
	if !ok {
		plan = models.PlanFree
	}

	if _, err := s.store.MutateUser(ctx, user.UserID, func(u *models.User) error {
		u.Plan = plan
		u.PaystackSubscriptionCode = data.SubscriptionCode
		u.PaystackSubscriptionStatus = data.Status
		return nil
	}); err != nil {
		log.Printf("subscription.create update failed user=%s err=%v", user.UserID, err)
	}
}

func (s *Server) applySubscriptionStatus(ctx context.Context, eventType string, data paystack.EventData) {
	if s.store == nil {
		log.Printf("%s dropped: record store not configured customer=%s", eventType, data.Customer.CustomerCode)
		return
	}

	user, err := s.store.FindByCustomerCode(ctx, data.Customer.CustomerCode)
	if err != nil {
		log.Printf("%s lookup failed customer=%s err=%v", eventType, data.Customer.CustomerCode, err)
		return
	}

	disabled := eventType == paystack.EventSubscriptionDisable
	if _, err := s.store.MutateUser(ctx, user.UserID, func(u *models.User) error {
		if data.Status != "" {
			u.PaystackSubscriptionStatus = data.Status
		} else if disabled {
			u.PaystackSubscriptionStatus = "disabled"
		}
		if disabled {
			u.Plan = models.PlanFree
		}
		return nil
	}); err != nil {
		log.Printf("%s update failed user=%s err=%v", eventType, user.UserID, err)
	}
}
