package app

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/SatVerseX/mockmate-api/app/config"
	"github.com/SatVerseX/mockmate-api/app/models"
	"github.com/SatVerseX/mockmate-api/auth"
)

// ListPlans returns the active pricing tiers plus the checkout key id.
func ListPlans(c *gin.Context) {
	plans, err := listActivePlans(c.Request.Context())
	if err != nil {
		log.Printf("list plans failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load plans"})
		return
	}

	keyID := ""
	if cfg, err := config.LoadConfig(); err == nil {
		keyID = cfg.Razorpay.KeyID
	}

	c.JSON(http.StatusOK, gin.H{
		"plans":  plans,
		"key_id": keyID,
	})
}

type checkoutRequest struct {
	PlanID string `json:"plan_id"`
}

// CreateOrder starts a Razorpay order for a one-time plan (the day pass).
func CreateOrder(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PlanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if rzpClient == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	plan, err := getPlan(c.Request.Context(), req.PlanID)
	if err != nil || !plan.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
		return
	}
	if plan.PlanType != models.PlanTypeOneTime {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan requires subscription checkout"})
		return
	}

	if _, err := ensureRazorpayCustomer(c.Request.Context(), claims.Subject); err != nil {
		log.Printf("ensureRazorpayCustomer failed for user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare billing"})
		return
	}

	order, err := rzpClient.Order.Create(buildOrderPayload(plan, claims.Subject, newReceipt()), nil)
	if err != nil {
		log.Printf("razorpay order create failed user=%s plan=%s: %v", claims.Subject, plan.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create order"})
		return
	}
	orderID, _ := order["id"].(string)
	if orderID == "" {
		log.Printf("razorpay order response missing id user=%s", claims.Subject)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create order"})
		return
	}

	keyID := ""
	if cfg, err := config.LoadConfig(); err == nil {
		keyID = cfg.Razorpay.KeyID
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"amount":   plan.Amount,
		"currency": plan.Currency,
		"plan_id":  plan.ID,
		"key_id":   keyID,
	})
}

// CreateSubscription starts a Razorpay subscription for a recurring plan.
func CreateSubscription(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.PlanID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if rzpClient == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	plan, err := getPlan(c.Request.Context(), req.PlanID)
	if err != nil || !plan.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
		return
	}
	if plan.PlanType != models.PlanTypeRecurring || plan.IsFree() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "plan is not a paid subscription"})
		return
	}
	if plan.RazorpayPlanID == "" {
		log.Printf("plan %s has no razorpay_plan_id configured", plan.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "plan not available for checkout"})
		return
	}

	customerID, err := ensureRazorpayCustomer(c.Request.Context(), claims.Subject)
	if err != nil {
		log.Printf("ensureRazorpayCustomer failed for user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to prepare billing"})
		return
	}

	sub, err := rzpClient.Subscription.Create(buildSubscriptionPayload(plan, customerID, claims.Subject), nil)
	if err != nil {
		log.Printf("razorpay subscription create failed user=%s plan=%s: %v", claims.Subject, plan.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create subscription"})
		return
	}
	subID, _ := sub["id"].(string)
	if subID == "" {
		log.Printf("razorpay subscription response missing id user=%s", claims.Subject)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create subscription"})
		return
	}

	_, err = upsertSubscription(c.Request.Context(), models.Subscription{
		UserID:                 claims.Subject,
		PlanID:                 plan.ID,
		Status:                 models.SubStatusCreated,
		RazorpaySubscriptionID: sql.NullString{String: subID, Valid: true},
		RazorpayCustomerID:     sql.NullString{String: customerID, Valid: true},
	})
	if err != nil {
		log.Printf("subscription row upsert failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store subscription"})
		return
	}

	keyID := ""
	if cfg, err := config.LoadConfig(); err == nil {
		keyID = cfg.Razorpay.KeyID
	}

	c.JSON(http.StatusOK, gin.H{
		"subscription_id": subID,
		"plan_id":         plan.ID,
		"key_id":          keyID,
	})
}

type verifyCheckoutRequest struct {
	RazorpayPaymentID      string `json:"razorpay_payment_id"`
	RazorpayOrderID        string `json:"razorpay_order_id"`
	RazorpaySubscriptionID string `json:"razorpay_subscription_id"`
	RazorpaySignature      string `json:"razorpay_signature"`
	PlanID                 string `json:"plan_id"`
}

// VerifyCheckout validates the signature Razorpay Checkout hands back to the
// frontend and activates the purchase. Webhooks later reconcile the same state.
func VerifyCheckout(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req verifyCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing payment id or signature"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil || cfg.Razorpay.KeySecret == "" {
		log.Printf("verify checkout config load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}
	secret := cfg.Razorpay.KeySecret

	switch {
	case req.RazorpaySubscriptionID != "":
		params := map[string]interface{}{
			"razorpay_payment_id":      req.RazorpayPaymentID,
			"razorpay_subscription_id": req.RazorpaySubscriptionID,
		}
		if !utils.VerifySubscriptionPaymentSignature(params, req.RazorpaySignature, secret) {
			log.Printf("subscription checkout signature failed user=%s", claims.Subject)
			c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
			return
		}
		if err := activateSubscription(c.Request.Context(), claims.Subject, req.RazorpaySubscriptionID); err != nil {
			log.Printf("subscription activate failed user=%s: %v", claims.Subject, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to activate subscription"})
			return
		}

	case req.RazorpayOrderID != "":
		params := map[string]interface{}{
			"razorpay_order_id":   req.RazorpayOrderID,
			"razorpay_payment_id": req.RazorpayPaymentID,
		}
		if !utils.VerifyPaymentSignature(params, req.RazorpaySignature, secret) {
			log.Printf("order checkout signature failed user=%s", claims.Subject)
			c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
			return
		}
		planID := req.PlanID
		if planID == "" {
			planID = models.PlanDayPass
		}
		plan, err := getPlan(c.Request.Context(), planID)
		if err != nil || plan.PlanType != models.PlanTypeOneTime {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plan"})
			return
		}
		if err := activateDayPass(c.Request.Context(), claims.Subject, plan.ID, req.RazorpayOrderID); err != nil {
			log.Printf("day pass activate failed user=%s: %v", claims.Subject, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to activate pass"})
			return
		}

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing order or subscription id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "active"})
}

// CancelSubscription requests cancellation at the end of the current billing
// cycle. The status flips when Razorpay sends subscription.cancelled.
func CancelSubscription(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}
	if rzpClient == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured"})
		return
	}

	sub, err := getSubscriptionByUserID(c.Request.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no subscription"})
			return
		}
		log.Printf("cancel lookup failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return
	}
	if sub.Status != models.SubStatusActive || !sub.RazorpaySubscriptionID.Valid {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active subscription"})
		return
	}

	_, err = rzpClient.Subscription.Cancel(sub.RazorpaySubscriptionID.String, map[string]interface{}{
		"cancel_at_cycle_end": 1,
	}, nil)
	if err != nil {
		log.Printf("razorpay cancel failed sub=%s: %v", sub.RazorpaySubscriptionID.String, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel subscription"})
		return
	}

	if err := setSubscriptionCancelAtPeriodEnd(c.Request.Context(), claims.Subject); err != nil {
		log.Printf("cancel flag update failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":               "ok",
		"cancel_at_period_end": true,
	})
}

// GetSubscription reports the stored row plus the entitlement actually in
// effect, which is what the frontend gates screens on.
func GetSubscription(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	ent, err := resolveEntitlement(c.Request.Context(), claims.Subject)
	if err != nil {
		log.Printf("entitlement resolve failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return
	}

	resp := gin.H{
		"plan":         ent.Plan,
		"subscription": nil,
	}
	if ent.Subscription != nil {
		sub := gin.H{
			"plan_id":              ent.Subscription.PlanID,
			"status":               ent.Subscription.Status,
			"cancel_at_period_end": ent.Subscription.CancelAtPeriodEnd,
		}
		if ent.Subscription.CurrentPeriodEnd.Valid {
			sub["current_period_end"] = ent.Subscription.CurrentPeriodEnd.Time.UTC()
		}
		resp["subscription"] = sub
	}

	c.JSON(http.StatusOK, resp)
}
