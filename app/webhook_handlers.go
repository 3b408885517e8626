package app

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/razorpay/razorpay-go/utils"

	"github.com/SatVerseX/mockmate-api/app/config"
	"github.com/SatVerseX/mockmate-api/app/models"
)

// subscriptionStatusForEvent maps a Razorpay subscription event to the local
// status it toggles. The bool is false for events that change nothing.
func subscriptionStatusForEvent(event string) (string, bool) {
	switch event {
	case models.EventSubscriptionActivated, models.EventSubscriptionResumed, models.EventSubscriptionCharged:
		return models.SubStatusActive, true
	case models.EventSubscriptionHalted:
		return models.SubStatusHalted, true
	case models.EventSubscriptionCancelled:
		return models.SubStatusCancelled, true
	case models.EventSubscriptionCompleted, models.EventSubscriptionExpired:
		return models.SubStatusExpired, true
	default:
		return "", false
	}
}

func unixTimePtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// RazorpayWebhook handles Razorpay billing events and updates subscription rows.
func RazorpayWebhook(c *gin.Context) {
	const maxBodyBytes = int64(65536)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		log.Printf("razorpay webhook read failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	sigHeader := c.GetHeader("X-Razorpay-Signature")
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("razorpay webhook config load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	webhookSecret := cfg.Razorpay.WebhookSecret
	if webhookSecret == "" {
		log.Printf("razorpay webhook secret missing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	if !utils.VerifyWebhookSignature(string(body), sigHeader, webhookSecret) {
		log.Printf("razorpay webhook signature failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "signature verification failed"})
		return
	}

	var event models.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("razorpay webhook unmarshal failed: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if status, ok := subscriptionStatusForEvent(event.Event); ok {
		if event.Payload.Subscription == nil {
			log.Printf("razorpay event %s missing subscription payload", event.Event)
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing subscription payload"})
			return
		}
		var sub models.SubscriptionEntity
		if err := json.Unmarshal(event.Payload.Subscription.Entity, &sub); err != nil {
			log.Printf("razorpay subscription unmarshal failed: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription payload"})
			return
		}
		if sub.ID == "" {
			log.Printf("razorpay event %s missing subscription id", event.Event)
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing subscription id"})
			return
		}

		err := setSubscriptionStatusByRazorpayID(
			c.Request.Context(),
			sub.ID,
			status,
			unixTimePtr(sub.CurrentStart),
			unixTimePtr(sub.CurrentEnd),
		)
		if err != nil {
			log.Printf("razorpay status update failed sub=%s event=%s err=%v", sub.ID, event.Event, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update subscription"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	switch event.Event {
	case models.EventOrderPaid:
		if event.Payload.Order == nil {
			log.Printf("razorpay order.paid missing order payload")
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing order payload"})
			return
		}
		var order models.OrderEntity
		if err := json.Unmarshal(event.Payload.Order.Entity, &order); err != nil {
			log.Printf("razorpay order unmarshal failed: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order payload"})
			return
		}

		notes := models.DecodeNotes(order.RawNotes)
		userID := notes["user_id"]
		if userID == "" {
			log.Printf("razorpay order %s has no user_id note", order.ID)
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing user id"})
			return
		}
		planID := notes["plan_id"]
		if planID == "" {
			planID = models.PlanDayPass
		}

		if err := activateDayPass(c.Request.Context(), userID, planID, order.ID); err != nil {
			log.Printf("day pass activate failed order=%s user=%s err=%v", order.ID, userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update subscription"})
			return
		}

	case models.EventSubscriptionPending:
		// Payment retries are still running; entitlement only drops on halted.
		log.Printf("razorpay subscription pending, leaving status unchanged")

	case models.EventPaymentFailed:
		var payment models.PaymentEntity
		if event.Payload.Payment != nil {
			_ = json.Unmarshal(event.Payload.Payment.Entity, &payment)
		}
		log.Printf("razorpay payment failed payment=%s order=%s code=%s reason=%s",
			payment.ID, payment.OrderID, payment.ErrorCode, payment.ErrorReason)

	default:
		// Intentionally ignore unhandled events.
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
