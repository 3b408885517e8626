package app

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SatVerseX/mockmate-api/app/models"
)

func TestSubscriptionStatusForEvent(t *testing.T) {
	cases := []struct {
		event  string
		status string
		ok     bool
	}{
		{models.EventSubscriptionActivated, models.SubStatusActive, true},
		{models.EventSubscriptionResumed, models.SubStatusActive, true},
		{models.EventSubscriptionCharged, models.SubStatusActive, true},
		{models.EventSubscriptionHalted, models.SubStatusHalted, true},
		{models.EventSubscriptionCancelled, models.SubStatusCancelled, true},
		{models.EventSubscriptionCompleted, models.SubStatusExpired, true},
		{models.EventSubscriptionExpired, models.SubStatusExpired, true},
		{models.EventSubscriptionPending, "", false},
		{models.EventOrderPaid, "", false},
		{"payment.captured", "", false},
	}
	for _, tc := range cases {
		status, ok := subscriptionStatusForEvent(tc.event)
		if status != tc.status || ok != tc.ok {
			t.Fatalf("%s: expected (%q, %v), got (%q, %v)", tc.event, tc.status, tc.ok, status, ok)
		}
	}
}

func TestUnixTimePtr(t *testing.T) {
	if unixTimePtr(0) != nil {
		t.Fatalf("expected nil for zero")
	}
	if unixTimePtr(-5) != nil {
		t.Fatalf("expected nil for negative")
	}
	got := unixTimePtr(1735689600)
	if got == nil || !got.Equal(time.Unix(1735689600, 0).UTC()) {
		t.Fatalf("expected 2025-01-01T00:00:00Z, got %v", got)
	}
}

func newWebhookRouter() *gin.Engine {
	router := gin.New()
	router.POST("/api/razorpay/webhook", RazorpayWebhook)
	return router
}

func signWebhookBody(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(router *gin.Engine, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/razorpay/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Razorpay-Signature", signature)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRazorpayWebhookRejectsBadSignature(t *testing.T) {
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "whsec_test")
	router := newWebhookRouter()

	body := `{"event":"subscription.activated","payload":{}}`
	resp := postWebhook(router, body, "deadbeef")

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "signature verification failed") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestRazorpayWebhookMissingSecret(t *testing.T) {
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "")
	router := newWebhookRouter()

	resp := postWebhook(router, `{"event":"order.paid"}`, "deadbeef")

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without a webhook secret, got %d", resp.Code)
	}
}

func TestRazorpayWebhookIgnoresUnknownEvent(t *testing.T) {
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "whsec_test")
	router := newWebhookRouter()

	body := `{"event":"payment.captured","payload":{}}`
	resp := postWebhook(router, body, signWebhookBody("whsec_test", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for unhandled event, got %d", resp.Code)
	}
}

func TestRazorpayWebhookPendingLeavesStatus(t *testing.T) {
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "whsec_test")
	router := newWebhookRouter()

	body := `{"event":"subscription.pending","payload":{}}`
	resp := postWebhook(router, body, signWebhookBody("whsec_test", body))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for pending event, got %d", resp.Code)
	}
}

func TestRazorpayWebhookMissingSubscriptionPayload(t *testing.T) {
	t.Setenv("RAZORPAY_WEBHOOK_SECRET", "whsec_test")
	router := newWebhookRouter()

	body := `{"event":"subscription.activated","payload":{}}`
	resp := postWebhook(router, body, signWebhookBody("whsec_test", body))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing entity, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "missing subscription payload") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestDecodeNotes(t *testing.T) {
	notes := models.DecodeNotes([]byte(`{"user_id":"u-1","plan_id":"day-pass"}`))
	if notes["user_id"] != "u-1" || notes["plan_id"] != "day-pass" {
		t.Fatalf("expected notes map, got %v", notes)
	}
	// Razorpay sends [] instead of {} when notes are empty.
	if got := models.DecodeNotes([]byte(`[]`)); len(got) != 0 {
		t.Fatalf("expected empty map for array notes, got %v", got)
	}
	if got := models.DecodeNotes(nil); len(got) != 0 {
		t.Fatalf("expected empty map for nil notes, got %v", got)
	}
}
