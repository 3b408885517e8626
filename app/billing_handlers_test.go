package app

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newVerifyRouter() *gin.Engine {
	router := gin.New()
	router.Use(withTestClaims("user-1"))
	router.POST("/api/billing/verify", VerifyCheckout)
	return router
}

func postVerify(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/billing/verify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestVerifyCheckoutRejectsBadOrderSignature(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_secret")
	router := newVerifyRouter()

	resp := postVerify(router, `{
		"razorpay_order_id": "order_123",
		"razorpay_payment_id": "pay_456",
		"razorpay_signature": "deadbeef"
	}`)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "signature verification failed") {
		t.Fatalf("unexpected body: %s", resp.Body.String())
	}
}

func TestVerifyCheckoutAcceptsValidOrderSignature(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_secret")
	router := newVerifyRouter()

	// Checkout signs "<order_id>|<payment_id>" with the key secret.
	sig := signWebhookBody("rzp_secret", "order_123|pay_456")
	resp := postVerify(router, `{
		"razorpay_order_id": "order_123",
		"razorpay_payment_id": "pay_456",
		"razorpay_signature": "`+sig+`"
	}`)

	// Past the signature gate the handler hits the plan lookup, which fails
	// without a database; a signature failure would have been a different 400.
	if strings.Contains(resp.Body.String(), "signature verification failed") {
		t.Fatalf("expected signature to verify: %s", resp.Body.String())
	}
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "unknown plan") {
		t.Fatalf("expected plan lookup failure, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestVerifyCheckoutSubscriptionSignature(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_secret")
	router := newVerifyRouter()

	resp := postVerify(router, `{
		"razorpay_subscription_id": "sub_123",
		"razorpay_payment_id": "pay_456",
		"razorpay_signature": "deadbeef"
	}`)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "signature verification failed") {
		t.Fatalf("expected signature rejection, got %d: %s", resp.Code, resp.Body.String())
	}

	// Subscriptions sign "<payment_id>|<subscription_id>".
	sig := signWebhookBody("rzp_secret", "pay_456|sub_123")
	resp = postVerify(router, `{
		"razorpay_subscription_id": "sub_123",
		"razorpay_payment_id": "pay_456",
		"razorpay_signature": "`+sig+`"
	}`)
	if strings.Contains(resp.Body.String(), "signature verification failed") {
		t.Fatalf("expected signature to verify: %s", resp.Body.String())
	}
}

func TestVerifyCheckoutValidation(t *testing.T) {
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_secret")
	router := newVerifyRouter()

	resp := postVerify(router, `{"razorpay_order_id": "order_123"}`)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "missing payment id or signature") {
		t.Fatalf("expected missing fields rejection, got %d: %s", resp.Code, resp.Body.String())
	}

	resp = postVerify(router, `{"razorpay_payment_id": "pay_456", "razorpay_signature": "abc"}`)
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "missing order or subscription id") {
		t.Fatalf("expected missing target rejection, got %d: %s", resp.Code, resp.Body.String())
	}
}
