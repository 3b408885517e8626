package models

import "encoding/json"

// Razorpay webhook event names handled by the webhook endpoint. Anything else
// is acknowledged and ignored.
const (
	EventSubscriptionActivated = "subscription.activated"
	EventSubscriptionCharged   = "subscription.charged"
	EventSubscriptionHalted    = "subscription.halted"
	EventSubscriptionCancelled = "subscription.cancelled"
	EventSubscriptionCompleted = "subscription.completed"
	EventSubscriptionExpired   = "subscription.expired"
	EventSubscriptionResumed   = "subscription.resumed"
	EventSubscriptionPending   = "subscription.pending"
	EventOrderPaid             = "order.paid"
	EventPaymentFailed         = "payment.failed"
)

// WebhookEvent is the outer Razorpay webhook envelope.
type WebhookEvent struct {
	Entity    string         `json:"entity"`
	AccountID string         `json:"account_id"`
	Event     string         `json:"event"`
	Contains  []string       `json:"contains"`
	Payload   WebhookPayload `json:"payload"`
	CreatedAt int64          `json:"created_at"`
}

// WebhookPayload wraps the entities referenced by a webhook event.
type WebhookPayload struct {
	Subscription *WebhookEntity `json:"subscription,omitempty"`
	Payment      *WebhookEntity `json:"payment,omitempty"`
	Order        *WebhookEntity `json:"order,omitempty"`
}

// WebhookEntity is the {"entity": {...}} wrapper Razorpay uses per object.
type WebhookEntity struct {
	Entity json.RawMessage `json:"entity"`
}

// SubscriptionEntity is the subset of Razorpay's subscription object we read.
type SubscriptionEntity struct {
	ID           string            `json:"id"`
	PlanID       string            `json:"plan_id"`
	CustomerID   string            `json:"customer_id"`
	Status       string            `json:"status"`
	CurrentStart int64             `json:"current_start"`
	CurrentEnd   int64             `json:"current_end"`
	EndedAt      int64             `json:"ended_at"`
	Notes        map[string]string `json:"-"`
	RawNotes     json.RawMessage   `json:"notes"`
}

// OrderEntity is the subset of Razorpay's order object we read.
type OrderEntity struct {
	ID       string          `json:"id"`
	Amount   int64           `json:"amount"`
	Currency string          `json:"currency"`
	Receipt  string          `json:"receipt"`
	Status   string          `json:"status"`
	RawNotes json.RawMessage `json:"notes"`
}

// PaymentEntity is the subset of Razorpay's payment object we read.
type PaymentEntity struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	ErrorCode   string `json:"error_code"`
	ErrorReason string `json:"error_reason"`
}

// DecodeNotes parses Razorpay's notes field, which is an object in practice
// but arrives as an empty array when no notes were set.
func DecodeNotes(raw json.RawMessage) map[string]string {
	notes := map[string]string{}
	if len(raw) == 0 {
		return notes
	}
	_ = json.Unmarshal(raw, &notes)
	return notes
}
