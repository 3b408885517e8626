package models

import (
	"database/sql"
	"time"
)

// Subscription lifecycle statuses. Webhook handlers toggle these directly.
const (
	SubStatusCreated   = "created"
	SubStatusActive    = "active"
	SubStatusCancelled = "cancelled"
	SubStatusHalted    = "halted"
	SubStatusExpired   = "expired"
)

// Subscription is the single billing row per user, referencing a plan and the
// provider-side subscription/customer/order identifiers.
type Subscription struct {
	ID                     string         `json:"id" db:"id"`
	UserID                 string         `json:"-" db:"user_id"`
	PlanID                 string         `json:"plan_id" db:"plan_id"`
	Status                 string         `json:"status" db:"status"`
	RazorpaySubscriptionID sql.NullString `json:"-" db:"razorpay_subscription_id"`
	RazorpayCustomerID     sql.NullString `json:"-" db:"razorpay_customer_id"`
	RazorpayOrderID        sql.NullString `json:"-" db:"razorpay_order_id"`
	CurrentPeriodStart     sql.NullTime   `json:"-" db:"current_period_start"`
	CurrentPeriodEnd       sql.NullTime   `json:"-" db:"current_period_end"`
	CancelAtPeriodEnd      bool           `json:"cancel_at_period_end" db:"cancel_at_period_end"`
	CreatedAt              time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at" db:"updated_at"`
}

// PeriodEnd returns the zero time when the provider has not reported one yet.
func (s Subscription) PeriodEnd() time.Time {
	if !s.CurrentPeriodEnd.Valid {
		return time.Time{}
	}
	return s.CurrentPeriodEnd.Time
}

// Entitlement is the resolved plan a user is currently allowed to use.
// Users without an active subscription fall back to the free tier.
type Entitlement struct {
	Plan         Plan          `json:"plan"`
	Subscription *Subscription `json:"subscription,omitempty"`
}
