package models

import "encoding/json"

// Billing interval and plan type values stored on plans rows.
const (
	IntervalMonth = "month"
	IntervalYear  = "year"
	IntervalDay   = "day"

	PlanTypeRecurring = "recurring"
	PlanTypeOneTime   = "one_time"
)

// Well-known plan slugs seeded by the migrations.
const (
	PlanFree       = "free"
	PlanStarter    = "starter"
	PlanProMonthly = "pro-monthly"
	PlanProYearly  = "pro-yearly"
	PlanDayPass    = "day-pass"
)

// Plan is one pricing tier. Amount is in minor currency units (paise).
type Plan struct {
	ID                 string          `json:"id" db:"id"`
	Name               string          `json:"name" db:"name"`
	Description        string          `json:"description" db:"description"`
	Amount             int64           `json:"amount" db:"amount"`
	Currency           string          `json:"currency" db:"currency"`
	BillingInterval    string          `json:"billing_interval" db:"billing_interval"`
	PlanType           string          `json:"plan_type" db:"plan_type"`
	RazorpayPlanID     string          `json:"-" db:"razorpay_plan_id"`
	InterviewLimit     *int            `json:"interview_limit" db:"interview_limit"`
	MaxDurationMinutes int             `json:"max_duration_minutes" db:"max_duration_minutes"`
	Features           json.RawMessage `json:"features" db:"features"`
	IsActive           bool            `json:"-" db:"is_active"`
	SortOrder          int             `json:"-" db:"sort_order"`
}

// IsFree reports whether this tier requires no payment.
func (p Plan) IsFree() bool {
	return p.Amount == 0
}

// Unlimited reports whether the tier has no weekly interview cap.
func (p Plan) Unlimited() bool {
	return p.InterviewLimit == nil
}
