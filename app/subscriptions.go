// Package app tracks the one subscription row each user may hold.
package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/SatVerseX/mockmate-api/app/models"
)

const dayPassDuration = 24 * time.Hour

const subscriptionColumns = `
	id, user_id, plan_id, status,
	razorpay_subscription_id, razorpay_customer_id, razorpay_order_id,
	current_period_start, current_period_end, cancel_at_period_end,
	created_at, updated_at
`

func getSubscriptionByUserID(ctx context.Context, userID string) (models.Subscription, error) {
	if db == nil {
		return models.Subscription{}, sql.ErrNoRows
	}
	row := db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1;
	`, userID)
	return scanSubscription(row)
}

func getSubscriptionByRazorpayID(ctx context.Context, razorpaySubID string) (models.Subscription, error) {
	if db == nil {
		return models.Subscription{}, sql.ErrNoRows
	}
	row := db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE razorpay_subscription_id = $1;
	`, razorpaySubID)
	return scanSubscription(row)
}

func scanSubscription(row rowScanner) (models.Subscription, error) {
	var s models.Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PlanID,
		&s.Status,
		&s.RazorpaySubscriptionID,
		&s.RazorpayCustomerID,
		&s.RazorpayOrderID,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.CancelAtPeriodEnd,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return models.Subscription{}, err
	}
	return s, nil
}

// upsertSubscription writes the user's single subscription row. A new checkout
// replaces whatever tier the user held before.
func upsertSubscription(ctx context.Context, s models.Subscription) (models.Subscription, error) {
	if db == nil {
		return models.Subscription{}, errDBNotInitialized
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	row := db.QueryRowContext(ctx, `
		INSERT INTO subscriptions (
			id, user_id, plan_id, status,
			razorpay_subscription_id, razorpay_customer_id, razorpay_order_id,
			current_period_start, current_period_end, cancel_at_period_end
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id                  = EXCLUDED.plan_id,
			status                   = EXCLUDED.status,
			razorpay_subscription_id = EXCLUDED.razorpay_subscription_id,
			razorpay_customer_id     = EXCLUDED.razorpay_customer_id,
			razorpay_order_id        = EXCLUDED.razorpay_order_id,
			current_period_start     = EXCLUDED.current_period_start,
			current_period_end       = EXCLUDED.current_period_end,
			cancel_at_period_end     = EXCLUDED.cancel_at_period_end,
			updated_at               = now()
		RETURNING `+subscriptionColumns+`;
	`,
		s.ID,
		s.UserID,
		s.PlanID,
		s.Status,
		s.RazorpaySubscriptionID,
		s.RazorpayCustomerID,
		s.RazorpayOrderID,
		s.CurrentPeriodStart,
		s.CurrentPeriodEnd,
		s.CancelAtPeriodEnd,
	)
	return scanSubscription(row)
}

// setSubscriptionStatusByRazorpayID applies a webhook status toggle. Nil period
// bounds leave the stored window untouched.
func setSubscriptionStatusByRazorpayID(ctx context.Context, razorpaySubID, status string, periodStart, periodEnd *time.Time) error {
	if db == nil {
		return errDBNotInitialized
	}
	if razorpaySubID == "" {
		return errors.New("missing razorpay subscription id")
	}
	res, err := db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status               = $1,
		    current_period_start = COALESCE($2, current_period_start),
		    current_period_end   = COALESCE($3, current_period_end),
		    updated_at           = now()
		WHERE razorpay_subscription_id = $4;
	`, status, periodStart, periodEnd, razorpaySubID)
	if err != nil {
		return err
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		log.Printf("subscription status update matched no row rzp_sub=%s status=%s", razorpaySubID, status)
	}
	return nil
}

func setSubscriptionCancelAtPeriodEnd(ctx context.Context, userID string) error {
	if db == nil {
		return errDBNotInitialized
	}
	_, err := db.ExecContext(ctx, `
		UPDATE subscriptions
		SET cancel_at_period_end = TRUE, updated_at = now()
		WHERE user_id = $1;
	`, userID)
	return err
}

// activateSubscription marks the user's row active after a verified
// subscription checkout.
func activateSubscription(ctx context.Context, userID, razorpaySubID string) error {
	if db == nil {
		return errDBNotInitialized
	}
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status               = $1,
		    current_period_start = COALESCE(current_period_start, $2),
		    updated_at           = now()
		WHERE user_id = $3 AND razorpay_subscription_id = $4;
	`, models.SubStatusActive, now, userID, razorpaySubID)
	return err
}

// activateDayPass opens a 24h unlimited window after a verified one-time order.
func activateDayPass(ctx context.Context, userID, planID, razorpayOrderID string) error {
	start := time.Now().UTC()
	end := start.Add(dayPassDuration)
	_, err := upsertSubscription(ctx, models.Subscription{
		UserID:             userID,
		PlanID:             planID,
		Status:             models.SubStatusActive,
		RazorpayOrderID:    sql.NullString{String: razorpayOrderID, Valid: razorpayOrderID != ""},
		CurrentPeriodStart: sql.NullTime{Time: start, Valid: true},
		CurrentPeriodEnd:   sql.NullTime{Time: end, Valid: true},
	})
	return err
}

func expireSubscription(ctx context.Context, subscriptionID string) error {
	if db == nil {
		return errDBNotInitialized
	}
	_, err := db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $1, updated_at = now()
		WHERE id = $2;
	`, models.SubStatusExpired, subscriptionID)
	return err
}

// subscriptionGrants reports whether the row entitles the user to its plan at
// the given instant. One-time passes expire with their period window; for
// recurring tiers the provider's webhook toggles remain the source of truth.
func subscriptionGrants(s models.Subscription, plan models.Plan, now time.Time) bool {
	if s.Status != models.SubStatusActive {
		return false
	}
	if plan.PlanType == models.PlanTypeOneTime {
		return s.CurrentPeriodEnd.Valid && now.Before(s.CurrentPeriodEnd.Time)
	}
	return true
}

// resolveEntitlement maps the user's subscription row to the plan that gates
// features right now, lazily flipping run-out day passes to expired.
func resolveEntitlement(ctx context.Context, userID string) (models.Entitlement, error) {
	if db == nil {
		return models.Entitlement{Plan: fallbackFreePlan()}, nil
	}

	sub, err := getSubscriptionByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Entitlement{Plan: getFreePlan(ctx)}, nil
		}
		return models.Entitlement{}, err
	}

	plan, err := getPlan(ctx, sub.PlanID)
	if err != nil {
		log.Printf("entitlement plan lookup failed user=%s plan=%s err=%v", userID, sub.PlanID, err)
		return models.Entitlement{Plan: getFreePlan(ctx), Subscription: &sub}, nil
	}

	now := time.Now().UTC()
	if sub.Status == models.SubStatusActive && plan.PlanType == models.PlanTypeOneTime &&
		sub.CurrentPeriodEnd.Valid && !now.Before(sub.CurrentPeriodEnd.Time) {
		if err := expireSubscription(ctx, sub.ID); err != nil {
			log.Printf("day pass expiry failed sub=%s err=%v", sub.ID, err)
		}
		sub.Status = models.SubStatusExpired
	}

	if !subscriptionGrants(sub, plan, now) {
		return models.Entitlement{Plan: getFreePlan(ctx), Subscription: &sub}, nil
	}
	return models.Entitlement{Plan: plan, Subscription: &sub}, nil
}
