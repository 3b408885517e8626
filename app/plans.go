package app

import (
	"context"
	"encoding/json"

	"github.com/SatVerseX/mockmate-api/app/models"
)

const planColumns = `
	id, name, description, amount, currency, billing_interval, plan_type,
	COALESCE(razorpay_plan_id, ''), interview_limit, max_duration_minutes,
	features, is_active, sort_order
`

// listActivePlans returns the visible pricing tiers in display order.
func listActivePlans(ctx context.Context) ([]models.Plan, error) {
	if db == nil {
		return []models.Plan{fallbackFreePlan()}, nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE is_active = TRUE
		ORDER BY sort_order ASC;
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func getPlan(ctx context.Context, id string) (models.Plan, error) {
	if db == nil {
		if id == models.PlanFree {
			return fallbackFreePlan(), nil
		}
		return models.Plan{}, errDBNotInitialized
	}

	row := db.QueryRowContext(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE id = $1;
	`, id)
	return scanPlan(row)
}

// getFreePlan loads the free tier, falling back to built-in defaults when the
// seed row is missing so entitlement resolution never fails open.
func getFreePlan(ctx context.Context) models.Plan {
	plan, err := getPlan(ctx, models.PlanFree)
	if err != nil {
		return fallbackFreePlan()
	}
	return plan
}

func fallbackFreePlan() models.Plan {
	limit := 3
	return models.Plan{
		ID:                 models.PlanFree,
		Name:               "Free",
		Amount:             0,
		Currency:           "INR",
		BillingInterval:    models.IntervalMonth,
		PlanType:           models.PlanTypeRecurring,
		InterviewLimit:     &limit,
		MaxDurationMinutes: 15,
		Features:           json.RawMessage(`[]`),
		IsActive:           true,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (models.Plan, error) {
	var p models.Plan
	var limit *int
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Amount,
		&p.Currency,
		&p.BillingInterval,
		&p.PlanType,
		&p.RazorpayPlanID,
		&limit,
		&p.MaxDurationMinutes,
		&p.Features,
		&p.IsActive,
		&p.SortOrder,
	)
	if err != nil {
		return models.Plan{}, err
	}
	p.InterviewLimit = limit
	return p, nil
}
