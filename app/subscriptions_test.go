package app

import (
	"database/sql"
	"testing"
	"time"

	"github.com/SatVerseX/mockmate-api/app/models"
)

func TestSubscriptionGrants(t *testing.T) {
	now := time.Date(2025, 6, 4, 12, 0, 0, 0, time.UTC)
	recurring := models.Plan{ID: models.PlanProMonthly, PlanType: models.PlanTypeRecurring}
	oneTime := models.Plan{ID: models.PlanDayPass, PlanType: models.PlanTypeOneTime}

	cases := []struct {
		name string
		sub  models.Subscription
		plan models.Plan
		want bool
	}{
		{
			name: "active recurring grants",
			sub:  models.Subscription{Status: models.SubStatusActive},
			plan: recurring,
			want: true,
		},
		{
			name: "created recurring does not grant until first charge",
			sub:  models.Subscription{Status: models.SubStatusCreated},
			plan: recurring,
			want: false,
		},
		{
			name: "halted recurring does not grant",
			sub:  models.Subscription{Status: models.SubStatusHalted},
			plan: recurring,
			want: false,
		},
		{
			name: "day pass inside its window grants",
			sub: models.Subscription{
				Status:           models.SubStatusActive,
				CurrentPeriodEnd: sql.NullTime{Time: now.Add(2 * time.Hour), Valid: true},
			},
			plan: oneTime,
			want: true,
		},
		{
			name: "day pass past its window does not grant",
			sub: models.Subscription{
				Status:           models.SubStatusActive,
				CurrentPeriodEnd: sql.NullTime{Time: now.Add(-time.Minute), Valid: true},
			},
			plan: oneTime,
			want: false,
		},
		{
			name: "day pass without a window does not grant",
			sub:  models.Subscription{Status: models.SubStatusActive},
			plan: oneTime,
			want: false,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := subscriptionGrants(tc.sub, tc.plan, now); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}
