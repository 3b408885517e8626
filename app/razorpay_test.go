package app

import (
	"strings"
	"testing"

	"github.com/SatVerseX/mockmate-api/app/models"
)

func TestBuildOrderPayload(t *testing.T) {
	plan := models.Plan{ID: models.PlanDayPass, Amount: 9900, Currency: "INR"}
	payload := buildOrderPayload(plan, "u-1", "mm_abc")

	if payload["amount"] != int64(9900) {
		t.Fatalf("expected amount from plan row, got %v", payload["amount"])
	}
	if payload["currency"] != "INR" {
		t.Fatalf("expected INR, got %v", payload["currency"])
	}
	if payload["receipt"] != "mm_abc" {
		t.Fatalf("expected receipt, got %v", payload["receipt"])
	}
	notes, ok := payload["notes"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected notes map, got %T", payload["notes"])
	}
	if notes["user_id"] != "u-1" || notes["plan_id"] != models.PlanDayPass {
		t.Fatalf("unexpected notes: %v", notes)
	}
}

func TestBuildSubscriptionPayload(t *testing.T) {
	monthly := models.Plan{
		ID:              models.PlanProMonthly,
		RazorpayPlanID:  "plan_monthly123",
		BillingInterval: models.IntervalMonth,
	}
	payload := buildSubscriptionPayload(monthly, "cust_1", "u-1")

	if payload["plan_id"] != "plan_monthly123" {
		t.Fatalf("expected provider plan id, got %v", payload["plan_id"])
	}
	if payload["customer_id"] != "cust_1" {
		t.Fatalf("expected customer id, got %v", payload["customer_id"])
	}
	if payload["total_count"] != monthlyBillingCycles {
		t.Fatalf("expected %d cycles for monthly, got %v", monthlyBillingCycles, payload["total_count"])
	}
	notes, ok := payload["notes"].(map[string]interface{})
	if !ok || notes["user_id"] != "u-1" || notes["plan_id"] != models.PlanProMonthly {
		t.Fatalf("unexpected notes: %v", payload["notes"])
	}

	yearly := monthly
	yearly.ID = models.PlanProYearly
	yearly.BillingInterval = models.IntervalYear
	payload = buildSubscriptionPayload(yearly, "cust_1", "u-1")
	if payload["total_count"] != yearlyBillingCycles {
		t.Fatalf("expected %d cycles for yearly, got %v", yearlyBillingCycles, payload["total_count"])
	}
}

func TestNewReceipt(t *testing.T) {
	receipt := newReceipt()
	if !strings.HasPrefix(receipt, "mm_") {
		t.Fatalf("expected mm_ prefix, got %q", receipt)
	}
	// Razorpay rejects receipts over 40 characters.
	if len(receipt) > 40 {
		t.Fatalf("receipt too long: %d", len(receipt))
	}
	if strings.Contains(receipt, "-") {
		t.Fatalf("expected dashes stripped, got %q", receipt)
	}
	if receipt == newReceipt() {
		t.Fatalf("expected unique receipts")
	}
}
