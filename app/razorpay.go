package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"

	"github.com/SatVerseX/mockmate-api/app/config"
	"github.com/SatVerseX/mockmate-api/app/models"
)

var rzpClient *razorpay.Client

// Charge total_count caps for recurring subscriptions, per Razorpay's
// required-at-create billing cycle count.
const (
	monthlyBillingCycles = 12
	yearlyBillingCycles  = 5
)

// InitRazorpay wires the Razorpay API client from the environment.
func InitRazorpay() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config for razorpay: %v", err)
	}
	if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
		log.Printf("razorpay keys missing; billing endpoints will be unavailable")
		return
	}
	rzpClient = razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret)
}

// ensureRazorpayCustomer finds or creates a Razorpay Customer for the given user.
// It uses profiles.razorpay_customer_id when present, otherwise creates a new
// customer with notes user_id = <userID>, then stores that on the profile.
func ensureRazorpayCustomer(ctx context.Context, userID string) (string, error) {
	if db == nil {
		return "", errDBNotInitialized
	}
	if rzpClient == nil {
		return "", errors.New("razorpay client not initialized")
	}
	if userID == "" {
		return "", errors.New("missing user id")
	}

	profile, err := getProfileByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if profile.RazorpayCustomerID.Valid && profile.RazorpayCustomerID.String != "" {
		return profile.RazorpayCustomerID.String, nil
	}

	data := map[string]interface{}{
		// fail_existing=0 returns the existing customer instead of erroring
		// when the email was seen before.
		"fail_existing": "0",
		"notes": map[string]interface{}{
			"user_id": userID,
		},
	}
	if profile.FullName.Valid && profile.FullName.String != "" {
		data["name"] = profile.FullName.String
	}
	if profile.Email.Valid && profile.Email.String != "" {
		data["email"] = profile.Email.String
	}

	cust, err := rzpClient.Customer.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay customer create: %w", err)
	}
	customerID, _ := cust["id"].(string)
	if customerID == "" {
		return "", errors.New("razorpay customer response missing id")
	}

	if err := setRazorpayCustomerID(ctx, userID, customerID); err != nil {
		return "", err
	}

	return customerID, nil
}

// buildOrderPayload shapes an orders.create request from the plan row. Amount
// and currency always come from the database, never from the client.
func buildOrderPayload(plan models.Plan, userID, receipt string) map[string]interface{} {
	return map[string]interface{}{
		"amount":   plan.Amount,
		"currency": plan.Currency,
		"receipt":  receipt,
		"notes": map[string]interface{}{
			"user_id": userID,
			"plan_id": plan.ID,
		},
	}
}

// buildSubscriptionPayload shapes a subscriptions.create request for a
// recurring plan.
func buildSubscriptionPayload(plan models.Plan, customerID, userID string) map[string]interface{} {
	totalCount := monthlyBillingCycles
	if plan.BillingInterval == models.IntervalYear {
		totalCount = yearlyBillingCycles
	}
	return map[string]interface{}{
		"plan_id":         plan.RazorpayPlanID,
		"customer_id":     customerID,
		"total_count":     totalCount,
		"customer_notify": 1,
		"notes": map[string]interface{}{
			"user_id": userID,
			"plan_id": plan.ID,
		},
	}
}

// newReceipt returns a receipt id under Razorpay's 40 character cap.
func newReceipt() string {
	return "mm_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
