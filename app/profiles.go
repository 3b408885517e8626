// Package app provides profile persistence helpers for authenticated requests.
package app

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/SatVerseX/mockmate-api/app/models"
	"github.com/SatVerseX/mockmate-api/auth"
)

// UpsertProfileFromClaims creates a profile row if it does not already exist.
// Existing rows are left alone; profile edits go through UpdateMe.
func UpsertProfileFromClaims(ctx context.Context, claims *auth.Claims) error {
	if db == nil {
		return nil
	}
	if claims == nil || claims.Subject == "" {
		return nil
	}

	const q = `
		INSERT INTO profiles (id, email, full_name, avatar_url, interviews_used, usage_period_start)
		VALUES ($1, $2, $3, $4, 0, $5)
		ON CONFLICT (id) DO NOTHING;
	`

	_, err := db.ExecContext(
		ctx,
		q,
		claims.Subject,
		nullIfEmpty(strings.TrimSpace(claims.Email)),
		nullIfEmpty(claims.Name()),
		nullIfEmpty(claims.AvatarURL()),
		weekStartUTC(time.Now()),
	)
	return err
}

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func getProfileByID(ctx context.Context, userID string) (models.Profile, error) {
	var p models.Profile
	err := db.QueryRowContext(ctx, `
		SELECT id, email, full_name, avatar_url, college, degree, branch, graduation_year,
		       resume_key, resume_filename, razorpay_customer_id,
		       interviews_used, usage_period_start, created_at, updated_at
		FROM profiles
		WHERE id = $1;
	`, userID).Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.AvatarURL,
		&p.College,
		&p.Degree,
		&p.Branch,
		&p.GraduationYear,
		&p.ResumeKey,
		&p.ResumeFilename,
		&p.RazorpayCustomerID,
		&p.InterviewsUsed,
		&p.UsagePeriodStart,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return models.Profile{}, err
	}
	return p, nil
}

// profileUpdate carries optional PUT /me fields; nil pointers keep the stored value.
type profileUpdate struct {
	FullName       *string
	AvatarURL      *string
	College        *string
	Degree         *string
	Branch         *string
	GraduationYear *int
}

func updateProfile(ctx context.Context, userID string, upd profileUpdate) error {
	_, err := db.ExecContext(ctx, `
		UPDATE profiles
		SET full_name       = COALESCE($1, full_name),
		    avatar_url      = COALESCE($2, avatar_url),
		    college         = COALESCE($3, college),
		    degree          = COALESCE($4, degree),
		    branch          = COALESCE($5, branch),
		    graduation_year = COALESCE($6, graduation_year),
		    updated_at      = now()
		WHERE id = $7;
	`,
		upd.FullName,
		upd.AvatarURL,
		upd.College,
		upd.Degree,
		upd.Branch,
		upd.GraduationYear,
		userID,
	)
	return err
}

func setProfileResume(ctx context.Context, userID, key, filename string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE profiles
		SET resume_key = $1, resume_filename = $2, updated_at = now()
		WHERE id = $3;
	`, key, filename, userID)
	return err
}

func setRazorpayCustomerID(ctx context.Context, userID, customerID string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE profiles
		SET razorpay_customer_id = $1, updated_at = now()
		WHERE id = $2;
	`, customerID, userID)
	return err
}
