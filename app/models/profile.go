// Package models defines profile, plan and usage tracking fields.
package models

import (
	"database/sql"
	"time"
)

// Profile is the per-user row keyed by the Supabase auth subject.
type Profile struct {
	ID                 string         `json:"id" db:"id"`
	Email              sql.NullString `json:"-" db:"email"`
	FullName           sql.NullString `json:"-" db:"full_name"`
	AvatarURL          sql.NullString `json:"-" db:"avatar_url"`
	College            sql.NullString `json:"-" db:"college"`
	Degree             sql.NullString `json:"-" db:"degree"`
	Branch             sql.NullString `json:"-" db:"branch"`
	GraduationYear     sql.NullInt64  `json:"-" db:"graduation_year"`
	ResumeKey          sql.NullString `json:"-" db:"resume_key"`
	ResumeFilename     sql.NullString `json:"-" db:"resume_filename"`
	RazorpayCustomerID sql.NullString `json:"-" db:"razorpay_customer_id"`
	InterviewsUsed     int            `json:"interviews_used" db:"interviews_used"`
	UsagePeriodStart   time.Time      `json:"usage_period_start" db:"usage_period_start"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at" db:"updated_at"`
}

// ProfileView is the JSON shape returned to the frontend.
type ProfileView struct {
	ID             string `json:"id"`
	Email          string `json:"email,omitempty"`
	FullName       string `json:"full_name,omitempty"`
	AvatarURL      string `json:"avatar_url,omitempty"`
	College        string `json:"college,omitempty"`
	Degree         string `json:"degree,omitempty"`
	Branch         string `json:"branch,omitempty"`
	GraduationYear int    `json:"graduation_year,omitempty"`
	ResumeFilename string `json:"resume_filename,omitempty"`
	HasResume      bool   `json:"has_resume"`
}

// View flattens nullable columns into the frontend shape.
func (p Profile) View() ProfileView {
	return ProfileView{
		ID:             p.ID,
		Email:          p.Email.String,
		FullName:       p.FullName.String,
		AvatarURL:      p.AvatarURL.String,
		College:        p.College.String,
		Degree:         p.Degree.String,
		Branch:         p.Branch.String,
		GraduationYear: int(p.GraduationYear.Int64),
		ResumeFilename: p.ResumeFilename.String,
		HasResume:      p.ResumeKey.Valid && p.ResumeKey.String != "",
	}
}
