// Package app provides public health and authenticated profile endpoints.
package app

import (
	"database/sql"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SatVerseX/mockmate-api/app/config"
	"github.com/SatVerseX/mockmate-api/auth"
)

// Health is a public health check endpoint.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Me returns the profile plus weekly usage info for the authenticated user.
func Me(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	if db == nil {
		free := fallbackFreePlan()
		c.JSON(http.StatusOK, gin.H{
			"profile":        gin.H{"id": claims.Subject},
			"plan":           free.ID,
			"planName":       free.Name,
			"interviewsUsed": 0,
			"weeklyLimit":    *free.InterviewLimit,
			"remaining":      *free.InterviewLimit,
		})
		return
	}

	profile, err := getProfileByID(c.Request.Context(), claims.Subject)
	if err != nil {
		if err == sql.ErrNoRows {
			_ = UpsertProfileFromClaims(c.Request.Context(), claims)
			profile, err = getProfileByID(c.Request.Context(), claims.Subject)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
			return
		}
	}

	currentWeekStart := weekStartUTC(time.Now())
	if profile.UsagePeriodStart.Before(currentWeekStart) {
		profile.InterviewsUsed = 0
		profile.UsagePeriodStart = currentWeekStart
		_, _ = db.ExecContext(
			c.Request.Context(),
			`
				UPDATE profiles
				SET interviews_used = $1, usage_period_start = $2
				WHERE id = $3;
			`,
			profile.InterviewsUsed,
			profile.UsagePeriodStart,
			claims.Subject,
		)
	}

	ent, err := resolveEntitlement(c.Request.Context(), claims.Subject)
	if err != nil {
		log.Printf("entitlement resolve failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return
	}

	var weeklyLimit any = nil
	var remaining any = nil
	if ent.Plan.InterviewLimit != nil {
		weeklyLimit = *ent.Plan.InterviewLimit
		remainingCount := *ent.Plan.InterviewLimit - profile.InterviewsUsed
		if remainingCount < 0 {
			remainingCount = 0
		}
		remaining = remainingCount
	}

	var subscriptionStatus any = nil
	if ent.Subscription != nil {
		subscriptionStatus = ent.Subscription.Status
	}

	c.JSON(http.StatusOK, gin.H{
		"profile":            profile.View(),
		"plan":               ent.Plan.ID,
		"planName":           ent.Plan.Name,
		"interviewsUsed":     profile.InterviewsUsed,
		"weeklyLimit":        weeklyLimit,
		"remaining":          remaining,
		"subscriptionStatus": subscriptionStatus,
		"maxDurationMinutes": ent.Plan.MaxDurationMinutes,
	})
}

type updateProfileRequest struct {
	FullName       *string `json:"full_name"`
	AvatarURL      *string `json:"avatar_url"`
	College        *string `json:"college"`
	Degree         *string `json:"degree"`
	Branch         *string `json:"branch"`
	GraduationYear *int    `json:"graduation_year"`
}

func (r updateProfileRequest) validate() string {
	if r.FullName != nil && len(strings.TrimSpace(*r.FullName)) > 200 {
		return "full_name too long"
	}
	if r.AvatarURL != nil && *r.AvatarURL != "" &&
		!strings.HasPrefix(*r.AvatarURL, "http://") && !strings.HasPrefix(*r.AvatarURL, "https://") {
		return "avatar_url must be a http(s) url"
	}
	if r.GraduationYear != nil && (*r.GraduationYear < 1950 || *r.GraduationYear > 2100) {
		return "graduation_year out of range"
	}
	for _, field := range []*string{r.College, r.Degree, r.Branch} {
		if field != nil && len(*field) > 200 {
			return "field too long"
		}
	}
	return ""
}

// UpdateMe updates the editable profile fields. Absent fields keep their value.
func UpdateMe(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db not initialized"})
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if msg := req.validate(); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	err := updateProfile(c.Request.Context(), claims.Subject, profileUpdate{
		FullName:       req.FullName,
		AvatarURL:      req.AvatarURL,
		College:        req.College,
		Degree:         req.Degree,
		Branch:         req.Branch,
		GraduationYear: req.GraduationYear,
	})
	if err != nil {
		log.Printf("profile update failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}

	profile, err := getProfileByID(c.Request.Context(), claims.Subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profile.View()})
}

type resumeUploadRequest struct {
	Filename string `json:"filename"`
}

// CreateResumeUploadURL returns a presigned PUT URL; the browser uploads the
// file directly to S3 and then calls ConfirmResume with the key.
func CreateResumeUploadURL(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req resumeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Filename) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing filename"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("resume upload config load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage not configured"})
		return
	}

	key := resumeObjectKey(claims.Subject, req.Filename)
	uploadURL, err := presignResumeUpload(c.Request.Context(), cfg, key)
	if err != nil {
		log.Printf("resume upload presign failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create upload url"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_url": uploadURL,
		"key":        key,
		"expires_in": int(presignExpiry.Seconds()),
	})
}

type resumeConfirmRequest struct {
	Key      string `json:"key"`
	Filename string `json:"filename"`
}

// ConfirmResume records the uploaded object on the profile.
func ConfirmResume(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db not initialized"})
		return
	}

	var req resumeConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing key"})
		return
	}
	if !userOwnsResumeKey(claims.Subject, req.Key) {
		c.JSON(http.StatusForbidden, gin.H{"error": "key does not belong to user"})
		return
	}

	filename := sanitizeFilename(req.Filename)
	if err := setProfileResume(c.Request.Context(), claims.Subject, req.Key, filename); err != nil {
		log.Printf("resume confirm failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store resume"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "filename": filename})
}

// GetResumeDownloadURL returns a presigned GET URL for the user's own resume.
func GetResumeDownloadURL(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}
	if db == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db not initialized"})
		return
	}

	profile, err := getProfileByID(c.Request.Context(), claims.Subject)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	if !profile.ResumeKey.Valid || profile.ResumeKey.String == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no resume uploaded"})
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("resume download config load failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage not configured"})
		return
	}

	downloadURL, err := presignResumeDownload(c.Request.Context(), cfg, profile.ResumeKey.String, profile.ResumeFilename.String)
	if err != nil {
		log.Printf("resume download presign failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create download url"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"download_url": downloadURL,
		"filename":     profile.ResumeFilename.String,
		"expires_in":   int(presignExpiry.Seconds()),
	})
}
