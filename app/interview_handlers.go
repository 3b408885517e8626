package app

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SatVerseX/mockmate-api/app/models"
	"github.com/SatVerseX/mockmate-api/auth"
)

const (
	minInterviewMinutes     = 5
	defaultInterviewMinutes = 15
	defaultListLimit        = 20
	maxListLimit            = 100
)

// normalizeInterviewConfig fills defaults and validates against the plan's
// session ceiling. Returns a message for the 400 response, or "" when valid.
func normalizeInterviewConfig(cfg *models.InterviewConfig, plan models.Plan) string {
	cfg.Role = strings.TrimSpace(cfg.Role)
	if cfg.Role == "" {
		return "role is required"
	}
	if len(cfg.Role) > 120 {
		return "role too long"
	}

	if cfg.InterviewType == "" {
		cfg.InterviewType = models.InterviewTypeMixed
	}
	if !slices.Contains(models.InterviewTypes, cfg.InterviewType) {
		return "invalid interview_type"
	}

	if cfg.Difficulty == "" {
		cfg.Difficulty = "medium"
	}
	if !slices.Contains(models.Difficulties, cfg.Difficulty) {
		return "invalid difficulty"
	}

	if cfg.DurationMinutes == 0 {
		cfg.DurationMinutes = defaultInterviewMinutes
		if cfg.DurationMinutes > plan.MaxDurationMinutes {
			cfg.DurationMinutes = plan.MaxDurationMinutes
		}
	}
	if cfg.DurationMinutes < minInterviewMinutes {
		return "duration_minutes too short"
	}
	if cfg.DurationMinutes > plan.MaxDurationMinutes {
		return "duration_minutes exceeds plan limit"
	}

	if len(cfg.FocusAreas) > 10 {
		return "too many focus_areas"
	}
	for i, area := range cfg.FocusAreas {
		cfg.FocusAreas[i] = strings.TrimSpace(area)
		if len(cfg.FocusAreas[i]) > 80 {
			return "focus_areas entry too long"
		}
	}

	return ""
}

// CreateInterview reserves a weekly quota slot and creates the session row.
func CreateInterview(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var cfg models.InterviewConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ent, err := resolveEntitlement(c.Request.Context(), claims.Subject)
	if err != nil {
		log.Printf("entitlement resolve failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return
	}

	if msg := normalizeInterviewConfig(&cfg, ent.Plan); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	if _, err := enforceInterviewQuota(c.Request.Context(), claims.Subject, ent.Plan); err != nil {
		var qe quotaError
		if errors.As(err, &qe) {
			c.JSON(http.StatusForbidden, gin.H{
				"error": "weekly interview limit reached",
				"limit": qe.Limit,
				"used":  qe.Used,
			})
			return
		}
		log.Printf("quota check failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to reserve interview"})
		return
	}

	iv, err := createInterview(c.Request.Context(), claims.Subject, cfg)
	if err != nil {
		log.Printf("interview create failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create interview"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"interview": iv,
		"ws_path":   "/api/interviews/" + iv.ID + "/live",
	})
}

// ListInterviews reads a page of the caller's interviews using LIMIT/OFFSET.
// Example: limit = 20, offset = pageIndex * limit
func ListInterviews(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	limit := defaultListLimit
	if q := c.Query("limit"); q != "" {
		if v, err := parsePositiveInt(q); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	offset := 0
	if q := c.Query("offset"); q != "" {
		if v, err := parsePositiveInt(q); err == nil && v > 0 {
			offset = v
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	interviews, err := listInterviews(ctx, claims.Subject, limit, offset)
	if err != nil {
		log.Printf("interview list failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load interviews"})
		return
	}

	total, err := countInterviews(ctx, claims.Subject)
	if err != nil {
		log.Printf("interview count failed user=%s: %v", claims.Subject, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load interviews"})
		return
	}

	if interviews == nil {
		interviews = []models.Interview{}
	}
	c.JSON(http.StatusOK, gin.H{
		"interviews": interviews,
		"count":      len(interviews),
		"total":      total,
	})
}

// GetInterview returns a single interview, including metrics and feedback
// when the review has finished.
func GetInterview(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	iv, err := getInterview(c.Request.Context(), c.Param("id"), claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "interview not found"})
			return
		}
		log.Printf("interview load failed id=%s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load interview"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"interview": iv})
}

// GetInterviewTranscript returns the ordered conversation for an interview.
func GetInterviewTranscript(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	iv, err := getInterview(c.Request.Context(), c.Param("id"), claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "interview not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load interview"})
		return
	}

	lines, err := loadTranscript(c.Request.Context(), iv.ID)
	if err != nil {
		log.Printf("transcript load failed id=%s: %v", iv.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load transcript"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"interview_id": iv.ID,
		"lines":        lines,
	})
}

// CompleteInterview finalizes a session whose websocket never closed cleanly.
// Live sessions become completed and get a feedback job; sessions that never
// started become abandoned.
func CompleteInterview(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	iv, err := getInterview(c.Request.Context(), c.Param("id"), claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "interview not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load interview"})
		return
	}
	if iv.Terminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "interview already finished", "status": iv.Status})
		return
	}

	if iv.Status == models.InterviewCreated {
		if err := finishInterview(c.Request.Context(), iv.ID, models.InterviewAbandoned, 0, iv.WarningCount, ""); err != nil {
			if errors.Is(err, errInvalidTransition) {
				c.JSON(http.StatusConflict, gin.H{"error": "interview already finished"})
				return
			}
			log.Printf("interview abandon failed id=%s: %v", iv.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update interview"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": models.InterviewAbandoned})
		return
	}

	duration := 0
	if iv.StartedAt.Valid {
		duration = int(time.Since(iv.StartedAt.Time).Seconds())
	}
	if err := finishInterview(c.Request.Context(), iv.ID, models.InterviewCompleted, duration, iv.WarningCount, ""); err != nil {
		if errors.Is(err, errInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "interview already finished"})
			return
		}
		log.Printf("interview complete failed id=%s: %v", iv.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update interview"})
		return
	}

	jobID := ""
	if job, err := createFeedbackJob(c.Request.Context(), iv.ID); err != nil {
		log.Printf("feedback job create failed interview=%s: %v", iv.ID, err)
	} else {
		jobID = job.ID
		err := enqueueFeedbackJob(c.Request.Context(), models.FeedbackJobMessage{
			JobID:       job.ID,
			InterviewID: iv.ID,
			UserID:      claims.Subject,
		})
		if err != nil {
			log.Printf("feedback enqueue failed job=%s: %v", job.ID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": models.InterviewCompleted,
		"job_id": jobID,
	})
}

// GetFeedbackJob returns status for a feedback generation job.
func GetFeedbackJob(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	jobID := c.Param("jobid")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing job id"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := findFeedbackJob(ctx, jobID, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job": status,
	})
}
