// Package app wires shared HTTP routes for both local and Lambda execution.
package app

import (
	"time"

	"github.com/SatVerseX/mockmate-api/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the shared HTTP router for both local and Lambda execution.
func NewRouter() (*gin.Engine, error) {
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	router.GET("/health", Health)
	router.GET("/api/plans", ListPlans)
	router.POST("/api/razorpay/webhook", RazorpayWebhook)

	verifier, err := auth.NewVerifierFromEnv()
	if err != nil && !auth.AuthDisabled() {
		return nil, err
	}

	protected := router.Group("/")
	protected.Use(auth.Middleware(verifier, auth.MiddlewareConfig{
		// Browsers cannot set the Authorization header on websocket dials,
		// so the live route accepts the token as ?token=.
		TokenQueryParam: "token",
		OnAuthenticated: func(c *gin.Context, claims *auth.Claims) error {
			return UpsertProfileFromClaims(c.Request.Context(), claims)
		},
	}))

	protected.GET("/me", Me)
	protected.PUT("/me", UpdateMe)
	protected.POST("/me/resume/upload-url", CreateResumeUploadURL)
	protected.POST("/me/resume/confirm", ConfirmResume)
	protected.GET("/me/resume/download-url", GetResumeDownloadURL)

	protected.GET("/api/subscription", GetSubscription)
	protected.POST("/api/billing/orders", CreateOrder)
	protected.POST("/api/billing/subscriptions", CreateSubscription)
	protected.POST("/api/billing/verify", VerifyCheckout)
	protected.POST("/api/billing/cancel", CancelSubscription)

	protected.POST("/api/interviews", CreateInterview)
	protected.GET("/api/interviews", ListInterviews)
	protected.GET("/api/interviews/:id", GetInterview)
	protected.GET("/api/interviews/:id/transcript", GetInterviewTranscript)
	protected.POST("/api/interviews/:id/complete", CompleteInterview)
	protected.GET("/api/interviews/:id/live", LiveInterview)
	protected.GET("/api/feedback-jobs/:jobid", GetFeedbackJob)

	return router, nil
}
