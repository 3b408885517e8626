package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/SatVerseX/mockmate-api/app"
	"github.com/SatVerseX/mockmate-api/app/config"
	"github.com/SatVerseX/mockmate-api/gemini"
)

// Regenerates feedback for one interview without going through SQS.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: feedback-local <interview-id>")
	}
	interviewID := os.Args[1]

	start := time.Now()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	app.MustInitDB()

	opts := []gemini.Option{gemini.WithModel(cfg.Gemini.FeedbackModel)}
	if cfg.Gemini.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
	}
	client := gemini.NewClient(cfg.Gemini.APIKey, opts...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := app.RunFeedbackLocal(ctx, client, interviewID); err != nil {
		log.Fatalf("feedback failed: %v", err)
	}
	log.Printf("Took %s", time.Since(start))
}
