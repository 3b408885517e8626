package config

import (
	"os"
	"strconv"

	// this will automatically load your .env file:
	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	DB       PostgresConfig
	Supabase SupabaseConfig
	Razorpay RazorpayConfig
	Gemini   GeminiConfig
	S3       S3Config
	Session  SessionConfig
	QueueURL string
	// FrontendURL is the deployed UI origin used for CORS and redirects.
	FrontendURL string
}

type PostgresConfig struct {
	Username string
	Password string
	URL      string
	Port     string
	Database string
	SSLMode  string
}

type SupabaseConfig struct {
	// Issuer is the project auth URL, e.g. https://<ref>.supabase.co/auth/v1
	Issuer string
	// JWKSURL overrides the derived <issuer>/.well-known/jwks.json endpoint.
	JWKSURL string
	// JWTSecret enables legacy HS256 verification when set.
	JWTSecret string
	Audience  string
}

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
}

type GeminiConfig struct {
	APIKey        string
	LiveModel     string
	FeedbackModel string
	// LiveEndpoint overrides the production websocket host (tests, proxies).
	LiveEndpoint string
	// BaseURL overrides the REST host.
	BaseURL string
}

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type SessionConfig struct {
	// WarningLimit disqualifies the candidate once reached.
	WarningLimit int
	// GraceSeconds is added on top of the configured interview duration
	// before the watchdog force-ends the session.
	GraceSeconds int
	// MaxClientFrameBytes caps a single websocket message from the browser.
	MaxClientFrameBytes int
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		QueueURL:    os.Getenv("QUEUE_URL"),
		FrontendURL: os.Getenv("FRONTEND_URL"),
		DB: PostgresConfig{
			Username: os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PWD"),
			URL:      os.Getenv("POSTGRES_URL"),
			Port:     os.Getenv("POSTGRES_PORT"),
			Database: os.Getenv("POSTGRES_DB"),
			SSLMode:  os.Getenv("POSTGRES_SSLMODE"),
		},
		Supabase: SupabaseConfig{
			Issuer:    os.Getenv("SUPABASE_ISSUER"),
			JWKSURL:   os.Getenv("SUPABASE_JWKS_URL"),
			JWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),
			Audience:  envOr("SUPABASE_AUDIENCE", "authenticated"),
		},
		Razorpay: RazorpayConfig{
			KeyID:         os.Getenv("RAZORPAY_KEY_ID"),
			KeySecret:     os.Getenv("RAZORPAY_KEY_SECRET"),
			WebhookSecret: os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		},
		Gemini: GeminiConfig{
			APIKey:        os.Getenv("GEMINI_API_KEY"),
			LiveModel:     envOr("GEMINI_LIVE_MODEL", "models/gemini-2.0-flash-live-001"),
			FeedbackModel: envOr("GEMINI_FEEDBACK_MODEL", "models/gemini-2.0-flash"),
			LiveEndpoint:  os.Getenv("GEMINI_LIVE_ENDPOINT"),
			BaseURL:       os.Getenv("GEMINI_BASE_URL"),
		},
		S3: S3Config{
			Bucket:    os.Getenv("S3_BUCKET"),
			Region:    envOr("S3_REGION", "ap-south-1"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
		Session: SessionConfig{
			WarningLimit:        envInt("SESSION_WARNING_LIMIT", 3),
			GraceSeconds:        envInt("SESSION_GRACE_SECONDS", 90),
			MaxClientFrameBytes: envInt("SESSION_MAX_FRAME_BYTES", 1<<20),
		},
	}

	return cfg, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// converts an env var to int safely, keeping the fallback on bad input
func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
