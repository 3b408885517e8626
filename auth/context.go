// Package auth provides request context helpers for verified Supabase claims.
package auth

import (
	"context"
	"time"
)

type ctxKey int

const claimsKey ctxKey = iota

// Claims contains the verified Supabase token details we care about.
type Claims struct {
	Subject      string
	Email        string
	Role         string
	Issuer       string
	Audience     []string
	ExpiresAt    time.Time
	SessionID    string
	UserMetadata map[string]any
	Raw          map[string]any
}

// Name returns the display name from the auth provider metadata, if any.
func (c *Claims) Name() string {
	for _, key := range []string{"full_name", "name"} {
		if v, ok := c.UserMetadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// AvatarURL returns the avatar from the auth provider metadata, if any.
func (c *Claims) AvatarURL() string {
	for _, key := range []string{"avatar_url", "picture"} {
		if v, ok := c.UserMetadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// WithClaims stores auth claims in a context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext returns claims from a context.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}
