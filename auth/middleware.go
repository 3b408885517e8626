// Package auth provides Gin middleware for enforcing Supabase JWT auth.
package auth

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MiddlewareConfig controls auth enforcement behavior.
type MiddlewareConfig struct {
	// RequireRole rejects tokens whose role claim differs (e.g. "authenticated").
	RequireRole string
	// PublicPaths maps route patterns that skip auth entirely.
	PublicPaths map[string]bool
	// TokenQueryParam optionally names a query parameter carrying the token.
	// Browsers cannot attach Authorization headers to WebSocket dials.
	TokenQueryParam string
	// OnAuthenticated runs after verification, before the handler. A non-nil
	// error aborts the request with 500.
	OnAuthenticated func(c *gin.Context, claims *Claims) error
	DisableAuth     bool
}

// Middleware enforces bearer token auth and injects claims into the request context.
func Middleware(verifier *Verifier, cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.DisableAuth || AuthDisabled() {
			claims := &Claims{
				Subject: "local-dev",
				Role:    "authenticated",
				Issuer:  "local",
				Raw:     map[string]any{"sub": "local-dev"},
			}
			ctx := WithClaims(c.Request.Context(), claims)
			c.Request = c.Request.WithContext(ctx)
			c.Next()
			return
		}

		if cfg.PublicPaths != nil && cfg.PublicPaths[c.FullPath()] {
			c.Next()
			return
		}

		if verifier == nil {
			respondUnauthorized(c, "auth verifier not configured")
			return
		}

		token, ok := requestToken(c, cfg.TokenQueryParam)
		if !ok {
			log.Printf("auth failure: missing or malformed credentials path=%s", c.Request.URL.Path)
			respondUnauthorized(c, "missing authorization header")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			log.Printf("auth failure: token invalid path=%s err=%v", c.Request.URL.Path, err)
			respondUnauthorized(c, "invalid token")
			return
		}

		if cfg.RequireRole != "" && claims.Role != cfg.RequireRole {
			log.Printf("auth failure: role mismatch path=%s role=%s", c.Request.URL.Path, claims.Role)
			respondUnauthorized(c, "insufficient role")
			return
		}

		if cfg.OnAuthenticated != nil {
			if err := cfg.OnAuthenticated(c, claims); err != nil {
				log.Printf("auth post-verify hook failed path=%s err=%v", c.Request.URL.Path, err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "failed to prepare user session",
				})
				return
			}
		}

		ctx := WithClaims(c.Request.Context(), claims)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// requestToken pulls the JWT from the Authorization header, falling back to
// the configured query parameter when the header is absent.
func requestToken(c *gin.Context, queryParam string) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		return extractBearerToken(authHeader)
	}
	if queryParam != "" {
		token := strings.TrimSpace(c.Query(queryParam))
		if token != "" {
			return token, true
		}
	}
	return "", false
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
	})
}
