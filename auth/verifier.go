// Package auth verifies Supabase-issued JWTs and validates issuer/audience.
// Projects on the current asymmetric signing keys are verified via JWKS;
// projects still on the legacy shared secret are verified via HS256.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultLeeway = 30 * time.Second
)

// Verifier validates Supabase JWT access tokens.
type Verifier struct {
	issuer   string
	audience string
	hmac     []byte
	keyfunc  keyfunc.Keyfunc
	parser   *jwt.Parser
}

// NewVerifierFromEnv initializes a verifier from SUPABASE_ISSUER plus either
// SUPABASE_JWT_SECRET (HS256) or SUPABASE_JWKS_URL (derived when unset).
func NewVerifierFromEnv() (*Verifier, error) {
	issuer := strings.TrimSpace(os.Getenv("SUPABASE_ISSUER"))
	if issuer == "" {
		return nil, errors.New("SUPABASE_ISSUER must be set")
	}
	audience := strings.TrimSpace(os.Getenv("SUPABASE_AUDIENCE"))
	if audience == "" {
		audience = "authenticated"
	}
	return NewVerifier(issuer, audience, os.Getenv("SUPABASE_JWKS_URL"), os.Getenv("SUPABASE_JWT_SECRET"))
}

// NewVerifier builds a verifier. jwksURL overrides the derived JWKS endpoint;
// hmacSecret enables the legacy HS256 path. At least one of the two key
// sources must end up configured.
func NewVerifier(issuer, audience, jwksURL, hmacSecret string) (*Verifier, error) {
	normalizedIssuer := normalizeIssuer(issuer)
	if normalizedIssuer == "" {
		return nil, errors.New("issuer must be set")
	}
	if audience == "" {
		return nil, errors.New("audience must be set")
	}

	v := &Verifier{
		issuer:   normalizedIssuer,
		audience: audience,
	}

	validMethods := []string{}
	if hmacSecret != "" {
		v.hmac = []byte(hmacSecret)
		validMethods = append(validMethods, jwt.SigningMethodHS256.Name)
	}

	// Only reach for JWKS when HS256 is not the sole configured mode;
	// keyfunc fetches the key set eagerly.
	if hmacSecret == "" || jwksURL != "" {
		if jwksURL == "" {
			jwksURL = normalizedIssuer + "/.well-known/jwks.json"
		}
		keyProvider, err := keyfunc.NewDefault([]string{jwksURL})
		if err != nil {
			return nil, fmt.Errorf("failed to init JWKS keyfunc: %w", err)
		}
		v.keyfunc = keyProvider
		validMethods = append(validMethods,
			jwt.SigningMethodRS256.Name, jwt.SigningMethodES256.Name, jwt.SigningMethodEdDSA.Alg())
	}

	v.parser = jwt.NewParser(
		jwt.WithIssuer(normalizedIssuer),
		jwt.WithAudience(audience),
		jwt.WithLeeway(defaultLeeway),
		jwt.WithValidMethods(validMethods),
		jwt.WithExpirationRequired(),
	)

	return v, nil
}

// Verify parses and validates a JWT, returning extracted claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := v.parser.Parse(tokenString, v.selectKey)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	claims := &Claims{
		Subject:      readString(mapClaims, "sub"),
		Email:        readString(mapClaims, "email"),
		Role:         readString(mapClaims, "role"),
		Issuer:       readString(mapClaims, "iss"),
		Audience:     readAudience(mapClaims["aud"]),
		ExpiresAt:    readExpiry(mapClaims["exp"]),
		SessionID:    readString(mapClaims, "session_id"),
		UserMetadata: readMetadata(mapClaims["user_metadata"]),
		Raw:          mapClaims,
	}
	if claims.Subject == "" {
		return nil, errors.New("token missing sub")
	}
	return claims, nil
}

// selectKey routes HS256 tokens to the shared secret and everything else to
// the JWKS provider.
func (v *Verifier) selectKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
		if len(v.hmac) == 0 {
			return nil, errors.New("HS256 token but no JWT secret configured")
		}
		return v.hmac, nil
	}
	if v.keyfunc == nil {
		return nil, errors.New("asymmetric token but no JWKS configured")
	}
	return v.keyfunc.Keyfunc(token)
}

func normalizeIssuer(issuer string) string {
	// Supabase issuers carry no trailing slash: https://<ref>.supabase.co/auth/v1
	return strings.TrimRight(strings.TrimSpace(issuer), "/")
}

func readString(claims jwt.MapClaims, key string) string {
	val := claims[key]
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}

func readAudience(raw any) []string {
	switch v := raw.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	default:
		return nil
	}
}

func readExpiry(raw any) time.Time {
	switch v := raw.(type) {
	case float64:
		return time.Unix(int64(v), 0)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return time.Unix(i, 0)
		}
	case int64:
		return time.Unix(v, 0)
	}
	return time.Time{}
}

func readMetadata(raw any) map[string]any {
	if m, ok := raw.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// AuthDisabled reports whether auth should be skipped for local development.
func AuthDisabled() bool {
	if strings.EqualFold(os.Getenv("AUTH_DISABLED"), "true") {
		if strings.EqualFold(os.Getenv("ENV"), "local") || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") == "" {
			log.Print("auth disabled via AUTH_DISABLED for local development")
			return true
		}
	}
	return false
}
