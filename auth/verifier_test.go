package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testIssuer = "https://testref.supabase.co/auth/v1"
	testSecret = "super-secret-jwt-token-with-at-least-32-characters"
)

func newHS256Verifier(t *testing.T) *Verifier {
	t.Helper()
	verifier, err := NewVerifier(testIssuer, "authenticated", "", testSecret)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}
	return verifier
}

func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":        testIssuer,
		"aud":        "authenticated",
		"sub":        "user-123",
		"email":      "dev@example.com",
		"role":       "authenticated",
		"session_id": "session-1",
		"user_metadata": map[string]any{
			"full_name":  "Dev User",
			"avatar_url": "https://cdn.example.com/a.png",
		},
		"exp": now.Add(10 * time.Minute).Unix(),
		"iat": now.Unix(),
	}
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tokenString
}

func TestVerifyHS256Token(t *testing.T) {
	verifier := newHS256Verifier(t)
	claims, err := verifier.Verify(signHS256(t, testSecret, baseClaims()))
	if err != nil {
		t.Fatalf("expected valid token, got %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("expected sub user-123, got %q", claims.Subject)
	}
	if claims.Email != "dev@example.com" {
		t.Fatalf("expected email, got %q", claims.Email)
	}
	if claims.Role != "authenticated" {
		t.Fatalf("expected role authenticated, got %q", claims.Role)
	}
	if claims.SessionID != "session-1" {
		t.Fatalf("expected session id, got %q", claims.SessionID)
	}
	if claims.Name() != "Dev User" {
		t.Fatalf("expected full_name, got %q", claims.Name())
	}
	if claims.AvatarURL() != "https://cdn.example.com/a.png" {
		t.Fatalf("expected avatar_url, got %q", claims.AvatarURL())
	}
	if claims.ExpiresAt.IsZero() {
		t.Fatalf("expected expiry to be populated")
	}
}

func TestVerifyHS256WrongSecret(t *testing.T) {
	verifier := newHS256Verifier(t)
	if _, err := verifier.Verify(signHS256(t, "some-other-secret-that-is-long-enough-too", baseClaims())); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	verifier := newHS256Verifier(t)
	claims := baseClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	if _, err := verifier.Verify(signHS256(t, testSecret, claims)); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestVerifyMissingExpiry(t *testing.T) {
	verifier := newHS256Verifier(t)
	claims := baseClaims()
	delete(claims, "exp")
	if _, err := verifier.Verify(signHS256(t, testSecret, claims)); err == nil {
		t.Fatalf("expected token without exp to be rejected")
	}
}

func TestVerifyWrongAudience(t *testing.T) {
	verifier := newHS256Verifier(t)
	claims := baseClaims()
	claims["aud"] = "service_role"
	if _, err := verifier.Verify(signHS256(t, testSecret, claims)); err == nil {
		t.Fatalf("expected audience mismatch to be rejected")
	}
}

func TestVerifyWrongIssuer(t *testing.T) {
	verifier := newHS256Verifier(t)
	claims := baseClaims()
	claims["iss"] = "https://otherref.supabase.co/auth/v1"
	if _, err := verifier.Verify(signHS256(t, testSecret, claims)); err == nil {
		t.Fatalf("expected issuer mismatch to be rejected")
	}
}

func TestVerifyMissingSub(t *testing.T) {
	verifier := newHS256Verifier(t)
	claims := baseClaims()
	delete(claims, "sub")
	_, err := verifier.Verify(signHS256(t, testSecret, claims))
	if err == nil || err.Error() != "token missing sub" {
		t.Fatalf("expected missing sub error, got %v", err)
	}
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	verifier := newHS256Verifier(t)
	token := jwt.NewWithClaims(jwt.SigningMethodNone, baseClaims())
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	if _, err := verifier.Verify(tokenString); err == nil {
		t.Fatalf("expected alg=none to be rejected")
	}
}

func TestIssuerNormalization(t *testing.T) {
	// Dashboard copy-paste often includes a trailing slash; tokens never do.
	verifier, err := NewVerifier(testIssuer+"/", "authenticated", "", testSecret)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}
	if verifier.issuer != testIssuer {
		t.Fatalf("expected trailing slash to be trimmed, got %q", verifier.issuer)
	}
	if _, err := verifier.Verify(signHS256(t, testSecret, baseClaims())); err != nil {
		t.Fatalf("expected normalized issuer to match, got %v", err)
	}
}

func TestNewVerifierValidation(t *testing.T) {
	if _, err := NewVerifier("", "authenticated", "", testSecret); err == nil {
		t.Fatalf("expected error for empty issuer")
	}
	if _, err := NewVerifier(testIssuer, "", "", testSecret); err == nil {
		t.Fatalf("expected error for empty audience")
	}
}

func TestClaimsMetadataFallbacks(t *testing.T) {
	claims := &Claims{UserMetadata: map[string]any{
		"name":    "Fallback Name",
		"picture": "https://cdn.example.com/p.png",
	}}
	if claims.Name() != "Fallback Name" {
		t.Fatalf("expected name fallback, got %q", claims.Name())
	}
	if claims.AvatarURL() != "https://cdn.example.com/p.png" {
		t.Fatalf("expected picture fallback, got %q", claims.AvatarURL())
	}

	empty := &Claims{UserMetadata: map[string]any{}}
	if empty.Name() != "" || empty.AvatarURL() != "" {
		t.Fatalf("expected empty metadata to yield empty strings")
	}
}

func TestAuthDisabled(t *testing.T) {
	t.Setenv("AUTH_DISABLED", "true")
	t.Setenv("ENV", "")
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	if !AuthDisabled() {
		t.Fatalf("expected auth disabled outside lambda")
	}

	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "mockmate-api")
	if AuthDisabled() {
		t.Fatalf("expected auth enforced in lambda without ENV=local")
	}

	t.Setenv("ENV", "local")
	if !AuthDisabled() {
		t.Fatalf("expected ENV=local to allow the bypass")
	}

	t.Setenv("AUTH_DISABLED", "false")
	if AuthDisabled() {
		t.Fatalf("expected auth enabled")
	}
}
