package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssue_ClaimsShape(t *testing.T) {
	m := NewManager("test-secret", 24*time.Hour)

	raw, err := m.Issue("John")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	if len(body) != 3 {
		t.Fatalf("expected exactly username/iat/exp, got %v", body)
	}

	if body["username"] != "John" {
		t.Fatalf("username = %v", body["username"])
	}

	iat, _ := body["iat"].(float64)
	exp, _ := body["exp"].(float64)

	if exp-iat != 86400 {
		t.Fatalf("exp - iat = %v, want 86400", exp-iat)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	m := NewManager("test-secret", 0)

	raw, err := m.Issue("John")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if claims.Username != "John" {
		t.Fatalf("username = %q", claims.Username)
	}

	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != DefaultTTL {
		t.Fatalf("ttl = %v, want %v", got, DefaultTTL)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	raw, err := NewManager("secret-a", time.Hour).Issue("John")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	_, err = NewManager("secret-b", time.Hour).Parse(raw)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_Expired(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	raw, err := m.Issue("John")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	m.now = time.Now

	if _, err := m.Parse(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestParse_RejectsNoneAlgorithm(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Username: "John",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})

	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.Parse(raw); err == nil {
		t.Fatalf("expected none-signed token to be rejected")
	}
}
