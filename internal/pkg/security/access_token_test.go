package security

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateAndVerifyAccessToken(t *testing.T) {
	secret := "token-secret"

	token, err := GenerateAccessToken(42, 7, "purchase", time.Minute, secret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := VerifyAccessToken(token, secret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != 42 || claims.QuestionSetID != 7 || claims.Reason != "purchase" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyAccessTokenRejectsTampering(t *testing.T) {
	secret := "token-secret"
	token, err := GenerateAccessToken(42, 7, "purchase", time.Minute, secret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := VerifyAccessToken(token, "other-secret"); err == nil {
		t.Fatalf("expected wrong secret to fail")
	}

	parts := strings.SplitN(token, ".", 2)
	forged := parts[0] + "x." + parts[1]
	if _, err := VerifyAccessToken(forged, secret); err == nil {
		t.Fatalf("expected tampered payload to fail")
	}

	if _, err := VerifyAccessToken("not-a-token", secret); err == nil {
		t.Fatalf("expected malformed token to fail")
	}
}

func TestVerifyAccessTokenExpiry(t *testing.T) {
	secret := "token-secret"
	token, err := GenerateAccessToken(42, 7, "purchase", -time.Second, secret)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := VerifyAccessToken(token, secret); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestGenerateAccessTokenRequiresSecret(t *testing.T) {
	if _, err := GenerateAccessToken(42, 7, "purchase", time.Minute, ""); err == nil {
		t.Fatalf("expected empty secret to fail")
	}
	if _, err := VerifyAccessToken("a.b", ""); err == nil {
		t.Fatalf("expected empty secret to fail")
	}
}
