package auth

import (
	"testing"
	"time"
)

func TestGenerateAndParse(t *testing.T) {
	issuer, err := NewIssuer("test-secret", "staffhub", 10*time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}

	token, err := issuer.Generate("user-1", RoleAdmin)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := issuer.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("expected subject user-1, got %q", claims.Subject)
	}
	if claims.Role != RoleAdmin {
		t.Fatalf("expected role %q, got %q", RoleAdmin, claims.Role)
	}
	if claims.ID == "" {
		t.Fatal("expected non-empty token id")
	}
}

func TestGenerateRequiresUserID(t *testing.T) {
	issuer, err := NewIssuer("test-secret", "", 0)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	if _, err := issuer.Generate("  ", RoleEmployee); err == nil {
		t.Fatal("expected error for blank user id")
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("   ", "staffhub", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	a, _ := NewIssuer("secret-a", "staffhub", time.Hour)
	b, _ := NewIssuer("secret-b", "staffhub", time.Hour)

	token, err := a.Generate("user-1", RoleEmployee)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := b.ParseAndValidate(token); err == nil {
		t.Fatal("expected verification failure with a different secret")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	past := time.Now().Add(-20 * time.Hour)
	issuer, _ := NewIssuer("test-secret", "staffhub", 10*time.Hour)
	issuer.WithClock(func() time.Time { return past })

	token, err := issuer.Generate("user-1", RoleEmployee)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	fresh, _ := NewIssuer("test-secret", "staffhub", 10*time.Hour)
	if _, err := fresh.ParseAndValidate(token); err == nil {
		t.Fatal("expected expiry failure")
	}
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	other, _ := NewIssuer("test-secret", "someone-else", time.Hour)
	token, err := other.Generate("user-1", RoleEmployee)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	issuer, _ := NewIssuer("test-secret", "staffhub", time.Hour)
	if _, err := issuer.ParseAndValidate(token); err == nil {
		t.Fatal("expected issuer mismatch failure")
	}
}

func TestNewRefreshTokenUnique(t *testing.T) {
	a := NewRefreshToken()
	b := NewRefreshToken()
	if a == "" || b == "" || a == b {
		t.Fatalf("expected two distinct non-empty tokens, got %q and %q", a, b)
	}
}
