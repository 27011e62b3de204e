package httpapi

import (
	"testing"
	"time"

	"dukapos/internal/domain"
)

func TestTokenForOwnerRoundTrip(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, "", "")

	owner := domain.StoreOwner{ID: "owner-1", Email: "o@example.com"}
	resp, err := auth.TokenForOwner(owner, "store-1")
	if err != nil {
		t.Fatalf("token issue failed: %v", err)
	}
	if resp.Role != domain.RoleOwner || resp.StoreID != "store-1" {
		t.Fatalf("unexpected login response: %+v", resp)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.OwnerID != "owner-1" || actor.StoreID != "store-1" || actor.Role != domain.RoleOwner {
		t.Fatalf("unexpected actor claims: %+v", actor)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthManager("secret-one-0123456789abcdef", time.Hour, "", "")
	verifier := NewAuthManager("secret-two-0123456789abcdef", time.Hour, "", "")

	resp, err := issuer.TokenForOwner(domain.StoreOwner{ID: "owner-1"}, "store-1")
	if err != nil {
		t.Fatalf("token issue failed: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, "", "")

	token, err := auth.sign("owner-1", domain.RoleOwner, "store-1", time.Now().UTC().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := auth.ParseToken(token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, "", "")

	for _, token := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		if _, err := auth.ParseToken(token); err == nil {
			t.Fatalf("expected %q to be rejected", token)
		}
	}
}

func TestAdminLogin(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, "Admin@Ledger.Test", "admin-secret-1")

	resp, err := auth.AdminLogin("admin@ledger.test", "admin-secret-1")
	if err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
	if resp.Role != domain.RoleAdmin || resp.StoreID != "" {
		t.Fatalf("unexpected admin response: %+v", resp)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse admin token failed: %v", err)
	}
	if actor.Role != domain.RoleAdmin || actor.StoreID != "" {
		t.Fatalf("unexpected admin actor: %+v", actor)
	}

	if _, err := auth.AdminLogin("admin@ledger.test", "wrong"); err == nil {
		t.Fatalf("expected wrong admin password to be rejected")
	}
	if _, err := auth.AdminLogin("other@ledger.test", "admin-secret-1"); err == nil {
		t.Fatalf("expected wrong admin email to be rejected")
	}
}

func TestAdminLoginDisabledWithoutCredentials(t *testing.T) {
	auth := NewAuthManager("test-secret-key", time.Hour, "", "")

	if _, err := auth.AdminLogin("admin@ledger.test", "anything"); err == nil {
		t.Fatalf("expected admin login to be disabled without configured credentials")
	}
}
