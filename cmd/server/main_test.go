package main

import (
	"testing"

	"dukapos/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	if err := validateSecurityConfig(config.Config{AuthSecret: "short"}); err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}
	err := validateSecurityConfig(config.Config{
		AuthSecret:    "0123456789abcdef0123456789abcdef",
		AdminEmail:    "admin@example.com",
		AdminPassword: "short",
	})
	if err == nil {
		t.Fatalf("expected weak admin password to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{
		AuthSecret:    "0123456789abcdef0123456789abcdef",
		AdminEmail:    "admin@example.com",
		AdminPassword: "long-enough-password",
	})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}
