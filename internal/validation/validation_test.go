package validation

import (
	"strings"
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{name: "plain", email: "dev@example.com", valid: true},
		{name: "subdomain", email: "a.b+tag@mail.example.org", valid: true},
		{name: "no at", email: "dev.example.com", valid: false},
		{name: "no domain dot", email: "dev@example", valid: false},
		{name: "space", email: "de v@example.com", valid: false},
		{name: "two ats", email: "a@b@example.com", valid: false},
		{name: "empty", email: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.valid {
				t.Fatalf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.valid)
			}
		})
	}
}

func TestIsValidVerificationCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{code: "123456", valid: true},
		{code: "000000", valid: true},
		{code: "12345", valid: false},
		{code: "1234567", valid: false},
		{code: "12a456", valid: false},
		{code: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got := IsValidVerificationCode(tt.code)
			if got != tt.valid {
				t.Fatalf("IsValidVerificationCode(%q) = %v, want %v", tt.code, got, tt.valid)
			}
		})
	}
}

func TestIsValidVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		valid   bool
	}{
		{name: "semver", version: "1.2.3", valid: true},
		{name: "empty", version: "", valid: false},
		{name: "padded", version: " 1.0", valid: false},
		{name: "too long", version: strings.Repeat("1", 33), valid: false},
		{name: "max length", version: strings.Repeat("1", 32), valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidVersion(tt.version)
			if got != tt.valid {
				t.Fatalf("IsValidVersion(%q) = %v, want %v", tt.version, got, tt.valid)
			}
		})
	}
}
