package main

import (
	"strings"
	"testing"
	"time"

	"lakesync.dev/lakesync/internal/api/middleware"
	"lakesync.dev/lakesync/internal/config"
)

func TestParseArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		args        []string
		wantSubject string
		wantTTL     time.Duration
		wantErr     bool
	}{
		{name: "no args", wantErr: true},
		{name: "blank subject", args: []string{"  "}, wantErr: true},
		{name: "subject only", args: []string{"ops"}, wantSubject: "ops", wantTTL: defaultTTL},
		{name: "subject and ttl", args: []string{"ops", "2h"}, wantSubject: "ops", wantTTL: 2 * time.Hour},
		{name: "bad ttl", args: []string{"ops", "soon"}, wantErr: true},
		{name: "negative ttl", args: []string{"ops", "-1h"}, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			subject, ttl, err := parseArgs(tc.args)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("parseArgs(%v) expected error", tc.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArgs(%v) error = %v", tc.args, err)
			}
			if subject != tc.wantSubject || ttl != tc.wantTTL {
				t.Fatalf("parseArgs(%v) = %q, %s; want %q, %s", tc.args, subject, ttl, tc.wantSubject, tc.wantTTL)
			}
		})
	}
}

func TestIssue_RoundTrip(t *testing.T) {
	t.Parallel()

	auth := config.AuthConfig{SigningKeys: []string{"token-cmd-key-1234567890123456789012"}, Issuer: "lakesync"}
	token, expiresAt, err := issue(auth, "ops", time.Hour)
	if err != nil {
		t.Fatalf("issue() error = %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiresAt = %s, want future", expiresAt)
	}

	claims, err := middleware.NewJWTConfig(auth.SigningKeys, auth.Issuer).ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "ops" {
		t.Fatalf("subject = %q, want ops", claims.Subject)
	}
}

func TestIssue_RequiresKey(t *testing.T) {
	t.Parallel()

	_, _, err := issue(config.AuthConfig{Issuer: "lakesync"}, "ops", time.Hour)
	if err == nil || !strings.Contains(err.Error(), "signing_keys") {
		t.Fatalf("issue() error = %v, want signing_keys error", err)
	}
}
