// Package main mints a bearer token for the lakesync trigger endpoints.
//
// Usage: token <subject> [ttl]
//
// The token is signed with the first of auth.signing_keys and printed to
// stdout. ttl is a Go duration and defaults to 30 days.
//
// Import Path: lakesync.dev/lakesync/cmd/token
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"lakesync.dev/lakesync/internal/api/middleware"
	"lakesync.dev/lakesync/internal/config"
)

const defaultTTL = 30 * 24 * time.Hour

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "token error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	subject, ttl, err := parseArgs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	token, expiresAt, err := issue(cfg.Auth, subject, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
	fmt.Println(token)
	return nil
}

func parseArgs(args []string) (string, time.Duration, error) {
	if len(args) < 1 || strings.TrimSpace(args[0]) == "" {
		return "", 0, fmt.Errorf("usage: token <subject> [ttl]")
	}
	ttl := defaultTTL
	if len(args) > 1 {
		d, err := time.ParseDuration(args[1])
		if err != nil || d <= 0 {
			return "", 0, fmt.Errorf("invalid ttl %q: must be a positive duration", args[1])
		}
		ttl = d
	}
	return strings.TrimSpace(args[0]), ttl, nil
}

func issue(auth config.AuthConfig, subject string, ttl time.Duration) (string, time.Time, error) {
	jwtCfg := middleware.NewJWTConfig(auth.SigningKeys, auth.Issuer)
	if len(jwtCfg.SigningKey) == 0 {
		return "", time.Time{}, fmt.Errorf("auth.signing_keys is empty: trigger auth is disabled")
	}
	jwtCfg.ExpiresIn = ttl
	return middleware.GenerateToken(jwtCfg, subject)
}
