package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/0xmhha/session-analytics/pkg/api"
	"github.com/0xmhha/session-analytics/pkg/config"
)

// runTokenCommand mints an admin JWT signed with the configured secret.
func runTokenCommand(configPath string, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("token", flag.ContinueOnError)
	subject := flags.String("subject", "admin", "token subject")
	ttl := flags.Duration("ttl", 0, "token lifetime (default: auth.token_ttl)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not set (or set SESSION_ANALYTICS_JWT_SECRET)")
	}

	authCfg := authConfig(cfg)
	if *ttl > 0 {
		authCfg.TokenTTL = *ttl
	}

	token, expires, err := api.NewAuthenticator(authCfg).Mint(*subject)
	if err != nil {
		return fmt.Errorf("failed to mint token: %w", err)
	}

	fmt.Fprintln(out, token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expires.Format(time.RFC3339))
	return nil
}

func authConfig(cfg *config.Config) api.AuthConfig {
	return api.AuthConfig{
		JWTSecret: cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
		TokenTTL:  cfg.Auth.TokenTTL,
		APIKey:    cfg.Auth.APIKey,
	}
}
