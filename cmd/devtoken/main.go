// Command devtoken mints access and refresh tokens signed with the configured
// JWT secret, for calling a local server with grpcurl.
package main

import (
	"flag"
	"fmt"
	"log"

	"medequip-marketplace/internal/config"
	"medequip-marketplace/internal/domain"
	"medequip-marketplace/internal/security"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	userID := flag.String("user", "", "User ID (required)")
	email := flag.String("email", "", "User email")
	role := flag.String("platform-role", "", "Optional platform role claim (platform_admin, platform_support)")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}
	platformRole := domain.PlatformRole(*role)
	if platformRole != "" && !platformRole.Valid() {
		log.Fatalf("unknown platform role %q", *role)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	tokens := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	access, err := tokens.GenerateAccessToken(*userID, *email, platformRole)
	if err != nil {
		log.Fatalf("Failed to sign access token: %v", err)
	}
	refresh, err := tokens.GenerateRefreshToken(*userID, *email)
	if err != nil {
		log.Fatalf("Failed to sign refresh token: %v", err)
	}

	fmt.Printf("access_token:  %s\n", access)
	fmt.Printf("refresh_token: %s\n", refresh)
	fmt.Printf("expires_in:    %s\n", cfg.AccessTokenTTL())
}
