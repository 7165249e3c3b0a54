// Package main provides a CLI tool for generating session tokens for the credledger API.
// These tokens use the dev signing key by default and will NOT work in production.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "credledger/internal/jwt_token"
	"credledger/internal/platform/config"
	id "credledger/pkg/domain"
)

const (
	defaultIssuer   = "credledger"
	defaultAudience = "credledger-api"
	defaultTokenTTL = time.Hour
)

type tokenOutput struct {
	Token     string            `json:"token"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]any    `json:"claims"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	sessionCmd := flag.NewFlagSet("session", flag.ExitOnError)
	address := sessionCmd.String("address", "", "Caller address (0x-prefixed, 40 hex digits). Required.")
	issuer := sessionCmd.Bool("issuer", false, "Claim the issuer capability (the ledger still decides)")
	signingKey := sessionCmd.String("key", envOr("SESSION_SIGNING_KEY", config.DevSigningKey), "Signing key")
	ttl := sessionCmd.Duration("ttl", defaultTokenTTL, "Token time-to-live")
	jsonOutput := sessionCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "session":
		_ = sessionCmd.Parse(os.Args[2:])
		generateSessionToken(*address, *issuer, *signingKey, *ttl, *jsonOutput)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate session tokens for the credledger API

WARNING: Without -key these tokens use the dev signing key and will NOT work in production.

Usage:
  tokengen session -address <0x...> [flags]

Examples:
  # Session for a student
  tokengen session -address 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed

  # Session for an issuer, valid for 8 hours, as JSON
  tokengen session -address 0xAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAaAa -issuer -ttl 8h -json

Use "tokengen session -h" for more information.`)
}

func generateSessionToken(address string, issuer bool, signingKey string, ttl time.Duration, jsonOutput bool) {
	addr, err := id.ParseAddress(address)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid -address: %v\n", err)
		os.Exit(1)
	}

	svc := jwttoken.NewJWTService(signingKey, envOr("SESSION_ISSUER", defaultIssuer), envOr("SESSION_AUDIENCE", defaultAudience), ttl)
	token, jti, err := svc.GenerateSessionToken(context.Background(), addr, issuer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating token: %v\n", err)
		os.Exit(1)
	}

	keyType := "custom"
	if signingKey == config.DevSigningKey {
		keyType = "dev"
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			ExpiresIn: ttl.String(),
			Claims: map[string]any{
				"addr":   addr.Normalized().String(),
				"issuer": issuer,
				"jti":    jti,
			},
			Usage: map[string]string{
				"header":      "Authorization: Bearer <token>",
				"signing_key": keyType,
			},
		})
		return
	}

	fmt.Println("Session Token (JWT)")
	fmt.Println("===================")
	fmt.Printf("Signing Key: %s\n", keyType)
	fmt.Printf("Expires In:  %s\n", ttl)
	fmt.Printf("Address:     %s\n", addr.Normalized())
	fmt.Printf("Issuer:      %t\n", issuer)
	fmt.Printf("JTI:         %s\n", jti)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" -X DELETE http://localhost:8080/credentials/<id>")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
