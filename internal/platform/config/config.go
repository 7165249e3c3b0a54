// Package config reads server configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

const (
	ContentBackendMemory = "memory"
	ContentBackendMinIO  = "minio"
)

// DevSigningKey is used when SESSION_SIGNING_KEY is unset. Never deploy with it.
const DevSigningKey = "dev-secret-key-change-in-production"

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string

	SessionSigningKey string
	SessionIssuer     string
	SessionAudience   string
	SessionTTL        time.Duration

	ConfirmationTimeout time.Duration

	DocumentMaxSizeBytes int64
	DocumentAllowedTypes []string

	ContentBackend       string
	ContentPointerScheme string
	ContentGatewayURL    string
	MinIO                MinIO

	LedgerReadRetries      int
	LedgerReadsPerSecond   float64
	LedgerReadBurst        int
	LedgerBreakerThreshold int
	LedgerBreakerCooldown  time.Duration
	AggregatorConcurrency  int
	IssuedViewConcurrency  int
	ReadinessCheckTimeout  time.Duration
	ShutdownTimeout        time.Duration

	// DevIssuer seeds the in-process ledger with one issuer.
	DevIssuer     string
	DevIssuerName string
	DevAdmin      string

	TracingEnabled bool
}

// MinIO holds the S3-compatible content backend settings.
type MinIO struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	loadDotEnv()

	return Server{
		Addr:        env.GetString("CREDLEDGER_ADDR", ":8080"),
		Environment: env.GetString("ENVIRONMENT", "development"),
		LogLevel:    env.GetString("LOG_LEVEL", "info"),

		SessionSigningKey: env.GetString("SESSION_SIGNING_KEY", DevSigningKey),
		SessionIssuer:     env.GetString("SESSION_ISSUER", "credledger"),
		SessionAudience:   env.GetString("SESSION_AUDIENCE", "credledger-api"),
		SessionTTL:        env.GetDuration("SESSION_TTL_MINUTES", 60, time.Minute),

		ConfirmationTimeout: env.GetDuration("CONFIRMATION_TIMEOUT_SECONDS", 60, time.Second),

		DocumentMaxSizeBytes: int64(env.GetInt("DOCUMENT_MAX_SIZE_BYTES", 10<<20)),
		DocumentAllowedTypes: splitList(env.GetString("DOCUMENT_ALLOWED_TYPES", "application/pdf")),

		ContentBackend:       strings.ToLower(env.GetString("CONTENT_BACKEND", ContentBackendMemory)),
		ContentPointerScheme: env.GetString("CONTENT_POINTER_SCHEME", "ipfs"),
		ContentGatewayURL:    env.GetString("CONTENT_GATEWAY_URL", ""),
		MinIO: MinIO{
			Endpoint:  env.GetString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: env.GetString("MINIO_ACCESS_KEY", ""),
			SecretKey: env.GetString("MINIO_SECRET_KEY", ""),
			UseSSL:    env.GetBool("MINIO_USE_SSL", false),
			Bucket:    env.GetString("MINIO_BUCKET", "credentials"),
		},

		LedgerReadRetries:      env.GetInt("LEDGER_READ_RETRIES", 2),
		LedgerReadsPerSecond:   env.GetFloat64("LEDGER_READS_PER_SECOND", 0),
		LedgerReadBurst:        env.GetInt("LEDGER_READ_BURST", 20),
		LedgerBreakerThreshold: env.GetInt("LEDGER_BREAKER_THRESHOLD", 5),
		LedgerBreakerCooldown:  env.GetDuration("LEDGER_BREAKER_COOLDOWN_SECONDS", 30, time.Second),
		AggregatorConcurrency:  env.GetInt("AGGREGATOR_CONCURRENCY", 8),
		IssuedViewConcurrency:  env.GetInt("ISSUED_VIEW_CONCURRENCY", 8),
		ReadinessCheckTimeout:  env.GetDuration("READINESS_CHECK_TIMEOUT_SECONDS", 2, time.Second),
		ShutdownTimeout:        env.GetDuration("SHUTDOWN_TIMEOUT_SECONDS", 10, time.Second),

		DevIssuer:     env.GetString("DEV_ISSUER_ADDRESS", ""),
		DevIssuerName: env.GetString("DEV_ISSUER_NAME", "Demo University"),
		DevAdmin:      env.GetString("DEV_ADMIN_ADDRESS", ""),

		TracingEnabled: env.GetBool("TRACING_ENABLED", false),
	}
}

// Validate reports settings that would make the server misbehave at runtime.
func (s Server) Validate() error {
	switch s.ContentBackend {
	case ContentBackendMemory:
	case ContentBackendMinIO:
		if s.MinIO.Endpoint == "" || s.MinIO.Bucket == "" {
			return fmt.Errorf("content backend minio requires MINIO_ENDPOINT and MINIO_BUCKET")
		}
	default:
		return fmt.Errorf("unknown content backend %q", s.ContentBackend)
	}
	if s.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if s.ConfirmationTimeout <= 0 {
		return fmt.Errorf("confirmation timeout must be positive")
	}
	if s.IsProduction() && s.SessionSigningKey == DevSigningKey {
		return fmt.Errorf("SESSION_SIGNING_KEY must be set in production")
	}
	return nil
}

func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// loadDotEnv loads the nearest .env file walking up from the working directory.
// Variables already present in the environment win.
func loadDotEnv() {
	dir, err := os.Getwd()
	if err != nil {
		return
	}
	for {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}
