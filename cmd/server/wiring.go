package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credledger/internal/credential/aggregator"
	"credledger/internal/credential/handler"
	"credledger/internal/credential/issuance"
	"credledger/internal/credential/issuerledger"
	"credledger/internal/credential/metrics"
	"credledger/internal/credential/revocation"
	"credledger/internal/credential/verification"
	jwttoken "credledger/internal/jwt_token"
	"credledger/internal/ledger"
	"credledger/internal/ledger/memory"
	"credledger/internal/platform/config"
	"credledger/internal/platform/health"
	"credledger/internal/platform/tracer"
	"credledger/internal/storage"
	id "credledger/pkg/domain"
	"credledger/pkg/platform/audit"
	"credledger/pkg/platform/audit/publisher"
	"credledger/pkg/platform/circuit"
	"credledger/pkg/platform/middleware/auth"
	"credledger/pkg/platform/middleware/request"
)

const auditBufferSize = 256

type application struct {
	router  http.Handler
	auditor *publisher.Publisher
}

func (a *application) close() {
	a.auditor.Close()
}

// build assembles the credential services on the in-process ledger.
func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*application, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	credentialMetrics := metrics.New(registry)
	httpMetrics := request.NewMetrics(registry)

	var tr tracer.Tracer = tracer.NewNoop()
	if cfg.TracingEnabled {
		tr = tracer.NewOTel()
	}

	chain, err := seedLedger(cfg, log)
	if err != nil {
		return nil, err
	}

	breaker := circuit.New("ledger-reads",
		circuit.WithFailureThreshold(cfg.LedgerBreakerThreshold),
		circuit.WithCooldown(cfg.LedgerBreakerCooldown),
	)
	reader := ledger.NewResilient(chain,
		ledger.WithBackoff(ledger.BackoffConfig{MaxRetries: retries(cfg.LedgerReadRetries)}),
		ledger.WithBreaker(breaker),
		ledger.WithRateLimit(cfg.LedgerReadsPerSecond, cfg.LedgerReadBurst),
		ledger.WithResilientLogger(log),
	)

	store, checks, err := openContentStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	auditor := publisher.NewPublisher(audit.NewInMemoryStore(),
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithPublisherLogger(log),
	)
	registry.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "credledger_audit_events_dropped_total",
		Help: "Audit events discarded because the publisher queue was full",
	}, func() float64 { return float64(auditor.Dropped()) }))

	issued := issuerledger.New(reader,
		issuerledger.WithLogger(log),
		issuerledger.WithMetrics(credentialMetrics),
		issuerledger.WithTracer(tr),
		issuerledger.WithConcurrency(cfg.IssuedViewConcurrency),
	)
	view := issuerledger.NewView(issued, issuerledger.WithViewMetrics(credentialMetrics))
	services := handler.Services{
		Enumerator: aggregator.New(reader,
			aggregator.WithLogger(log),
			aggregator.WithMetrics(credentialMetrics),
			aggregator.WithTracer(tr),
			aggregator.WithConcurrency(cfg.AggregatorConcurrency),
		),
		IssuedLister: issued,
		IssuedView:   view,
		Verifier: verification.New(reader,
			verification.WithLogger(log),
			verification.WithMetrics(credentialMetrics),
			verification.WithTracer(tr),
		),
		Issuer: issuance.New(reader, store,
			issuance.WithDocumentPolicy(storage.DocumentPolicy{
				MaxSizeBytes: cfg.DocumentMaxSizeBytes,
				AllowedTypes: cfg.DocumentAllowedTypes,
			}),
			issuance.WithConfirmationTimeout(cfg.ConfirmationTimeout),
			issuance.WithAuditor(auditor),
			issuance.WithLogger(log),
			issuance.WithMetrics(credentialMetrics),
			issuance.WithTracer(tr),
		),
		Revoker: revocation.New(reader, view,
			revocation.WithConfirmationTimeout(cfg.ConfirmationTimeout),
			revocation.WithAuditor(auditor),
			revocation.WithLogger(log),
			revocation.WithMetrics(credentialMetrics),
			revocation.WithTracer(tr),
		),
		Sessions:   chain,
		AuditTrail: auditor,
	}

	tokens := jwttoken.NewJWTService(cfg.SessionSigningKey, cfg.SessionIssuer, cfg.SessionAudience, cfg.SessionTTL)
	tokens.SetEnv(cfg.Environment)
	requireSession := auth.RequireSession(jwttoken.NewJWTServiceAdapter(tokens), log)

	healthHandler := health.New(cfg.Environment, cfg.ReadinessCheckTimeout)
	healthHandler.RegisterCheck("ledger", func(context.Context) error {
		if breaker.IsOpen() {
			return fmt.Errorf("ledger read breaker open")
		}
		return nil
	})
	for name, check := range checks {
		healthHandler.RegisterOptionalCheck(name, check)
	}

	// Leave room for the form fields around the largest allowed document.
	maxBody := cfg.DocumentMaxSizeBytes + (1 << 20)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	r.Use(request.Recovery(log))
	r.Use(request.Logger(log))
	r.Use(request.Latency(httpMetrics))
	r.Use(request.MaxBody(maxBody))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	handler.New(services, log,
		handler.WithGateway(cfg.ContentGatewayURL),
		handler.WithMaxUploadBytes(maxBody),
	).Register(r, requireSession)

	return &application{router: r, auditor: auditor}, nil
}

// seedLedger creates the in-process ledger and registers the configured dev issuer.
func seedLedger(cfg config.Server, log *slog.Logger) (*memory.Ledger, error) {
	var opts []memory.Option
	if cfg.DevAdmin != "" {
		admin, err := id.ParseAddress(cfg.DevAdmin)
		if err != nil {
			return nil, fmt.Errorf("DEV_ADMIN_ADDRESS: %w", err)
		}
		opts = append(opts, memory.WithAdmin(admin))
	}
	chain := memory.New(opts...)

	if cfg.DevIssuer != "" {
		issuer, err := id.ParseAddress(cfg.DevIssuer)
		if err != nil {
			return nil, fmt.Errorf("DEV_ISSUER_ADDRESS: %w", err)
		}
		chain.RegisterIssuer(issuer, cfg.DevIssuerName)
		log.Info("registered dev issuer", "issuer", issuer, "name", cfg.DevIssuerName)
	}
	return chain, nil
}

// openContentStore selects the content backend and returns its readiness checks.
func openContentStore(ctx context.Context, cfg config.Server) (issuance.ContentStore, map[string]health.CheckFunc, error) {
	switch cfg.ContentBackend {
	case config.ContentBackendMinIO:
		store, err := storage.NewMinIOStore(ctx, &storage.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			Bucket:    cfg.MinIO.Bucket,
		}, cfg.ContentPointerScheme)
		if err != nil {
			return nil, nil, fmt.Errorf("content store: %w", err)
		}
		return store, map[string]health.CheckFunc{"content": store.Ping}, nil
	default:
		return storage.NewMemoryStore(cfg.ContentPointerScheme), nil, nil
	}
}

// retries maps a configured zero to "no retries"; BackoffConfig reads zero as "keep the default".
func retries(n int) int {
	if n == 0 {
		return -1
	}
	return n
}
