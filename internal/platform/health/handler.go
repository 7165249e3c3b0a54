// Package health provides HTTP health check endpoints for liveness, readiness, and status probes.
package health

import (
	"context"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"credledger/pkg/platform/httputil"
)

// Version is set at build time via ldflags.
var Version = "dev"

// DefaultCheckTimeout bounds each readiness check.
const DefaultCheckTimeout = 2 * time.Second

// CheckFunc reports a dependency's health; nil means up.
type CheckFunc func(ctx context.Context) error

type check struct {
	fn       CheckFunc
	optional bool
}

// Handler serves the health probes.
//
// Readiness fails only on a critical check. A failing optional check (the
// content store, which only issuance needs) reports the service as degraded
// but keeps it in rotation so reads still reach it.
type Handler struct {
	startTime    time.Time
	environment  string
	checkTimeout time.Duration

	mu     sync.RWMutex
	checks map[string]check
}

// New creates a new health handler. A non-positive checkTimeout uses DefaultCheckTimeout.
func New(environment string, checkTimeout time.Duration) *Handler {
	if checkTimeout <= 0 {
		checkTimeout = DefaultCheckTimeout
	}
	return &Handler{
		startTime:    time.Now(),
		environment:  environment,
		checkTimeout: checkTimeout,
		checks:       make(map[string]check),
	}
}

// RegisterCheck adds a critical readiness check.
func (h *Handler) RegisterCheck(name string, fn CheckFunc) {
	h.register(name, check{fn: fn})
}

// RegisterOptionalCheck adds a check whose failure degrades but does not fail readiness.
func (h *Handler) RegisterOptionalCheck(name string, fn CheckFunc) {
	h.register(name, check{fn: fn, optional: true})
}

func (h *Handler) register(name string, c check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = c
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.HandleStatus)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type LivenessResponse struct {
	Status string `json:"status"`
}

// HandleLiveness always answers 200 while the process is serving.
func (h *Handler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, LivenessResponse{
		Status: "alive",
	})
}

const (
	StatusReady    = "ready"
	StatusDegraded = "degraded"
	StatusNotReady = "not_ready"
)

type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HandleReadiness runs every registered check concurrently, each under the
// check timeout, and answers 503 when a critical one fails.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := maps.Clone(h.checks)
	h.mu.RUnlock()

	var (
		mu       sync.Mutex
		results  = make(map[string]string, len(checks))
		critical bool
		degraded bool
	)
	var g errgroup.Group
	for name, c := range checks {
		g.Go(func() error {
			err := h.run(r.Context(), c.fn)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				results[name] = "up"
				return nil
			}
			results[name] = "down: " + err.Error()
			if c.optional {
				degraded = true
			} else {
				critical = true
			}
			return nil
		})
	}
	_ = g.Wait()

	response := ReadinessResponse{Status: StatusReady, Checks: results}
	switch {
	case critical:
		response.Status = StatusNotReady
		httputil.WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	case degraded:
		response.Status = StatusDegraded
	}
	httputil.WriteJSON(w, http.StatusOK, response)
}

func (h *Handler) run(ctx context.Context, fn CheckFunc) error {
	ctx, cancel := context.WithTimeout(ctx, h.checkTimeout)
	defer cancel()
	return fn(ctx)
}

// StatusResponse is the response for the general health status endpoint.
type StatusResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Environment   string `json:"environment"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Timestamp     string `json:"timestamp"`
}

// HandleStatus returns general health status with version and uptime information.
func (h *Handler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		Status:        "healthy",
		Version:       Version,
		Environment:   h.environment,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
	})
}
