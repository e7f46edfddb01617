// Package health probes the detection backend for reachability.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jmerrifield20/synthscan/pkg/client"
)

// Config holds health check configuration.
type Config struct {
	CheckInterval      time.Duration
	ProbeTimeout       time.Duration
	FailThreshold      int
	InsecureSkipVerify bool
}

// MetricsRecordFunc is an optional callback for recording probe results.
type MetricsRecordFunc func(success bool)

// Status is a snapshot of the backend's reachability.
type Status struct {
	Healthy             bool      `json:"healthy"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastChecked         time.Time `json:"last_checked,omitzero"`
}

// Checker runs periodic probes against a single backend endpoint.
type Checker struct {
	endpoint   string
	httpClient *http.Client
	cfg        Config
	onMetrics  MetricsRecordFunc
	logger     *zap.Logger

	mu          sync.Mutex
	failCount   int
	lastChecked time.Time
}

// New creates a Checker for endpoint. The backend is assumed healthy until
// FailThreshold consecutive probes fail.
func New(endpoint string, cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = 30 * time.Second
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.FailThreshold == 0 {
		cfg.FailThreshold = 3
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{Timeout: cfg.ProbeTimeout}
	if cfg.InsecureSkipVerify {
		httpClient.Transport = client.InsecureTransport()
	}

	return &Checker{
		endpoint:   endpoint,
		httpClient: httpClient,
		cfg:        cfg,
		logger:     logger,
	}
}

// SetMetricsRecord configures the metrics recording callback.
func (h *Checker) SetMetricsRecord(fn MetricsRecordFunc) {
	h.mu.Lock()
	h.onMetrics = fn
	h.mu.Unlock()
}

// Status returns the latest reachability snapshot.
func (h *Checker) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Status{
		Healthy:             h.failCount < h.cfg.FailThreshold,
		ConsecutiveFailures: h.failCount,
		LastChecked:         h.lastChecked,
	}
}

// Start probes once immediately, then on every interval until ctx ends.
func (h *Checker) Start(ctx context.Context) {
	h.CheckOnce(ctx)

	ticker := time.NewTicker(h.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.CheckOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckOnce runs a single probe, updates the failure count and reports
// whether the backend answered with a 2xx.
func (h *Checker) CheckOnce(ctx context.Context) bool {
	success := h.probeEndpoint(ctx, h.endpoint)

	h.mu.Lock()
	prevCount := h.failCount
	if success {
		h.failCount = 0
	} else {
		h.failCount++
	}
	count := h.failCount
	h.lastChecked = time.Now().UTC()
	onMetrics := h.onMetrics
	h.mu.Unlock()

	if onMetrics != nil {
		onMetrics(success)
	}

	switch {
	case success && prevCount >= h.cfg.FailThreshold:
		h.logger.Info("health: backend recovered", zap.String("endpoint", h.endpoint))
	case !success && count == h.cfg.FailThreshold:
		// Exactly at threshold, so the warning fires once per outage.
		h.logger.Warn("health: backend degraded",
			zap.String("endpoint", h.endpoint),
			zap.Int("fail_count", count),
		)
	case !success:
		h.logger.Debug("health: probe failed",
			zap.String("endpoint", h.endpoint),
			zap.Int("fail_count", count),
		)
	}
	return success
}

// probeEndpoint attempts HEAD then GET, returning true if any 2xx response.
func (h *Checker) probeEndpoint(ctx context.Context, endpoint string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err := h.httpClient.Do(req)
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return true
		}
	}

	// Fallback to GET.
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false
	}
	resp, err = h.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
