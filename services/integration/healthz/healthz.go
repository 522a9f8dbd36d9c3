package healthz

import (
	"context"
	"sync"
	"time"

	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/probe"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/service"
	"go.uber.org/zap"
)

type Status string

const (
	StatusOK       Status = "OK"
	StatusDegraded Status = "DEGRADED"
	StatusNotReady Status = "NOT_READY"
)

const persistenceCheckName = "persistence"

// Check is one dependency's entry in the full report.
type Check struct {
	Status  probe.Status `json:"status"`
	Message string       `json:"message,omitempty"`
	Latency string       `json:"latency,omitempty"`
}

// Report is the full diagnostic health report. Recomputed per request,
// never cached.
type Report struct {
	Status    Status           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// Checker aggregates the core persistence check and the per-integration
// connectivity probes into liveness and readiness signals.
type Checker struct {
	logger     *zap.Logger
	store      *service.Store
	dispatcher *probe.Dispatcher
	version    string
	startedAt  time.Time
}

func NewChecker(store *service.Store, dispatcher *probe.Dispatcher, version string, logger *zap.Logger) *Checker {
	return &Checker{
		logger:     logger.Named("healthz"),
		store:      store,
		dispatcher: dispatcher,
		version:    version,
		startedAt:  time.Now().UTC(),
	}
}

// Liveness never performs I/O; it only proves the process is responsive.
func (c *Checker) Liveness() (Status, time.Time) {
	return StatusOK, time.Now().UTC()
}

// Readiness reflects only the core persistence dependency.
func (c *Checker) Readiness(ctx context.Context) (Status, time.Time) {
	if err := c.store.Ping(ctx); err != nil {
		c.logger.Warn("persistence unreachable", zap.Error(err))
		return StatusNotReady, time.Now().UTC()
	}
	return StatusOK, time.Now().UTC()
}

// Report runs the persistence check and probes every enabled integration
// concurrently. Each probe is bounded by its own timeout, so the report's
// wall clock is the slowest single probe, not the sum. A failing probe
// degrades the aggregate; only a failing persistence check makes the
// service unready.
func (c *Checker) Report(ctx context.Context) Report {
	report := Report{
		Status:    StatusOK,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(c.startedAt).Round(time.Second).String(),
		Version:   c.version,
		Checks:    map[string]Check{},
	}

	if err := c.store.Ping(ctx); err != nil {
		report.Status = StatusNotReady
		report.Checks[persistenceCheckName] = Check{Status: probe.StatusDown, Message: err.Error()}
		return report
	}
	report.Checks[persistenceCheckName] = Check{Status: probe.StatusOK}

	configs, err := c.store.ListEnabled(ctx)
	if err != nil {
		report.Status = StatusNotReady
		report.Checks[persistenceCheckName] = Check{Status: probe.StatusDown, Message: err.Error()}
		return report
	}

	results := make([]probe.Result, len(configs))
	var wg sync.WaitGroup
	for i, cfg := range configs {
		wg.Add(1)
		go func(i int, cfg service.Config) {
			defer wg.Done()
			results[i] = c.dispatcher.Probe(ctx, cfg.Kind, cfg.Values)
		}(i, cfg)
	}
	wg.Wait()

	for _, res := range results {
		report.Checks[res.Kind.String()] = Check{
			Status:  res.Status,
			Message: res.Message,
			Latency: res.Latency.Round(time.Millisecond).String(),
		}
		if res.Status != probe.StatusOK {
			report.Status = StatusDegraded
		}
	}

	return report
}
