package probe

import (
	"context"
	"errors"
	"time"

	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// ErrCredentialRejected marks a probe failure where the endpoint answered
// but refused the stored credentials. Remediation differs from a network
// failure, so the distinction survives into the result message.
var ErrCredentialRejected = errors.New("credential-rejected")

// ErrDegraded marks an endpoint that answered but reported a degraded state
// (e.g. a yellow search cluster).
var ErrDegraded = errors.New("degraded")

type Status string

const (
	StatusOK       Status = "OK"
	StatusDegraded Status = "DEGRADED"
	StatusDown     Status = "DOWN"
)

// Result is the outcome of one connectivity check. Ephemeral: computed per
// health request, never persisted.
type Result struct {
	Kind      schema.Kind   `json:"kind"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	CheckedAt time.Time     `json:"checkedAt"`
	Latency   time.Duration `json:"latency"`
}

// Prober performs a minimal live check against one integration's endpoint
// using its revealed configuration values. A nil return means reachable and
// credentials accepted. Probers never mutate configuration and must not put
// secret material into error text.
type Prober interface {
	Probe(ctx context.Context, values map[string]any) error
}

// DefaultTimeout bounds a single probe unless configured otherwise.
const DefaultTimeout = 5 * time.Second

var probesCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "qms",
	Subsystem: "integration",
	Name:      "probes_total",
	Help:      "Count of integration connectivity probes by outcome",
}, []string{"kind", "status"})

var probeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "qms",
	Subsystem: "integration",
	Name:      "probe_duration_seconds",
	Help:      "Duration of integration connectivity probes",
	Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5},
}, []string{"kind"})

// Dispatcher selects the prober registered for a kind and runs it with a
// bounded timeout, folding any failure into the Result instead of an error.
type Dispatcher struct {
	logger  *zap.Logger
	probers map[schema.Kind]Prober
	timeout time.Duration
}

func NewDispatcher(logger *zap.Logger, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		logger: logger.Named("probe"),
		probers: map[schema.Kind]Prober{
			schema.KindIdentity:       IdentityProber{},
			schema.KindTelephony:      TelephonyProber{},
			schema.KindMediaRecording: MediaRecordingProber{},
			schema.KindSearchIndex:    SearchIndexProber{},
			schema.KindEmail:          EmailProber{},
		},
		timeout: timeout,
	}
}

// WithProber replaces the prober for a kind; used by tests and by deployments
// that front an integration with something non-standard.
func (d *Dispatcher) WithProber(kind schema.Kind, p Prober) *Dispatcher {
	d.probers[kind] = p
	return d
}

func (d *Dispatcher) Probe(ctx context.Context, kind schema.Kind, values map[string]any) Result {
	result := Result{
		Kind:      kind,
		CheckedAt: time.Now().UTC(),
	}

	prober, ok := d.probers[kind]
	if !ok {
		result.Status = StatusDown
		result.Message = "no prober registered"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := prober.Probe(ctx, values)
	result.Latency = time.Since(start)

	switch {
	case err == nil:
		result.Status = StatusOK
	case errors.Is(err, ErrDegraded):
		result.Status = StatusDegraded
		result.Message = err.Error()
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.Status = StatusDown
		result.Message = "probe timed out"
	default:
		result.Status = StatusDown
		result.Message = err.Error()
	}

	probesCount.WithLabelValues(kind.String(), string(result.Status)).Inc()
	probeDuration.WithLabelValues(kind.String()).Observe(result.Latency.Seconds())

	if result.Status != StatusOK {
		d.logger.Warn("integration probe failed",
			zap.String("kind", kind.String()),
			zap.String("status", string(result.Status)),
			zap.String("message", result.Message))
	}

	return result
}

func getString(values map[string]any, name string) string {
	s, _ := values[name].(string)
	return s
}

// getInt tolerates float64 because JSONB round-trips numbers that way.
func getInt(values map[string]any, name string) int {
	switch n := values[name].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func getBool(values map[string]any, name string) bool {
	b, _ := values[name].(bool)
	return b
}
