package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/DmitryPogrebniuk/qms-sub001/pkg/vault"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/models"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/repository"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var configWritesCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "qms",
	Subsystem: "integration",
	Name:      "config_writes_total",
	Help:      "Count of integration config writes by outcome",
}, []string{"kind", "status"})

// forcePutRetries bounds how often a forced write re-reads after losing a
// race to a concurrent writer.
const forcePutRetries = 3

// Config is an integration configuration as handed to callers; always a
// copy, never shared with the store's own state. Whether secret fields are
// masked or revealed depends on which method produced it.
type Config struct {
	Kind      schema.Kind
	Values    map[string]any
	Enabled   bool
	Version   int64
	UpdatedAt time.Time
	UpdatedBy string
}

// Store owns persisted integration configuration. Reads return masked
// copies; writes validate against the schema registry, seal secrets, and
// commit through a compare-and-swap on the record version.
type Store struct {
	logger *zap.Logger
	tracer trace.Tracer
	repo   repository.Integration
	codec  vault.SecretCodec
}

func NewStore(repo repository.Integration, codec vault.SecretCodec, logger *zap.Logger) *Store {
	return &Store{
		logger: logger.Named("service").Named("store"),
		tracer: otel.GetTracerProvider().Tracer("integration.service.store"),
		repo:   repo,
		codec:  codec,
	}
}

// Get returns the current configuration for kind with secret fields masked.
func (s *Store) Get(ctx context.Context, kind schema.Kind) (*Config, error) {
	ctx, span := s.tracer.Start(ctx, "get")
	defer span.End()

	rec, err := s.repo.Get(ctx, kind.String())
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	return s.toConfig(rec, masked)
}

// GetRevealed returns the configuration with secrets decrypted, for the
// probe path only. A secret that no longer decrypts is surfaced as unset.
func (s *Store) GetRevealed(ctx context.Context, kind schema.Kind) (*Config, error) {
	ctx, span := s.tracer.Start(ctx, "get-revealed")
	defer span.End()

	rec, err := s.repo.Get(ctx, kind.String())
	if err != nil {
		return nil, err
	}

	return s.toConfig(rec, revealed)
}

// Put validates raw values, seals secrets, and commits a new version at
// baseVersion+1. A secret field submitted as the masked sentinel keeps the
// previously stored ciphertext byte for byte.
func (s *Store) Put(ctx context.Context, kind schema.Kind, raw map[string]any, enabled bool, baseVersion int64, actor string) (*Config, error) {
	ctx, span := s.tracer.Start(ctx, "put")
	defer span.End()

	cfg, err := s.put(ctx, kind, raw, enabled, baseVersion, actor)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		switch {
		case errors.Is(err, repository.ErrConflict):
			configWritesCount.WithLabelValues(kind.String(), "conflict").Inc()
		default:
			configWritesCount.WithLabelValues(kind.String(), "invalid").Inc()
		}
		return nil, err
	}

	configWritesCount.WithLabelValues(kind.String(), "ok").Inc()
	s.logger.Info("integration config updated",
		zap.String("kind", kind.String()),
		zap.Int64("version", cfg.Version),
		zap.String("updated_by", actor))
	return cfg, nil
}

// ForcePut writes without a caller-supplied base version, re-reading the
// current version and retrying a bounded number of times if it loses a race.
func (s *Store) ForcePut(ctx context.Context, kind schema.Kind, raw map[string]any, enabled bool, actor string) (*Config, error) {
	var lastErr error
	for i := 0; i < forcePutRetries; i++ {
		version := int64(0)
		if rec, err := s.repo.Get(ctx, kind.String()); err == nil {
			version = rec.Version
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}

		cfg, err := s.Put(ctx, kind, raw, enabled, version, actor)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *Store) put(ctx context.Context, kind schema.Kind, raw map[string]any, enabled bool, baseVersion int64, actor string) (*Config, error) {
	values, err := schema.Validate(kind, raw)
	if err != nil {
		return nil, err
	}
	sc, err := schema.For(kind)
	if err != nil {
		return nil, err
	}

	var current map[string]any
	if rec, err := s.repo.Get(ctx, kind.String()); err == nil {
		current, err = rec.ValueMap()
		if err != nil {
			return nil, err
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	for _, name := range sc.SecretFields() {
		plain, _ := values[name].(string)
		switch {
		case plain == schema.MaskedSecret:
			stored, _ := currentValue(current, name).(string)
			if stored == "" {
				return nil, &schema.ValidationError{
					Issues: []string{fmt.Sprintf("secret field %q submitted as masked but nothing is stored", name)},
				}
			}
			values[name] = stored
		case plain == "":
			values[name] = ""
		default:
			sealed, err := s.codec.Seal(plain)
			if err != nil {
				return nil, fmt.Errorf("seal %s.%s: %w", kind, name, err)
			}
			values[name] = sealed
		}
	}

	rec := models.Integration{
		Kind:      kind.String(),
		Enabled:   enabled,
		UpdatedBy: actor,
	}
	if err := rec.SetValueMap(values); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &rec, baseVersion); err != nil {
		return nil, err
	}

	return s.toConfig(&rec, masked)
}

// ListEnabled returns enabled integrations with secrets revealed, ordered by
// the kind enumeration. Records for kinds no longer in the registry are
// skipped.
func (s *Store) ListEnabled(ctx context.Context) ([]Config, error) {
	ctx, span := s.tracer.Start(ctx, "list-enabled")
	defer span.End()

	recs, err := s.repo.ListEnabled(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return s.toConfigs(recs, revealed)
}

// List returns every configured integration with secrets masked, ordered by
// the kind enumeration.
func (s *Store) List(ctx context.Context) ([]Config, error) {
	ctx, span := s.tracer.Start(ctx, "list")
	defer span.End()

	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	return s.toConfigs(recs, masked)
}

// Ping reports persistence reachability for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

type secretMode int

const (
	masked secretMode = iota
	revealed
)

func (s *Store) toConfigs(recs []models.Integration, mode secretMode) ([]Config, error) {
	var configs []Config
	for i := range recs {
		kind := schema.ParseKind(recs[i].Kind)
		if kind == "" {
			s.logger.Warn("skipping record for unregistered integration kind", zap.String("kind", recs[i].Kind))
			continue
		}
		cfg, err := s.toConfig(&recs[i], mode)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}

	order := make(map[schema.Kind]int, len(schema.AllKinds))
	for i, k := range schema.AllKinds {
		order[k] = i
	}
	sort.Slice(configs, func(i, j int) bool {
		return order[configs[i].Kind] < order[configs[j].Kind]
	})
	return configs, nil
}

func (s *Store) toConfig(rec *models.Integration, mode secretMode) (*Config, error) {
	kind := schema.ParseKind(rec.Kind)
	sc, err := schema.For(kind)
	if err != nil {
		return nil, err
	}
	values, err := rec.ValueMap()
	if err != nil {
		return nil, err
	}

	for _, name := range sc.SecretFields() {
		sealed, _ := currentValue(values, name).(string)
		if sealed == "" {
			values[name] = ""
			continue
		}

		if mode == masked {
			values[name] = schema.MaskedSecret
			continue
		}

		plain, err := s.codec.Reveal(sealed)
		if err != nil {
			// key rotated or blob corrupted: the field reads as unset,
			// the rest of the config still loads
			s.logger.Warn("secret field no longer decrypts",
				zap.String("kind", rec.Kind),
				zap.String("field", name),
				zap.Error(err))
			values[name] = ""
			continue
		}
		values[name] = plain
	}

	return &Config{
		Kind:      kind,
		Values:    values,
		Enabled:   rec.Enabled,
		Version:   rec.Version,
		UpdatedAt: rec.UpdatedAt,
		UpdatedBy: rec.UpdatedBy,
	}, nil
}

func currentValue(values map[string]any, name string) any {
	if values == nil {
		return nil
	}
	return values[name]
}
