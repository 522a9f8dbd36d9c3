package repository

import (
	"context"
	"sync"
	"time"

	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/models"
)

// IntegrationInMemory is a map-backed Integration used by tests and local
// development. It honors the same compare-and-swap contract as the SQL
// implementation.
type IntegrationInMemory struct {
	mu   sync.RWMutex
	recs map[string]models.Integration
}

func NewIntegrationInMemory() *IntegrationInMemory {
	return &IntegrationInMemory{
		recs: make(map[string]models.Integration),
	}
}

func (r *IntegrationInMemory) Get(_ context.Context, kind string) (*models.Integration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.recs[kind]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (r *IntegrationInMemory) List(_ context.Context) ([]models.Integration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recs := make([]models.Integration, 0, len(r.recs))
	for _, rec := range r.recs {
		recs = append(recs, rec)
	}
	return recs, nil
}

func (r *IntegrationInMemory) ListEnabled(_ context.Context) ([]models.Integration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var recs []models.Integration
	for _, rec := range r.recs {
		if rec.Enabled {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

func (r *IntegrationInMemory) Update(_ context.Context, rec *models.Integration, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.recs[rec.Kind]
	if exists && current.Version != expectedVersion {
		return ErrConflict
	}
	if !exists && expectedVersion != 0 {
		return ErrConflict
	}

	rec.Version = expectedVersion + 1
	rec.UpdatedAt = time.Now().UTC()
	r.recs[rec.Kind] = *rec
	return nil
}

func (r *IntegrationInMemory) Ping(context.Context) error {
	return nil
}
