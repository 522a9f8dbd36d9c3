package entity

import (
	"time"

	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/schema"
)

// Integration is the external representation of a stored configuration.
// Secret fields inside Values are always masked.
type Integration struct {
	Kind      string         `json:"kind"`
	Values    map[string]any `json:"values"`
	Enabled   bool           `json:"enabled"`
	Version   int64          `json:"version"`
	UpdatedAt time.Time      `json:"updatedAt"`
	UpdatedBy string         `json:"updatedBy"`
}

// UpdateIntegrationRequest carries a full schema-shaped value map. A secret
// field holding the masked sentinel means "keep the stored secret". Version
// is the version the caller last read; Force skips the version check and is
// only honored together with an explicit true.
type UpdateIntegrationRequest struct {
	Values  map[string]any `json:"values" validate:"required"`
	Enabled bool           `json:"enabled"`
	Version int64          `json:"version"`
	Force   bool           `json:"force"`
}

// IntegrationListItem covers every registered kind, configured or not.
type IntegrationListItem struct {
	Kind        string       `json:"kind"`
	Configured  bool         `json:"configured"`
	Enabled     bool         `json:"enabled"`
	Integration *Integration `json:"integration,omitempty"`
}

// KindSpec exposes a kind's field specs so a console can render its form.
type KindSpec struct {
	Kind   string             `json:"kind"`
	Fields []schema.FieldSpec `json:"fields"`
}
