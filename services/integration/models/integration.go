package models

import (
	"fmt"
	"time"

	"github.com/jackc/pgtype"
)

// Integration is the persisted configuration record for one integration
// kind. Secret fields inside Values hold codec-sealed blobs, never
// plaintext. Version is bumped by exactly one on every committed write and
// backs the compare-and-swap update path.
type Integration struct {
	Kind      string       `gorm:"primaryKey"`
	Values    pgtype.JSONB `gorm:"type:jsonb"`
	Enabled   bool         `gorm:"not null;default:false"`
	Version   int64        `gorm:"not null;default:0"`
	UpdatedAt time.Time
	UpdatedBy string
}

func (i *Integration) ValueMap() (map[string]any, error) {
	var values map[string]any
	if err := i.Values.AssignTo(&values); err != nil {
		return nil, fmt.Errorf("decode values for %s: %w", i.Kind, err)
	}
	return values, nil
}

func (i *Integration) SetValueMap(values map[string]any) error {
	if err := i.Values.Set(values); err != nil {
		return fmt.Errorf("encode values for %s: %w", i.Kind, err)
	}
	return nil
}
