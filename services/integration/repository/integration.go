package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/db"
	"github.com/DmitryPogrebniuk/qms-sub001/services/integration/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound means no record has ever been written for the kind.
	ErrNotFound = errors.New("integration not configured")
	// ErrConflict means the caller's base version no longer matches the
	// stored one; re-read and retry.
	ErrConflict = errors.New("integration version conflict")
)

// Integration is the persistence collaborator for integration config
// records. Writes are compare-and-swap on the version column: for a given
// kind and base version, exactly one concurrent writer wins.
type Integration interface {
	Get(ctx context.Context, kind string) (*models.Integration, error)
	List(ctx context.Context) ([]models.Integration, error)
	ListEnabled(ctx context.Context) ([]models.Integration, error)
	// Update commits rec at expectedVersion+1 iff the stored version still
	// equals expectedVersion (0 means "no record yet"). On success
	// rec.Version holds the committed version.
	Update(ctx context.Context, rec *models.Integration, expectedVersion int64) error
	Ping(ctx context.Context) error
}

type IntegrationSQL struct {
	db db.Database
}

func NewIntegrationSQL(db db.Database) IntegrationSQL {
	return IntegrationSQL{db: db}
}

func (r IntegrationSQL) Get(ctx context.Context, kind string) (*models.Integration, error) {
	var rec models.Integration
	err := r.db.Orm.WithContext(ctx).First(&rec, "kind = ?", kind).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r IntegrationSQL) List(ctx context.Context) ([]models.Integration, error) {
	var recs []models.Integration
	if err := r.db.Orm.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r IntegrationSQL) ListEnabled(ctx context.Context) ([]models.Integration, error) {
	var recs []models.Integration
	if err := r.db.Orm.WithContext(ctx).Where("enabled = ?", true).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r IntegrationSQL) Update(ctx context.Context, rec *models.Integration, expectedVersion int64) error {
	rec.Version = expectedVersion + 1
	rec.UpdatedAt = time.Now().UTC()

	if expectedVersion == 0 {
		tx := r.db.Orm.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(rec)
		if tx.Error != nil {
			return tx.Error
		}
		if tx.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	}

	tx := r.db.Orm.WithContext(ctx).
		Model(&models.Integration{}).
		Where("kind = ? AND version = ?", rec.Kind, expectedVersion).
		Updates(map[string]any{
			"values":     rec.Values,
			"enabled":    rec.Enabled,
			"version":    rec.Version,
			"updated_at": rec.UpdatedAt,
			"updated_by": rec.UpdatedBy,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (r IntegrationSQL) Ping(ctx context.Context) error {
	sqlDB, err := r.db.Orm.DB()
	if err != nil {
		return fmt.Errorf("raw db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
