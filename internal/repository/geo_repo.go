package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ZAX3000/mailtrace/internal/domain"
)

// GeoPointRepository handles geocoded points for the map view.
type GeoPointRepository struct {
	db *gorm.DB
}

// NewGeoPointRepository creates a new GeoPointRepository bound to db.
func NewGeoPointRepository(db *gorm.DB) *GeoPointRepository {
	return &GeoPointRepository{db: db}
}

// BulkInsert writes geocoded points for a run.
func (r *GeoPointRepository) BulkInsert(ctx context.Context, points []domain.GeoPoint) error {
	if len(points) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(points, insertBatchSize).Error
}

// ListByRun retrieves the points of one run.
func (r *GeoPointRepository) ListByRun(ctx context.Context, runID string) ([]domain.GeoPoint, error) {
	var points []domain.GeoPoint
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(&points).Error; err != nil {
		return nil, err
	}
	return points, nil
}
