package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ZAX3000/mailtrace/internal/domain"
)

// MatchRepository handles persisted match rows.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new MatchRepository bound to db.
func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

const insertBatchSize = 500

// BulkInsert writes all matches of a finished run.
func (r *MatchRepository) BulkInsert(ctx context.Context, matches []domain.Match) error {
	if len(matches) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(matches, insertBatchSize).Error
}

// ListByRun retrieves all matches of one run, ordered by confidence.
func (r *MatchRepository) ListByRun(ctx context.Context, runID string) ([]domain.Match, error) {
	var matches []domain.Match
	if err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("confidence_percent DESC, id ASC").
		Find(&matches).Error; err != nil {
		return nil, err
	}
	return matches, nil
}

// ListAll retrieves every persisted match across runs, ordered for
// deterministic aggregation.
func (r *MatchRepository) ListAll(ctx context.Context) ([]domain.Match, error) {
	var matches []domain.Match
	if err := r.db.WithContext(ctx).
		Order("run_id ASC, id ASC").
		Find(&matches).Error; err != nil {
		return nil, err
	}
	return matches, nil
}

// DeleteByRun removes the matches of a run, used to roll back a partial
// bulk insert.
func (r *MatchRepository) DeleteByRun(ctx context.Context, runID string) error {
	return r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Delete(&domain.Match{}).Error
}
