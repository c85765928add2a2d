package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ZAX3000/mailtrace/internal/domain"
)

// RunRepository handles matching-run persistence.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository bound to db.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run record.
func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// GetByID retrieves a run by its ID.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	var run domain.Run
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRecent retrieves the most recently started runs.
func (r *RunRepository) ListRecent(ctx context.Context, limit int) ([]domain.Run, error) {
	var runs []domain.Run
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// Finalize writes the terminal state and KPIs of a run.
func (r *RunRepository) Finalize(ctx context.Context, run *domain.Run) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	return r.db.WithContext(ctx).Save(run).Error
}

// MarkFailed transitions a run to failed with a message.
func (r *RunRepository) MarkFailed(ctx context.Context, id, message string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&domain.Run{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      domain.RunStatusFailed,
			"error":       message,
			"finished_at": now,
		}).Error
}

// MarkCancelled transitions a run to cancelled.
func (r *RunRepository) MarkCancelled(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&domain.Run{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      domain.RunStatusCancelled,
			"finished_at": now,
		}).Error
}
