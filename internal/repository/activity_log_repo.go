package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/portfolio-api/internal/models"
)

// ActivityLogRepository persists the audit trail of workflow events.
type ActivityLogRepository interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
	// ListByEntity returns an entity's events oldest first, so callers can
	// render them as a timeline.
	ListByEntity(ctx context.Context, entityType, entityID string) ([]models.ActivityLog, error)
}

type activityLogRepository struct {
	db *gorm.DB
}

// NewActivityLogRepository constructs the activity log repository.
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *activityLogRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]models.ActivityLog, error) {
	var entries []models.ActivityLog
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
