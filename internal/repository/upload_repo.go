package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/portfolio-api/internal/models"
)

// UploadRepository tracks artifacts pushed to blob storage.
type UploadRepository interface {
	Create(ctx context.Context, record *models.UploadRecord) error
	// FindByChecksum returns a user's earlier upload of identical bytes, or
	// gorm.ErrRecordNotFound.
	FindByChecksum(ctx context.Context, userID uint, checksum string) (models.UploadRecord, error)
	DeleteByURL(ctx context.Context, url string) error
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository constructs a repository for upload records.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, record *models.UploadRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *uploadRepository) FindByChecksum(ctx context.Context, userID uint, checksum string) (models.UploadRecord, error) {
	var record models.UploadRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND checksum = ?", userID, checksum).
		Order("id DESC").
		First(&record).Error
	return record, err
}

func (r *uploadRepository) DeleteByURL(ctx context.Context, url string) error {
	return r.db.WithContext(ctx).Where("url = ?", url).Delete(&models.UploadRecord{}).Error
}
