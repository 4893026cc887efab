package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/portfolio-api/internal/models"
)

const (
	defaultInboxPage = 50
	maxInboxPage     = 100
)

// NotificationQuery pages through one user's inbox, newest first.
type NotificationQuery struct {
	UserID     uint
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByUser(ctx context.Context, query NotificationQuery) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	// MarkRead flags a notification owned by userID; other users' notifications
	// report gorm.ErrRecordNotFound.
	MarkRead(ctx context.Context, id uint, userID uint) (models.Notification, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository constructs a GORM-backed inbox store.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) ListByUser(ctx context.Context, query NotificationQuery) ([]models.Notification, error) {
	limit := query.Limit
	if limit <= 0 || limit > maxInboxPage {
		limit = defaultInboxPage
	}

	tx := r.db.WithContext(ctx).Where("user_id = ?", query.UserID)
	if query.UnreadOnly {
		tx = tx.Where("read = ?", false)
	}

	var items []models.Notification
	err := tx.Order("created_at DESC").Order("id DESC").
		Offset(max(query.Offset, 0)).
		Limit(limit).
		Find(&items).Error
	return items, err
}

func (r *notificationRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uint, userID uint) (models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, userID).First(&notification).Error; err != nil {
			return err
		}
		if notification.Read {
			return nil
		}
		notification.Read = true
		return tx.Model(&notification).Update("read", true).Error
	})
	if err != nil {
		return models.Notification{}, err
	}
	return notification, nil
}
