package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/discovery/internal/db"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: database}
}

// CreateMany inserts rows in one statement.
func (r *NotificationRepository) CreateMany(ctx context.Context, rows []db.Notification) error {
	const op = "repository.notification.CreateMany"

	if len(rows) == 0 {
		return nil
	}
	return wrap(op, r.db.WithContext(ctx).Create(&rows).Error)
}

// ListForReceiver returns the newest notifications of receiver.
func (r *NotificationRepository) ListForReceiver(ctx context.Context, receiver string, limit int) ([]db.Notification, error) {
	const op = "repository.notification.ListForReceiver"

	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	var out []db.Notification
	err := r.db.WithContext(ctx).
		Where("receiver = ?", receiver).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, wrap(op, err)
	}
	return out, nil
}
