package repositories

import (
	"context"
	"errors"
	"time"

	"hrportal_backend/internal/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	ErrNotificationNotFound = errors.New("notification not found")
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	UpdateChannels(ctx context.Context, id string, channels []string) error
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	FindUserNotifications(ctx context.Context, userID string, criteria NotificationCriteria) ([]models.Notification, int64, error)
	CountUnread(ctx context.Context, userID string, now time.Time) (int64, error)
	MarkAsRead(ctx context.Context, id string, at time.Time) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteReadByUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteReadOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// NotificationCriteria - фильтры списка; истекшие на момент Now не возвращаются
type NotificationCriteria struct {
	UnreadOnly bool
	Type       string
	Category   string
	Now        time.Time
	Page       int
	PageSize   int
}

func (c NotificationCriteria) offset() int {
	if c.Page < 1 {
		return 0
	}
	return (c.Page - 1) * c.PageSize
}

type NotificationRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

func (r *NotificationRepositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *NotificationRepositoryImpl) UpdateChannels(ctx context.Context, id string, channels []string) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("channels", pq.StringArray(channels)).Error
}

func (r *NotificationRepositoryImpl) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.WithContext(ctx).First(&notification, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepositoryImpl) visible(ctx context.Context, userID string, now time.Time) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ?", userID).
		Where("expires_at IS NULL OR expires_at > ?", now)
}

func (r *NotificationRepositoryImpl) FindUserNotifications(ctx context.Context, userID string, criteria NotificationCriteria) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	query := r.visible(ctx, userID, criteria.Now)

	if criteria.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if criteria.Type != "" {
		query = query.Where("type = ?", criteria.Type)
	}
	if criteria.Category != "" {
		query = query.Where("category = ?", criteria.Category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").
		Limit(criteria.PageSize).
		Offset(criteria.offset()).
		Find(&notifications).Error
	return notifications, total, err
}

func (r *NotificationRepositoryImpl) CountUnread(ctx context.Context, userID string, now time.Time) (int64, error) {
	var count int64
	err := r.visible(ctx, userID, now).Where("is_read = ?", false).Count(&count).Error
	return count, err
}

// MarkAsRead обновляет только непрочитанные, поэтому read_at первого прочтения сохраняется
func (r *NotificationRepositoryImpl) MarkAsRead(ctx context.Context, id string, at time.Time) (*models.Notification, error) {
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND is_read = ?", id, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at}).Error
	if err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Notification{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepositoryImpl) DeleteReadByUser(ctx context.Context, userID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND is_read = ?", userID, true).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) DeleteReadOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, before).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
