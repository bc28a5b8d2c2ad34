package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type Notification struct {
	BaseModel
	UserID      string               `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string               `gorm:"not null" json:"title"`
	Message     string               `gorm:"type:text" json:"message"`
	Type        NotificationType     `gorm:"type:varchar(40);not null;index" json:"type"`
	Priority    NotificationPriority `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	Category    NotificationCategory `gorm:"type:varchar(20);not null;default:'general'" json:"category"`
	Data        datatypes.JSON       `gorm:"type:jsonb" json:"data,omitempty"`
	IsRead      bool                 `gorm:"column:is_read;default:false;index" json:"read"`
	ReadAt      *time.Time           `json:"read_at"`
	ActionURL   string               `json:"action_url,omitempty"`
	ActionLabel string               `json:"action_label,omitempty"`
	ExpiresAt   *time.Time           `gorm:"index" json:"expires_at,omitempty"`
	Channels    pq.StringArray       `gorm:"type:text[]" json:"channels"`
}

// IsExpired - истекшие уведомления скрыты из списка и счетчика
func (n *Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && n.ExpiresAt.Before(now)
}

// MarkRead ставит read и read_at вместе; повторный вызов не меняет read_at
func (n *Notification) MarkRead(at time.Time) bool {
	if n.IsRead {
		return false
	}
	n.IsRead = true
	n.ReadAt = &at
	return true
}

func (n *Notification) HasChannel(ch NotificationChannel) bool {
	for _, c := range n.Channels {
		if c == string(ch) {
			return true
		}
	}
	return false
}

func (n *Notification) AddChannel(ch NotificationChannel) {
	if !n.HasChannel(ch) {
		n.Channels = append(n.Channels, string(ch))
	}
}
