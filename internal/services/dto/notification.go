package dto

import (
	"time"

	"hrportal_backend/internal/models"
)

// ---------------- Requests ----------------

type CreateNotificationRequest struct {
	UserID      string                 `json:"user_id" validate:"required"`
	Type        string                 `json:"type" validate:"required,is-notification-type"`
	Title       string                 `json:"title" validate:"required,max=200"`
	Message     string                 `json:"message" validate:"required,max=2000"`
	Priority    string                 `json:"priority" validate:"omitempty,is-notification-priority"`
	Category    string                 `json:"category" validate:"omitempty,is-notification-category"`
	Data        map[string]interface{} `json:"data"`
	ActionURL   string                 `json:"action_url" validate:"omitempty,max=500"`
	ActionLabel string                 `json:"action_label" validate:"omitempty,max=100"`
	ExpiresAt   *time.Time             `json:"expires_at"`
	Channels    []string               `json:"channels" validate:"omitempty,dive,is-notification-channel"`
}

// BulkNotificationRequest - получатели по списку ID или по роли
type BulkNotificationRequest struct {
	UserIDs     []string               `json:"user_ids" validate:"required_without=Role,dive,required"`
	Role        string                 `json:"role" validate:"omitempty,is-user-role"`
	Type        string                 `json:"type" validate:"required,is-notification-type"`
	Title       string                 `json:"title" validate:"required,max=200"`
	Message     string                 `json:"message" validate:"required,max=2000"`
	Priority    string                 `json:"priority" validate:"omitempty,is-notification-priority"`
	Category    string                 `json:"category" validate:"omitempty,is-notification-category"`
	Data        map[string]interface{} `json:"data"`
	ActionURL   string                 `json:"action_url" validate:"omitempty,max=500"`
	ActionLabel string                 `json:"action_label" validate:"omitempty,max=100"`
	ExpiresAt   *time.Time             `json:"expires_at"`
	Channels    []string               `json:"channels" validate:"omitempty,dive,is-notification-channel"`
}

// ForRecipient разворачивает bulk-запрос в запрос одному получателю
func (r *BulkNotificationRequest) ForRecipient(userID string) *CreateNotificationRequest {
	return &CreateNotificationRequest{
		UserID:      userID,
		Type:        r.Type,
		Title:       r.Title,
		Message:     r.Message,
		Priority:    r.Priority,
		Category:    r.Category,
		Data:        r.Data,
		ActionURL:   r.ActionURL,
		ActionLabel: r.ActionLabel,
		ExpiresAt:   r.ExpiresAt,
		Channels:    r.Channels,
	}
}

// ---------------- Responses ----------------

type NotificationResponse struct {
	*models.Notification
	TimeAgo string `json:"timeAgo,omitempty"`
}

type NotificationListResponse struct {
	Notifications []*NotificationResponse `json:"notifications"`
	UnreadCount   int64                   `json:"unread_count"`
	Total         int64                   `json:"total"`
	Page          int                     `json:"page"`
	PageSize      int                     `json:"page_size"`
	TotalPages    int                     `json:"total_pages"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

type BulkRecipientResult struct {
	UserID         string `json:"user_id"`
	Success        bool   `json:"success"`
	NotificationID string `json:"notification_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

type BulkNotificationResponse struct {
	Total     int                   `json:"total"`
	Succeeded int                   `json:"succeeded"`
	Failed    int                   `json:"failed"`
	Results   []BulkRecipientResult `json:"results"`
}

// ---------------- Criteria ----------------

type NotificationCriteria struct {
	Page       int
	PageSize   int
	UnreadOnly bool
	Type       string
	Category   string
}
