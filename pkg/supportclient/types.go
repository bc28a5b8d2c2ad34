package supportclient

import (
	"encoding/json"
	"time"
)

// Identity - то, что отправляется в user:register
type Identity struct {
	UserID   string `json:"userId"`
	UserRole string `json:"userRole"`
	UserName string `json:"userName"`
}

type Notification struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	Type        string          `json:"type"`
	Priority    string          `json:"priority"`
	Category    string          `json:"category"`
	Data        json.RawMessage `json:"data,omitempty"`
	Read        bool            `json:"read"`
	ReadAt      *time.Time      `json:"read_at,omitempty"`
	ActionURL   string          `json:"action_url,omitempty"`
	ActionLabel string          `json:"action_label,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Channels    []string        `json:"channels,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	TimeAgo     string          `json:"timeAgo,omitempty"`
}

type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
	Total         int64          `json:"total"`
	Page          int            `json:"page"`
	PageSize      int            `json:"page_size"`
	TotalPages    int            `json:"total_pages"`
}

type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Key         string `json:"key,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

type TicketMessage struct {
	ID          string       `json:"id"`
	TicketID    string       `json:"ticket_id"`
	SenderID    *string      `json:"sender_id"`
	SenderName  string       `json:"sender_name"`
	SenderRole  string       `json:"sender_role"`
	Message     string       `json:"message"`
	MessageType string       `json:"message_type"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ---------------- Server events ----------------

type MessageReceived struct {
	TicketID string        `json:"ticketId"`
	Message  TicketMessage `json:"message"`
}

type MessageSent struct {
	TicketID string        `json:"ticketId"`
	Success  bool          `json:"success"`
	Message  TicketMessage `json:"message"`
}

type StatusUpdated struct {
	TicketID      string         `json:"ticketId"`
	NewStatus     string         `json:"newStatus"`
	SystemMessage *TicketMessage `json:"systemMessage"`
}

type Typing struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	TicketID string `json:"ticketId"`
}

type Registered struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type ErrorEvent struct {
	Message string `json:"message"`
}
