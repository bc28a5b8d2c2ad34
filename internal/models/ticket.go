package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type SupportTicket struct {
	BaseModel
	UserID          string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Subject         string         `gorm:"not null" json:"subject"`
	Description     string         `gorm:"type:text" json:"description"`
	Status          TicketStatus   `gorm:"type:varchar(20);not null;default:'open';index" json:"status"`
	Priority        TicketPriority `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	Category        TicketCategory `gorm:"type:varchar(20);not null;default:'general'" json:"category"`
	AssignedTo      *string        `gorm:"type:uuid;index" json:"assigned_to,omitempty"`
	ResolutionNotes string         `gorm:"type:text" json:"resolution_notes,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
	ClosedAt        *time.Time     `json:"closed_at,omitempty"`
	UnreadUser      int            `gorm:"not null;default:0" json:"unread_user"`
	UnreadStaff     int            `gorm:"not null;default:0" json:"unread_staff"`
	LastMessageAt   *time.Time     `json:"last_message_at,omitempty"`

	Messages []TicketMessage `gorm:"foreignKey:TicketID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// TicketMessage append-only; у системных сообщений нет отправителя
type TicketMessage struct {
	BaseModel
	TicketID    string         `gorm:"type:uuid;not null;index" json:"ticket_id"`
	SenderID    *string        `gorm:"type:uuid" json:"sender_id"`
	SenderName  string         `json:"sender_name"`
	SenderRole  UserRole       `gorm:"type:varchar(20)" json:"sender_role"`
	Message     string         `gorm:"type:text;not null" json:"message"`
	MessageType MessageType    `gorm:"type:varchar(10);not null;default:'text'" json:"message_type"`
	Attachments datatypes.JSON `gorm:"type:jsonb" json:"attachments"`
}

// Attachment - файл, загруженный в хранилище до отправки сообщения
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Key         string `json:"key,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

// UnreadFor возвращает счетчик непрочитанного для зрителя
func (t *SupportTicket) UnreadFor(staff bool) int {
	if staff {
		return t.UnreadStaff
	}
	return t.UnreadUser
}

// ApplyStatus выставляет статус и связанные метки времени
func (t *SupportTicket) ApplyStatus(status TicketStatus, notes string, at time.Time) {
	t.Status = status
	if notes != "" {
		t.ResolutionNotes = notes
	}
	switch status {
	case TicketStatusResolved:
		t.ResolvedAt = &at
	case TicketStatusClosed:
		t.ClosedAt = &at
		if t.ResolvedAt == nil {
			t.ResolvedAt = &at
		}
	default:
		t.ResolvedAt = nil
		t.ClosedAt = nil
	}
	t.UpdatedAt = at
}

func EncodeAttachments(list []Attachment) datatypes.JSON {
	if list == nil {
		list = []Attachment{}
	}
	raw, _ := json.Marshal(list)
	return datatypes.JSON(raw)
}

func (m *TicketMessage) AttachmentList() []Attachment {
	var list []Attachment
	if len(m.Attachments) > 0 {
		_ = json.Unmarshal(m.Attachments, &list)
	}
	return list
}

// IsSystem - сообщения, синтезированные при смене статуса
func (m *TicketMessage) IsSystem() bool {
	return m.MessageType == MessageTypeSystem
}
