package dto

import (
	"hrportal_backend/internal/models"
)

// ---------------- Requests ----------------

type CreateTicketRequest struct {
	Subject     string              `json:"subject" validate:"required,min=3,max=200"`
	Description string              `json:"description" validate:"required,max=5000"`
	Priority    string              `json:"priority" validate:"omitempty,is-ticket-priority"`
	Category    string              `json:"category" validate:"omitempty,is-ticket-category"`
	Message     string              `json:"message" validate:"omitempty,max=5000"`
	Attachments []models.Attachment `json:"attachments" validate:"omitempty,max=10"`
}

// SendMessageRequest общий для REST и message:send
type SendMessageRequest struct {
	TicketID    string              `json:"ticketId" validate:"required"`
	Message     string              `json:"message" validate:"max=5000"`
	MessageType string              `json:"messageType" validate:"omitempty,is-message-type"`
	Attachments []models.Attachment `json:"attachments" validate:"omitempty,max=10"`
}

// UpdateTicketStatusRequest общий для REST и ticket:update_status
type UpdateTicketStatusRequest struct {
	TicketID        string `json:"ticketId" validate:"required"`
	Status          string `json:"status" validate:"required,is-ticket-status"`
	ResolutionNotes string `json:"resolutionNotes" validate:"omitempty,max=5000"`
}

// ---------------- Responses ----------------

type TicketResponse struct {
	*models.SupportTicket
	Unread int `json:"unread"`
}

type TicketListResponse struct {
	Tickets    []*TicketResponse `json:"tickets"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	TotalPages int               `json:"total_pages"`
}

// MessageOutcome - результат записи сообщения; используется для последующей смены статуса
type MessageOutcome struct {
	Ticket  *models.SupportTicket
	Message *models.TicketMessage
	ByStaff bool
}

// StatusOutcome - результат смены статуса
type StatusOutcome struct {
	Ticket        *models.SupportTicket
	PrevStatus    models.TicketStatus
	SystemMessage *models.TicketMessage
}

// ---------------- Criteria ----------------

type TicketCriteria struct {
	Page     int
	PageSize int
	Status   string
	Priority string
	Category string
}
