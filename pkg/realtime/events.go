// Package realtime holds the socket wire contract shared by the server hub and the Go client.
package realtime

import "encoding/json"

// Client -> server
const (
	EventUserRegister       = "user:register"
	EventTicketJoin         = "ticket:join"
	EventTicketLeave        = "ticket:leave"
	EventMessageSend        = "message:send"
	EventTypingStart        = "typing:start"
	EventTypingStop         = "typing:stop"
	EventTicketUpdateStatus = "ticket:update_status"
)

// Server -> client
const (
	EventUserRegistered       = "user:registered"
	EventMessageReceived      = "message:received"
	EventMessageSent          = "message:sent"
	EventTypingUserStarted    = "typing:user_started"
	EventTypingUserStopped    = "typing:user_stopped"
	EventTicketStatusUpdated  = "ticket:status_updated"
	EventTicketCreated        = "ticket:created"
	EventNotificationNew      = "notification:new"
	EventNotificationPriority = "notification:priority"
	EventError                = "error"
)

// Envelope - единица обмена по сокету: {"event": name, "data": payload}
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Encode сериализует событие в кадр
func Encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}

type RegisterPayload struct {
	UserID   string `json:"userId"`
	UserRole string `json:"userRole"`
	UserName string `json:"userName"`
}

type RegisteredPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

type TicketRef struct {
	TicketID string `json:"ticketId"`
}

// MessageTypeText - тип обычного сообщения в message:send
const MessageTypeText = "text"

type SendMessagePayload struct {
	TicketID    string `json:"ticketId"`
	Message     string `json:"message"`
	MessageType string `json:"messageType,omitempty"`
	Attachments any    `json:"attachments,omitempty"`
}

type MessageReceivedPayload struct {
	TicketID string `json:"ticketId"`
	Message  any    `json:"message"`
}

type MessageSentPayload struct {
	TicketID string `json:"ticketId"`
	Success  bool   `json:"success"`
	Message  any    `json:"message"`
}

type TypingPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	TicketID string `json:"ticketId"`
}

type UpdateStatusPayload struct {
	TicketID        string `json:"ticketId"`
	Status          string `json:"status"`
	ResolutionNotes string `json:"resolutionNotes,omitempty"`
}

// StatusUpdatedPayload - systemMessage равен null при автоматической смене статуса
type StatusUpdatedPayload struct {
	TicketID      string `json:"ticketId"`
	NewStatus     string `json:"newStatus"`
	SystemMessage any    `json:"systemMessage"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
