package email

import "context"

// Type - вид письма, определяет шаблон и тему
type Type string

const (
	TypeNotification Type = "notification"
	TypeTicketReply  Type = "ticket_reply"
	TypeTicketStatus Type = "ticket_status"
)

// Result - ответ внешнего сервиса доставки
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id"`
}

// Job - задание на отправку, сериализуется в очередь
type Job struct {
	Type           Type              `json:"type"`
	Recipient      string            `json:"recipient"`
	Variables      map[string]string `json:"variables"`
	NotificationID string            `json:"notification_id,omitempty"`
}

// Sender - send(type, recipient, variables) -> {success, messageId}
type Sender interface {
	Send(ctx context.Context, emailType Type, recipient string, variables map[string]string) (*Result, error)
}

// Queue принимает задания на отправку; реализация решает, отправлять сразу или через брокер
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}
