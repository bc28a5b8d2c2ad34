package email

import (
	"context"

	"hrportal_backend/internal/logger"
	"hrportal_backend/internal/metrics"
)

// RoutingKey - ключ маршрутизации заданий на отправку в брокере
const RoutingKey = "email.send"

// InlineQueue отправляет письмо сразу; ошибка отправки не возвращается вызывающему
type InlineQueue struct {
	sender Sender
}

func NewInlineQueue(sender Sender) *InlineQueue {
	return &InlineQueue{sender: sender}
}

func (q *InlineQueue) Enqueue(ctx context.Context, job Job) error {
	res, err := q.sender.Send(ctx, job.Type, job.Recipient, job.Variables)
	if err != nil {
		logger.CtxWithError(ctx, "inline email delivery failed", err,
			"type", job.Type, "notification_id", job.NotificationID)
		return nil
	}
	logger.CtxDebug(ctx, "email delivered", "type", job.Type, "message_id", res.MessageID)
	return nil
}

// Publisher - часть mq.Publisher, нужная очереди
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// BrokerQueue кладет задание в RabbitMQ; отправляет EmailWorker
type BrokerQueue struct {
	publisher Publisher
}

func NewBrokerQueue(publisher Publisher) *BrokerQueue {
	return &BrokerQueue{publisher: publisher}
}

func (q *BrokerQueue) Enqueue(ctx context.Context, job Job) error {
	if err := q.publisher.Publish(ctx, RoutingKey, job); err != nil {
		metrics.RecordEmail(string(job.Type), "enqueue_failed")
		return err
	}
	metrics.RecordEmail(string(job.Type), "queued")
	return nil
}
