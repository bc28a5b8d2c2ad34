package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"hrportal_backend/internal/email"
	"hrportal_backend/internal/logger"
	"hrportal_backend/internal/metrics"
	"hrportal_backend/internal/mq"
)

// JobSource - очередь заданий (mq.Consumer)
type JobSource interface {
	SetHandler(h mq.MessageHandler)
	StartConsuming(ctx context.Context) error
}

// EmailWorker забирает задания из RabbitMQ и отправляет письма по одному
type EmailWorker struct {
	source JobSource
	sender email.Sender
}

func NewEmailWorker(source JobSource, sender email.Sender) *EmailWorker {
	w := &EmailWorker{source: source, sender: sender}
	source.SetHandler(w.Handle)
	return w
}

func (w *EmailWorker) Start(ctx context.Context) {
	go func() {
		if err := w.source.StartConsuming(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Email worker stopped with error", "error", err.Error())
			return
		}
		logger.Info("Email worker stopped")
	}()
}

// Handle - ошибка возвращается брокеру для повторной доставки
func (w *EmailWorker) Handle(ctx context.Context, data json.RawMessage) error {
	var job email.Job
	if err := json.Unmarshal(data, &job); err != nil {
		// Битое задание повторять бессмысленно
		logger.Error("Malformed email job dropped", "error", err.Error())
		return nil
	}
	if job.Recipient == "" {
		logger.Warn("Email job without recipient dropped", "type", job.Type)
		return nil
	}

	res, err := w.sender.Send(ctx, job.Type, job.Recipient, job.Variables)
	logger.WorkerLog("email", string(job.Type), err)
	if err != nil {
		return fmt.Errorf("send %s email: %w", job.Type, err)
	}
	if res != nil && !res.Success {
		metrics.RecordEmail(string(job.Type), "rejected")
	}
	return nil
}
