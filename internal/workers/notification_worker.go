package workers

import (
	"context"
	"time"

	"hrportal_backend/internal/logger"
)

// Cleaner - часть NotificationService, нужная воркеру
type Cleaner interface {
	CleanupExpired(ctx context.Context, retention time.Duration) (expired int64, old int64, err error)
}

// NotificationWorker удаляет истекшие и старые прочитанные уведомления
type NotificationWorker struct {
	cleaner   Cleaner
	interval  time.Duration
	retention time.Duration
}

func NewNotificationWorker(cleaner Cleaner, interval, retention time.Duration) *NotificationWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &NotificationWorker{cleaner: cleaner, interval: interval, retention: retention}
}

// Start запускает фоновую очистку
func (w *NotificationWorker) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *NotificationWorker) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

func (w *NotificationWorker) RunOnce(ctx context.Context) {
	expired, old, err := w.cleaner.CleanupExpired(ctx, w.retention)
	logger.WorkerLog("notification_cleanup", "delete_expired", err)
	if err == nil && expired+old > 0 {
		logger.Info("Notifications cleaned up", "expired", expired, "read_older_than_retention", old)
	}
}
