package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Открытые сокет-соединения на этом инстансе
	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hrportal_ws_connections",
		Help: "Open websocket connections on this instance",
	})

	// Пользователи, у которых есть хотя бы одно зарегистрированное соединение
	WSRegisteredUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hrportal_ws_registered_users",
		Help: "Distinct users with at least one registered connection",
	})

	WSEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrportal_ws_events_total",
			Help: "Inbound socket events by name and outcome",
		},
		[]string{"event", "status"}, // status: ok, error
	)

	WSDroppedConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hrportal_ws_dropped_connections_total",
		Help: "Connections dropped because their send buffer was full",
	})

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrportal_notifications_created_total",
			Help: "Persisted notifications by type and priority",
		},
		[]string{"type", "priority"},
	)

	RealtimePushes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrportal_realtime_pushes_total",
			Help: "Realtime events emitted by scope",
		},
		[]string{"scope", "event"}, // scope: user, admin, room
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hrportal_emails_total",
			Help: "Email deliveries by type and status",
		},
		[]string{"type", "status"}, // status: sent, failed, queued
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hrportal_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)

func RecordWSEvent(event string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	WSEvents.WithLabelValues(event, status).Inc()
}

func RecordNotificationCreated(notificationType, priority string) {
	NotificationsCreated.WithLabelValues(notificationType, priority).Inc()
}

func RecordRealtimePush(scope, event string) {
	RealtimePushes.WithLabelValues(scope, event).Inc()
}

func RecordEmail(emailType, status string) {
	EmailsSent.WithLabelValues(emailType, status).Inc()
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
