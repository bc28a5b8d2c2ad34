package handlers

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	NotificationHandler *NotificationHandler
	TicketHandler       *TicketHandler
	HealthHandler       *HealthHandler
}
