package services

import (
	"hrportal_backend/internal/email"
	"hrportal_backend/internal/repositories"
	"hrportal_backend/internal/storage"
	"hrportal_backend/internal/validator"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	NotificationService NotificationService
	TicketService       TicketService
	AttachmentService   AttachmentService
}

// Dependencies - внешние зависимости сервисов
type Dependencies struct {
	Repos       *repositories.Container
	Broadcaster Broadcaster
	Emails      email.Queue
	Storage     storage.Storage
	Validator   *validator.Validator
	Attachments AttachmentConfig
	PortalURL   string
}

func NewServiceContainer(deps Dependencies) *ServiceContainer {
	v := deps.Validator
	if v == nil {
		v = validator.New()
	}

	notifications := NewNotificationService(
		deps.Repos.Notifications, deps.Repos.Users, deps.Broadcaster, deps.Emails, v, deps.PortalURL,
	)
	tickets := NewTicketService(
		deps.Repos.Tickets, deps.Repos.Users, notifications, deps.Broadcaster, v,
	)

	return &ServiceContainer{
		NotificationService: notifications,
		TicketService:       tickets,
		AttachmentService:   NewAttachmentService(tickets, deps.Storage, deps.Attachments),
	}
}
