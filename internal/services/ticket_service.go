package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hrportal_backend/internal/auth"
	"hrportal_backend/internal/logger"
	"hrportal_backend/internal/models"
	"hrportal_backend/internal/repositories"
	"hrportal_backend/internal/services/dto"
	"hrportal_backend/internal/validator"
	"hrportal_backend/pkg/apperrors"
	"hrportal_backend/pkg/realtime"
)

// SupportTeamName - отправитель системных сообщений
const SupportTeamName = "Support Team"

type TicketService interface {
	CreateTicket(ctx context.Context, actor auth.Identity, req *dto.CreateTicketRequest) (*dto.TicketResponse, error)
	ListTickets(ctx context.Context, actor auth.Identity, criteria dto.TicketCriteria) (*dto.TicketListResponse, error)
	GetTicket(ctx context.Context, actor auth.Identity, ticketID string) (*dto.TicketResponse, error)
	CanAccess(ctx context.Context, actor auth.Identity, ticketID string) (*models.SupportTicket, error)

	// SendMessage сохраняет сообщение и публикует message:received в комнату тикета
	SendMessage(ctx context.Context, actor auth.Identity, req *dto.SendMessageRequest) (*dto.MessageOutcome, error)
	// AfterMessage - автосмена статуса и уведомление создателя тикета
	AfterMessage(ctx context.Context, actor auth.Identity, outcome *dto.MessageOutcome)
	UpdateStatus(ctx context.Context, actor auth.Identity, req *dto.UpdateTicketStatusRequest) (*dto.StatusOutcome, error)
}

type ticketService struct {
	ticketRepo    repositories.TicketRepository
	userRepo      repositories.UserRepository
	notifications NotificationService
	broadcaster   Broadcaster
	validator     *validator.Validator
	now           func() time.Time
}

func NewTicketService(
	ticketRepo repositories.TicketRepository,
	userRepo repositories.UserRepository,
	notifications NotificationService,
	broadcaster Broadcaster,
	v *validator.Validator,
) TicketService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &ticketService{
		ticketRepo:    ticketRepo,
		userRepo:      userRepo,
		notifications: notifications,
		broadcaster:   broadcaster,
		validator:     v,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// ---------------- Tickets ----------------

func (s *ticketService) CreateTicket(ctx context.Context, actor auth.Identity, req *dto.CreateTicketRequest) (*dto.TicketResponse, error) {
	if actor.IsZero() {
		return nil, apperrors.NewUnauthorizedError("authentication required")
	}
	if err := validate(s.validator, req); err != nil {
		return nil, err
	}

	priority := models.TicketPriority(req.Priority)
	if priority == "" {
		priority = models.TicketPriorityMedium
	}
	category := models.TicketCategory(req.Category)
	if category == "" {
		category = models.TicketCategoryGeneral
	}

	ticket := &models.SupportTicket{
		UserID:      actor.UserID,
		Subject:     strings.TrimSpace(req.Subject),
		Description: strings.TrimSpace(req.Description),
		Status:      models.TicketStatusOpen,
		Priority:    priority,
		Category:    category,
	}
	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, mapRepoError(err)
	}

	if strings.TrimSpace(req.Message) != "" || len(req.Attachments) > 0 {
		msg := s.newMessage(ctx, actor, ticket.ID, req.Message, req.Attachments)
		if err := s.ticketRepo.AppendMessage(ctx, msg, false); err != nil {
			return nil, mapRepoError(err)
		}
	}

	full, err := s.ticketRepo.FindWithMessages(ctx, ticket.ID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if full.Priority.IsEscalated() {
		s.broadcaster.EmitToAdmins(realtime.EventTicketCreated, full)
	}

	logger.CtxInfo(ctx, "support ticket created",
		"ticket_id", full.ID, "priority", full.Priority, "category", full.Category)
	return &dto.TicketResponse{SupportTicket: full, Unread: full.UnreadFor(actor.IsStaff())}, nil
}

func (s *ticketService) ListTickets(ctx context.Context, actor auth.Identity, criteria dto.TicketCriteria) (*dto.TicketListResponse, error) {
	repoCriteria := repositories.TicketCriteria{
		Status:   criteria.Status,
		Priority: criteria.Priority,
		Category: criteria.Category,
		Page:     criteria.Page,
		PageSize: criteria.PageSize,
	}
	if !actor.IsStaff() {
		repoCriteria.UserID = actor.UserID
	}

	tickets, total, err := s.ticketRepo.FindTickets(ctx, repoCriteria)
	if err != nil {
		return nil, mapRepoError(err)
	}

	items := make([]*dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, &dto.TicketResponse{
			SupportTicket: &tickets[i],
			Unread:        tickets[i].UnreadFor(actor.IsStaff()),
		})
	}

	totalPages := 0
	if criteria.PageSize > 0 {
		totalPages = int((total + int64(criteria.PageSize) - 1) / int64(criteria.PageSize))
	}
	return &dto.TicketListResponse{
		Tickets:    items,
		Total:      total,
		Page:       criteria.Page,
		PageSize:   criteria.PageSize,
		TotalPages: totalPages,
	}, nil
}

// GetTicket возвращает тикет с сообщениями и сбрасывает счетчик непрочитанного зрителя
func (s *ticketService) GetTicket(ctx context.Context, actor auth.Identity, ticketID string) (*dto.TicketResponse, error) {
	if _, err := s.CanAccess(ctx, actor, ticketID); err != nil {
		return nil, err
	}

	if err := s.ticketRepo.ResetUnread(ctx, ticketID, actor.IsStaff()); err != nil {
		return nil, mapRepoError(err)
	}
	ticket, err := s.ticketRepo.FindWithMessages(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return &dto.TicketResponse{SupportTicket: ticket, Unread: 0}, nil
}

// CanAccess: создатель или сотрудник
func (s *ticketService) CanAccess(ctx context.Context, actor auth.Identity, ticketID string) (*models.SupportTicket, error) {
	if actor.IsZero() {
		return nil, apperrors.ErrNotRegistered
	}
	ticket, err := s.ticketRepo.FindByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if !actor.IsStaff() && ticket.UserID != actor.UserID {
		return nil, apperrors.ErrTicketAccessDenied
	}
	return ticket, nil
}

// ---------------- Messages ----------------

func (s *ticketService) SendMessage(ctx context.Context, actor auth.Identity, req *dto.SendMessageRequest) (*dto.MessageOutcome, error) {
	if err := validate(s.validator, req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Message) == "" && len(req.Attachments) == 0 {
		return nil, apperrors.ErrEmptyMessage
	}

	ticket, err := s.CanAccess(ctx, actor, req.TicketID)
	if err != nil {
		return nil, err
	}

	byStaff := actor.IsStaff() && actor.UserID != ticket.UserID
	if !byStaff && ticket.Status.IsFinal() {
		return nil, apperrors.ErrTicketClosed
	}

	msg := s.newMessage(ctx, actor, ticket.ID, req.Message, req.Attachments)
	if err := s.ticketRepo.AppendMessage(ctx, msg, byStaff); err != nil {
		return nil, mapRepoError(err)
	}

	s.broadcaster.EmitToRoom(ticket.ID, realtime.EventMessageReceived, realtime.MessageReceivedPayload{
		TicketID: ticket.ID,
		Message:  msg,
	})

	logger.CtxDebug(ctx, "ticket message stored", "ticket_id", ticket.ID, "message_id", msg.ID, "by_staff", byStaff)
	return &dto.MessageOutcome{Ticket: ticket, Message: msg, ByStaff: byStaff}, nil
}

// nextStatus - автоматический переход после сообщения
func nextStatus(current models.TicketStatus, byStaff bool) (models.TicketStatus, bool) {
	switch {
	case byStaff && current == models.TicketStatusOpen:
		return models.TicketStatusInProgress, true
	case byStaff && current == models.TicketStatusInProgress:
		return models.TicketStatusWaitingResponse, true
	case !byStaff && current == models.TicketStatusWaitingResponse:
		return models.TicketStatusInProgress, true
	}
	return current, false
}

func (s *ticketService) AfterMessage(ctx context.Context, actor auth.Identity, outcome *dto.MessageOutcome) {
	if outcome == nil || outcome.Ticket == nil {
		return
	}
	ticket := outcome.Ticket

	if next, ok := nextStatus(ticket.Status, outcome.ByStaff); ok {
		ticket.ApplyStatus(next, "", s.now())
		if err := s.ticketRepo.UpdateStatus(ctx, ticket); err != nil {
			logger.CtxWithError(ctx, "auto status transition failed", err, "ticket_id", ticket.ID)
		} else {
			s.broadcaster.EmitToRoom(ticket.ID, realtime.EventTicketStatusUpdated, realtime.StatusUpdatedPayload{
				TicketID:      ticket.ID,
				NewStatus:     string(next),
				SystemMessage: nil,
			})
		}
	}

	if outcome.ByStaff && !s.broadcaster.IsUserInRoom(ticket.ID, ticket.UserID) {
		if err := s.notifications.NotifyTicketReply(ctx, ticket, outcome.Message); err != nil {
			logger.CtxWithError(ctx, "ticket reply notification failed", err, "ticket_id", ticket.ID)
		}
	}
}

// ---------------- Status ----------------

func (s *ticketService) UpdateStatus(ctx context.Context, actor auth.Identity, req *dto.UpdateTicketStatusRequest) (*dto.StatusOutcome, error) {
	if !actor.IsStaff() {
		return nil, apperrors.ErrStaffOnly
	}
	if err := validate(s.validator, req); err != nil {
		return nil, err
	}
	status := models.TicketStatus(req.Status)
	if !status.IsValid() {
		return nil, apperrors.ErrInvalidTicketStatus
	}

	ticket, err := s.CanAccess(ctx, actor, req.TicketID)
	if err != nil {
		return nil, err
	}
	prev := ticket.Status
	if prev == status {
		return nil, apperrors.ErrInvalidStatus("support", fmt.Sprintf("Ticket is already %s", status))
	}

	ticket.ApplyStatus(status, strings.TrimSpace(req.ResolutionNotes), s.now())
	if err := s.ticketRepo.UpdateStatus(ctx, ticket); err != nil {
		return nil, mapRepoError(err)
	}

	// Системное сообщение пишется отдельно от статуса
	text := fmt.Sprintf("Ticket status changed from %s to %s", statusLabel(prev), statusLabel(status))
	if ticket.ResolutionNotes != "" && status.IsFinal() {
		text += ". Resolution: " + ticket.ResolutionNotes
	}
	systemMsg := &models.TicketMessage{
		TicketID:    ticket.ID,
		SenderName:  SupportTeamName,
		SenderRole:  actor.Role,
		Message:     text,
		MessageType: models.MessageTypeSystem,
		Attachments: models.EncodeAttachments(nil),
	}
	if err := s.ticketRepo.AppendMessage(ctx, systemMsg, true); err != nil {
		logger.CtxWithError(ctx, "failed to append status system message", err, "ticket_id", ticket.ID)
		systemMsg = nil
	}

	var payloadMsg any
	if systemMsg != nil {
		payloadMsg = systemMsg
	}
	s.broadcaster.EmitToRoom(ticket.ID, realtime.EventTicketStatusUpdated, realtime.StatusUpdatedPayload{
		TicketID:      ticket.ID,
		NewStatus:     string(status),
		SystemMessage: payloadMsg,
	})

	if actor.UserID != ticket.UserID {
		if err := s.notifications.NotifyTicketStatus(ctx, ticket, prev); err != nil {
			logger.CtxWithError(ctx, "ticket status notification failed", err, "ticket_id", ticket.ID)
		}
	}

	logger.CtxInfo(ctx, "ticket status updated", "ticket_id", ticket.ID, "from", prev, "to", status)
	return &dto.StatusOutcome{Ticket: ticket, PrevStatus: prev, SystemMessage: systemMsg}, nil
}

// ---------------- Helpers ----------------

func statusLabel(status models.TicketStatus) string {
	return strings.ReplaceAll(string(status), "_", " ")
}

func (s *ticketService) newMessage(ctx context.Context, actor auth.Identity, ticketID, text string, attachments []models.Attachment) *models.TicketMessage {
	senderID := actor.UserID
	return &models.TicketMessage{
		TicketID:    ticketID,
		SenderID:    &senderID,
		SenderName:  s.displayName(ctx, actor),
		SenderRole:  actor.Role,
		Message:     strings.TrimSpace(text),
		MessageType: models.MessageTypeText,
		Attachments: models.EncodeAttachments(attachments),
	}
}

// displayName: имя из токена, затем из справочника пользователей, затем название роли
func (s *ticketService) displayName(ctx context.Context, actor auth.Identity) string {
	if actor.Name != "" {
		return actor.Name
	}
	if user, err := s.userRepo.FindByID(ctx, actor.UserID); err == nil && user.Name != "" {
		return user.Name
	}
	return auth.RoleName(actor.Role)
}
