package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"hrportal_backend/internal/email"
	"hrportal_backend/internal/logger"
	"hrportal_backend/internal/metrics"
	"hrportal_backend/internal/models"
	"hrportal_backend/internal/repositories"
	"hrportal_backend/internal/services/dto"
	"hrportal_backend/internal/validator"
	"hrportal_backend/pkg/apperrors"
	"hrportal_backend/pkg/realtime"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type NotificationService interface {
	// Fan-out
	CreateAndSend(ctx context.Context, req *dto.CreateNotificationRequest) (*dto.NotificationResponse, error)
	CreateBulk(ctx context.Context, req *dto.BulkNotificationRequest) (*dto.BulkNotificationResponse, error)
	SendTest(ctx context.Context, userID string) (*dto.NotificationResponse, error)

	// Read state
	GetUserNotifications(ctx context.Context, userID string, criteria dto.NotificationCriteria) (*dto.NotificationListResponse, error)
	GetUnreadCount(ctx context.Context, userID string) (int64, error)
	GetNotification(ctx context.Context, userID, notificationID string) (*dto.NotificationResponse, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) (*dto.NotificationResponse, error)
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, userID, notificationID string) error
	DeleteReadNotifications(ctx context.Context, userID string) (int64, error)
	CleanupExpired(ctx context.Context, retention time.Duration) (expired int64, old int64, err error)

	// Factory methods for the support flow
	NotifyTicketReply(ctx context.Context, ticket *models.SupportTicket, msg *models.TicketMessage) error
	NotifyTicketStatus(ctx context.Context, ticket *models.SupportTicket, prev models.TicketStatus) error
}

type notificationService struct {
	notificationRepo repositories.NotificationRepository
	userRepo         repositories.UserRepository
	broadcaster      Broadcaster
	emails           email.Queue
	validator        *validator.Validator
	portalURL        string
	now              func() time.Time
}

func NewNotificationService(
	notificationRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
	broadcaster Broadcaster,
	emails email.Queue,
	v *validator.Validator,
	portalURL string,
) NotificationService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &notificationService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		broadcaster:      broadcaster,
		emails:           emails,
		validator:        v,
		portalURL:        strings.TrimRight(portalURL, "/"),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// emailSpec - какое письмо отправить, если запрошен канал email
type emailSpec struct {
	emailType email.Type
	variables map[string]string
}

// ---------------- Fan-out ----------------

func (s *notificationService) CreateAndSend(ctx context.Context, req *dto.CreateNotificationRequest) (*dto.NotificationResponse, error) {
	return s.createAndSend(ctx, req, nil)
}

// createAndSend: запись -> notification:new владельцу -> notification:priority админам -> письмо.
// Ошибки доставки только логируются, запись не откатывается.
func (s *notificationService) createAndSend(ctx context.Context, req *dto.CreateNotificationRequest, spec *emailSpec) (*dto.NotificationResponse, error) {
	if err := validate(s.validator, req); err != nil {
		return nil, err
	}

	notification, err := s.buildNotification(req)
	if err != nil {
		return nil, err
	}

	wantsEmail := false
	for _, ch := range req.Channels {
		if models.NotificationChannel(ch) == models.ChannelEmail {
			wantsEmail = true
		}
	}

	var recipient *models.User
	if wantsEmail {
		recipient = s.emailRecipient(ctx, notification.UserID)
		if recipient != nil {
			notification.AddChannel(models.ChannelEmail)
		}
	}
	online := s.broadcaster.IsOnline(notification.UserID)
	if online {
		notification.AddChannel(models.ChannelRealtime)
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return nil, mapRepoError(err)
	}
	metrics.RecordNotificationCreated(string(notification.Type), string(notification.Priority))

	resp := s.buildResponse(notification, true)
	s.broadcaster.EmitToUser(notification.UserID, realtime.EventNotificationNew, resp)
	if notification.Priority.IsEscalated() {
		s.broadcaster.EmitToAdmins(realtime.EventNotificationPriority, resp)
	}

	if recipient != nil {
		s.sendEmail(ctx, notification, recipient, spec)
	}

	logger.CtxInfo(ctx, "notification created",
		"notification_id", notification.ID,
		"owner_id", notification.UserID,
		"priority", notification.Priority,
		"online", online,
	)
	return resp, nil
}

func (s *notificationService) buildNotification(req *dto.CreateNotificationRequest) (*models.Notification, error) {
	var dataJSON datatypes.JSON
	if req.Data != nil {
		raw, err := json.Marshal(req.Data)
		if err != nil {
			return nil, apperrors.NewBadRequestError(fmt.Sprintf("invalid notification data: %v", err))
		}
		dataJSON = datatypes.JSON(raw)
	}

	priority := models.NotificationPriority(req.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}
	category := models.NotificationCategory(req.Category)
	if category == "" {
		category = models.CategoryGeneral
	}

	var expiresAt *time.Time
	if req.ExpiresAt != nil {
		at := req.ExpiresAt.UTC()
		if !at.After(s.now()) {
			return nil, apperrors.ValidationError(map[string]string{"expires_at": "Must be in the future"})
		}
		expiresAt = &at
	}

	return &models.Notification{
		UserID:      req.UserID,
		Title:       strings.TrimSpace(req.Title),
		Message:     strings.TrimSpace(req.Message),
		Type:        models.NotificationType(req.Type),
		Priority:    priority,
		Category:    category,
		Data:        dataJSON,
		ActionURL:   req.ActionURL,
		ActionLabel: req.ActionLabel,
		ExpiresAt:   expiresAt,
		Channels:    pq.StringArray{string(models.ChannelInApp)},
	}, nil
}

// emailRecipient возвращает получателя или nil, если письмо отправить некому
func (s *notificationService) emailRecipient(ctx context.Context, userID string) *models.User {
	if s.emails == nil {
		return nil
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		logger.CtxWarn(ctx, "email channel skipped, user lookup failed", "owner_id", userID, "error", err.Error())
		return nil
	}
	if user.Email == "" || !user.IsActive {
		return nil
	}
	return user
}

func (s *notificationService) sendEmail(ctx context.Context, n *models.Notification, user *models.User, spec *emailSpec) {
	job := email.Job{
		Type:           email.TypeNotification,
		Recipient:      user.Email,
		NotificationID: n.ID,
		Variables: map[string]string{
			"user_name":    user.Name,
			"title":        n.Title,
			"message":      n.Message,
			"action_url":   s.absoluteURL(n.ActionURL),
			"action_label": n.ActionLabel,
		},
	}
	if spec != nil {
		job.Type = spec.emailType
		for k, v := range spec.variables {
			job.Variables[k] = v
		}
	}

	if err := s.emails.Enqueue(ctx, job); err != nil {
		logger.CtxWithError(ctx, "failed to enqueue notification email", err, "notification_id", n.ID)
		channels := make([]string, 0, len(n.Channels))
		for _, ch := range n.Channels {
			if ch != string(models.ChannelEmail) {
				channels = append(channels, ch)
			}
		}
		if err := s.notificationRepo.UpdateChannels(ctx, n.ID, channels); err != nil {
			logger.CtxWithError(ctx, "failed to update notification channels", err, "notification_id", n.ID)
		}
	}
}

func (s *notificationService) absoluteURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return s.portalURL + path
}

// CreateBulk создает уведомления по одному получателю за раз, ошибка одного не прерывает остальных
func (s *notificationService) CreateBulk(ctx context.Context, req *dto.BulkNotificationRequest) (*dto.BulkNotificationResponse, error) {
	if err := validate(s.validator, req); err != nil {
		return nil, err
	}

	recipients, err := s.resolveRecipients(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, apperrors.ErrNoRecipients
	}

	result := &dto.BulkNotificationResponse{
		Total:   len(recipients),
		Results: make([]dto.BulkRecipientResult, 0, len(recipients)),
	}
	for _, userID := range recipients {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.InternalError(err)
		}

		item := dto.BulkRecipientResult{UserID: userID}
		resp, err := s.CreateAndSend(ctx, req.ForRecipient(userID))
		if err != nil {
			item.Error = err.Error()
			result.Failed++
		} else {
			item.Success = true
			item.NotificationID = resp.ID
			result.Succeeded++
		}
		result.Results = append(result.Results, item)
	}

	logger.CtxInfo(ctx, "bulk notification finished",
		"total", result.Total, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

func (s *notificationService) resolveRecipients(ctx context.Context, req *dto.BulkNotificationRequest) ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; ok || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, id := range req.UserIDs {
		add(strings.TrimSpace(id))
	}
	if req.Role != "" {
		users, err := s.userRepo.FindActiveByRole(ctx, models.UserRole(req.Role))
		if err != nil {
			return nil, mapRepoError(err)
		}
		for _, u := range users {
			add(u.ID)
		}
	}
	return ids, nil
}

func (s *notificationService) SendTest(ctx context.Context, userID string) (*dto.NotificationResponse, error) {
	return s.CreateAndSend(ctx, &dto.CreateNotificationRequest{
		UserID:   userID,
		Type:     string(models.NotificationTypeInfo),
		Title:    "Test notification",
		Message:  "Realtime notifications are working for your account.",
		Priority: string(models.PriorityMedium),
		Category: string(models.CategoryGeneral),
		Data:     map[string]interface{}{"test": true},
	})
}

// ---------------- Read state ----------------

func (s *notificationService) GetUserNotifications(ctx context.Context, userID string, criteria dto.NotificationCriteria) (*dto.NotificationListResponse, error) {
	now := s.now()
	notifications, total, err := s.notificationRepo.FindUserNotifications(ctx, userID, repositories.NotificationCriteria{
		UnreadOnly: criteria.UnreadOnly,
		Type:       criteria.Type,
		Category:   criteria.Category,
		Now:        now,
		Page:       criteria.Page,
		PageSize:   criteria.PageSize,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	unread, err := s.notificationRepo.CountUnread(ctx, userID, now)
	if err != nil {
		return nil, mapRepoError(err)
	}

	items := make([]*dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		items = append(items, s.buildResponse(&notifications[i], false))
	}

	totalPages := 0
	if criteria.PageSize > 0 {
		totalPages = int((total + int64(criteria.PageSize) - 1) / int64(criteria.PageSize))
	}

	return &dto.NotificationListResponse{
		Notifications: items,
		UnreadCount:   unread,
		Total:         total,
		Page:          criteria.Page,
		PageSize:      criteria.PageSize,
		TotalPages:    totalPages,
	}, nil
}

func (s *notificationService) GetUnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.notificationRepo.CountUnread(ctx, userID, s.now())
	return count, mapRepoError(err)
}

// owned загружает уведомление и проверяет владельца
func (s *notificationService) owned(ctx context.Context, userID, notificationID string) (*models.Notification, error) {
	notification, err := s.notificationRepo.FindByID(ctx, notificationID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if notification.UserID != userID {
		return nil, apperrors.ErrNotificationAccessDenied
	}
	return notification, nil
}

func (s *notificationService) GetNotification(ctx context.Context, userID, notificationID string) (*dto.NotificationResponse, error) {
	notification, err := s.owned(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if notification.IsExpired(s.now()) {
		return nil, apperrors.ErrNotificationNotFound
	}
	return s.buildResponse(notification, false), nil
}

// MarkAsRead идемпотентен: read_at первого прочтения не меняется
func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) (*dto.NotificationResponse, error) {
	notification, err := s.owned(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if notification.IsRead {
		return s.buildResponse(notification, false), nil
	}

	updated, err := s.notificationRepo.MarkAsRead(ctx, notificationID, s.now())
	if err != nil {
		return nil, mapRepoError(err)
	}
	return s.buildResponse(updated, false), nil
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.notificationRepo.MarkAllAsRead(ctx, userID, s.now())
	return count, mapRepoError(err)
}

func (s *notificationService) DeleteNotification(ctx context.Context, userID, notificationID string) error {
	if _, err := s.owned(ctx, userID, notificationID); err != nil {
		return err
	}
	return mapRepoError(s.notificationRepo.Delete(ctx, notificationID))
}

func (s *notificationService) DeleteReadNotifications(ctx context.Context, userID string) (int64, error) {
	count, err := s.notificationRepo.DeleteReadByUser(ctx, userID)
	return count, mapRepoError(err)
}

func (s *notificationService) CleanupExpired(ctx context.Context, retention time.Duration) (int64, int64, error) {
	now := s.now()
	expired, err := s.notificationRepo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, 0, err
	}
	if retention <= 0 {
		return expired, 0, nil
	}
	old, err := s.notificationRepo.DeleteReadOlderThan(ctx, now.Add(-retention))
	return expired, old, err
}

// ---------------- Support flow factories ----------------

func ticketPath(ticketID string) string {
	return "/support/tickets/" + ticketID
}

func (s *notificationService) NotifyTicketReply(ctx context.Context, ticket *models.SupportTicket, msg *models.TicketMessage) error {
	preview := msg.Message
	if r := []rune(preview); len(r) > 140 {
		preview = string(r[:140]) + "..."
	}
	if preview == "" {
		preview = "sent an attachment"
	}

	_, err := s.createAndSend(ctx, &dto.CreateNotificationRequest{
		UserID:      ticket.UserID,
		Type:        string(models.NotificationTypeUserAction),
		Title:       "New reply to your support ticket",
		Message:     fmt.Sprintf("%s replied on \"%s\": %s", msg.SenderName, ticket.Subject, preview),
		Priority:    string(models.PriorityMedium),
		Category:    string(models.CategorySupport),
		Data:        map[string]interface{}{"ticket_id": ticket.ID, "message_id": msg.ID},
		ActionURL:   ticketPath(ticket.ID),
		ActionLabel: "View ticket",
		Channels:    []string{string(models.ChannelInApp), string(models.ChannelEmail)},
	}, &emailSpec{
		emailType: email.TypeTicketReply,
		variables: map[string]string{
			"subject":     ticket.Subject,
			"sender_name": msg.SenderName,
			"message":     msg.Message,
			"ticket_url":  s.absoluteURL(ticketPath(ticket.ID)),
		},
	})
	return err
}

func (s *notificationService) NotifyTicketStatus(ctx context.Context, ticket *models.SupportTicket, prev models.TicketStatus) error {
	priority := models.PriorityMedium
	if ticket.Status.IsFinal() {
		priority = models.PriorityHigh
	}
	label := strings.ReplaceAll(string(ticket.Status), "_", " ")

	_, err := s.createAndSend(ctx, &dto.CreateNotificationRequest{
		UserID:      ticket.UserID,
		Type:        string(models.NotificationTypeSystem),
		Title:       "Support ticket status updated",
		Message:     fmt.Sprintf("Your ticket \"%s\" is now %s", ticket.Subject, label),
		Priority:    string(priority),
		Category:    string(models.CategorySupport),
		Data:        map[string]interface{}{"ticket_id": ticket.ID, "status": ticket.Status, "previous_status": prev},
		ActionURL:   ticketPath(ticket.ID),
		ActionLabel: "View ticket",
		Channels:    []string{string(models.ChannelInApp), string(models.ChannelEmail)},
	}, &emailSpec{
		emailType: email.TypeTicketStatus,
		variables: map[string]string{
			"subject":          ticket.Subject,
			"status":           label,
			"resolution_notes": ticket.ResolutionNotes,
			"ticket_url":       s.absoluteURL(ticketPath(ticket.ID)),
		},
	})
	return err
}

// ---------------- Helpers ----------------

func (s *notificationService) buildResponse(n *models.Notification, withTimeAgo bool) *dto.NotificationResponse {
	resp := &dto.NotificationResponse{Notification: n}
	if withTimeAgo {
		resp.TimeAgo = TimeAgo(n.CreatedAt, s.now())
	}
	return resp
}
