package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"hrportal_backend/internal/email"
	"hrportal_backend/internal/models"
	"hrportal_backend/internal/services/dto"
	"hrportal_backend/pkg/apperrors"
	"hrportal_backend/pkg/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notificationRequest(userID string) *dto.CreateNotificationRequest {
	return &dto.CreateNotificationRequest{
		UserID:  userID,
		Type:    string(models.NotificationTypeTestAssignment),
		Title:   "New assessment",
		Message: "You have been assigned a coding test",
	}
}

func TestCreateAndSend_DefaultsForOfflineUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cand := f.user(t, models.UserRoleCandidate, "ann")

	resp, err := f.notifications.CreateAndSend(ctx, notificationRequest(cand.UserID))
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, models.PriorityMedium, resp.Priority)
	assert.Equal(t, models.CategoryGeneral, resp.Category)
	assert.False(t, resp.IsRead)
	assert.Equal(t, []string{"in_app"}, []string(resp.Channels))
	assert.Equal(t, "just now", resp.TimeAgo)

	pushed := f.broadcaster.byEvent(realtime.EventNotificationNew)
	require.Len(t, pushed, 1)
	assert.Equal(t, cand.UserID, pushed[0].key)
	assert.Empty(t, f.broadcaster.byEvent(realtime.EventNotificationPriority))
	assert.Empty(t, f.queue.sent())

	stored, err := f.repos.Notifications.FindByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "New assessment", stored.Title)
}

func TestCreateAndSend_UrgentOnlineWithEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cand := f.user(t, models.UserRoleCandidate, "ann")
	f.broadcaster.online[cand.UserID] = true

	req := notificationRequest(cand.UserID)
	req.Priority = string(models.PriorityUrgent)
	req.ActionURL = "/assessments/42"
	req.Channels = []string{"in_app", "email"}

	resp, err := f.notifications.CreateAndSend(ctx, req)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"in_app", "email", "realtime"}, []string(resp.Channels))
	require.Len(t, f.broadcaster.byEvent(realtime.EventNotificationPriority), 1)
	assert.Equal(t, "admins", f.broadcaster.byEvent(realtime.EventNotificationPriority)[0].scope)

	jobs := f.queue.sent()
	require.Len(t, jobs, 1)
	assert.Equal(t, email.TypeNotification, jobs[0].Type)
	assert.Equal(t, "ann@example.com", jobs[0].Recipient)
	assert.Equal(t, resp.ID, jobs[0].NotificationID)
	assert.Equal(t, "https://portal.example.com/assessments/42", jobs[0].Variables["action_url"])
}

func TestCreateAndSend_EmailEnqueueFailureDropsChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cand := f.user(t, models.UserRoleCandidate, "ann")
	f.queue.err = errors.New("broker down")

	req := notificationRequest(cand.UserID)
	req.Channels = []string{"email"}

	resp, err := f.notifications.CreateAndSend(ctx, req)
	require.NoError(t, err, "сбой доставки не откатывает запись")

	stored, err := f.repos.Notifications.FindByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"in_app"}, []string(stored.Channels))
}

func TestCreateAndSend_EmailSkippedForUnknownUser(t *testing.T) {
	f := newFixture(t)

	req := notificationRequest("00000000-0000-0000-0000-000000000001")
	req.Channels = []string{"email"}

	resp, err := f.notifications.CreateAndSend(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"in_app"}, []string(resp.Channels))
	assert.Empty(t, f.queue.sent())
}

func TestCreateAndSend_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := notificationRequest("u1")
	req.Type = "party"
	_, err := f.notifications.CreateAndSend(ctx, req)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)

	past := f.now.Add(-time.Hour)
	req = notificationRequest("u1")
	req.ExpiresAt = &past
	_, err = f.notifications.CreateAndSend(ctx, req)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)

	assert.Empty(t, f.broadcaster.byEvent(realtime.EventNotificationNew))
}

func TestCreateBulk_DeduplicatesRecipients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.user(t, models.UserRoleRecruiter, "rita")
	r2 := f.user(t, models.UserRoleRecruiter, "rob")
	cand := f.user(t, models.UserRoleCandidate, "ann")

	result, err := f.notifications.CreateBulk(ctx, &dto.BulkNotificationRequest{
		UserIDs: []string{r1.UserID, cand.UserID, cand.UserID},
		Role:    string(models.UserRoleRecruiter),
		Type:    string(models.NotificationTypeReminder),
		Title:   "Interview week",
		Message: "Slots open on Monday",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Succeeded)
	assert.Equal(t, 0, result.Failed)

	var ids []string
	for _, r := range result.Results {
		ids = append(ids, r.UserID)
	}
	assert.ElementsMatch(t, []string{r1.UserID, r2.UserID, cand.UserID}, ids)
	assert.Len(t, f.broadcaster.byEvent(realtime.EventNotificationNew), 3)
}

func TestCreateBulk_NoRecipients(t *testing.T) {
	f := newFixture(t)

	_, err := f.notifications.CreateBulk(context.Background(), &dto.BulkNotificationRequest{
		Role:    string(models.UserRoleInterviewer),
		Type:    string(models.NotificationTypeInfo),
		Title:   "Hello",
		Message: "Nobody is listening",
	})
	assert.ErrorIs(t, err, apperrors.ErrNoRecipients)
}

func TestMarkAsRead_IdempotentAndOwned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cand := f.user(t, models.UserRoleCandidate, "ann")
	other := f.user(t, models.UserRoleCandidate, "bob")

	created, err := f.notifications.CreateAndSend(ctx, notificationRequest(cand.UserID))
	require.NoError(t, err)

	count, err := f.notifications.GetUnreadCount(ctx, cand.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	first, err := f.notifications.MarkAsRead(ctx, cand.UserID, created.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)
	assert.True(t, first.IsRead)

	f.notifications.now = func() time.Time { return f.now.Add(time.Hour) }
	second, err := f.notifications.MarkAsRead(ctx, cand.UserID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.ReadAt, *second.ReadAt, "read_at первого прочтения не меняется")

	count, err = f.notifications.GetUnreadCount(ctx, cand.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	_, err = f.notifications.MarkAsRead(ctx, other.UserID, created.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotificationAccessDenied)

	_, err = f.notifications.MarkAsRead(ctx, cand.UserID, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)
}

func TestReadStateBulkOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cand := f.user(t, models.UserRoleCandidate, "ann")

	for i := 0; i < 3; i++ {
		_, err := f.notifications.CreateAndSend(ctx, notificationRequest(cand.UserID))
		require.NoError(t, err)
	}

	updated, err := f.notifications.MarkAllAsRead(ctx, cand.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	updated, err = f.notifications.MarkAllAsRead(ctx, cand.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)

	_, err = f.notifications.CreateAndSend(ctx, notificationRequest(cand.UserID))
	require.NoError(t, err)

	deleted, err := f.notifications.DeleteReadNotifications(ctx, cand.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	list, err := f.notifications.GetUserNotifications(ctx, cand.UserID, dto.NotificationCriteria{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 1)
	assert.Equal(t, int64(1), list.UnreadCount)
}

func TestDeleteNotification_Owned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cand := f.user(t, models.UserRoleCandidate, "ann")
	other := f.user(t, models.UserRoleCandidate, "bob")

	created, err := f.notifications.CreateAndSend(ctx, notificationRequest(cand.UserID))
	require.NoError(t, err)

	assert.ErrorIs(t, f.notifications.DeleteNotification(ctx, other.UserID, created.ID), apperrors.ErrNotificationAccessDenied)
	require.NoError(t, f.notifications.DeleteNotification(ctx, cand.UserID, created.ID))
	assert.ErrorIs(t, f.notifications.DeleteNotification(ctx, cand.UserID, created.ID), apperrors.ErrNotificationNotFound)
}

func TestGetUserNotifications_HidesExpiredAndPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cand := f.user(t, models.UserRoleCandidate, "ann")

	for i := 0; i < 5; i++ {
		_, err := f.notifications.CreateAndSend(ctx, notificationRequest(cand.UserID))
		require.NoError(t, err)
	}
	expiredAt := f.now.Add(-time.Minute)
	require.NoError(t, f.repos.Notifications.Create(ctx, &models.Notification{
		UserID:    cand.UserID,
		Title:     "Old",
		Type:      models.NotificationTypeInfo,
		Priority:  models.PriorityLow,
		Category:  models.CategoryGeneral,
		ExpiresAt: &expiredAt,
	}))

	list, err := f.notifications.GetUserNotifications(ctx, cand.UserID, dto.NotificationCriteria{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), list.Total)
	assert.Equal(t, 3, list.TotalPages)
	assert.Len(t, list.Notifications, 2)
	assert.Equal(t, int64(5), list.UnreadCount)
	for _, n := range list.Notifications {
		assert.Empty(t, n.TimeAgo, "timeAgo только в realtime-событии")
	}

	expired, old, err := f.notifications.CleanupExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)
	assert.Equal(t, int64(0), old)
}

func TestNotifyTicketReply_UsesTicketEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cand := f.user(t, models.UserRoleCandidate, "ann")

	ticket := &models.SupportTicket{UserID: cand.UserID, Subject: "Login issue"}
	ticket.EnsureID()
	msg := &models.TicketMessage{TicketID: ticket.ID, SenderName: "Rita", Message: "Fixed, please retry"}
	msg.EnsureID()

	require.NoError(t, f.notifications.NotifyTicketReply(ctx, ticket, msg))

	pushed := f.broadcaster.byEvent(realtime.EventNotificationNew)
	require.Len(t, pushed, 1)
	resp := pushed[0].payload.(*dto.NotificationResponse)
	assert.Equal(t, models.CategorySupport, resp.Category)
	assert.Equal(t, "/support/tickets/"+ticket.ID, resp.ActionURL)
	assert.Contains(t, resp.Message, "Rita replied")

	jobs := f.queue.sent()
	require.Len(t, jobs, 1)
	assert.Equal(t, email.TypeTicketReply, jobs[0].Type)
	assert.Equal(t, "https://portal.example.com/support/tickets/"+ticket.ID, jobs[0].Variables["ticket_url"])
}
