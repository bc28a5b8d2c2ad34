package repositories

import (
	"context"
	"testing"
	"time"

	"hrportal_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotification(userID string, createdAt time.Time) *models.Notification {
	n := &models.Notification{
		UserID:   userID,
		Title:    "Interview",
		Type:     models.NotificationTypeReminder,
		Priority: models.PriorityMedium,
		Category: models.CategoryGeneral,
	}
	n.CreatedAt = createdAt
	return n
}

func TestMemoryNotifications_ListAndCount(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Notifications()
	now := time.Now().UTC()

	older := newNotification("u-1", now.Add(-2*time.Hour))
	newer := newNotification("u-1", now.Add(-time.Hour))
	expired := newNotification("u-1", now.Add(-3*time.Hour))
	past := now.Add(-time.Minute)
	expired.ExpiresAt = &past
	foreign := newNotification("u-2", now)

	for _, n := range []*models.Notification{older, newer, expired, foreign} {
		require.NoError(t, repo.Create(ctx, n))
		require.NotEmpty(t, n.ID)
	}

	list, total, err := repo.FindUserNotifications(ctx, "u-1", NotificationCriteria{Now: now, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "истекшие скрыты")
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID, "новые первыми")

	list, _, err = repo.FindUserNotifications(ctx, "u-1", NotificationCriteria{Now: now, Page: 2, PageSize: 1})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, older.ID, list[0].ID)

	count, err := repo.CountUnread(ctx, "u-1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMemoryNotifications_ReadAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Notifications()
	now := time.Now().UTC()

	a := newNotification("u-1", now)
	b := newNotification("u-1", now)
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	read, err := repo.MarkAsRead(ctx, a.ID, now)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	firstReadAt := *read.ReadAt

	again, err := repo.MarkAsRead(ctx, a.ID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, firstReadAt, *again.ReadAt, "повторное прочтение не меняет read_at")

	// Возвращается копия
	again.Title = "changed"
	stored, err := repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Interview", stored.Title)

	changed, err := repo.MarkAllAsRead(ctx, "u-1", now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	require.NoError(t, repo.UpdateChannels(ctx, a.ID, []string{"in_app", "realtime"}))
	stored, err = repo.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasChannel(models.ChannelRealtime))

	deleted, err := repo.DeleteReadByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	assert.ErrorIs(t, repo.Delete(ctx, a.ID), ErrNotificationNotFound)
	_, err = repo.MarkAsRead(ctx, "missing", now)
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestMemoryNotifications_Cleanup(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Notifications()
	now := time.Now().UTC()

	expired := newNotification("u-1", now)
	at := now.Add(-time.Second)
	expired.ExpiresAt = &at
	oldRead := newNotification("u-1", now.Add(-100*24*time.Hour))
	fresh := newNotification("u-1", now)
	for _, n := range []*models.Notification{expired, oldRead, fresh} {
		require.NoError(t, repo.Create(ctx, n))
	}
	_, err := repo.MarkAsRead(ctx, oldRead.ID, now)
	require.NoError(t, err)

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteReadOlderThan(ctx, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.FindByID(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestMemoryTickets_MessagesAndUnread(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Tickets()

	ticket := &models.SupportTicket{
		UserID:   "u-1",
		Subject:  "Timer froze",
		Status:   models.TicketStatusOpen,
		Messages: []models.TicketMessage{{Message: "first", MessageType: models.MessageTypeText}},
	}
	require.NoError(t, repo.Create(ctx, ticket))
	require.NotEmpty(t, ticket.Messages[0].ID)
	assert.Equal(t, ticket.ID, ticket.Messages[0].TicketID)

	reply := &models.TicketMessage{TicketID: ticket.ID, Message: "which browser?", MessageType: models.MessageTypeText}
	require.NoError(t, repo.AppendMessage(ctx, reply, true))
	followUp := &models.TicketMessage{TicketID: ticket.ID, Message: "chrome", MessageType: models.MessageTypeText}
	require.NoError(t, repo.AppendMessage(ctx, followUp, false))

	full, err := repo.FindWithMessages(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, full.Messages, 3)
	assert.Equal(t, 1, full.UnreadUser)
	assert.Equal(t, 1, full.UnreadStaff)
	require.NotNil(t, full.LastMessageAt)

	require.NoError(t, repo.ResetUnread(ctx, ticket.ID, false))
	stored, err := repo.FindByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.UnreadUser)
	assert.Equal(t, 1, stored.UnreadStaff)

	assert.ErrorIs(t, repo.AppendMessage(ctx, &models.TicketMessage{TicketID: "missing"}, false), ErrTicketNotFound)
}

func TestMemoryTickets_FindAndStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Tickets()
	now := time.Now().UTC()

	mine := &models.SupportTicket{UserID: "u-1", Status: models.TicketStatusOpen, Priority: models.TicketPriorityHigh}
	other := &models.SupportTicket{UserID: "u-2", Status: models.TicketStatusOpen}
	require.NoError(t, repo.Create(ctx, mine))
	require.NoError(t, repo.Create(ctx, other))

	list, total, err := repo.FindTickets(ctx, TicketCriteria{UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, mine.ID, list[0].ID)

	_, total, err = repo.FindTickets(ctx, TicketCriteria{Status: "open"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	mine.ApplyStatus(models.TicketStatusClosed, "done", now)
	require.NoError(t, repo.UpdateStatus(ctx, mine))

	stored, err := repo.FindByID(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusClosed, stored.Status)
	assert.Equal(t, "done", stored.ResolutionNotes)
	require.NotNil(t, stored.ClosedAt)
	require.NotNil(t, stored.ResolvedAt)

	_, total, err = repo.FindTickets(ctx, TicketCriteria{Status: "open"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestMemoryUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Users()

	active := &models.User{Email: "a@example.com", Name: "A", Role: models.UserRoleInterviewer, IsActive: true}
	inactive := &models.User{Email: "b@example.com", Name: "B", Role: models.UserRoleInterviewer}
	require.NoError(t, repo.Upsert(ctx, active))
	require.NoError(t, repo.Upsert(ctx, inactive))

	byRole, err := repo.FindActiveByRole(ctx, models.UserRoleInterviewer)
	require.NoError(t, err)
	require.Len(t, byRole, 1)
	assert.Equal(t, active.ID, byRole[0].ID)

	found, err := repo.FindByIDs(ctx, []string{active.ID, "missing", inactive.ID})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
