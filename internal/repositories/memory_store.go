package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"hrportal_backend/internal/models"

	"github.com/lib/pq"
)

// MemoryStore - реализация репозиториев в памяти для database.driver=memory и тестов.
// Возвращает копии, чтобы вызывающий код не менял хранимые записи.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]models.User
	notifications map[string]models.Notification
	tickets       map[string]models.SupportTicket
	messages      map[string][]models.TicketMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]models.User),
		notifications: make(map[string]models.Notification),
		tickets:       make(map[string]models.SupportTicket),
		messages:      make(map[string][]models.TicketMessage),
	}
}

func (s *MemoryStore) Users() UserRepository                 { return memoryUsers{s} }
func (s *MemoryStore) Notifications() NotificationRepository { return memoryNotifications{s} }
func (s *MemoryStore) Tickets() TicketRepository             { return memoryTickets{s} }

func page[T any](items []T, pageNum, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	start := 0
	if pageNum > 1 {
		start = (pageNum - 1) * pageSize
	}
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// ---------------- Users ----------------

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (r memoryUsers) FindByIDs(_ context.Context, ids []string) ([]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r memoryUsers) FindActiveByRole(_ context.Context, role models.UserRole) ([]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.User
	for _, u := range r.s.users {
		if u.Role == role && u.IsActive {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memoryUsers) Upsert(_ context.Context, user *models.User) error {
	user.EnsureID()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[user.ID] = *user
	return nil
}

// ---------------- Notifications ----------------

type memoryNotifications struct{ s *MemoryStore }

func cloneNotification(n models.Notification) models.Notification {
	n.Channels = append(pq.StringArray(nil), n.Channels...)
	if n.ReadAt != nil {
		at := *n.ReadAt
		n.ReadAt = &at
	}
	return n
}

func (r memoryNotifications) Create(_ context.Context, n *models.Notification) error {
	n.EnsureID()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notifications[n.ID] = cloneNotification(*n)
	return nil
}

func (r memoryNotifications) UpdateChannels(_ context.Context, id string, channels []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Channels = append(pq.StringArray(nil), channels...)
	r.s.notifications[id] = n
	return nil
}

func (r memoryNotifications) FindByID(_ context.Context, id string) (*models.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	n = cloneNotification(n)
	return &n, nil
}

func (r memoryNotifications) FindUserNotifications(_ context.Context, userID string, c NotificationCriteria) ([]models.Notification, int64, error) {
	r.s.mu.RLock()
	var matched []models.Notification
	for _, n := range r.s.notifications {
		if n.UserID != userID || n.IsExpired(c.Now) {
			continue
		}
		if c.UnreadOnly && n.IsRead {
			continue
		}
		if c.Type != "" && string(n.Type) != c.Type {
			continue
		}
		if c.Category != "" && string(n.Category) != c.Category {
			continue
		}
		matched = append(matched, cloneNotification(n))
	}
	r.s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	return page(matched, c.Page, c.PageSize), int64(len(matched)), nil
}

func (r memoryNotifications) CountUnread(_ context.Context, userID string, now time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var count int64
	for _, n := range r.s.notifications {
		if n.UserID == userID && !n.IsRead && !n.IsExpired(now) {
			count++
		}
	}
	return count, nil
}

func (r memoryNotifications) MarkAsRead(_ context.Context, id string, at time.Time) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notifications[id]
	if !ok {
		return nil, ErrNotificationNotFound
	}
	if n.MarkRead(at) {
		n.UpdatedAt = at
		r.s.notifications[id] = n
	}
	n = cloneNotification(n)
	return &n, nil
}

func (r memoryNotifications) MarkAllAsRead(_ context.Context, userID string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var changed int64
	for id, n := range r.s.notifications {
		if n.UserID == userID && n.MarkRead(at) {
			n.UpdatedAt = at
			r.s.notifications[id] = n
			changed++
		}
	}
	return changed, nil
}

func (r memoryNotifications) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notifications[id]; !ok {
		return ErrNotificationNotFound
	}
	delete(r.s.notifications, id)
	return nil
}

func (r memoryNotifications) deleteWhere(match func(models.Notification) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var removed int64
	for id, n := range r.s.notifications {
		if match(n) {
			delete(r.s.notifications, id)
			removed++
		}
	}
	return removed
}

func (r memoryNotifications) DeleteReadByUser(_ context.Context, userID string) (int64, error) {
	return r.deleteWhere(func(n models.Notification) bool { return n.UserID == userID && n.IsRead }), nil
}

func (r memoryNotifications) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return r.deleteWhere(func(n models.Notification) bool {
		return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
	}), nil
}

func (r memoryNotifications) DeleteReadOlderThan(_ context.Context, before time.Time) (int64, error) {
	return r.deleteWhere(func(n models.Notification) bool { return n.IsRead && n.CreatedAt.Before(before) }), nil
}

// ---------------- Tickets ----------------

type memoryTickets struct{ s *MemoryStore }

func (r memoryTickets) Create(_ context.Context, t *models.SupportTicket) error {
	t.EnsureID()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *t
	stored.Messages = nil
	r.s.tickets[t.ID] = stored
	for i := range t.Messages {
		m := &t.Messages[i]
		m.TicketID = t.ID
		m.EnsureID()
		r.s.messages[t.ID] = append(r.s.messages[t.ID], *m)
	}
	return nil
}

func (r memoryTickets) FindByID(_ context.Context, id string) (*models.SupportTicket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return &t, nil
}

func (r memoryTickets) FindWithMessages(_ context.Context, id string) (*models.SupportTicket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, ErrTicketNotFound
	}
	t.Messages = append([]models.TicketMessage(nil), r.s.messages[id]...)
	return &t, nil
}

func (r memoryTickets) FindTickets(_ context.Context, c TicketCriteria) ([]models.SupportTicket, int64, error) {
	r.s.mu.RLock()
	var matched []models.SupportTicket
	for _, t := range r.s.tickets {
		if c.UserID != "" && t.UserID != c.UserID {
			continue
		}
		if c.Status != "" && string(t.Status) != c.Status {
			continue
		}
		if c.Priority != "" && string(t.Priority) != c.Priority {
			continue
		}
		if c.Category != "" && string(t.Category) != c.Category {
			continue
		}
		matched = append(matched, t)
	}
	r.s.mu.RUnlock()

	activity := func(t models.SupportTicket) time.Time {
		if t.LastMessageAt != nil {
			return *t.LastMessageAt
		}
		return t.CreatedAt
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return activity(matched[i]).After(activity(matched[j]))
	})
	return page(matched, c.Page, c.PageSize), int64(len(matched)), nil
}

func (r memoryTickets) AppendMessage(_ context.Context, msg *models.TicketMessage, fromStaff bool) error {
	msg.EnsureID()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[msg.TicketID]
	if !ok {
		return ErrTicketNotFound
	}
	if fromStaff {
		t.UnreadUser++
	} else {
		t.UnreadStaff++
	}
	at := msg.CreatedAt
	t.LastMessageAt = &at
	t.UpdatedAt = time.Now().UTC()
	r.s.tickets[t.ID] = t
	r.s.messages[t.ID] = append(r.s.messages[t.ID], *msg)
	return nil
}

func (r memoryTickets) UpdateStatus(_ context.Context, ticket *models.SupportTicket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[ticket.ID]
	if !ok {
		return ErrTicketNotFound
	}
	t.Status = ticket.Status
	t.ResolutionNotes = ticket.ResolutionNotes
	t.ResolvedAt = ticket.ResolvedAt
	t.ClosedAt = ticket.ClosedAt
	t.UpdatedAt = ticket.UpdatedAt
	r.s.tickets[t.ID] = t
	return nil
}

func (r memoryTickets) ResetUnread(_ context.Context, id string, staff bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return ErrTicketNotFound
	}
	if staff {
		t.UnreadStaff = 0
	} else {
		t.UnreadUser = 0
	}
	r.s.tickets[id] = t
	return nil
}
