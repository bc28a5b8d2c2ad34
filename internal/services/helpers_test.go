package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"hrportal_backend/internal/auth"
	"hrportal_backend/internal/email"
	"hrportal_backend/internal/models"
	"hrportal_backend/internal/repositories"
	"hrportal_backend/internal/validator"

	"github.com/stretchr/testify/require"
)

type emitted struct {
	scope   string
	key     string
	event   string
	payload any
}

// recordingBroadcaster запоминает события вместо доставки
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []emitted
	online map[string]bool
	inRoom map[string]bool // ticketID + "/" + userID
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{online: map[string]bool{}, inRoom: map[string]bool{}}
}

func (b *recordingBroadcaster) record(e emitted) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) EmitToUser(userID, event string, payload any) {
	b.record(emitted{scope: "user", key: userID, event: event, payload: payload})
}

func (b *recordingBroadcaster) EmitToAdmins(event string, payload any) {
	b.record(emitted{scope: "admins", event: event, payload: payload})
}

func (b *recordingBroadcaster) EmitToRoom(ticketID, event string, payload any) {
	b.record(emitted{scope: "room", key: ticketID, event: event, payload: payload})
}

func (b *recordingBroadcaster) IsOnline(userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online[userID]
}

func (b *recordingBroadcaster) IsUserInRoom(ticketID, userID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inRoom[ticketID+"/"+userID]
}

func (b *recordingBroadcaster) byEvent(event string) []emitted {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []emitted
	for _, e := range b.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

// fakeQueue - очередь писем в памяти; err имитирует недоступный брокер
type fakeQueue struct {
	mu   sync.Mutex
	jobs []email.Job
	err  error
}

func (q *fakeQueue) Enqueue(_ context.Context, job email.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) sent() []email.Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]email.Job(nil), q.jobs...)
}

type fixture struct {
	store         *repositories.MemoryStore
	repos         *repositories.Container
	broadcaster   *recordingBroadcaster
	queue         *fakeQueue
	notifications *notificationService
	tickets       *ticketService
	now           time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repositories.NewMemoryStore()
	repos := repositories.NewMemoryContainer(store)
	b := newRecordingBroadcaster()
	q := &fakeQueue{}
	v := validator.New()
	now := time.Now().UTC()

	ns := NewNotificationService(repos.Notifications, repos.Users, b, q, v, "https://portal.example.com").(*notificationService)
	ns.now = func() time.Time { return now }
	ts := NewTicketService(repos.Tickets, repos.Users, ns, b, v).(*ticketService)
	ts.now = func() time.Time { return now }

	return &fixture{
		store:         store,
		repos:         repos,
		broadcaster:   b,
		queue:         q,
		notifications: ns,
		tickets:       ts,
		now:           now,
	}
}

func (f *fixture) user(t *testing.T, role models.UserRole, name string) auth.Identity {
	t.Helper()
	u := &models.User{Email: name + "@example.com", Name: name, Role: role, IsActive: true}
	require.NoError(t, f.repos.Users.Upsert(context.Background(), u))
	return auth.Identity{UserID: u.ID, Role: role, Name: name}
}
