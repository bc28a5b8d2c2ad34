package ws_test

import (
	"net/http"
	"testing"
	"time"

	"hrportal_backend/internal/models"
	"hrportal_backend/internal/testutil"
	"hrportal_backend/pkg/realtime"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type party struct {
	user  models.User
	token string
	sock  *testutil.SocketConn
}

func newParty(t *testing.T, ts *testutil.TestServer, role models.UserRole, name string) *party {
	user, token := ts.CreateUser(t, role, name)
	sock := ts.RegisteredSocket(t, token, user.ID, string(role), name)
	return &party{user: user, token: token, sock: sock}
}

func createTicket(t *testing.T, ts *testutil.TestServer, token string) string {
	t.Helper()
	res, body := ts.SendRequest(t, http.MethodPost, "/api/support/tickets", token, map[string]string{
		"subject":     "Cannot open assessment",
		"description": "The test link returns an error",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)

	var ticket struct {
		ID string `json:"id"`
	}
	testutil.Decode(t, body, &ticket)
	return ticket.ID
}

func TestSocket_RejectsMissingToken(t *testing.T) {
	ts := testutil.NewTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.DialSocketStatus(t, ""))
	assert.Equal(t, http.StatusUnauthorized, ts.DialSocketStatus(t, "garbage"))
}

func TestSocket_RegisterIdentityMismatch(t *testing.T) {
	ts := testutil.NewTestServer(t)
	user, token := ts.CreateUser(t, models.UserRoleCandidate, "Ann Lee")

	sock := ts.DialSocket(t, token)
	sock.Emit(t, realtime.EventUserRegister, realtime.RegisterPayload{UserID: "someone-else", UserRole: "admin"})

	var ack realtime.RegisteredPayload
	sock.ExpectData(t, realtime.EventUserRegistered, &ack)
	assert.False(t, ack.Success)
	assert.NotEmpty(t, ack.Message)
	sock.ExpectNone(t, realtime.EventError, 200*time.Millisecond)

	// Повторная регистрация правильной личностью проходит
	sock.Emit(t, realtime.EventUserRegister, realtime.RegisterPayload{UserID: user.ID})
	sock.ExpectData(t, realtime.EventUserRegistered, &ack)
	assert.True(t, ack.Success)
}

func TestSocket_RegisterRoleComesFromToken(t *testing.T) {
	ts := testutil.NewTestServer(t)
	cand, token := ts.CreateUser(t, models.UserRoleCandidate, "Ann Lee")
	staff := newParty(t, ts, models.UserRoleAdmin, "Sam Admin")

	sock := ts.RegisteredSocket(t, token, cand.ID, "admin", "Ann Lee")

	res, body := ts.SendRequest(t, http.MethodPost, "/api/notifications", staff.token, map[string]interface{}{
		"user_id":  cand.ID,
		"type":     "alert",
		"title":    "Urgent",
		"message":  "Escalated",
		"priority": "urgent",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)

	sock.Expect(t, realtime.EventNotificationNew)
	staff.sock.Expect(t, realtime.EventNotificationPriority)
	sock.ExpectNone(t, realtime.EventNotificationPriority, 200*time.Millisecond)
}

func TestSocket_EventsRequireRegistration(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := ts.CreateUser(t, models.UserRoleCandidate, "Ann Lee")
	ticketID := createTicket(t, ts, token)

	sock := ts.DialSocket(t, token)
	sock.Emit(t, realtime.EventTicketJoin, realtime.TicketRef{TicketID: ticketID})

	var errEvent realtime.ErrorPayload
	sock.ExpectData(t, realtime.EventError, &errEvent)
	assert.Contains(t, errEvent.Message, "not registered")
}

func TestSocket_InvalidFramesAndUnknownEvents(t *testing.T) {
	ts := testutil.NewTestServer(t)
	_, token := ts.CreateUser(t, models.UserRoleCandidate, "Ann Lee")
	sock := ts.DialSocket(t, token)

	require.NoError(t, sock.Conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	var errEvent realtime.ErrorPayload
	sock.ExpectData(t, realtime.EventError, &errEvent)
	assert.Equal(t, "Invalid message format", errEvent.Message)

	sock.Emit(t, "bogus:event", nil)
	sock.ExpectData(t, realtime.EventError, &errEvent)
	assert.Equal(t, "Unknown event: bogus:event", errEvent.Message)

	// Соединение переживает ошибки
	sock.Emit(t, realtime.EventUserRegister, realtime.RegisterPayload{})
	sock.Expect(t, realtime.EventUserRegistered)
}

func TestSocket_CandidateCannotJoinForeignTicket(t *testing.T) {
	ts := testutil.NewTestServer(t)
	owner := newParty(t, ts, models.UserRoleCandidate, "Ann Lee")
	other := newParty(t, ts, models.UserRoleCandidate, "Bob Stone")
	ticketID := createTicket(t, ts, owner.token)

	other.sock.Emit(t, realtime.EventTicketJoin, realtime.TicketRef{TicketID: ticketID})

	var errEvent realtime.ErrorPayload
	other.sock.ExpectData(t, realtime.EventError, &errEvent)
	assert.Equal(t, "Access to ticket denied", errEvent.Message)
}

func TestSocket_ChatFlowWithAutoStatus(t *testing.T) {
	ts := testutil.NewTestServer(t)
	cand := newParty(t, ts, models.UserRoleCandidate, "Ann Lee")
	staff := newParty(t, ts, models.UserRoleRecruiter, "Rita Recruiter")
	ticketID := createTicket(t, ts, cand.token)

	cand.sock.Emit(t, realtime.EventTicketJoin, realtime.TicketRef{TicketID: ticketID})
	staff.sock.Emit(t, realtime.EventTicketJoin, realtime.TicketRef{TicketID: ticketID})
	require.Eventually(t, func() bool {
		return ts.App.Manager.IsUserInRoom(ticketID, cand.user.ID) && ts.App.Manager.IsUserInRoom(ticketID, staff.user.ID)
	}, testutil.Eventually, 10*time.Millisecond)

	staff.sock.Emit(t, realtime.EventMessageSend, realtime.SendMessagePayload{TicketID: ticketID, Message: "Looking into it"})

	var received struct {
		TicketID string               `json:"ticketId"`
		Message  models.TicketMessage `json:"message"`
	}
	cand.sock.ExpectData(t, realtime.EventMessageReceived, &received)
	assert.Equal(t, ticketID, received.TicketID)
	assert.Equal(t, "Looking into it", received.Message.Message)
	assert.Equal(t, "Rita Recruiter", received.Message.SenderName)
	assert.Equal(t, models.UserRoleRecruiter, received.Message.SenderRole)

	var sent realtime.MessageSentPayload
	staff.sock.ExpectData(t, realtime.EventMessageSent, &sent)
	assert.True(t, sent.Success)

	var status struct {
		TicketID      string                `json:"ticketId"`
		NewStatus     string                `json:"newStatus"`
		SystemMessage *models.TicketMessage `json:"systemMessage"`
	}
	cand.sock.ExpectData(t, realtime.EventTicketStatusUpdated, &status)
	assert.Equal(t, string(models.TicketStatusInProgress), status.NewStatus)
	assert.Nil(t, status.SystemMessage, "автоматическая смена статуса без системного сообщения")

	// Создатель в комнате - уведомление не нужно
	cand.sock.ExpectNone(t, realtime.EventNotificationNew, 300*time.Millisecond)
}

func TestSocket_TypingExcludesSender(t *testing.T) {
	ts := testutil.NewTestServer(t)
	cand := newParty(t, ts, models.UserRoleCandidate, "Ann Lee")
	staff := newParty(t, ts, models.UserRoleInterviewer, "Ivan Interviewer")
	ticketID := createTicket(t, ts, cand.token)

	cand.sock.Emit(t, realtime.EventTypingStart, realtime.TicketRef{TicketID: ticketID})
	var errEvent realtime.ErrorPayload
	cand.sock.ExpectData(t, realtime.EventError, &errEvent)

	cand.sock.Emit(t, realtime.EventTicketJoin, realtime.TicketRef{TicketID: ticketID})
	staff.sock.Emit(t, realtime.EventTicketJoin, realtime.TicketRef{TicketID: ticketID})
	require.Eventually(t, func() bool {
		return ts.App.Manager.IsUserInRoom(ticketID, staff.user.ID) && ts.App.Manager.IsUserInRoom(ticketID, cand.user.ID)
	}, testutil.Eventually, 10*time.Millisecond)

	cand.sock.Emit(t, realtime.EventTypingStart, realtime.TicketRef{TicketID: ticketID})

	var typing realtime.TypingPayload
	staff.sock.ExpectData(t, realtime.EventTypingUserStarted, &typing)
	assert.Equal(t, cand.user.ID, typing.UserID)
	assert.Equal(t, "Ann Lee", typing.UserName)
	cand.sock.ExpectNone(t, realtime.EventTypingUserStarted, 200*time.Millisecond)

	cand.sock.Emit(t, realtime.EventTypingStop, realtime.TicketRef{TicketID: ticketID})
	staff.sock.Expect(t, realtime.EventTypingUserStopped)
}

func TestSocket_StaffReplyNotifiesAbsentCreator(t *testing.T) {
	ts := testutil.NewTestServer(t)
	cand := newParty(t, ts, models.UserRoleCandidate, "Ann Lee")
	staff := newParty(t, ts, models.UserRoleHRManager, "Hana Manager")
	ticketID := createTicket(t, ts, cand.token)

	staff.sock.Emit(t, realtime.EventTicketJoin, realtime.TicketRef{TicketID: ticketID})
	require.Eventually(t, func() bool {
		return ts.App.Manager.IsUserInRoom(ticketID, staff.user.ID)
	}, testutil.Eventually, 10*time.Millisecond)

	staff.sock.Emit(t, realtime.EventMessageSend, realtime.SendMessagePayload{TicketID: ticketID, Message: "Please retry now"})
	staff.sock.Expect(t, realtime.EventMessageSent)

	var notification struct {
		UserID   string `json:"user_id"`
		Category string `json:"category"`
		Read     bool   `json:"read"`
		TimeAgo  string `json:"timeAgo"`
	}
	cand.sock.ExpectData(t, realtime.EventNotificationNew, &notification)
	assert.Equal(t, cand.user.ID, notification.UserID)
	assert.Equal(t, string(models.CategorySupport), notification.Category)
	assert.False(t, notification.Read)
	assert.Equal(t, "just now", notification.TimeAgo)
	cand.sock.ExpectNone(t, realtime.EventMessageReceived, 200*time.Millisecond)
}

func TestSocket_StatusUpdateAndClosedTicket(t *testing.T) {
	ts := testutil.NewTestServer(t)
	cand := newParty(t, ts, models.UserRoleCandidate, "Ann Lee")
	staff := newParty(t, ts, models.UserRoleAdmin, "Sam Admin")
	ticketID := createTicket(t, ts, cand.token)

	cand.sock.Emit(t, realtime.EventTicketUpdateStatus, realtime.UpdateStatusPayload{TicketID: ticketID, Status: "closed"})
	var errEvent realtime.ErrorPayload
	cand.sock.ExpectData(t, realtime.EventError, &errEvent)
	assert.Equal(t, "Only staff members can perform this action", errEvent.Message)

	staff.sock.Emit(t, realtime.EventTicketJoin, realtime.TicketRef{TicketID: ticketID})
	require.Eventually(t, func() bool {
		return ts.App.Manager.IsUserInRoom(ticketID, staff.user.ID)
	}, testutil.Eventually, 10*time.Millisecond)

	staff.sock.Emit(t, realtime.EventTicketUpdateStatus, realtime.UpdateStatusPayload{
		TicketID:        ticketID,
		Status:          "resolved",
		ResolutionNotes: "Link regenerated",
	})

	var status struct {
		NewStatus     string                `json:"newStatus"`
		SystemMessage *models.TicketMessage `json:"systemMessage"`
	}
	staff.sock.ExpectData(t, realtime.EventTicketStatusUpdated, &status)
	assert.Equal(t, "resolved", status.NewStatus)
	require.NotNil(t, status.SystemMessage)
	assert.Equal(t, "Support Team", status.SystemMessage.SenderName)
	assert.Equal(t, models.MessageTypeSystem, status.SystemMessage.MessageType)
	assert.Contains(t, status.SystemMessage.Message, "Link regenerated")

	cand.sock.Expect(t, realtime.EventNotificationNew)

	cand.sock.Emit(t, realtime.EventMessageSend, realtime.SendMessagePayload{TicketID: ticketID, Message: "Thanks"})
	cand.sock.ExpectData(t, realtime.EventError, &errEvent)
	assert.Equal(t, "Ticket is resolved or closed", errEvent.Message)

	// Повтор того же статуса отклоняется
	staff.sock.Emit(t, realtime.EventTicketUpdateStatus, realtime.UpdateStatusPayload{TicketID: ticketID, Status: "resolved"})
	staff.sock.ExpectData(t, realtime.EventError, &errEvent)
	assert.Contains(t, errEvent.Message, "already")
}

func TestSocket_DisconnectClearsPresence(t *testing.T) {
	ts := testutil.NewTestServer(t)
	cand := newParty(t, ts, models.UserRoleCandidate, "Ann Lee")
	require.True(t, ts.App.Manager.IsOnline(cand.user.ID))

	require.NoError(t, cand.sock.Conn.Close())

	require.Eventually(t, func() bool {
		return !ts.App.Manager.IsOnline(cand.user.ID)
	}, testutil.Eventually, 10*time.Millisecond)
}
