package testutil

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"hrportal_backend/pkg/realtime"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// SocketConn - тестовый клиент сокета; кадры читаются в фоне
type SocketConn struct {
	Conn   *websocket.Conn
	frames chan realtime.Envelope
}

// WSURL - адрес /ws тестового сервера
func (ts *TestServer) WSURL() string {
	return "ws" + strings.TrimPrefix(ts.Server.URL, "http") + "/ws"
}

// DialSocket подключается с токеном в query
func (ts *TestServer) DialSocket(t *testing.T, token string) *SocketConn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(ts.WSURL()+"?token="+token, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)

	s := &SocketConn{Conn: conn, frames: make(chan realtime.Envelope, 64)}
	go s.read()
	t.Cleanup(func() { conn.Close() })
	return s
}

// DialSocketStatus - неудачный апгрейд; возвращает HTTP статус
func (ts *TestServer) DialSocketStatus(t *testing.T, token string) int {
	t.Helper()

	url := ts.WSURL()
	if token != "" {
		url += "?token=" + token
	}
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		conn.Close()
		return http.StatusSwitchingProtocols
	}
	require.NotNil(t, resp, "ожидался HTTP ответ: %v", err)
	defer resp.Body.Close()
	return resp.StatusCode
}

// RegisteredSocket - подключение и user:register с ожиданием подтверждения
func (ts *TestServer) RegisteredSocket(t *testing.T, token, userID, role, name string) *SocketConn {
	t.Helper()

	s := ts.DialSocket(t, token)
	s.Emit(t, realtime.EventUserRegister, realtime.RegisterPayload{UserID: userID, UserRole: role, UserName: name})

	var ack realtime.RegisteredPayload
	s.ExpectData(t, realtime.EventUserRegistered, &ack)
	require.True(t, ack.Success, "регистрация отклонена: %s", ack.Message)
	return s
}

func (s *SocketConn) read() {
	defer close(s.frames)
	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			return
		}
		var env realtime.Envelope
		if json.Unmarshal(raw, &env) == nil {
			s.frames <- env
		}
	}
}

func (s *SocketConn) Emit(t *testing.T, event string, payload interface{}) {
	t.Helper()
	frame, err := realtime.Encode(event, payload)
	require.NoError(t, err)
	require.NoError(t, s.Conn.WriteMessage(websocket.TextMessage, frame))
}

// Expect ждет событие, пропуская остальные кадры
func (s *SocketConn) Expect(t *testing.T, event string) realtime.Envelope {
	t.Helper()

	deadline := time.After(Eventually)
	for {
		select {
		case env, ok := <-s.frames:
			require.True(t, ok, "соединение закрыто в ожидании %s", event)
			if env.Event == event {
				return env
			}
		case <-deadline:
			t.Fatalf("не дождались события %s", event)
		}
	}
}

func (s *SocketConn) ExpectData(t *testing.T, event string, out interface{}) {
	t.Helper()
	env := s.Expect(t, event)
	require.NoError(t, json.Unmarshal(env.Data, out))
}

// ExpectNone проверяет, что событие не пришло за window
func (s *SocketConn) ExpectNone(t *testing.T, event string, window time.Duration) {
	t.Helper()

	deadline := time.After(window)
	for {
		select {
		case env, ok := <-s.frames:
			if !ok {
				return
			}
			if env.Event == event {
				t.Fatalf("неожиданное событие %s: %s", event, string(env.Data))
			}
		case <-deadline:
			return
		}
	}
}

// Closed ждет закрытия соединения сервером
func (s *SocketConn) Closed(t *testing.T) {
	t.Helper()

	deadline := time.After(Eventually)
	for {
		select {
		case _, ok := <-s.frames:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("соединение не закрыто")
		}
	}
}
