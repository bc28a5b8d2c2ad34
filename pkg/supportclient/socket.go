package supportclient

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"hrportal_backend/pkg/realtime"

	"github.com/gorilla/websocket"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateRegistered   State = "registered"
	StateReconnecting State = "reconnecting"
)

// Локальные события фасада, сервер их не присылает
const (
	EventConnect         = "connect"
	EventDisconnect      = "disconnect"
	EventReconnect       = "reconnect"
	EventConnectError    = "connect_error"
	EventReconnectFailed = "reconnect_failed"
)

// ReasonClientDisconnect - причина в событии disconnect после явного Disconnect
const ReasonClientDisconnect = "io client disconnect"

// ReasonServerDisconnect - сервер закрыл соединение штатно, переподключения нет.
// ReasonTransportClose - обрыв или остановка сервера, переподключаемся.
const (
	ReasonServerDisconnect = "io server disconnect"
	ReasonTransportClose   = "transport close"
)

var ErrNotConnected = errors.New("socket is not connected")

type Options struct {
	// URL - ws(s)://host/ws
	URL string
	// Token - JWT; уходит в ?token=
	Token  string
	Dialer *websocket.Dialer

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// MaxAttempts - 0 значит переподключаться бесконечно
	MaxAttempts int
	// ConnectWarnAfter - только предупреждение в лог, подключение не отменяется
	ConnectWarnAfter time.Duration

	Logger *slog.Logger
}

// Socket - одно соединение на процесс, к которому подписываются разные экраны
type Socket struct {
	opts Options

	mu        sync.Mutex
	state     State
	identity  *Identity
	conn      *websocket.Conn
	cancel    context.CancelFunc
	listeners map[string]map[uint64]Handler
	nextID    uint64

	writeMu sync.Mutex
}

type DisconnectInfo struct {
	Reason string `json:"reason"`
}

type ConnectErrorInfo struct {
	Message string `json:"message"`
	Attempt int    `json:"attempt"`
}

func NewSocket(opts Options) *Socket {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 10 * time.Second
	}
	if opts.ConnectWarnAfter <= 0 {
		opts.ConnectWarnAfter = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Socket{
		opts:      opts,
		state:     StateDisconnected,
		listeners: make(map[string]map[uint64]Handler),
	}
}

func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ---------------- Lifecycle ----------------

// Connect запоминает личность и подключается в фоне.
// Если соединение уже есть, личность отправляется сразу.
func (s *Socket) Connect(identity Identity) {
	s.mu.Lock()
	s.identity = &identity

	if s.cancel != nil {
		connected := s.conn != nil
		s.mu.Unlock()
		if connected {
			s.register()
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = StateConnecting
	s.mu.Unlock()

	time.AfterFunc(s.opts.ConnectWarnAfter, func() {
		if st := s.State(); st == StateConnecting || st == StateReconnecting {
			s.opts.Logger.Warn("socket connection is taking longer than expected",
				"url", s.opts.URL, "after", s.opts.ConnectWarnAfter, "state", st)
		}
	})

	go s.run(ctx)
}

// Disconnect забывает личность и останавливает переподключение
func (s *Socket) Disconnect() {
	s.mu.Lock()
	s.identity = nil
	cancel, conn := s.cancel, s.conn
	s.cancel = nil
	s.conn = nil
	wasActive := cancel != nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		s.writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.writeMu.Unlock()
		conn.Close()
	}
	if wasActive {
		s.dispatchLocal(EventDisconnect, DisconnectInfo{Reason: ReasonClientDisconnect})
	}
}

func (s *Socket) run(ctx context.Context) {
	attempt := 0
	sessions := 0

	for {
		conn, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			attempt++
			s.dispatchLocal(EventConnectError, ConnectErrorInfo{Message: err.Error(), Attempt: attempt})
			if s.opts.MaxAttempts > 0 && attempt >= s.opts.MaxAttempts {
				s.giveUp(ctx)
				return
			}
			if !s.sleep(ctx, s.backoff(attempt)) {
				return
			}
			continue
		}

		if !s.attach(ctx, conn) {
			conn.Close()
			return
		}
		attempt = 0
		sessions++

		s.dispatchLocal(EventConnect, nil)
		if sessions > 1 {
			s.dispatchLocal(EventReconnect, nil)
		}
		s.register()

		reason := s.readLoop(conn)
		if ctx.Err() != nil {
			return
		}

		if reason == ReasonServerDisconnect {
			s.closedByServer(ctx, conn)
			return
		}

		// Неожиданный обрыв: личность остается, переподключаемся
		s.mu.Lock()
		if s.conn == conn {
			s.conn = nil
		}
		s.state = StateReconnecting
		s.mu.Unlock()
		conn.Close()
		s.dispatchLocal(EventDisconnect, DisconnectInfo{Reason: reason})

		if !s.sleep(ctx, s.opts.InitialBackoff) {
			return
		}
	}
}

func (s *Socket) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(s.opts.URL)
	if err != nil {
		return nil, err
	}
	if s.opts.Token != "" {
		q := u.Query()
		q.Set("token", s.opts.Token)
		u.RawQuery = q.Encode()
	}
	conn, _, err := s.opts.Dialer.DialContext(ctx, u.String(), nil)
	return conn, err
}

// attach публикует соединение, если за время дозвона не было Disconnect
func (s *Socket) attach(ctx context.Context, conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	s.conn = conn
	s.state = StateConnected
	return true
}

func (s *Socket) giveUp(ctx context.Context) {
	if !s.stop(ctx) {
		return
	}
	s.dispatchLocal(EventReconnectFailed, nil)
}

// closedByServer - сервер сам закрыл соединение: личность остается, новый Connect начнет заново
func (s *Socket) closedByServer(ctx context.Context, conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	conn.Close()

	if !s.stop(ctx) {
		return
	}
	s.dispatchLocal(EventDisconnect, DisconnectInfo{Reason: ReasonServerDisconnect})
}

// stop освобождает контекст цикла, если его еще не остановил Disconnect
func (s *Socket) stop(ctx context.Context) bool {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	cancel := s.cancel
	s.cancel = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	return true
}

func (s *Socket) backoff(attempt int) time.Duration {
	d := s.opts.InitialBackoff
	for i := 1; i < attempt && d < s.opts.MaxBackoff; i++ {
		d *= 2
	}
	if d > s.opts.MaxBackoff {
		d = s.opts.MaxBackoff
	}
	return d
}

func (s *Socket) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// register отправляет сохраненную личность; повторная регистрация на сервере идемпотентна
func (s *Socket) register() {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()
	if identity == nil {
		return
	}

	if err := s.Emit(realtime.EventUserRegister, realtime.RegisterPayload{
		UserID:   identity.UserID,
		UserRole: identity.UserRole,
		UserName: identity.UserName,
	}); err != nil {
		s.opts.Logger.Warn("socket registration failed", "error", err.Error())
		return
	}

	s.mu.Lock()
	if s.conn != nil {
		s.state = StateRegistered
	}
	s.mu.Unlock()
}

func (s *Socket) readLoop(conn *websocket.Conn) string {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return ReasonServerDisconnect
			}
			return ReasonTransportClose
		}

		var env realtime.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			s.opts.Logger.Warn("malformed socket frame", "error", err.Error())
			continue
		}
		s.dispatch(env.Event, env.Data)
	}
}

// ---------------- Emit ----------------

func (s *Socket) Emit(event string, data any) error {
	frame, err := realtime.Encode(event, data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (s *Socket) JoinTicket(ticketID string) error {
	return s.Emit(realtime.EventTicketJoin, realtime.TicketRef{TicketID: ticketID})
}

func (s *Socket) LeaveTicket(ticketID string) error {
	return s.Emit(realtime.EventTicketLeave, realtime.TicketRef{TicketID: ticketID})
}

func (s *Socket) SendMessage(ticketID, message string, attachments []Attachment) error {
	payload := realtime.SendMessagePayload{
		TicketID:    ticketID,
		Message:     message,
		MessageType: realtime.MessageTypeText,
	}
	if len(attachments) > 0 {
		payload.Attachments = attachments
	}
	return s.Emit(realtime.EventMessageSend, payload)
}

func (s *Socket) StartTyping(ticketID string) error {
	return s.Emit(realtime.EventTypingStart, realtime.TicketRef{TicketID: ticketID})
}

func (s *Socket) StopTyping(ticketID string) error {
	return s.Emit(realtime.EventTypingStop, realtime.TicketRef{TicketID: ticketID})
}

func (s *Socket) UpdateTicketStatus(ticketID, status, resolutionNotes string) error {
	return s.Emit(realtime.EventTicketUpdateStatus, realtime.UpdateStatusPayload{
		TicketID:        ticketID,
		Status:          status,
		ResolutionNotes: resolutionNotes,
	})
}

// ---------------- Listeners ----------------

func (s *Socket) On(event string, h Handler) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	if s.listeners[event] == nil {
		s.listeners[event] = make(map[uint64]Handler)
	}
	s.listeners[event][id] = h
	return &Subscription{socket: s, event: event, id: id}
}

// Group - набор подписок, снимаемых одним Cleanup
func (s *Socket) Group() *Group {
	return &Group{socket: s}
}

// ListenerCount - для диагностики утечек подписок
func (s *Socket) ListenerCount(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners[event])
}

func (s *Socket) removeListener(event string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners[event], id)
	if len(s.listeners[event]) == 0 {
		delete(s.listeners, event)
	}
}

func (s *Socket) dispatchLocal(event string, payload any) {
	var data json.RawMessage
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			data = raw
		}
	}
	s.dispatch(event, data)
}

// dispatch вызывает обработчики вне блокировки, чтобы они могли подписываться и отписываться
func (s *Socket) dispatch(event string, data json.RawMessage) {
	s.mu.Lock()
	handlers := make([]Handler, 0, len(s.listeners[event]))
	for _, h := range s.listeners[event] {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(data)
	}
}
