package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"hrportal_backend/internal/auth"
	"hrportal_backend/internal/logger"
	"hrportal_backend/internal/metrics"
	"hrportal_backend/internal/services"
	"hrportal_backend/pkg/realtime"
)

var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrNotRegistered     = errors.New("connection is not registered")
	ErrManagerStopped    = errors.New("websocket manager stopped")
)

var _ services.Broadcaster = (*WebSocketManager)(nil)

const publishTimeout = 2 * time.Second

type Options struct {
	SendBuffer int
	// Broker - nil означает доставку только локальным соединениям
	Broker Broker
}

// WebSocketManager владеет соединениями, presence и комнатами тикетов.
// register/unregister проходят через Run, чтение состояния - под mu.
type WebSocketManager struct {
	clients  map[string]*Client
	presence *Presence
	rooms    *Rooms
	mu       sync.RWMutex

	register   chan registration
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	broker     Broker
	sendBuffer int
}

// registration закрывает added, когда соединение уже в clients
type registration struct {
	client *Client
	added  chan struct{}
}

type Stats struct {
	Connections int `json:"connections"`
	Registered  int `json:"registered"`
	Users       int `json:"users"`
	Rooms       int `json:"rooms"`
}

func NewWebSocketManager(opts Options) *WebSocketManager {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	return &WebSocketManager{
		clients:    make(map[string]*Client),
		presence:   NewPresence(),
		rooms:      NewRooms(),
		register:   make(chan registration),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		broker:     opts.Broker,
		sendBuffer: opts.SendBuffer,
	}
}

func (manager *WebSocketManager) Run(ctx context.Context) {
	if manager.broker != nil {
		go manager.consumeBroker(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			manager.shutdown()
			return

		case reg := <-manager.register:
			manager.mu.Lock()
			manager.clients[reg.client.ID] = reg.client
			total := len(manager.clients)
			manager.mu.Unlock()
			close(reg.added)
			metrics.WSConnections.Set(float64(total))
			logger.WSLog("connect", reg.client.ID, reg.client.authed.UserID, nil)

		case client := <-manager.unregister:
			manager.remove(client)
		}
	}
}

// Register возвращается только после того, как соединение видно Identify и Join
func (manager *WebSocketManager) Register(client *Client) error {
	reg := registration{client: client, added: make(chan struct{})}
	select {
	case manager.register <- reg:
	case <-manager.done:
		return ErrManagerStopped
	}
	<-reg.added
	return nil
}

func (manager *WebSocketManager) Unregister(client *Client) {
	select {
	case manager.unregister <- client:
	case <-manager.done:
	}
}

// remove забывает соединение везде и закрывает его очередь отправки
func (manager *WebSocketManager) remove(client *Client) {
	manager.mu.Lock()
	current, ok := manager.clients[client.ID]
	if !ok || current != client {
		manager.mu.Unlock()
		return
	}
	delete(manager.clients, client.ID)
	manager.presence.Forget(client.ID)
	manager.rooms.LeaveAll(client.ID)
	close(client.send)
	total, users := len(manager.clients), manager.presence.Users()
	manager.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	metrics.WSRegisteredUsers.Set(float64(users))
	logger.WSLog("disconnect", client.ID, client.authed.UserID, nil)
}

func (manager *WebSocketManager) shutdown() {
	manager.stopOnce.Do(func() {
		manager.mu.Lock()
		for id, client := range manager.clients {
			close(client.send)
			delete(manager.clients, id)
		}
		manager.presence = NewPresence()
		manager.rooms = NewRooms()
		manager.mu.Unlock()
		close(manager.done)

		if manager.broker != nil {
			if err := manager.broker.Close(); err != nil {
				logger.Warn("broker close failed", "error", err.Error())
			}
		}
		metrics.WSConnections.Set(0)
		metrics.WSRegisteredUsers.Set(0)
		logger.Info("websocket manager stopped")
	})
}

func (manager *WebSocketManager) consumeBroker(ctx context.Context) {
	for {
		err := manager.broker.Subscribe(ctx, manager.Deliver)
		if ctx.Err() != nil {
			return
		}
		logger.Warn("broker subscription interrupted, retrying", "error", errString(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// ---------------- Presence & rooms ----------------

// Identify связывает соединение с личностью
func (manager *WebSocketManager) Identify(connID string, identity auth.Identity) error {
	manager.mu.Lock()
	if _, ok := manager.clients[connID]; !ok {
		manager.mu.Unlock()
		return ErrUnknownConnection
	}
	manager.presence.Register(connID, identity)
	users := manager.presence.Users()
	manager.mu.Unlock()

	metrics.WSRegisteredUsers.Set(float64(users))
	return nil
}

func (manager *WebSocketManager) IdentityOf(connID string) (auth.Identity, bool) {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return manager.presence.Identity(connID)
}

func (manager *WebSocketManager) Join(connID, ticketID string) error {
	manager.mu.Lock()
	defer manager.mu.Unlock()
	if _, ok := manager.clients[connID]; !ok {
		return ErrUnknownConnection
	}
	if _, ok := manager.presence.Identity(connID); !ok {
		return ErrNotRegistered
	}
	manager.rooms.Join(connID, ticketID)
	return nil
}

func (manager *WebSocketManager) Leave(connID, ticketID string) {
	manager.mu.Lock()
	manager.rooms.Leave(connID, ticketID)
	manager.mu.Unlock()
}

func (manager *WebSocketManager) RoomsOf(connID string) []string {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return manager.rooms.RoomsOf(connID)
}

func (manager *WebSocketManager) InRoom(connID, ticketID string) bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return manager.rooms.IsMember(connID, ticketID)
}

func (manager *WebSocketManager) IsOnline(userID string) bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return manager.presence.IsOnline(userID)
}

// IsUserInRoom - хотя бы одно соединение пользователя в комнате тикета
func (manager *WebSocketManager) IsUserInRoom(ticketID, userID string) bool {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	for _, connID := range manager.presence.Connections(userID) {
		if manager.rooms.IsMember(connID, ticketID) {
			return true
		}
	}
	return false
}

func (manager *WebSocketManager) Stats() Stats {
	manager.mu.RLock()
	defer manager.mu.RUnlock()
	return Stats{
		Connections: len(manager.clients),
		Registered:  manager.presence.Count(),
		Users:       manager.presence.Users(),
		Rooms:       manager.rooms.Count(),
	}
}

// ---------------- Fan-out ----------------

func (manager *WebSocketManager) EmitToUser(userID, event string, payload any) {
	manager.emit(Target{Scope: ScopeUser, Key: userID}, event, payload)
}

func (manager *WebSocketManager) EmitToAdmins(event string, payload any) {
	manager.emit(Target{Scope: ScopeAdmins}, event, payload)
}

func (manager *WebSocketManager) EmitToRoom(ticketID, event string, payload any) {
	manager.emit(Target{Scope: ScopeRoom, Key: ticketID}, event, payload)
}

// EmitToRoomExcept - то же, но без соединения-отправителя (typing)
func (manager *WebSocketManager) EmitToRoomExcept(ticketID, excludeConnID, event string, payload any) {
	manager.emit(Target{Scope: ScopeRoom, Key: ticketID, Exclude: excludeConnID}, event, payload)
}

// SendTo отвечает одному соединению этого инстанса (ack, error)
func (manager *WebSocketManager) SendTo(connID, event string, payload any) {
	frame, err := realtime.Encode(event, payload)
	if err != nil {
		logger.Error("failed to encode socket event", "event", event, "error", err.Error())
		return
	}
	manager.Deliver(BrokerMessage{Target: Target{Scope: ScopeConn, Key: connID}, Frame: frame})
}

func (manager *WebSocketManager) emit(target Target, event string, payload any) {
	frame, err := realtime.Encode(event, payload)
	if err != nil {
		logger.Error("failed to encode socket event", "event", event, "error", err.Error())
		return
	}
	metrics.RecordRealtimePush(target.Scope, event)

	msg := BrokerMessage{Target: target, Frame: frame}
	if manager.broker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := manager.broker.Publish(ctx, msg)
		cancel()
		if err == nil {
			return
		}
		// Брокер недоступен - доставляем хотя бы своим соединениям
		logger.Warn("broker publish failed, delivering locally", "event", event, "scope", target.Scope, "error", err.Error())
	}
	manager.Deliver(msg)
}

// Deliver кладет кадр в очереди локальных соединений адресата.
// Соединение с переполненной очередью отключается.
func (manager *WebSocketManager) Deliver(msg BrokerMessage) {
	var slow []*Client

	manager.mu.RLock()
	var ids []string
	switch msg.Target.Scope {
	case ScopeUser:
		ids = manager.presence.Connections(msg.Target.Key)
	case ScopeAdmins:
		ids = manager.presence.Admins()
	case ScopeRoom:
		ids = manager.rooms.Members(msg.Target.Key)
	case ScopeConn:
		ids = []string{msg.Target.Key}
	}
	for _, id := range ids {
		if id == msg.Target.Exclude {
			continue
		}
		client, ok := manager.clients[id]
		if !ok {
			continue
		}
		select {
		case client.send <- []byte(msg.Frame):
		default:
			slow = append(slow, client)
		}
	}
	manager.mu.RUnlock()

	for _, client := range slow {
		metrics.WSDroppedConnections.Inc()
		logger.Warn("dropping slow websocket client", "conn_id", client.ID, "user_id", client.authed.UserID)
		manager.remove(client)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
