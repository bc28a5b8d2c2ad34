package supportclient

import (
	"encoding/json"
	"sync"
)

// Handler получает data события как есть
type Handler func(data json.RawMessage)

// Subscription - явный дескриптор подписки; Unsubscribe можно вызывать повторно
type Subscription struct {
	socket *Socket
	event  string
	id     uint64
	once   sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.socket.removeListener(s.event, s.id)
	})
}

// Group собирает подписки одного экрана; Cleanup снимает ровно их
type Group struct {
	socket *Socket
	mu     sync.Mutex
	subs   []*Subscription
}

func (g *Group) On(event string, h Handler) *Subscription {
	sub := g.socket.On(event, h)
	g.mu.Lock()
	g.subs = append(g.subs, sub)
	g.mu.Unlock()
	return sub
}

func (g *Group) Cleanup() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

// Len - активные подписки группы
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// Decode - обертка для типизированных обработчиков
func Decode[T any](fn func(T)) Handler {
	return func(data json.RawMessage) {
		var v T
		if len(data) > 0 {
			if err := json.Unmarshal(data, &v); err != nil {
				return
			}
		}
		fn(v)
	}
}
