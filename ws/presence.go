package ws

import "hrportal_backend/internal/auth"

// Presence - кто подключен: соединение -> личность, пользователь -> соединения.
// Не потокобезопасен, владелец - WebSocketManager.
type Presence struct {
	identities map[string]auth.Identity
	byUser     map[string]map[string]struct{}
	admins     map[string]struct{}
}

func NewPresence() *Presence {
	return &Presence{
		identities: make(map[string]auth.Identity),
		byUser:     make(map[string]map[string]struct{}),
		admins:     make(map[string]struct{}),
	}
}

// Register идемпотентен; повторная регистрация с другим пользователем переносит соединение
func (p *Presence) Register(connID string, identity auth.Identity) {
	if prev, ok := p.identities[connID]; ok && prev.UserID != identity.UserID {
		p.unlink(connID, prev.UserID)
	}
	p.identities[connID] = identity

	conns, ok := p.byUser[identity.UserID]
	if !ok {
		conns = make(map[string]struct{})
		p.byUser[identity.UserID] = conns
	}
	conns[connID] = struct{}{}

	if identity.IsStaff() {
		p.admins[connID] = struct{}{}
	} else {
		delete(p.admins, connID)
	}
}

// Forget удаляет соединение; для незарегистрированных соединений ничего не делает
func (p *Presence) Forget(connID string) {
	identity, ok := p.identities[connID]
	if !ok {
		return
	}
	delete(p.identities, connID)
	delete(p.admins, connID)
	p.unlink(connID, identity.UserID)
}

func (p *Presence) unlink(connID, userID string) {
	conns := p.byUser[userID]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(p.byUser, userID)
	}
}

func (p *Presence) Identity(connID string) (auth.Identity, bool) {
	identity, ok := p.identities[connID]
	return identity, ok
}

func (p *Presence) Connections(userID string) []string {
	return keys(p.byUser[userID])
}

func (p *Presence) Admins() []string {
	return keys(p.admins)
}

func (p *Presence) IsOnline(userID string) bool {
	return len(p.byUser[userID]) > 0
}

// Count - зарегистрированные соединения
func (p *Presence) Count() int {
	return len(p.identities)
}

// Users - пользователи хотя бы с одним соединением
func (p *Presence) Users() int {
	return len(p.byUser)
}

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
