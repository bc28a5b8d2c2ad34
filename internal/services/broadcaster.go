package services

// Broadcaster - доставка событий в каналы сокета. Доставка best-effort:
// ошибки не возвращаются, запись в БД остается источником истины.
type Broadcaster interface {
	EmitToUser(userID, event string, payload any)
	EmitToAdmins(event string, payload any)
	EmitToRoom(ticketID, event string, payload any)
	IsOnline(userID string) bool
	IsUserInRoom(ticketID, userID string) bool
}

// NopBroadcaster используется, когда хаб не запущен
type NopBroadcaster struct{}

func (NopBroadcaster) EmitToUser(string, string, any)   {}
func (NopBroadcaster) EmitToAdmins(string, any)         {}
func (NopBroadcaster) EmitToRoom(string, string, any)   {}
func (NopBroadcaster) IsOnline(string) bool             { return false }
func (NopBroadcaster) IsUserInRoom(string, string) bool { return false }
