package ws

// Rooms - комнаты тикетов; join/leave работают как операции над множеством.
// Не потокобезопасен, владелец - WebSocketManager.
type Rooms struct {
	members map[string]map[string]struct{} // ticketID -> connIDs
	joined  map[string]map[string]struct{} // connID -> ticketIDs
}

func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[string]map[string]struct{}),
		joined:  make(map[string]map[string]struct{}),
	}
}

func (r *Rooms) Join(connID, ticketID string) {
	add(r.members, ticketID, connID)
	add(r.joined, connID, ticketID)
}

func (r *Rooms) Leave(connID, ticketID string) {
	remove(r.members, ticketID, connID)
	remove(r.joined, connID, ticketID)
}

// LeaveAll вызывается при отключении
func (r *Rooms) LeaveAll(connID string) {
	for ticketID := range r.joined[connID] {
		remove(r.members, ticketID, connID)
	}
	delete(r.joined, connID)
}

func (r *Rooms) Members(ticketID string) []string {
	return keys(r.members[ticketID])
}

func (r *Rooms) RoomsOf(connID string) []string {
	return keys(r.joined[connID])
}

func (r *Rooms) IsMember(connID, ticketID string) bool {
	_, ok := r.members[ticketID][connID]
	return ok
}

// Count - непустые комнаты
func (r *Rooms) Count() int {
	return len(r.members)
}

func add(index map[string]map[string]struct{}, key, value string) {
	set, ok := index[key]
	if !ok {
		set = make(map[string]struct{})
		index[key] = set
	}
	set[value] = struct{}{}
}

func remove(index map[string]map[string]struct{}, key, value string) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, value)
	if len(set) == 0 {
		delete(index, key)
	}
}
