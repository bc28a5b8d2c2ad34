package repositories

import "gorm.io/gorm"

// Container - набор репозиториев одного хранилища
type Container struct {
	Users         UserRepository
	Notifications NotificationRepository
	Tickets       TicketRepository
}

func NewGormContainer(db *gorm.DB) *Container {
	return &Container{
		Users:         NewUserRepository(db),
		Notifications: NewNotificationRepository(db),
		Tickets:       NewTicketRepository(db),
	}
}

func NewMemoryContainer(store *MemoryStore) *Container {
	return &Container{
		Users:         store.Users(),
		Notifications: store.Notifications(),
		Tickets:       store.Tickets(),
	}
}
