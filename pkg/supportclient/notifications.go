package supportclient

import (
	"context"
	"sync"
	"time"

	"hrportal_backend/pkg/realtime"
)

// NotificationAPI - часть REST-клиента, которая нужна кэшу
type NotificationAPI interface {
	ListNotifications(ctx context.Context, opts ListOptions) (*NotificationList, error)
	MarkAsRead(ctx context.Context, id string) (*Notification, error)
	MarkAllAsRead(ctx context.Context) (int64, error)
	DeleteNotification(ctx context.Context, id string) error
}

var _ NotificationAPI = (*API)(nil)

type Snapshot struct {
	Notifications []Notification
	UnreadCount   int64
}

// inverse откатывает одно оптимистичное изменение
type inverse func(c *NotificationCache)

// NotificationCache - локальная копия уведомлений, новые сверху
type NotificationCache struct {
	api NotificationAPI
	now func() time.Time

	mu    sync.Mutex
	items []Notification
	// offPage - непрочитанные на сервере, которые не попали в загруженную страницу
	offPage int64
	unread  int64

	listeners map[uint64]func(Snapshot)
	nextID    uint64
	group     *Group
}

func NewNotificationCache(api NotificationAPI) *NotificationCache {
	return &NotificationCache{
		api:       api,
		now:       time.Now,
		listeners: make(map[uint64]func(Snapshot)),
	}
}

func (c *NotificationCache) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *NotificationCache) UnreadCount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unread
}

// OnChange возвращает функцию отписки
func (c *NotificationCache) OnChange(fn func(Snapshot)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// Attach подписывает кэш на notification:new; повторный Attach снимает старую подписку
func (c *NotificationCache) Attach(socket *Socket) {
	group := socket.Group()
	group.On(realtime.EventNotificationNew, Decode(func(n Notification) {
		c.Add(n)
	}))

	c.mu.Lock()
	prev := c.group
	c.group = group
	c.mu.Unlock()

	if prev != nil {
		prev.Cleanup()
	}
}

func (c *NotificationCache) Detach() {
	c.mu.Lock()
	group := c.group
	c.group = nil
	c.mu.Unlock()

	if group != nil {
		group.Cleanup()
	}
}

// ---------------- Sync ----------------

// Load заменяет содержимое кэша ответом сервера
func (c *NotificationCache) Load(ctx context.Context, opts ListOptions) error {
	list, err := c.api.ListNotifications(ctx, opts)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.items = append([]Notification(nil), list.Notifications...)
	c.offPage = list.UnreadCount - countUnread(c.items)
	if c.offPage < 0 {
		c.offPage = 0
	}
	c.recountLocked()
	c.mu.Unlock()

	c.notify()
	return nil
}

// Add - входящее notification:new; дубликаты по id игнорируются
func (c *NotificationCache) Add(n Notification) {
	c.mu.Lock()
	if c.indexLocked(n.ID) >= 0 {
		c.mu.Unlock()
		return
	}
	c.items = append([]Notification{n}, c.items...)
	c.recountLocked()
	c.mu.Unlock()

	c.notify()
}

// ---------------- Optimistic updates ----------------

func (c *NotificationCache) MarkAsRead(ctx context.Context, id string) error {
	undo := c.apply(func() inverse {
		i := c.indexLocked(id)
		if i < 0 || c.items[i].Read {
			return nil
		}
		prevReadAt := c.items[i].ReadAt
		readAt := c.now()
		c.items[i].Read = true
		c.items[i].ReadAt = &readAt

		return func(c *NotificationCache) {
			if j := c.indexLocked(id); j >= 0 {
				c.items[j].Read = false
				c.items[j].ReadAt = prevReadAt
			}
		}
	})

	updated, err := c.api.MarkAsRead(ctx, id)
	if err != nil {
		c.rollback(undo)
		return err
	}

	if updated != nil && updated.ReadAt != nil {
		c.mu.Lock()
		if j := c.indexLocked(id); j >= 0 {
			c.items[j].ReadAt = updated.ReadAt
		}
		c.mu.Unlock()
	}
	return nil
}

func (c *NotificationCache) MarkAllAsRead(ctx context.Context) error {
	undo := c.apply(func() inverse {
		readAt := c.now()
		var flipped []string
		for i := range c.items {
			if !c.items[i].Read {
				c.items[i].Read = true
				c.items[i].ReadAt = &readAt
				flipped = append(flipped, c.items[i].ID)
			}
		}
		prevOffPage := c.offPage
		c.offPage = 0

		if len(flipped) == 0 && prevOffPage == 0 {
			return nil
		}
		return func(c *NotificationCache) {
			for _, id := range flipped {
				if j := c.indexLocked(id); j >= 0 {
					c.items[j].Read = false
					c.items[j].ReadAt = nil
				}
			}
			c.offPage = prevOffPage
		}
	})

	if _, err := c.api.MarkAllAsRead(ctx); err != nil {
		c.rollback(undo)
		return err
	}
	return nil
}

func (c *NotificationCache) Delete(ctx context.Context, id string) error {
	undo := c.apply(func() inverse {
		i := c.indexLocked(id)
		if i < 0 {
			return nil
		}
		removed := c.items[i]
		c.items = append(c.items[:i:i], c.items[i+1:]...)

		return func(c *NotificationCache) {
			if c.indexLocked(removed.ID) >= 0 {
				return
			}
			pos := i
			if pos > len(c.items) {
				pos = len(c.items)
			}
			c.items = append(c.items[:pos], append([]Notification{removed}, c.items[pos:]...)...)
		}
	})

	if err := c.api.DeleteNotification(ctx, id); err != nil {
		c.rollback(undo)
		return err
	}
	return nil
}

// apply выполняет изменение под блокировкой и уведомляет слушателей
func (c *NotificationCache) apply(change func() inverse) inverse {
	c.mu.Lock()
	undo := change()
	c.recountLocked()
	c.mu.Unlock()

	if undo != nil {
		c.notify()
	}
	return undo
}

func (c *NotificationCache) rollback(undo inverse) {
	if undo == nil {
		return
	}
	c.mu.Lock()
	undo(c)
	c.recountLocked()
	c.mu.Unlock()

	c.notify()
}

// ---------------- Internals ----------------

func (c *NotificationCache) indexLocked(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *NotificationCache) recountLocked() {
	c.unread = c.offPage + countUnread(c.items)
}

func (c *NotificationCache) snapshotLocked() Snapshot {
	return Snapshot{
		Notifications: append([]Notification(nil), c.items...),
		UnreadCount:   c.unread,
	}
}

func (c *NotificationCache) notify() {
	c.mu.Lock()
	snap := c.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func countUnread(items []Notification) int64 {
	var n int64
	for i := range items {
		if !items[i].Read {
			n++
		}
	}
	return n
}
