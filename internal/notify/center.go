// Package notify реализует центр уведомлений с подавлением дублей.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gokhantonkal0/payda-sub000/internal/model"
)

const (
	defaultSuppressWindow = 2 * time.Second
	defaultToastTTL       = 5 * time.Second
)

// Center ведёт постоянный список уведомлений и временные тосты.
// Одно логическое событие, поднятое несколькими путями кода подряд,
// схлопывается в одну запись по ключу заголовок+сообщение.
type Center struct {
	mu      sync.Mutex
	records []model.Notification
	toasts  []model.Toast

	seen           *expiringSet
	suppressWindow time.Duration
	toastTTL       time.Duration
}

// Option настраивает центр уведомлений.
type Option func(*Center)

// WithSuppressWindow задаёт окно подавления дублей.
func WithSuppressWindow(d time.Duration) Option {
	return func(c *Center) { c.suppressWindow = d }
}

// WithToastTTL задаёт время жизни тоста.
func WithToastTTL(d time.Duration) Option {
	return func(c *Center) { c.toastTTL = d }
}

// NewCenter создаёт центр уведомлений.
func NewCenter(opts ...Option) *Center {
	c := &Center{
		seen:           newExpiringSet(),
		suppressWindow: defaultSuppressWindow,
		toastTTL:       defaultToastTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify регистрирует уведомление. Повторный вызов с теми же заголовком и
// сообщением внутри окна подавления не создаёт новых записей. Возвращает
// true, если уведомление было записано.
func (c *Center) Notify(title, message string, kind model.NotificationKind, icon string) bool {
	key := title + "\x00" + message
	if !c.seen.add(key, c.suppressWindow) {
		return false
	}

	record := model.Notification{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Kind:      kind,
		Icon:      icon,
		CreatedAt: time.Now(),
	}
	toast := model.Toast{
		ID:      uuid.NewString(),
		Title:   title,
		Message: message,
		Kind:    kind,
		Icon:    icon,
	}

	c.mu.Lock()
	// Свежие записи впереди.
	c.records = append([]model.Notification{record}, c.records...)
	c.toasts = append(c.toasts, toast)
	c.mu.Unlock()

	time.AfterFunc(c.toastTTL, func() {
		c.removeToast(toast.ID)
	})

	return true
}

func (c *Center) removeToast(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, t := range c.toasts {
		if t.ID == id {
			c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
			return
		}
	}
}

// MarkRead помечает прочитанной ровно одну запись с указанным идентификатором.
func (c *Center) MarkRead(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.records {
		if c.records[i].ID == id {
			c.records[i].Read = true
			return
		}
	}
}

// ClearAll очищает постоянный список уведомлений.
// Уже запланированные удаления тостов не затрагиваются.
func (c *Center) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = nil
}

// Records возвращает копию постоянного списка уведомлений, свежие впереди.
func (c *Center) Records() []model.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Notification, len(c.records))
	copy(out, c.records)
	return out
}

// Toasts возвращает копию списка активных тостов.
func (c *Center) Toasts() []model.Toast {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Toast, len(c.toasts))
	copy(out, c.toasts)
	return out
}
