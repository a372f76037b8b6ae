package service

import (
	"sync"
	"time"

	"github.com/thetyagiayush/warhol-ringmaster/internal/domain"
)

// DefaultFeedCapacity bounds how many undelivered notifications are kept
const DefaultFeedCapacity = 100

// NotificationFeed is the operator's toast queue. Managers publish to it and
// the front end drains it. The oldest entries are dropped when it is full.
type NotificationFeed struct {
	mu       sync.Mutex
	items    []domain.Notification
	capacity int
	nextID   uint64
	now      func() time.Time
}

func NewNotificationFeed(capacity int) *NotificationFeed {
	if capacity <= 0 {
		capacity = DefaultFeedCapacity
	}
	return &NotificationFeed{
		capacity: capacity,
		now:      time.Now,
	}
}

// Success publishes a default toast
func (f *NotificationFeed) Success(title, description string) domain.Notification {
	return f.Publish(domain.NotificationSuccess, title, description)
}

// Error publishes a destructive toast
func (f *NotificationFeed) Error(title, description string) domain.Notification {
	return f.Publish(domain.NotificationError, title, description)
}

func (f *NotificationFeed) Publish(level domain.NotificationLevel, title, description string) domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	n := domain.Notification{
		ID:          f.nextID,
		Level:       level,
		Title:       title,
		Description: description,
		CreatedAt:   f.now(),
	}

	if len(f.items) >= f.capacity {
		f.items = append(f.items[:0], f.items[len(f.items)-f.capacity+1:]...)
	}
	f.items = append(f.items, n)
	return n
}

// Drain returns every pending notification, oldest first, and empties the feed
func (f *NotificationFeed) Drain() []domain.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.Notification, len(f.items))
	copy(out, f.items)
	f.items = f.items[:0]
	return out
}

// Pending returns the number of undelivered notifications
func (f *NotificationFeed) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func (f *NotificationFeed) publishValidation(err *ValidationError) {
	f.Error(err.Title, err.Description)
}

func (f *NotificationFeed) publishBackend(err *BackendError) {
	f.Error(err.Title, err.Description)
}
