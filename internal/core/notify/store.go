package notify

import (
	"context"
	"sync"
	"time"
)

// Level represents the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification represents a single notification event.
type Notification struct {
	ID        int64     `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists notifications.
type Store interface {
	Save(ctx context.Context, n Notification) (int64, error)
	List(ctx context.Context) ([]Notification, error)
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// Memory is a bounded in-process Store. Once full, the oldest notification
// is discarded on each save.
type Memory struct {
	mu     sync.Mutex
	limit  int
	nextID int64
	items  []Notification
}

var _ Store = (*Memory)(nil)

// NewMemory creates a store holding at most limit notifications. A limit of
// zero or less keeps everything.
func NewMemory(limit int) *Memory {
	return &Memory{limit: limit}
}

// Save stores n and returns its assigned ID.
func (m *Memory) Save(_ context.Context, n Notification) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	n.ID = m.nextID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	m.items = append(m.items, n)
	if m.limit > 0 && len(m.items) > m.limit {
		m.items = m.items[len(m.items)-m.limit:]
	}
	return n.ID, nil
}

// List returns notifications, newest first.
func (m *Memory) List(_ context.Context) ([]Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Notification, len(m.items))
	for i, n := range m.items {
		out[len(m.items)-1-i] = n
	}
	return out, nil
}

// Clear removes all notifications.
func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	return nil
}

// Count returns the number of stored notifications.
func (m *Memory) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.items)), nil
}
