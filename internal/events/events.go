package events

import (
	"context"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// EventFileIngested is emitted when a transaction file is ingested
	EventFileIngested EventType = "transaction_file.ingested"
	// EventSummariesComputed is emitted when seller summaries are computed
	EventSummariesComputed EventType = "seller_summaries.computed"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// FileIngestedData contains data for file ingested events.
type FileIngestedData struct {
	Filename string
	Records  int
}

// SummariesComputedData contains data for summaries computed events.
type SummariesComputedData struct {
	Sellers    int
	ComputedAt time.Time
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	// Execute handlers asynchronously to avoid blocking
	for _, handler := range handlers {
		go func(h Handler) {
			if err := h(ctx, event); err != nil {
				// In production, you might want to log this or send to error tracking
				_ = err
			}
		}(handler)
	}
}

// PublishFileIngested publishes a file ingested event.
func (m *Manager) PublishFileIngested(ctx context.Context, filename string, records int) {
	m.Publish(ctx, EventFileIngested, FileIngestedData{
		Filename: filename,
		Records:  records,
	})
}

// PublishSummariesComputed publishes a summaries computed event.
func (m *Manager) PublishSummariesComputed(ctx context.Context, sellers int) {
	m.Publish(ctx, EventSummariesComputed, SummariesComputedData{
		Sellers:    sellers,
		ComputedAt: time.Now(),
	})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
