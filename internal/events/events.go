package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"card-rewards-api/internal/catalog"
)

// EventType represents the type of event.
type EventType string

const (
	// EventCardUpserted is emitted when a card is created or updated
	EventCardUpserted EventType = "card.upserted"
	// EventCardDeleted is emitted when a card is removed from the catalog
	EventCardDeleted EventType = "card.deleted"
	// EventRecommendationGenerated is emitted after a ranking is produced
	EventRecommendationGenerated EventType = "recommendation.generated"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// CardUpsertedData contains data for card upserted events.
type CardUpsertedData struct {
	Card catalog.CardDocument
}

// CardDeletedData contains data for card deleted events.
type CardDeletedData struct {
	CardID string
}

// RecommendationGeneratedData contains data for recommendation events.
type RecommendationGeneratedData struct {
	RequestID   string
	TopCardID   string // empty when nothing was recommended
	CardsRanked int
	CatalogSize int
	GeneratedAt time.Time
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
	logger   *zap.Logger
	inflight sync.WaitGroup
}

// NewManager creates a new event manager.
func NewManager(enabled bool, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
		logger:   logger,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return
	}

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run in
// their own goroutines and never see the caller's cancellation.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	m.mu.RLock()
	enabled := m.enabled
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if !enabled || len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	ctx = context.WithoutCancel(ctx)
	for _, handler := range handlers {
		m.inflight.Add(1)
		go func(h Handler) {
			defer m.inflight.Done()
			if err := h(ctx, event); err != nil {
				m.logger.Warn("event handler failed",
					zap.String("event", string(event.Type)),
					zap.Error(err),
				)
			}
		}(handler)
	}
}

// PublishCardUpserted publishes a card upserted event.
func (m *Manager) PublishCardUpserted(ctx context.Context, card catalog.CardDocument) {
	m.Publish(ctx, EventCardUpserted, CardUpsertedData{Card: card})
}

// PublishCardDeleted publishes a card deleted event.
func (m *Manager) PublishCardDeleted(ctx context.Context, cardID string) {
	m.Publish(ctx, EventCardDeleted, CardDeletedData{CardID: cardID})
}

// PublishRecommendationGenerated publishes a recommendation generated event.
func (m *Manager) PublishRecommendationGenerated(ctx context.Context, data RecommendationGeneratedData) {
	if data.GeneratedAt.IsZero() {
		data.GeneratedAt = time.Now()
	}
	m.Publish(ctx, EventRecommendationGenerated, data)
}

// Wait blocks until every running handler has returned.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

// Shutdown stops accepting events and waits for running handlers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
	m.mu.Unlock()

	m.Wait()
}
