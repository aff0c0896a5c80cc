package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"card-rewards-api/internal/catalog"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestPublish_DeliversToSubscribers(t *testing.T) {
	m := NewManager(true, nil)
	rec := &recorder{}
	m.Subscribe(EventCardUpserted, rec.handle)
	m.Subscribe(EventCardDeleted, rec.handle)

	m.PublishCardUpserted(context.Background(), catalog.CardDocument{ID: "hsbc-red"})
	m.PublishCardDeleted(context.Background(), "dbs-black")
	m.Wait()

	got := rec.snapshot()
	require.Len(t, got, 2)

	byType := map[EventType]Event{}
	for _, e := range got {
		byType[e.Type] = e
	}
	assert.Equal(t, "hsbc-red", byType[EventCardUpserted].Data.(CardUpsertedData).Card.ID)
	assert.Equal(t, "dbs-black", byType[EventCardDeleted].Data.(CardDeletedData).CardID)
	assert.False(t, byType[EventCardDeleted].Timestamp.IsZero())
}

func TestPublish_RecommendationStampsTime(t *testing.T) {
	m := NewManager(true, nil)
	rec := &recorder{}
	m.Subscribe(EventRecommendationGenerated, rec.handle)

	m.PublishRecommendationGenerated(context.Background(), RecommendationGeneratedData{RequestID: "req-1", CardsRanked: 3})
	m.Wait()

	got := rec.snapshot()
	require.Len(t, got, 1)
	data := got[0].Data.(RecommendationGeneratedData)
	assert.Equal(t, "req-1", data.RequestID)
	assert.False(t, data.GeneratedAt.IsZero())
}

func TestPublish_DisabledManagerDropsEvents(t *testing.T) {
	m := NewManager(false, nil)
	rec := &recorder{}
	m.Subscribe(EventCardDeleted, rec.handle)

	m.PublishCardDeleted(context.Background(), "hsbc-red")
	m.Wait()

	assert.Empty(t, rec.snapshot())
}

func TestPublish_HandlerSurvivesCancelledContext(t *testing.T) {
	m := NewManager(true, nil)
	var sawErr error
	var wg sync.WaitGroup
	wg.Add(1)
	m.Subscribe(EventCardDeleted, func(ctx context.Context, event Event) error {
		defer wg.Done()
		sawErr = ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.PublishCardDeleted(ctx, "hsbc-red")
	wg.Wait()

	assert.NoError(t, sawErr)
}

func TestPublish_HandlerErrorsAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	m := NewManager(true, zap.New(core))
	m.Subscribe(EventCardDeleted, func(ctx context.Context, event Event) error {
		return errors.New("webhook down")
	})

	m.PublishCardDeleted(context.Background(), "hsbc-red")
	m.Wait()

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "event handler failed", logs.All()[0].Message)
}

func TestShutdown_StopsDelivery(t *testing.T) {
	m := NewManager(true, nil)
	rec := &recorder{}
	m.Subscribe(EventCardDeleted, rec.handle)

	m.Shutdown()
	m.PublishCardDeleted(context.Background(), "hsbc-red")
	m.Wait()

	assert.Empty(t, rec.snapshot())
}
