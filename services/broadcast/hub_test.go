package broadcast

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/meghashyamc/bufsearch/logger"
	"github.com/meghashyamc/bufsearch/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const receiveTimeout = 2 * time.Second

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestLogger() logger.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler)
}

func startTestHub(t *testing.T) (*Hub, context.CancelFunc) {
	hub := New(newTestLogger())
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	return hub, cancel
}

func receive(t *testing.T, events <-chan Event) Event {
	select {
	case event, ok := <-events:
		require.True(t, ok, "subscription closed unexpectedly")
		return event
	case <-time.After(receiveTimeout):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestEventsReachEverySubscriberInOrder(t *testing.T) {
	assert := require.New(t)
	hub, _ := startTestHub(t)

	first, unsubscribeFirst := hub.Subscribe()
	defer unsubscribeFirst()
	second, unsubscribeSecond := hub.Subscribe()
	defer unsubscribeSecond()

	hub.PublishSearch(&models.SearchResponse{SearchID: "s1"})
	hub.PublishDispose("s1")
	hub.PublishNavigate(models.NavigationRequest{BufferID: "b", Line: 2, Column: 5})

	for _, events := range []<-chan Event{first, second} {
		event := receive(t, events)
		assert.Equal(EventSearch, event.Type)
		assert.Equal("s1", event.Response.SearchID)

		event = receive(t, events)
		assert.Equal(EventDispose, event.Type)
		assert.Equal("s1", event.SearchID)

		event = receive(t, events)
		assert.Equal(EventNavigate, event.Type)
		assert.Equal(models.NavigationRequest{BufferID: "b", Line: 2, Column: 5}, *event.Navigation)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	assert := require.New(t)
	hub, _ := startTestHub(t)

	events, unsubscribe := hub.Subscribe()
	assert.Equal(1, hub.SubscriberCount())

	unsubscribe()
	unsubscribe()

	_, ok := <-events
	assert.False(ok)
	assert.Equal(0, hub.SubscriberCount())
}

func TestStoppingHubClosesSubscriptions(t *testing.T) {
	assert := require.New(t)
	hub, cancel := startTestHub(t)

	events, unsubscribe := hub.Subscribe()
	defer unsubscribe()

	cancel()

	select {
	case _, ok := <-events:
		assert.False(ok)
	case <-time.After(receiveTimeout):
		t.Fatal("subscription was not closed when the hub stopped")
	}

	late, _ := hub.Subscribe()
	_, ok := <-late
	assert.False(ok, "subscribing to a stopped hub yields a closed channel")
}

func TestSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	assert := require.New(t)
	hub, _ := startTestHub(t)

	slow, unsubscribeSlow := hub.Subscribe()
	defer unsubscribeSlow()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBufferSize*4; i++ {
			hub.PublishDispose("s")
		}
	}()

	select {
	case <-done:
	case <-time.After(receiveTimeout):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	event := receive(t, slow)
	assert.Equal(EventDispose, event.Type)
}
