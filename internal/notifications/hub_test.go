package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func decodeEvent(t *testing.T, data []byte) ListingEvent {
	t.Helper()
	var ev ListingEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func TestHub_PublishDeliversToEveryClient(t *testing.T) {
	hub := NewHub()
	a, err := hub.Register("", nil)
	require.NoError(t, err)
	b, err := hub.Register("user-1", nil)
	require.NoError(t, err)

	hub.Publish(context.Background(), ListingEvent{Type: PropertyCreated, PropertyID: "p1", Slug: "cozy-1"})

	for _, c := range []*Client{a, b} {
		select {
		case msg := <-c.Send:
			ev := decodeEvent(t, msg)
			assert.Equal(t, PropertyCreated, ev.Type)
			assert.Equal(t, "p1", ev.PropertyID)
			assert.Equal(t, "cozy-1", ev.Slug)
			assert.False(t, ev.At.IsZero())
		default:
			t.Fatal("expected a queued event")
		}
	}

	_ = hub.Shutdown(context.Background())
}

func TestHub_DropsSlowClient(t *testing.T) {
	hub := NewHub()
	hub.sendBuffer = 1

	slow, err := hub.Register("slow", nil)
	require.NoError(t, err)
	fast, err := hub.Register("fast", nil)
	require.NoError(t, err)

	hub.Publish(context.Background(), ListingEvent{Type: PropertyUpdated, PropertyID: "p1"})
	<-fast.Send
	hub.Publish(context.Background(), ListingEvent{Type: PropertyUpdated, PropertyID: "p2"})

	assert.Equal(t, 1, hub.Count())

	// The slow client keeps its buffered message, then sees the closed channel.
	_, ok := <-slow.Send
	assert.True(t, ok)
	_, ok = <-slow.Send
	assert.False(t, ok)
	assert.Equal(t, websocket.ClosePolicyViolation, slow.closeCode)

	msg := <-fast.Send
	assert.Equal(t, "p2", decodeEvent(t, msg).PropertyID)
}

func TestHub_ConnectionLimits(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerViewer; i++ {
		_, err := hub.Register("busy", nil)
		require.NoError(t, err)
	}

	_, err := hub.Register("busy", nil)
	assert.ErrorIs(t, err, ErrViewerConnLimit)

	_, err = hub.Register("", nil)
	assert.NoError(t, err, "anonymous viewers only count against the global limit")

	hub.totalConns = maxTotalConns
	_, err = hub.Register("other", nil)
	assert.ErrorIs(t, err, ErrServerConnLimit)
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register("u", nil)
	require.NoError(t, err)

	hub.UnregisterClient(c)
	hub.UnregisterClient(c)

	assert.Equal(t, 0, hub.Count())
	assert.False(t, c.TrySend([]byte("late")))
}

func TestHub_ShutdownRejectsNewClients(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register("u", nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))

	_, ok := <-c.Send
	assert.False(t, ok)
	_, err = hub.Register("u", nil)
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.Equal(t, websocket.CloseGoingAway, c.closeCode)
}

func TestHub_RelaysThroughRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher := NewHub(rdb)
	subscriber := NewHub(rdb)
	require.NoError(t, subscriber.StartWiring(ctx))

	c, err := subscriber.Register("", nil)
	require.NoError(t, err)

	publisher.Publish(ctx, ListingEvent{Type: PropertyDeleted, PropertyID: "gone", Slug: "old-1"})

	var got []byte
	assert.Eventually(t, func() bool {
		select {
		case got = <-c.Send:
			return true
		default:
			return false
		}
	}, testEventuallyTimeout, testPollInterval)
	require.NotNil(t, got)
	assert.Equal(t, PropertyDeleted, decodeEvent(t, got).Type)
}

func TestHub_StartWiringWithoutRedis(t *testing.T) {
	assert.NoError(t, NewHub().StartWiring(context.Background()))
}
