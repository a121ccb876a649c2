package redis

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/EzzalddeenAli/recticket/config"
	"github.com/EzzalddeenAli/recticket/events"
	"github.com/EzzalddeenAli/recticket/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (s *captureSink) Deliver(_ context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *captureSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestRelayForwardDecodesEvent(t *testing.T) {
	sink := &captureSink{}
	r := NewRelay(nil, "test", sink)

	err := r.forward(context.Background(), []byte(`{"event":"ticket","room":"notification","data":{"action":"delete","ticketId":4}}`))
	require.NoError(t, err)
	require.Equal(t, 1, sink.len())

	got := sink.events[0]
	assert.Equal(t, events.NameTicket, got.Name)
	assert.Equal(t, events.RoomNotification, got.Room)
	assert.Equal(t, events.ActionDelete, got.Action())

	assert.Error(t, r.forward(context.Background(), []byte("not json")))
}

func TestDecodeOnlineSortsAndSkipsGarbage(t *testing.T) {
	users := decodeOnline(map[string]string{
		"2": `{"userId":2,"name":"bob","since":"2024-01-02T10:00:00Z"}`,
		"1": `{"userId":1,"name":"ana","since":"2024-01-01T10:00:00Z"}`,
		"3": `garbage`,
	})
	require.Len(t, users, 2)
	assert.Equal(t, uint(1), users[0].UserID)
	assert.Equal(t, "bob", users[1].Name)
}

// 以下用例需要真实的 Redis：REDIS_TEST_ADDR=localhost:6379
func testClient(t *testing.T) *RedisClient {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c, err := NewRedisClient(config.RedisConfig{Addr: addr, PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPresenceRoundTrip(t *testing.T) {
	c := testClient(t)
	p := NewPresence(c.Client)
	p.key = "recticket:test:online_agents"
	ctx := context.Background()
	t.Cleanup(func() { c.Client.Del(ctx, p.key) })

	require.NoError(t, p.Online(ctx, realtime.OnlineUser{UserID: 5, Name: "ana", Since: time.Now()}))
	users, err := p.OnlineUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ana", users[0].Name)

	require.NoError(t, p.Offline(ctx, 5))
	users, err = p.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRelayPublishReachesSubscriber(t *testing.T) {
	c := testClient(t)
	sink := &captureSink{}
	r := NewRelay(c.Client, "recticket:test:events", sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	assert.Eventually(t, func() bool {
		_ = r.Deliver(ctx, events.ContactDeleted(1))
		return sink.len() > 0
	}, 3*time.Second, 50*time.Millisecond)
}
