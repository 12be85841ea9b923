package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/walletauth/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func receive(t *testing.T, messages <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-messages:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestWatermillPublisher_PublishLogin(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := NewInProcessPubSub(discardLogger())
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, TopicLogin)
	require.NoError(t, err)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	pub := NewWatermillPublisher(pubSub)
	require.NoError(t, pub.PublishLogin(ctx, ports.LoginEvent{
		UserID:     "u1",
		Address:    "0xabc",
		LoginCount: 3,
		At:         at,
	}))

	msg := receive(t, messages)
	assert.NotEmpty(t, msg.UUID)

	var got ports.LoginEvent
	require.NoError(t, json.Unmarshal(msg.Payload, &got))
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "0xabc", got.Address)
	assert.EqualValues(t, 3, got.LoginCount)
	assert.True(t, got.At.Equal(at))
}

func TestWatermillPublisher_PublishLogout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := NewInProcessPubSub(discardLogger())
	defer pubSub.Close()

	messages, err := pubSub.Subscribe(ctx, TopicLogout)
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubSub)
	require.NoError(t, pub.PublishLogout(ctx, "0xabc", "jti-1"))

	var got LogoutEvent
	require.NoError(t, json.Unmarshal(receive(t, messages).Payload, &got))
	assert.Equal(t, LogoutEvent{Address: "0xabc", TokenID: "jti-1"}, got)
}

func TestRedisStreamPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	publisher, err := NewRedisStreamPublisher(client, discardLogger())
	require.NoError(t, err)
	defer publisher.Close()

	pub := NewWatermillPublisher(publisher)
	require.NoError(t, pub.PublishLogout(context.Background(), "0xabc", "jti-1"))

	entries, err := client.XRange(context.Background(), TopicLogout, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestNopPublisher(t *testing.T) {
	var pub ports.EventPublisher = NopPublisher{}
	assert.NoError(t, pub.PublishLogin(context.Background(), ports.LoginEvent{}))
	assert.NoError(t, pub.PublishLogout(context.Background(), "0xabc", "jti"))
}
