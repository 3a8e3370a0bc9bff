package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/quartermaster-app/quartermaster/internal/config"
	"github.com/quartermaster-app/quartermaster/internal/messaging"
)

type publishedMessage struct {
	topic string
	key   string
	value []byte
}

type capturingClient struct {
	mu        sync.Mutex
	published []publishedMessage
}

func (c *capturingClient) Publish(_ context.Context, topic string, key, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, publishedMessage{topic: topic, key: string(key), value: value})
	return nil
}

func (c *capturingClient) Consume(ctx context.Context, _ string, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (c *capturingClient) snapshot() []publishedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]publishedMessage(nil), c.published...)
}

func dispatcherConfig() config.Config {
	cfg := config.Config{}
	cfg.Notify.LifecycleTopic = "orders.lifecycle"
	cfg.Notify.StatusTopic = ""
	cfg.Notify.QueueSize = 16
	return cfg
}

func TestDispatcherPublishesLifecycleEvents(t *testing.T) {
	client := &capturingClient{}
	lc := fxtest.NewLifecycle(t)
	d := NewDispatcher(lc, dispatcherConfig(), client, zap.NewNop())
	lc.RequireStart()

	d.EnqueueLifecycle(7, "**New Order!**")
	lc.RequireStop()

	published := client.snapshot()
	require.Len(t, published, 1)
	assert.Equal(t, "orders.lifecycle", published[0].topic)
	assert.Equal(t, "order-7", published[0].key)

	var event Event
	require.NoError(t, json.Unmarshal(published[0].value, &event))
	assert.Equal(t, ChannelLifecycle, event.Channel)
	assert.Equal(t, int64(7), event.OrderID)
	assert.Equal(t, "**New Order!**", event.Message)
	assert.WithinDuration(t, time.Now().UTC(), event.EnqueuedAt, time.Minute)
}

func TestDispatcherSkipsUnconfiguredChannel(t *testing.T) {
	client := &capturingClient{}
	lc := fxtest.NewLifecycle(t)
	d := NewDispatcher(lc, dispatcherConfig(), client, zap.NewNop())
	lc.RequireStart()

	d.EnqueueStatus(7, "**Order Update!**")
	lc.RequireStop()

	assert.Empty(t, client.snapshot())
}

func TestDispatcherFlushesQueueOnStop(t *testing.T) {
	client := &capturingClient{}
	lc := fxtest.NewLifecycle(t)
	d := NewDispatcher(lc, dispatcherConfig(), client, zap.NewNop())
	lc.RequireStart()

	for i := int64(1); i <= 5; i++ {
		d.EnqueueLifecycle(i, "message")
	}
	lc.RequireStop()

	assert.Len(t, client.snapshot(), 5)
}
