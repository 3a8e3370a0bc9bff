package notification

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quartermaster-app/quartermaster/internal/config"
	"github.com/quartermaster-app/quartermaster/internal/messaging"
	"github.com/quartermaster-app/quartermaster/internal/notify"
)

func testConfig() config.Config {
	cfg := config.Config{}
	cfg.Notify.LifecycleTopic = "orders.lifecycle"
	cfg.Notify.StatusTopic = "orders.status"
	cfg.Notify.DeliveryTimeout = 5 * time.Second
	return cfg
}

func TestDeliverPostsContent(t *testing.T) {
	var gotBody map[string]string
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDeliverer(testConfig(), zap.NewNop())
	require.NoError(t, d.Deliver(context.Background(), server.URL, "**New Order!**"))

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, map[string]string{"content": "**New Order!**"}, gotBody)
}

func TestDeliverRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	d := NewDeliverer(testConfig(), zap.NewNop())
	err := d.Deliver(context.Background(), server.URL, "message")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestLifecycleHandlerDeliversEvent(t *testing.T) {
	delivered := make(chan map[string]string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		delivered <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Notify.LifecycleWebhookURL = server.URL
	d := NewDeliverer(cfg, zap.NewNop())
	registration := NewLifecycleHandler(d, zap.NewNop(), cfg)
	require.Equal(t, "orders.lifecycle", registration.Topic)
	require.NotNil(t, registration.Handler)

	event := notify.Event{
		Channel:    notify.ChannelLifecycle,
		OrderID:    3,
		Message:    "***Order Cancelled***",
		EnqueuedAt: time.Now().UTC(),
	}
	value, err := json.Marshal(event)
	require.NoError(t, err)

	require.NoError(t, registration.Handler(context.Background(), messaging.Message{
		Topic: "orders.lifecycle",
		Key:   []byte("order-3"),
		Value: value,
	}))
	assert.Equal(t, map[string]string{"content": "***Order Cancelled***"}, <-delivered)
}

func TestLifecycleHandlerSkippedWithoutWebhook(t *testing.T) {
	cfg := testConfig()
	d := NewDeliverer(cfg, zap.NewNop())

	registration := NewLifecycleHandler(d, zap.NewNop(), cfg)
	assert.Empty(t, registration.Topic)
	assert.Nil(t, registration.Handler)
}

func TestHandlerRejectsMalformedEvent(t *testing.T) {
	cfg := testConfig()
	cfg.Notify.StatusWebhookURL = "http://127.0.0.1:1/webhook"
	d := NewDeliverer(cfg, zap.NewNop())
	registration := NewStatusHandler(d, zap.NewNop(), cfg)

	err := registration.Handler(context.Background(), messaging.Message{
		Topic: "orders.status",
		Value: []byte("not json"),
	})
	assert.Error(t, err)
}
