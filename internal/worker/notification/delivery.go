package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/quartermaster-app/quartermaster/internal/config"
	"github.com/quartermaster-app/quartermaster/internal/messaging"
	"github.com/quartermaster-app/quartermaster/internal/notify"
	"github.com/quartermaster-app/quartermaster/internal/worker"
)

var workerTracer = otel.Tracer("github.com/quartermaster-app/quartermaster/worker/notification")

// Module registers delivery handlers for both notification channels.
var Module = fx.Module("worker_notification",
	fx.Provide(
		NewDeliverer,
		fx.Annotate(
			NewLifecycleHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
		fx.Annotate(
			NewStatusHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// Deliverer posts queued notification messages to chat webhooks. The
// payload shape is Discord-compatible.
type Deliverer struct {
	client *http.Client
	logger *zap.Logger
}

// NewDeliverer builds a Deliverer with the configured request timeout.
func NewDeliverer(cfg config.Config, logger *zap.Logger) *Deliverer {
	return &Deliverer{
		client: &http.Client{Timeout: cfg.Notify.DeliveryTimeout},
		logger: logger,
	}
}

// Deliver posts one message to the webhook URL. A non-2xx response is an
// error so the worker engine retries the message.
func (d *Deliverer) Deliver(ctx context.Context, url, message string) error {
	body, err := json.Marshal(map[string]string{"content": message})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// NewLifecycleHandler consumes the lifecycle topic and delivers each event
// to the lifecycle webhook. With no webhook URL configured the topic is
// left unregistered.
func NewLifecycleHandler(d *Deliverer, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	if cfg.Notify.LifecycleWebhookURL == "" {
		return worker.HandlerRegistration{}
	}
	return worker.HandlerRegistration{
		Topic:   cfg.Notify.LifecycleTopic,
		Handler: deliveryHandler(d, logger, cfg.Notify.LifecycleWebhookURL),
	}
}

// NewStatusHandler consumes the status topic and delivers each event to
// the status webhook.
func NewStatusHandler(d *Deliverer, logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	if cfg.Notify.StatusWebhookURL == "" {
		return worker.HandlerRegistration{}
	}
	return worker.HandlerRegistration{
		Topic:   cfg.Notify.StatusTopic,
		Handler: deliveryHandler(d, logger, cfg.Notify.StatusWebhookURL),
	}
}

func deliveryHandler(d *Deliverer, logger *zap.Logger, webhookURL string) messaging.Handler {
	return func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.notifications.deliver", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event notify.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode notification event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		if err := d.Deliver(ctx, webhookURL, event.Message); err != nil {
			logger.Error("notification delivery failed",
				zap.Int64("order_id", event.OrderID),
				zap.String("channel", string(event.Channel)),
				zap.Error(err),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, "delivery error")
			return err
		}

		logger.Info("notification delivered",
			zap.Int64("order_id", event.OrderID),
			zap.String("channel", string(event.Channel)),
		)

		return nil
	}
}
