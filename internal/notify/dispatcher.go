package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/quartermaster-app/quartermaster/internal/config"
	"github.com/quartermaster-app/quartermaster/internal/messaging"
)

// Channel identifies one of the two independent notification streams.
type Channel string

const (
	// ChannelLifecycle carries create/amend/cancel events.
	ChannelLifecycle Channel = "lifecycle"
	// ChannelStatus carries status-advancement events.
	ChannelStatus Channel = "status"
)

// Event is one queued notification awaiting delivery.
type Event struct {
	Channel    Channel   `json:"channel"`
	OrderID    int64     `json:"order_id"`
	Message    string    `json:"message"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Dispatcher queues human-readable event messages for asynchronous
// best-effort delivery. Enqueue never blocks the caller: a channel without
// a configured topic is a silent no-op, and a full queue drops the event
// with a warning. Callers enqueue only after their data transaction has
// committed, so delivery is at-most-once.
type Dispatcher struct {
	client messaging.Client
	logger *zap.Logger
	topics map[Channel]string
	queue  chan Event
	cancel context.CancelFunc
	done   chan struct{}
}

// Module wires the dispatcher into the Fx graph.
var Module = fx.Provide(NewDispatcher)

// NewDispatcher builds the dispatcher and ties its publisher goroutine to
// the Fx lifecycle.
func NewDispatcher(lc fx.Lifecycle, cfg config.Config, client messaging.Client, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		client: client,
		logger: logger,
		topics: map[Channel]string{
			ChannelLifecycle: cfg.Notify.LifecycleTopic,
			ChannelStatus:    cfg.Notify.StatusTopic,
		},
		queue: make(chan Event, cfg.Notify.QueueSize),
		done:  make(chan struct{}),
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, cancel := context.WithCancel(context.Background())
			d.cancel = cancel
			go d.run(runCtx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if d.cancel == nil {
				return nil
			}
			d.cancel()
			select {
			case <-d.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})

	return d
}

// EnqueueLifecycle queues a create/amend/cancel notification.
func (d *Dispatcher) EnqueueLifecycle(orderID int64, message string) {
	d.enqueue(ChannelLifecycle, orderID, message)
}

// EnqueueStatus queues a status-advancement notification.
func (d *Dispatcher) EnqueueStatus(orderID int64, message string) {
	d.enqueue(ChannelStatus, orderID, message)
}

func (d *Dispatcher) enqueue(ch Channel, orderID int64, message string) {
	if d.topics[ch] == "" {
		return
	}
	event := Event{
		Channel:    ch,
		OrderID:    orderID,
		Message:    message,
		EnqueuedAt: time.Now().UTC(),
	}
	select {
	case d.queue <- event:
	default:
		d.logger.Warn("notification queue full; dropping event",
			zap.String("channel", string(ch)),
			zap.Int64("order_id", orderID),
		)
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			d.flush()
			return
		case event := <-d.queue:
			d.publish(ctx, event)
		}
	}
}

// flush publishes whatever is still queued at shutdown; anything that
// fails here is lost, which matches the best-effort contract.
func (d *Dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-d.queue:
			d.publish(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		d.logger.Error("marshal notification event", zap.Error(err))
		return
	}
	key := []byte(fmt.Sprintf("order-%d", event.OrderID))
	if err := d.client.Publish(ctx, d.topics[event.Channel], key, payload); err != nil {
		d.logger.Error("publish notification event",
			zap.String("channel", string(event.Channel)),
			zap.Int64("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}
