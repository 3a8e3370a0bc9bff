package statuslog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quartermaster-app/quartermaster/internal/entity"
)

var repoTracer = otel.Tracer("github.com/quartermaster-app/quartermaster/repository/statuslog")

// ErrNoEvents is returned when an order has no recorded status history.
var ErrNoEvents = errors.New("no status events for order")

// Repository is the append-only status ledger. Rows are keyed
// (order_id, instance_id); the greatest instance_id per order is its
// current status. Like the order repository, every method runs against the
// bun.IDB it is handed.
type Repository struct{}

// NewRepository wires a status ledger repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Append records a new status event with the next instance id for the
// order and returns that id. Callers serialize appends per order, so the
// max+1 read stays consistent within their transaction.
func (r *Repository) Append(ctx context.Context, db bun.IDB, orderID int64, status entity.Status, date time.Time) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "StatusLedger.Append", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.String("order.status", status.String()),
	))
	defer span.End()

	var next int64
	err := db.NewSelect().
		Model((*entity.StatusEvent)(nil)).
		ColumnExpr("COALESCE(MAX(instance_id), 0) + 1").
		Where("order_id = ?", orderID).
		Scan(ctx, &next)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sequence read failed")
		return 0, err
	}

	event := &entity.StatusEvent{
		OrderID:    orderID,
		InstanceID: next,
		Date:       date,
		Status:     status,
	}
	if _, err := db.NewInsert().Model(event).Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return 0, err
	}
	return next, nil
}

// Current returns the status event with the greatest instance id for the
// order, or ErrNoEvents when the order has no history.
func (r *Repository) Current(ctx context.Context, db bun.IDB, orderID int64) (*entity.StatusEvent, error) {
	ctx, span := repoTracer.Start(ctx, "StatusLedger.Current", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	event := new(entity.StatusEvent)
	err := db.NewSelect().
		Model(event).
		Where("order_id = ?", orderID).
		Order("instance_id DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoEvents
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return event, nil
}

// DeleteAll removes every status event for the order. Only force-cancel
// uses this.
func (r *Repository) DeleteAll(ctx context.Context, db bun.IDB, orderID int64) error {
	ctx, span := repoTracer.Start(ctx, "StatusLedger.DeleteAll", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	if _, err := db.NewDelete().Model((*entity.StatusEvent)(nil)).Where("order_id = ?", orderID).Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	return nil
}

// ListAll returns the full ledger ordered by order id then instance id.
func (r *Repository) ListAll(ctx context.Context, db bun.IDB) ([]entity.StatusEvent, error) {
	ctx, span := repoTracer.Start(ctx, "StatusLedger.ListAll")
	defer span.End()

	var events []entity.StatusEvent
	if err := db.NewSelect().Model(&events).Order("order_id ASC", "instance_id ASC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return events, nil
}
