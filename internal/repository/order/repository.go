package order

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/quartermaster-app/quartermaster/internal/entity"
)

var repoTracer = otel.Tracer("github.com/quartermaster-app/quartermaster/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Repository encapsulates row-level access to the orders table. Every
// method operates on the bun.IDB it is handed, so callers decide whether a
// statement runs standalone or inside a transaction.
type Repository struct{}

// NewRepository wires an order repository.
func NewRepository() *Repository {
	return &Repository{}
}

// Insert persists a new order and populates its generated ID.
func (r *Repository) Insert(ctx context.Context, db bun.IDB, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Insert", trace.WithAttributes(attribute.String("order.name", order.Name)))
	defer span.End()

	_, err := db.NewInsert().Model(order).Returning("id").Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// ReplaceFields overwrites every mutable descriptive field of the order.
// RefNumber is left untouched.
func (r *Repository) ReplaceFields(ctx context.Context, db bun.IDB, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ReplaceFields", trace.WithAttributes(attribute.Int64("order.id", order.ID)))
	defer span.End()

	res, err := db.NewUpdate().Model(order).
		Column("name", "count", "unit_cost", "store_in", "team", "reason", "vendor", "link").
		WherePK().
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return requireOneRow(span, res)
}

// SetRefNumber mutates exactly the external reference number.
func (r *Repository) SetRefNumber(ctx context.Context, db bun.IDB, id int64, refNumber *int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.SetRefNumber", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := db.NewUpdate().Model((*entity.Order)(nil)).
		Set("ref_number = ?", refNumber).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	return requireOneRow(span, res)
}

// Delete removes exactly one order row by id.
func (r *Repository) Delete(ctx context.Context, db bun.IDB, id int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := db.NewDelete().Model((*entity.Order)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	return requireOneRow(span, res)
}

// Find fetches an order by primary key.
func (r *Repository) Find(ctx context.Context, db bun.IDB, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Find", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := db.NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// ListAll returns every order ordered by id.
func (r *Repository) ListAll(ctx context.Context, db bun.IDB) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListAll")
	defer span.End()

	var orders []entity.Order
	if err := db.NewSelect().Model(&orders).Order("id ASC").Scan(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

func requireOneRow(span trace.Span, res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "not found")
		return ErrNotFound
	}
	return nil
}
