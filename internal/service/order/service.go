package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/quartermaster-app/quartermaster/internal/cache"
	"github.com/quartermaster-app/quartermaster/internal/config"
	"github.com/quartermaster-app/quartermaster/internal/entity"
	"github.com/quartermaster-app/quartermaster/internal/notify"
	repo "github.com/quartermaster-app/quartermaster/internal/repository/order"
	"github.com/quartermaster-app/quartermaster/internal/repository/statuslog"
	"github.com/quartermaster-app/quartermaster/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/quartermaster-app/quartermaster/service/order")

const listCacheKey = "orders:list"

// OrderStore is the narrow persistence surface for order rows.
type OrderStore interface {
	Insert(ctx context.Context, db bun.IDB, order *entity.Order) error
	ReplaceFields(ctx context.Context, db bun.IDB, order *entity.Order) error
	SetRefNumber(ctx context.Context, db bun.IDB, id int64, refNumber *int64) error
	Delete(ctx context.Context, db bun.IDB, id int64) error
	Find(ctx context.Context, db bun.IDB, id int64) (*entity.Order, error)
	ListAll(ctx context.Context, db bun.IDB) ([]entity.Order, error)
}

// StatusLedger is the narrow surface of the append-only status history.
type StatusLedger interface {
	Append(ctx context.Context, db bun.IDB, orderID int64, status entity.Status, date time.Time) (int64, error)
	Current(ctx context.Context, db bun.IDB, orderID int64) (*entity.StatusEvent, error)
	DeleteAll(ctx context.Context, db bun.IDB, orderID int64) error
	ListAll(ctx context.Context, db bun.IDB) ([]entity.StatusEvent, error)
}

// TxRunner executes fn inside one atomic transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.IDB) error) error
}

// Notifier accepts post-commit notification messages; it must never block.
type Notifier interface {
	EnqueueLifecycle(orderID int64, message string)
	EnqueueStatus(orderID int64, message string)
}

// BackupTrigger schedules a durability snapshot after a mutation.
type BackupTrigger interface {
	Trigger()
}

type bunTxRunner struct {
	db *bun.DB
}

func (r bunTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.IDB) error) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, tx)
	})
}

// Fields carries the mutable descriptive attributes of an order.
type Fields struct {
	Name     string
	Count    int64
	UnitCost decimal.Decimal
	StoreIn  string
	Team     entity.Team
	Reason   string
	Vendor   string
	Link     string
}

func (f Fields) validate() error {
	if f.Count < 0 {
		return errors.New("count must be non-negative")
	}
	if f.UnitCost.IsNegative() {
		return errors.New("unit cost must be non-negative")
	}
	if !f.Team.Valid() {
		return fmt.Errorf("unknown team: %q", f.Team)
	}
	return nil
}

func (f Fields) apply(order *entity.Order) *entity.Order {
	order.Name = f.Name
	order.Count = f.Count
	order.UnitCost = f.UnitCost
	order.StoreIn = f.StoreIn
	order.Team = f.Team
	order.Reason = f.Reason
	order.Vendor = f.Vendor
	order.Link = f.Link
	return order
}

// Service is the transition engine: it validates and executes every order
// lifecycle operation against the status ledger and order store, with the
// per-order read-validate-write sequence serialized by a keyed mutex.
// Notifications and backup triggers run strictly after commit.
type Service struct {
	orders   OrderStore
	ledger   StatusLedger
	tx       TxRunner
	db       bun.IDB
	cache    cache.Store
	cacheTTL time.Duration
	logger   *zap.Logger
	notifier Notifier
	backup   BackupTrigger
	locks    *keyedMutex
	clock    func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Orders   OrderStore
	Ledger   StatusLedger
	Tx       TxRunner
	DB       bun.IDB
	Cache    cache.Store
	Config   config.Config
	Logger   *zap.Logger
	Notifier Notifier
	Backup   BackupTrigger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		orders:   p.Orders,
		ledger:   p.Ledger,
		tx:       p.Tx,
		db:       p.DB,
		cache:    p.Cache,
		cacheTTL: p.Config.Cache.DefaultTTL,
		logger:   p.Logger,
		notifier: p.Notifier,
		backup:   p.Backup,
		locks:    newKeyedMutex(),
		clock:    time.Now,
	}
}

// Create inserts a new order together with its initial New status event in
// one transaction and returns the created order.
func (s *Service) Create(ctx context.Context, fields Fields) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "TransitionEngine.Create", trace.WithAttributes(attribute.String("order.name", fields.Name)))
	defer span.End()

	if err := fields.validate(); err != nil {
		return nil, errorbank.BadRequest(err.Error())
	}

	order := fields.apply(new(entity.Order))
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		if err := s.orders.Insert(ctx, tx, order); err != nil {
			return err
		}
		_, err := s.ledger.Append(ctx, tx, order.ID, entity.StatusNew, s.clock())
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	s.afterMutation(ctx)
	s.notifier.EnqueueLifecycle(order.ID, notify.CreateMessage(order))
	return order, nil
}

// Amend replaces every mutable field of an order that is still in the New
// state. The status ledger is untouched.
func (s *Service) Amend(ctx context.Context, id int64, fields Fields) error {
	ctx, span := serviceTracer.Start(ctx, "TransitionEngine.Amend", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := fields.validate(); err != nil {
		return errorbank.BadRequest(err.Error())
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	if current.Status != entity.StatusNew {
		return errorbank.Conflict("order has already been processed")
	}

	order := fields.apply(&entity.Order{ID: id})
	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		return s.orders.ReplaceFields(ctx, tx, order)
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		return errorbank.Internal("failed to amend order", errorbank.WithCause(err))
	}

	s.afterMutation(ctx)
	s.notifier.EnqueueLifecycle(id, notify.AmendMessage(order))
	return nil
}

// Cancel removes an order. A plain cancel requires the order to still be
// New and deletes only the order row, leaving its status history behind.
// A force cancel removes the order and its entire status history atomically
// regardless of lifecycle state.
func (s *Service) Cancel(ctx context.Context, id int64, force bool) error {
	ctx, span := serviceTracer.Start(ctx, "TransitionEngine.Cancel", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.Bool("order.force", force),
	))
	defer span.End()

	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	if !force && current.Status != entity.StatusNew {
		return errorbank.Conflict("order has already been processed")
	}

	order, err := s.findOrder(ctx, id)
	if err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		if err := s.orders.Delete(ctx, tx, id); err != nil {
			return err
		}
		if force {
			return s.ledger.DeleteAll(ctx, tx, id)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		return errorbank.Internal("failed to cancel order", errorbank.WithCause(err))
	}

	s.afterMutation(ctx)
	s.notifier.EnqueueLifecycle(id, notify.CancelMessage(order))
	return nil
}

// Advance moves an order to the target status. When the target equals the
// current status a reference number is required and only that field is
// updated; no status event is appended and no notification is emitted.
func (s *Service) Advance(ctx context.Context, id int64, target entity.Status, refNumber *int64) error {
	ctx, span := serviceTracer.Start(ctx, "TransitionEngine.Advance", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", target.String()),
	))
	defer span.End()

	if !target.Valid() {
		return errorbank.BadRequest(fmt.Sprintf("unknown status: %q", target))
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	current, err := s.currentStatus(ctx, id)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return errorbank.Conflict("order is already in storage")
	}
	sameStatus := current.Status == target
	if sameStatus && refNumber == nil {
		return errorbank.Conflict("order is already in that state")
	}

	order, err := s.findOrder(ctx, id)
	if err != nil {
		return err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		if !sameStatus {
			if _, err := s.ledger.Append(ctx, tx, id, target, s.clock()); err != nil {
				return err
			}
		}
		if refNumber != nil {
			return s.orders.SetRefNumber(ctx, tx, id, refNumber)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		return errorbank.Internal("failed to advance order", errorbank.WithCause(err))
	}

	s.afterMutation(ctx)
	if !sameStatus {
		s.notifier.EnqueueStatus(id, notify.StatusMessage(order, target))
	}
	return nil
}

// listSnapshot is the cached shape of the List response.
type listSnapshot struct {
	Orders []entity.Order       `json:"orders"`
	Events []entity.StatusEvent `json:"events"`
}

// List returns all orders together with the full status ledger, consulting
// cache when available.
func (s *Service) List(ctx context.Context) ([]entity.Order, []entity.StatusEvent, error) {
	ctx, span := serviceTracer.Start(ctx, "TransitionEngine.List")
	defer span.End()

	if snapshot, err := s.listFromCache(ctx); err == nil {
		return snapshot.Orders, snapshot.Events, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.Error(err))
	}

	orders, err := s.orders.ListAll(ctx, s.db)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	events, err := s.ledger.ListAll(ctx, s.db)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, nil, errorbank.Internal("failed to list status events", errorbank.WithCause(err))
	}

	if err := s.storeListInCache(ctx, listSnapshot{Orders: orders, Events: events}); err != nil {
		s.logger.Warn("orders cache write failed", zap.Error(err))
	}
	return orders, events, nil
}

// currentStatus reads the order's current status outside any transaction;
// callers hold the per-order lock, so the value stays authoritative until
// their own commit.
func (s *Service) currentStatus(ctx context.Context, id int64) (*entity.StatusEvent, error) {
	event, err := s.ledger.Current(ctx, s.db, id)
	if errors.Is(err, statuslog.ErrNoEvents) {
		return nil, errorbank.NotFound("order not found")
	}
	if err != nil {
		return nil, errorbank.Internal("failed to read order status", errorbank.WithCause(err))
	}
	return event, nil
}

func (s *Service) findOrder(ctx context.Context, id int64) (*entity.Order, error) {
	order, err := s.orders.Find(ctx, s.db, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errorbank.NotFound("order not found")
	}
	if err != nil {
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	return order, nil
}

func (s *Service) afterMutation(ctx context.Context) {
	if s.cache != nil {
		if err := s.cache.Delete(ctx, listCacheKey); err != nil {
			s.logger.Warn("orders cache invalidation failed", zap.Error(err))
		}
	}
	if s.backup != nil {
		s.backup.Trigger()
	}
}

func (s *Service) listFromCache(ctx context.Context) (listSnapshot, error) {
	var snapshot listSnapshot
	if s.cache == nil {
		return snapshot, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, listCacheKey)
	if err != nil {
		return snapshot, err
	}
	if err := json.Unmarshal(bytes, &snapshot); err != nil {
		return snapshot, err
	}
	return snapshot, nil
}

func (s *Service) storeListInCache(ctx context.Context, snapshot listSnapshot) error {
	if s.cache == nil {
		return nil
	}
	bytes, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, listCacheKey, bytes, s.cacheTTL)
}
