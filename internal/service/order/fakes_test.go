package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/uptrace/bun"

	"github.com/quartermaster-app/quartermaster/internal/entity"
	repo "github.com/quartermaster-app/quartermaster/internal/repository/order"
	"github.com/quartermaster-app/quartermaster/internal/repository/statuslog"
)

// fakeState is the shared in-memory database behind the store, ledger, and
// transaction fakes.
type fakeState struct {
	mu     sync.Mutex
	orders map[int64]entity.Order
	events map[int64][]entity.StatusEvent
	nextID int64
}

func newFakeState() *fakeState {
	return &fakeState{
		orders: make(map[int64]entity.Order),
		events: make(map[int64][]entity.StatusEvent),
	}
}

func (s *fakeState) snapshot() (map[int64]entity.Order, map[int64][]entity.StatusEvent, int64) {
	orders := make(map[int64]entity.Order, len(s.orders))
	for id, o := range s.orders {
		orders[id] = o
	}
	events := make(map[int64][]entity.StatusEvent, len(s.events))
	for id, evs := range s.events {
		events[id] = append([]entity.StatusEvent(nil), evs...)
	}
	return orders, events, s.nextID
}

func (s *fakeState) restore(orders map[int64]entity.Order, events map[int64][]entity.StatusEvent, nextID int64) {
	s.orders = orders
	s.events = events
	s.nextID = nextID
}

// fakeTx mimics bun's RunInTx: mutations made by fn are rolled back in
// full when fn returns an error.
type fakeTx struct {
	state *fakeState
}

func (t *fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.IDB) error) error {
	t.state.mu.Lock()
	defer t.state.mu.Unlock()
	orders, events, nextID := t.state.snapshot()
	if err := fn(ctx, nil); err != nil {
		t.state.restore(orders, events, nextID)
		return err
	}
	return nil
}

type fakeOrderStore struct {
	state     *fakeState
	insertErr error
}

func (f *fakeOrderStore) Insert(_ context.Context, _ bun.IDB, order *entity.Order) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.state.nextID++
	order.ID = f.state.nextID
	f.state.orders[order.ID] = *order
	return nil
}

func (f *fakeOrderStore) ReplaceFields(_ context.Context, _ bun.IDB, order *entity.Order) error {
	existing, ok := f.state.orders[order.ID]
	if !ok {
		return repo.ErrNotFound
	}
	updated := *order
	updated.RefNumber = existing.RefNumber
	f.state.orders[order.ID] = updated
	return nil
}

func (f *fakeOrderStore) SetRefNumber(_ context.Context, _ bun.IDB, id int64, refNumber *int64) error {
	order, ok := f.state.orders[id]
	if !ok {
		return repo.ErrNotFound
	}
	order.RefNumber = refNumber
	f.state.orders[id] = order
	return nil
}

func (f *fakeOrderStore) Delete(_ context.Context, _ bun.IDB, id int64) error {
	if _, ok := f.state.orders[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.state.orders, id)
	return nil
}

func (f *fakeOrderStore) Find(_ context.Context, _ bun.IDB, id int64) (*entity.Order, error) {
	order, ok := f.state.orders[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := order
	return &copied, nil
}

func (f *fakeOrderStore) ListAll(_ context.Context, _ bun.IDB) ([]entity.Order, error) {
	orders := make([]entity.Order, 0, len(f.state.orders))
	for _, o := range f.state.orders {
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders, nil
}

type fakeLedger struct {
	state     *fakeState
	appendErr error
}

func (f *fakeLedger) Append(_ context.Context, _ bun.IDB, orderID int64, status entity.Status, date time.Time) (int64, error) {
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	var next int64 = 1
	for _, ev := range f.state.events[orderID] {
		if ev.InstanceID >= next {
			next = ev.InstanceID + 1
		}
	}
	f.state.events[orderID] = append(f.state.events[orderID], entity.StatusEvent{
		OrderID:    orderID,
		InstanceID: next,
		Date:       date,
		Status:     status,
	})
	return next, nil
}

func (f *fakeLedger) Current(_ context.Context, _ bun.IDB, orderID int64) (*entity.StatusEvent, error) {
	events := f.state.events[orderID]
	if len(events) == 0 {
		return nil, statuslog.ErrNoEvents
	}
	current := events[0]
	for _, ev := range events[1:] {
		if ev.InstanceID > current.InstanceID {
			current = ev
		}
	}
	return &current, nil
}

func (f *fakeLedger) DeleteAll(_ context.Context, _ bun.IDB, orderID int64) error {
	delete(f.state.events, orderID)
	return nil
}

func (f *fakeLedger) ListAll(_ context.Context, _ bun.IDB) ([]entity.StatusEvent, error) {
	var events []entity.StatusEvent
	for _, evs := range f.state.events {
		events = append(events, evs...)
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].OrderID != events[j].OrderID {
			return events[i].OrderID < events[j].OrderID
		}
		return events[i].InstanceID < events[j].InstanceID
	})
	return events, nil
}

type notification struct {
	orderID int64
	message string
}

type fakeNotifier struct {
	mu        sync.Mutex
	lifecycle []notification
	status    []notification
}

func (f *fakeNotifier) EnqueueLifecycle(orderID int64, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lifecycle = append(f.lifecycle, notification{orderID: orderID, message: message})
}

func (f *fakeNotifier) EnqueueStatus(orderID int64, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = append(f.status, notification{orderID: orderID, message: message})
}

func (f *fakeNotifier) statusCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.status)
}

type fakeBackup struct {
	mu       sync.Mutex
	triggers int
}

func (f *fakeBackup) Trigger() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggers++
}

func (f *fakeBackup) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.triggers
}
