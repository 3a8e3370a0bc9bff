package order

import (
	"github.com/uptrace/bun"
	"go.uber.org/fx"

	"github.com/quartermaster-app/quartermaster/internal/backup"
	"github.com/quartermaster-app/quartermaster/internal/database"
	"github.com/quartermaster-app/quartermaster/internal/notify"
	repo "github.com/quartermaster-app/quartermaster/internal/repository/order"
	"github.com/quartermaster-app/quartermaster/internal/repository/statuslog"
)

// Module provides the order service and the interface bindings it needs.
// Validation reads go through the writer pool so a stale replica can never
// widen the per-order race the keyed mutex closes.
var Module = fx.Provide(
	func(r *repo.Repository) OrderStore { return r },
	func(r *statuslog.Repository) StatusLedger { return r },
	func(conns *database.Connections) TxRunner { return bunTxRunner{db: conns.Writer} },
	func(conns *database.Connections) bun.IDB { return conns.Writer },
	func(d *notify.Dispatcher) Notifier { return d },
	func(s *backup.Service) BackupTrigger { return s },
	NewService,
)
