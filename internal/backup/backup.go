package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/quartermaster-app/quartermaster/internal/config"
	"github.com/quartermaster-app/quartermaster/internal/database"
	"github.com/quartermaster-app/quartermaster/internal/entity"
)

const filePrefix = "orders-"

// Service writes JSON snapshots of the order tables. Triggers fired after
// mutations are coalesced and debounced; a cron schedule additionally runs
// periodic snapshots so a quiet system still gets fresh backups.
type Service struct {
	conns   *database.Connections
	cfg     config.Backup
	logger  *zap.Logger
	trigger chan struct{}
	cron    *cron.Cron
	cancel  context.CancelFunc
	done    chan struct{}
}

// Module wires the backup service into the Fx graph.
var Module = fx.Provide(NewService)

// NewService builds the backup service and ties its loop and cron schedule
// to the Fx lifecycle.
func NewService(lc fx.Lifecycle, cfg config.Config, conns *database.Connections, logger *zap.Logger) (*Service, error) {
	s := &Service{
		conns:   conns,
		cfg:     cfg.Backup,
		logger:  logger,
		trigger: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	if !s.cfg.Enabled {
		logger.Info("backups disabled")
		return s, nil
	}

	if s.cfg.CronSpec != "" {
		s.cron = cron.New()
		if _, err := s.cron.AddFunc(s.cfg.CronSpec, s.scheduledSnapshot); err != nil {
			return nil, fmt.Errorf("invalid BACKUP_CRON: %w", err)
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, cancel := context.WithCancel(context.Background())
			s.cancel = cancel
			go s.run(runCtx)
			if s.cron != nil {
				s.cron.Start()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if s.cron != nil {
				s.cron.Stop()
			}
			if s.cancel == nil {
				return nil
			}
			s.cancel()
			select {
			case <-s.done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})

	return s, nil
}

// Trigger requests a snapshot. Pending requests coalesce into one.
func (s *Service) Trigger() {
	if !s.cfg.Enabled {
		return
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			// Let a burst of mutations settle before writing.
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.Debounce):
			}
			if err := s.Snapshot(ctx); err != nil {
				s.logger.Error("backup snapshot failed", zap.Error(err))
			}
		}
	}
}

func (s *Service) scheduledSnapshot() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := s.Snapshot(ctx); err != nil {
		s.logger.Error("scheduled backup failed", zap.Error(err))
	}
}

// Snapshot dumps every order and status event to a timestamped JSON file
// and prunes old files beyond the retention count.
func (s *Service) Snapshot(ctx context.Context) error {
	if s.cfg.Dir == "" {
		return fmt.Errorf("backup directory not configured")
	}
	var orders []entity.Order
	if err := s.conns.Reader.NewSelect().Model(&orders).Order("id ASC").Scan(ctx); err != nil {
		return fmt.Errorf("read orders: %w", err)
	}
	var events []entity.StatusEvent
	if err := s.conns.Reader.NewSelect().Model(&events).Order("order_id ASC", "instance_id ASC").Scan(ctx); err != nil {
		return fmt.Errorf("read status events: %w", err)
	}

	payload, err := json.MarshalIndent(struct {
		TakenAt time.Time            `json:"taken_at"`
		Orders  []entity.Order       `json:"orders"`
		Events  []entity.StatusEvent `json:"events"`
	}{
		TakenAt: time.Now().UTC(),
		Orders:  orders,
		Events:  events,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	name := filePrefix + time.Now().UTC().Format("20060102-150405") + ".json"
	path := filepath.Join(s.cfg.Dir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	s.logger.Info("backup snapshot written",
		zap.String("path", path),
		zap.Int("orders", len(orders)),
		zap.Int("events", len(events)),
	)
	return s.prune()
}

func (s *Service) prune() error {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		return fmt.Errorf("read backup dir: %w", err)
	}
	var snapshots []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, ".json") {
			snapshots = append(snapshots, name)
		}
	}
	if len(snapshots) <= s.cfg.Keep {
		return nil
	}
	// Timestamped names sort chronologically.
	sort.Strings(snapshots)
	for _, name := range snapshots[:len(snapshots)-s.cfg.Keep] {
		if err := os.Remove(filepath.Join(s.cfg.Dir, name)); err != nil {
			s.logger.Warn("failed to prune old backup", zap.String("name", name), zap.Error(err))
		}
	}
	return nil
}
