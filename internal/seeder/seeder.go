package seeder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/quartermaster-app/quartermaster/internal/database"
	"github.com/quartermaster-app/quartermaster/internal/entity"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Orders seeds a couple of example purchase requests with their initial
// status events, skipping the work when orders already exist.
func (s *Seeder) Orders(ctx context.Context) error {
	count, err := s.db.NewSelect().Model((*entity.Order)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		if s.logger != nil {
			s.logger.Info("orders already present; skipping seed")
		}
		return nil
	}

	now := time.Now().UTC()
	samples := []entity.Order{
		{
			Name:     "M3 hex bolts (100 pack)",
			Count:    2,
			UnitCost: decimal.RequireFromString("8.99"),
			StoreIn:  "Shelf B2",
			Team:     entity.TeamMechanical,
			Reason:   "Drivetrain assembly",
			Vendor:   "McMaster-Carr",
			Link:     "https://www.mcmaster.com/91290A115/",
		},
		{
			Name:     "Brushless motor controller",
			Count:    4,
			UnitCost: decimal.RequireFromString("24.50"),
			Team:     entity.TeamElectrical,
			Reason:   "Spare controllers for the test rig",
			Vendor:   "REV Robotics",
			Link:     "https://www.revrobotics.com/rev-11-1271/",
		},
	}

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i := range samples {
			order := samples[i]
			if _, err := tx.NewInsert().Model(&order).Returning("id").Exec(ctx); err != nil {
				return err
			}
			event := entity.StatusEvent{
				OrderID:    order.ID,
				InstanceID: 1,
				Date:       now,
				Status:     entity.StatusNew,
			}
			if _, err := tx.NewInsert().Model(&event).Exec(ctx); err != nil {
				return err
			}
		}
		if s.logger != nil {
			s.logger.Info("seeded orders", zap.Int("count", len(samples)))
		}
		return nil
	})
}
