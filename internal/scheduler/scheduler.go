package scheduler

import (
	"context"
	"time"

	"github.com/santemut/vigie/internal/config"
	voucherdomain "github.com/santemut/vigie/internal/voucher/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler periodically sweeps overdue vouchers into the expired state.
// It is the in-process rendition of the cron collaborator the voucher
// ledger expects; the ledger itself stays synchronous.
type Scheduler struct {
	cfg      config.SchedulerConfig
	log      *zap.Logger
	vouchers voucherdomain.Service
}

type Params struct {
	fx.In

	Config   config.Config
	Log      *zap.Logger
	Vouchers voucherdomain.Service
}

func New(p Params) *Scheduler {
	return &Scheduler{
		cfg:      p.Config.Scheduler,
		log:      p.Log.Named("scheduler"),
		vouchers: p.Vouchers,
	}
}

func (s *Scheduler) RunForever(ctx context.Context) {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce drains one batch of overdue vouchers.
func (s *Scheduler) SweepOnce(ctx context.Context) {
	expired, err := s.vouchers.ExpireOverdue(ctx, s.cfg.BatchSize)
	if err != nil {
		s.log.Error("voucher expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.log.Info("voucher expiry sweep", zap.Int("expired", expired))
	}
}
