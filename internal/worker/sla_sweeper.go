package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/spec-kit/dispatch-service/internal/config"
	"github.com/spec-kit/dispatch-service/internal/observability"
	"github.com/spec-kit/dispatch-service/internal/service"
)

const sweepLeaseName = "sla-sweep"

// LeaseAcquirer guards the sweep so only one instance runs it per interval.
type LeaseAcquirer interface {
	AcquireLease(ctx context.Context, name, holder string, ttl time.Duration) (bool, error)
}

// SLASweeper periodically runs the SLA violation sweep.
type SLASweeper struct {
	sla      *service.SLAService
	leases   LeaseAcquirer
	metrics  *observability.Metrics
	clock    clock.Clock
	logger   *zap.Logger
	interval time.Duration
	leaseTTL time.Duration
	holder   string
}

// NewSLASweeper constructs the sweeper.
func NewSLASweeper(sla *service.SLAService, leases LeaseAcquirer, metrics *observability.Metrics, clk clock.Clock, logger *zap.Logger, cfg config.SweeperConfig) *SLASweeper {
	if clk == nil {
		clk = clock.WallClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SLASweeper{
		sla:      sla,
		leases:   leases,
		metrics:  metrics,
		clock:    clk,
		logger:   logger,
		interval: cfg.Interval(),
		leaseTTL: cfg.LeaseTTL(),
		holder:   uuid.NewString(),
	}
}

// Run loops until the context is cancelled, sweeping once per interval.
func (w *SLASweeper) Run(ctx context.Context) {
	w.logger.Info("sla sweeper started",
		zap.Duration("interval", w.interval),
		zap.String("holder", w.holder))

	timer := w.clock.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sla sweeper stopped")
			return
		case <-timer.Chan():
			w.SweepOnce(ctx)
			timer.Reset(w.interval)
		}
	}
}

// SweepOnce runs a single sweep if the instance holds the lease.
func (w *SLASweeper) SweepOnce(ctx context.Context) {
	if w.leases != nil {
		acquired, err := w.leases.AcquireLease(ctx, sweepLeaseName, w.holder, w.leaseTTL)
		if err != nil {
			w.logger.Error("sla sweep: acquire lease", zap.Error(err))
			return
		}
		if !acquired {
			w.logger.Debug("sla sweep: lease held elsewhere, skipping")
			return
		}
	}

	result := w.sla.SweepAll(ctx)
	if w.metrics != nil {
		w.metrics.RecordSweep(result.Violations, result.Failures)
	}
	if result.Violations > 0 || result.Failures > 0 {
		w.logger.Info("sla sweep finished",
			zap.Int("tenants", result.Tenants),
			zap.Int("violations", result.Violations),
			zap.Int("failures", result.Failures))
	}
}
