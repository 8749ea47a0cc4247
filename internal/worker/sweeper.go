package worker

import (
	"context"
	"time"

	"service-marketplace/pkg/utils"

	"go.uber.org/zap"
)

const sweepBatch = 100

// StaleCanceller cancels PENDING payments that never received an invoice id.
type StaleCanceller interface {
	CancelStalePayments(ctx context.Context, createdBefore time.Time, limit int) (int, error)
}

// PaymentSweeper periodically cancels payments orphaned by a crash or a
// failed compensating rollback, releasing their booking slot.
type PaymentSweeper struct {
	canceller  StaleCanceller
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
	log        *zap.Logger
}

func NewPaymentSweeper(canceller StaleCanceller, cfg utils.SweeperConfig, log *zap.Logger) *PaymentSweeper {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	staleAfter := cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	return &PaymentSweeper{
		canceller:  canceller,
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
		log:        log.With(zap.String("worker", "payment_sweeper")),
	}
}

// Run blocks until ctx is cancelled.
func (w *PaymentSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("Payment sweeper started",
		zap.Duration("interval", w.interval),
		zap.Duration("stale_after", w.staleAfter),
	)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Payment sweeper stopped")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass, draining full batches.
func (w *PaymentSweeper) Sweep(ctx context.Context) int {
	cutoff := w.now().Add(-w.staleAfter)
	total := 0
	for ctx.Err() == nil {
		n, err := w.canceller.CancelStalePayments(ctx, cutoff, sweepBatch)
		if err != nil {
			w.log.Error("Stale payment sweep failed", zap.Error(err))
			return total
		}
		total += n
		if n < sweepBatch {
			break
		}
	}
	if total > 0 {
		w.log.Info("Stale payments cancelled", zap.Int("count", total))
	}
	return total
}
