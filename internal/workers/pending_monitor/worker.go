// Package pending_monitor periodically surfaces payment requests that
// have waited too long for a settlement callback. The monitor only
// observes: it never times a request out, refunds it, or flips the
// processed flag. A stuck request resolves when the bridge finally
// delivers its callback or when an operator intervenes.
package pending_monitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/routerpay/router_service/internal/domain/entities"
	"github.com/routerpay/router_service/pkg/logger"
	"github.com/routerpay/router_service/pkg/metrics"
)

// Ledger is the slice of the payment ledger the monitor reads
type Ledger interface {
	ListUnprocessedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.PaymentRequest, error)
	CountUnprocessed(ctx context.Context) (int64, error)
}

// Config holds monitor configuration
type Config struct {
	Schedule   string
	StuckAfter time.Duration
	BatchSize  int
}

// DefaultConfig returns default monitor configuration
func DefaultConfig() *Config {
	return &Config{
		Schedule:   "@every 5m",
		StuckAfter: time.Hour,
		BatchSize:  100,
	}
}

// Worker runs the pending-request scan on a cron schedule
type Worker struct {
	ledger   Ledger
	config   *Config
	schedule *cron.Cron
	logger   *logger.Logger
}

// NewWorker creates a pending-request monitor
func NewWorker(ledger Ledger, config *Config, log *logger.Logger) *Worker {
	if config == nil {
		config = DefaultConfig()
	}
	return &Worker{
		ledger:   ledger,
		config:   config,
		schedule: cron.New(),
		logger:   log,
	}
}

// Start registers the scan with the cron scheduler and runs one scan
// immediately so the gauges are populated right after boot.
func (w *Worker) Start() error {
	if _, err := w.schedule.AddFunc(w.config.Schedule, func() {
		w.Scan(context.Background())
	}); err != nil {
		return err
	}
	w.schedule.Start()
	w.logger.Info("Pending request monitor started",
		"schedule", w.config.Schedule,
		"stuck_after", w.config.StuckAfter.String())

	w.Scan(context.Background())
	return nil
}

// Stop halts the scheduler and waits for a running scan to finish
func (w *Worker) Stop() {
	ctx := w.schedule.Stop()
	<-ctx.Done()
	w.logger.Info("Pending request monitor stopped")
}

// Shutdown implements graceful.Shutdowner
func (w *Worker) Shutdown(time.Duration) error {
	w.Stop()
	return nil
}

// Scan refreshes the pending and stuck gauges and logs each request
// that crossed the stuck threshold.
func (w *Worker) Scan(ctx context.Context) {
	pending, err := w.ledger.CountUnprocessed(ctx)
	if err != nil {
		w.logger.Error("Failed to count pending requests", "error", err)
		return
	}
	metrics.PendingRequestsGauge.Set(float64(pending))

	cutoff := time.Now().UTC().Add(-w.config.StuckAfter)
	stuck, err := w.ledger.ListUnprocessedBefore(ctx, cutoff, w.config.BatchSize)
	if err != nil {
		w.logger.Error("Failed to list stuck requests", "error", err)
		return
	}
	metrics.StuckRequestsGauge.Set(float64(len(stuck)))

	for _, req := range stuck {
		w.logger.Warn("Payment request stuck awaiting settlement",
			"request_id", req.RequestID,
			"protocol", string(req.Protocol),
			"dest_chain_id", req.DestChainID,
			"age", time.Since(req.CreatedAt).String())
	}

	if len(stuck) > 0 {
		w.logger.Info("Pending request scan complete",
			"pending", pending,
			"stuck", len(stuck))
	}
}
