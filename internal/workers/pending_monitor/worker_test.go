package pending_monitor

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerpay/router_service/internal/domain/entities"
	"github.com/routerpay/router_service/pkg/logger"
	"github.com/routerpay/router_service/pkg/metrics"
)

type fakeLedger struct {
	pending    int64
	stuck      []*entities.PaymentRequest
	lastCutoff time.Time
	lastLimit  int
}

func (f *fakeLedger) ListUnprocessedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*entities.PaymentRequest, error) {
	f.lastCutoff = cutoff
	f.lastLimit = limit
	return f.stuck, nil
}

func (f *fakeLedger) CountUnprocessed(ctx context.Context) (int64, error) {
	return f.pending, nil
}

func stuckRequest(id string) *entities.PaymentRequest {
	return &entities.PaymentRequest{
		RequestID:     id,
		UserAddress:   "0xuser",
		SourceToken:   "0xusdc",
		DestToken:     "0xusdc",
		SourceAmount:  decimal.NewFromInt(1000),
		NetAmount:     decimal.NewFromInt(997),
		FeeAmount:     decimal.NewFromInt(3),
		DestMinAmount: decimal.NewFromInt(990),
		SourceChainID: 1,
		DestChainID:   137,
		Protocol:      entities.ProtocolStargate,
		CreatedAt:     time.Now().UTC().Add(-2 * time.Hour),
	}
}

func TestScanUpdatesGauges(t *testing.T) {
	ledger := &fakeLedger{
		pending: 7,
		stuck:   []*entities.PaymentRequest{stuckRequest("R1"), stuckRequest("R2")},
	}
	w := NewWorker(ledger, &Config{Schedule: "@every 5m", StuckAfter: time.Hour, BatchSize: 50}, logger.New("error", "test"))

	w.Scan(context.Background())

	assert.Equal(t, float64(7), testutil.ToFloat64(metrics.PendingRequestsGauge))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.StuckRequestsGauge))
	assert.Equal(t, 50, ledger.lastLimit)

	wantCutoff := time.Now().UTC().Add(-time.Hour)
	assert.WithinDuration(t, wantCutoff, ledger.lastCutoff, 5*time.Second)
}

func TestScanClearsStuckGauge(t *testing.T) {
	ledger := &fakeLedger{pending: 3}
	w := NewWorker(ledger, nil, logger.New("error", "test"))

	w.Scan(context.Background())

	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.PendingRequestsGauge))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.StuckRequestsGauge))
	assert.Equal(t, DefaultConfig().BatchSize, ledger.lastLimit)
}

func TestStartRunsInitialScan(t *testing.T) {
	ledger := &fakeLedger{pending: 1}
	w := NewWorker(ledger, &Config{Schedule: "@every 1h", StuckAfter: time.Hour, BatchSize: 10}, logger.New("error", "test"))

	require.NoError(t, w.Start())
	defer w.Stop()

	assert.Equal(t, 10, ledger.lastLimit)
}
