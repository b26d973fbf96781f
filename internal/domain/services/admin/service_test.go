package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routerpay/router_service/internal/domain/entities"
	domainerrors "github.com/routerpay/router_service/internal/domain/errors"
	"github.com/routerpay/router_service/pkg/logger"
)

type fakeCustody struct {
	transfers int
	err       error
}

func (f *fakeCustody) BalanceOf(ctx context.Context, token, owner string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeCustody) Allowance(ctx context.Context, token, owner, spender string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeCustody) Approve(ctx context.Context, token, spender string, amount decimal.Decimal) error {
	return nil
}

func (f *fakeCustody) TransferFrom(ctx context.Context, token, from, to string, amount decimal.Decimal) error {
	return nil
}

func (f *fakeCustody) Transfer(ctx context.Context, token, to string, amount decimal.Decimal) error {
	if f.err != nil {
		return f.err
	}
	f.transfers++
	return nil
}

func (f *fakeCustody) Ping(ctx context.Context) error { return nil }

type fakeEvents struct {
	appended []entities.EventType
}

func (f *fakeEvents) Append(ctx context.Context, event *entities.PaymentEvent) error {
	f.appended = append(f.appended, event.EventType)
	return nil
}

func (f *fakeEvents) ListByRequest(ctx context.Context, requestID string) ([]*entities.PaymentEvent, error) {
	return nil, nil
}

func newService(custodyClient *fakeCustody, events *fakeEvents) *Service {
	return NewService(25, 100, "0xcollector", "0xtreasury", custodyClient, events, logger.NewLogger(nil, "test"))
}

func TestPauseUnpause(t *testing.T) {
	events := &fakeEvents{}
	svc := newService(&fakeCustody{}, events)
	ctx := context.Background()

	assert.False(t, svc.IsPaused())

	svc.Pause(ctx, "admin")
	assert.True(t, svc.IsPaused())

	// Pausing twice emits one event
	svc.Pause(ctx, "admin")
	assert.Equal(t, []entities.EventType{entities.EventPaused}, events.appended)

	svc.Unpause(ctx, "admin")
	assert.False(t, svc.IsPaused())
	assert.Contains(t, events.appended, entities.EventUnpaused)
}

func TestSetFeeRate(t *testing.T) {
	svc := newService(&fakeCustody{}, &fakeEvents{})
	ctx := context.Background()

	require.NoError(t, svc.SetFeeRate(ctx, "admin", 50))
	assert.Equal(t, int64(50), svc.FeeBasisPoints())

	require.NoError(t, svc.SetFeeRate(ctx, "admin", 0))
	assert.Equal(t, int64(0), svc.FeeBasisPoints())
}

func TestSetFeeRateRejectsAboveCeiling(t *testing.T) {
	svc := newService(&fakeCustody{}, &fakeEvents{})
	ctx := context.Background()

	err := svc.SetFeeRate(ctx, "admin", 101)
	require.Error(t, err)
	assert.True(t, domainerrors.IsValidation(err))
	assert.Equal(t, int64(25), svc.FeeBasisPoints())

	err = svc.SetFeeRate(ctx, "admin", -1)
	require.Error(t, err)
}

func TestEmergencyWithdraw(t *testing.T) {
	cust := &fakeCustody{}
	events := &fakeEvents{}
	svc := newService(cust, events)

	err := svc.EmergencyWithdraw(context.Background(), "admin", "USDC", "0xsafe", decimal.NewFromInt(5000))
	require.NoError(t, err)
	assert.Equal(t, 1, cust.transfers)
	assert.Contains(t, events.appended, entities.EventEmergencyWithdrawal)
}

func TestEmergencyWithdrawFailureSurfaces(t *testing.T) {
	cust := &fakeCustody{err: errors.New("custody down")}
	events := &fakeEvents{}
	svc := newService(cust, events)

	err := svc.EmergencyWithdraw(context.Background(), "admin", "USDC", "0xsafe", decimal.NewFromInt(5000))
	require.Error(t, err)
	assert.True(t, domainerrors.IsTransportFailure(err))
	assert.NotContains(t, events.appended, entities.EventEmergencyWithdrawal)
}

func TestEmergencyWithdrawValidation(t *testing.T) {
	svc := newService(&fakeCustody{}, &fakeEvents{})
	ctx := context.Background()

	err := svc.EmergencyWithdraw(ctx, "admin", "USDC", "0xsafe", decimal.Zero)
	assert.True(t, domainerrors.IsValidation(err))

	err = svc.EmergencyWithdraw(ctx, "admin", "USDC", "", decimal.NewFromInt(1))
	assert.True(t, domainerrors.IsValidation(err))
}

func TestStatus(t *testing.T) {
	svc := newService(&fakeCustody{}, &fakeEvents{})
	svc.Pause(context.Background(), "admin")

	status := svc.Status()
	assert.True(t, status.Paused)
	assert.Equal(t, int64(25), status.FeeBasisPoints)
	assert.Equal(t, int64(100), status.MaxFeeBasisPoints)
	assert.Equal(t, "0xcollector", status.FeeCollector)
}
