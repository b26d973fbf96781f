package custody

import (
	"context"

	"github.com/shopspring/decimal"
)

// CustodyClient defines the fund movement operations the engine needs
type CustodyClient interface {
	BalanceOf(ctx context.Context, token, owner string) (decimal.Decimal, error)
	Allowance(ctx context.Context, token, owner, spender string) (decimal.Decimal, error)
	Approve(ctx context.Context, token, spender string, amount decimal.Decimal) error
	TransferFrom(ctx context.Context, token, from, to string, amount decimal.Decimal) error
	Transfer(ctx context.Context, token, to string, amount decimal.Decimal) error
	Ping(ctx context.Context) error
}

// Ensure Client implements CustodyClient interface
var _ CustodyClient = (*Client)(nil)
