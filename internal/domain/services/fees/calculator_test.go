package fees

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeKnownValues(t *testing.T) {
	cases := []struct {
		name  string
		gross int64
		bps   int64
		fee   int64
		net   int64
	}{
		{"zero rate", 1000, 0, 0, 1000},
		{"rounds down", 1000, 25, 2, 998}, // 2.5 floors to 2
		{"exact division", 1000000, 25, 2500, 997500},
		{"one percent ceiling", 1000000, 100, 10000, 990000},
		{"tiny amount", 1, 100, 0, 1},
		{"fee below one unit", 399, 25, 0, 399},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee, net := Compute(decimal.NewFromInt(tc.gross), tc.bps)
			assert.True(t, decimal.NewFromInt(tc.fee).Equal(fee), "fee: want %d got %s", tc.fee, fee)
			assert.True(t, decimal.NewFromInt(tc.net).Equal(net), "net: want %d got %s", tc.net, net)
		})
	}
}

func TestComputeConservesGross(t *testing.T) {
	amounts := []int64{1, 7, 999, 10000, 123456789, 1000000000000}

	for _, g := range amounts {
		gross := decimal.NewFromInt(g)
		for bps := int64(0); bps <= 100; bps++ {
			fee, net := Compute(gross, bps)
			assert.True(t, fee.Add(net).Equal(gross),
				"fee+net must equal gross for g=%d bps=%d", g, bps)
			assert.False(t, fee.IsNegative())
			assert.False(t, net.IsNegative())
		}
	}
}
