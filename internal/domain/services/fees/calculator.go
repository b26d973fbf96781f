// Package fees computes the protocol fee charged at request creation.
package fees

import "github.com/shopspring/decimal"

// BasisPointDivisor converts basis points to a fraction
const BasisPointDivisor = 10000

var divisor = decimal.NewFromInt(BasisPointDivisor)

// Compute returns the protocol fee and net amount for a gross amount at
// the given basis-point rate: fee = floor(gross * bps / 10000),
// net = gross - fee. fee + net always equals gross exactly.
//
// The fee is computed once at request creation and never recomputed at
// settlement. The rate bound is enforced by the admin surface on write,
// not here.
func Compute(gross decimal.Decimal, feeBasisPoints int64) (fee, net decimal.Decimal) {
	fee = gross.Mul(decimal.NewFromInt(feeBasisPoints)).Div(divisor).Floor()
	net = gross.Sub(fee)
	return fee, net
}
