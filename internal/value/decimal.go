package value

import (
	"fmt"
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

// decimalPrecision is the number of significant digits kept by real and
// physical arithmetic.
const decimalPrecision = 34

// decimalCtx is used for real and physical arithmetic. Division rounds half
// down.
var decimalCtx = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(decimalPrecision)
	c.Rounding = apd.RoundHalfDown
	return c
}()

func decimalFromBig(n *big.Int) *apd.Decimal {
	var bi apd.BigInt
	bi.SetMathBigInt(n)
	return apd.NewWithBigInt(&bi, 0)
}

// decimalOf converts a numeric value to a decimal.
func decimalOf(v Value) (*apd.Decimal, bool) {
	switch x := v.(type) {
	case *Integer:
		return decimalFromBig(&x.num), true
	case *Real:
		return new(apd.Decimal).Set(&x.dec), true
	}
	return nil, false
}

// decimalToBig rounds d to an integer with the given rounding mode.
func decimalToBig(d *apd.Decimal, rounding apd.Rounder) (*big.Int, error) {
	digits := d.NumDigits() + int64(d.Exponent)
	prec := int64(decimalPrecision)
	if digits+1 > prec {
		prec = digits + 1
	}
	c := decimalCtx.WithPrecision(uint32(prec))
	c.Rounding = rounding

	var r apd.Decimal
	if _, err := c.Quantize(&r, d, 0); err != nil {
		return nil, err
	}
	n, ok := new(big.Int).SetString(r.Text('f'), 10)
	if !ok {
		return nil, fmt.Errorf("cannot convert %s to an integer", r.Text('f'))
	}
	return n, nil
}

// decimalString renders d in plain (non-exponent) notation.
func decimalString(d *apd.Decimal) string {
	return d.Text('f')
}

// ParseDecimal parses a real literal.
func ParseDecimal(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid real literal %q: %w", s, err)
	}
	return d, nil
}
