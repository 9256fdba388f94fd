package domain

import (
	"github.com/shopspring/decimal"
)

// Value is a nullable decimal. A null time value means "live now".
type Value = decimal.NullDecimal

// Null is the null Value.
var Null = Value{}

// Some wraps d into a valid Value.
func Some(d decimal.Decimal) Value {
	return Value{Decimal: d, Valid: true}
}

// Int returns the Value of an integer.
func Int(i int64) Value {
	return Some(decimal.NewFromInt(i))
}

// Float returns the Value of a finite float.
func Float(f float64) Value {
	return Some(decimal.NewFromFloat(f))
}

// Or returns v's decimal, or fallback when v is null.
func Or(v Value, fallback decimal.Decimal) decimal.Decimal {
	if v.Valid {
		return v.Decimal
	}
	return fallback
}

// Equal reports whether a and b are both null or numerically equal.
func Equal(a, b Value) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

// Digits returns the number of fractional digits carried by d.
func Digits(d decimal.Decimal) int32 {
	if exp := d.Exponent(); exp < 0 {
		return -exp
	}
	return 0
}

// BoundKind tells how one side of a Domain is constrained.
type BoundKind uint8

const (
	// BoundOpen leaves the side unconstrained.
	BoundOpen BoundKind = iota
	// BoundNull constrains the side to the owner's null value ("now").
	BoundNull
	// BoundFixed constrains the side to Value.
	BoundFixed
)

// Bound is one side of a Domain.
type Bound struct {
	Kind  BoundKind       `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// Open is an unconstrained bound.
func Open() Bound { return Bound{Kind: BoundOpen} }

// AtNull is a bound tracking the null value.
func AtNull() Bound { return Bound{Kind: BoundNull} }

// At is a fixed bound.
func At(d decimal.Decimal) Bound { return Bound{Kind: BoundFixed, Value: d} }

// AtInt is a fixed bound at an integer.
func AtInt(i int64) Bound { return At(decimal.NewFromInt(i)) }

// Resolve returns the bound's comparison value, substituting nullValue for
// a null bound. ok is false for an open bound.
func (b Bound) Resolve(nullValue decimal.Decimal) (decimal.Decimal, bool) {
	switch b.Kind {
	case BoundFixed:
		return b.Value, true
	case BoundNull:
		return nullValue, true
	default:
		return decimal.Decimal{}, false
	}
}

// AsValue converts the bound into the value a clamped Committable adopts.
func (b Bound) AsValue() Value {
	if b.Kind == BoundFixed {
		return Some(b.Value)
	}
	return Null
}

// Equal reports whether two bounds constrain identically.
func (b Bound) Equal(o Bound) bool {
	if b.Kind != o.Kind {
		return false
	}
	return b.Kind != BoundFixed || b.Value.Equal(o.Value)
}

// Domain is an inclusive clamp range.
type Domain [2]Bound

// Unbounded is a domain with both sides open.
var Unbounded = Domain{Open(), Open()}

// Equal reports whether both sides match.
func (d Domain) Equal(o Domain) bool {
	return d[0].Equal(o[0]) && d[1].Equal(o[1])
}

// Clamp clamps v into d. The comparison uses nullValue when v is null or a
// side is a null bound. The returned flag is true when clamping engaged.
func Clamp(v Value, d Domain, nullValue decimal.Decimal) (Value, bool) {
	cmp := Or(v, nullValue)
	if lo, ok := d[0].Resolve(nullValue); ok && cmp.LessThan(lo) {
		return d[0].AsValue(), true
	}
	if hi, ok := d[1].Resolve(nullValue); ok && cmp.GreaterThan(hi) {
		return d[1].AsValue(), true
	}
	return v, false
}
