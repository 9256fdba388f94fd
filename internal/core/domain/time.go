package domain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.trai.ch/zerr"
)

// FromTime converts t to seconds since the epoch with millisecond precision.
func FromTime(t time.Time) decimal.Decimal {
	return decimal.NewFromInt(t.UnixMilli()).Shift(-3)
}

// ToTime converts seconds since the epoch into a time.Time.
func ToTime(d decimal.Decimal) time.Time {
	return time.UnixMilli(d.Shift(3).Round(0).IntPart())
}

// ParseTime converts a time-like input into a Value. nil yields Null; numbers
// are seconds since the epoch; strings are RFC 3339 or decimal seconds.
func ParseTime(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null, nil
	case Value:
		return t, nil
	case *Value:
		if t == nil {
			return Null, nil
		}
		return *t, nil
	case decimal.Decimal:
		return Some(t), nil
	case time.Time:
		return Some(FromTime(t)), nil
	case string:
		return parseTimeString(t)
	default:
		return ParseNumber(v)
	}
}

// ParseNumber converts a numeric input into a Value, rejecting NaN and
// infinities.
func ParseNumber(v any) (Value, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return Some(n), nil
	case float64:
		return parseFloat(n)
	case float32:
		return parseFloat(float64(n))
	case int:
		return Int(int64(n)), nil
	case int32:
		return Int(int64(n)), nil
	case int64:
		return Int(n), nil
	case uint32:
		return Int(int64(n)), nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		if err != nil {
			return Null, zerr.With(ErrInvalidValue, "input", n)
		}
		return Some(d), nil
	default:
		return Null, zerr.With(ErrInvalidValue, "input", v)
	}
}

func parseFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null, zerr.With(ErrInvalidValue, "input", f)
	}
	return Float(f), nil
}

func parseTimeString(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "now" {
		return Null, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Some(FromTime(t)), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return Some(FromTime(t)), nil
	}
	return ParseNumber(s)
}
