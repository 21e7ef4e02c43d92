package ir

import (
	"fmt"
	"math"
	"time"
)

// Convert coerces v to kind k. Numeric values convert between widths and
// between integer and float kinds only when the number fits exactly; every
// other kind must already match.
// Null is accepted for references only.
func Convert(k Kind, v Value) (Value, error) {
	if IsNull(v) {
		if k == KindReference {
			return Null{}, nil
		}
		return nil, fmt.Errorf("null is not a valid %s", k)
	}
	if KindOf(v) == k {
		return v, nil
	}

	n, ok := numeric(v)
	if !ok {
		return nil, fmt.Errorf("cannot use %s as %s", KindOf(v), k)
	}

	if k.IsFloat() {
		f := n.float()
		if n.isInt && (f >= math.MaxInt64 || int64(f) != n.i) {
			return nil, fmt.Errorf("%d has no exact %s form", n.i, k)
		}
		if k == KindFloat64 {
			return Float64(f), nil
		}
		if !math.IsNaN(f) && float64(float32(f)) != f {
			return nil, fmt.Errorf("%s has no exact %s form", Format(v), k)
		}
		return Float32(f), nil
	}
	if !k.IsInteger() {
		return nil, fmt.Errorf("cannot use %s as %s", KindOf(v), k)
	}

	i := n.i
	if !n.isInt {
		if n.f != math.Trunc(n.f) || math.IsInf(n.f, 0) || math.IsNaN(n.f) {
			return nil, fmt.Errorf("%s is not an integer", Format(v))
		}
		i = int64(n.f)
	}
	return intOfKind(k, i)
}

func intOfKind(k Kind, i int64) (Value, error) {
	switch k {
	case KindInt8:
		if i < math.MinInt8 || i > math.MaxInt8 {
			return nil, fmt.Errorf("%d overflows int8", i)
		}
		return Int8(i), nil
	case KindInt16:
		if i < math.MinInt16 || i > math.MaxInt16 {
			return nil, fmt.Errorf("%d overflows int16", i)
		}
		return Int16(i), nil
	case KindInt32:
		if i < math.MinInt32 || i > math.MaxInt32 {
			return nil, fmt.Errorf("%d overflows int32", i)
		}
		return Int32(i), nil
	default:
		return Int64(i), nil
	}
}

// FromGo converts a plain Go value (as decoded from YAML, JSON or CUE) into
// a value of kind k. A decoded float64 aimed at a float32 property stands
// for a decimal literal and rounds to the nearest float32. Links cannot be
// built this way because they need object resolution; callers handle them
// before reaching FromGo.
func FromGo(k Kind, x any) (Value, error) {
	if x == nil {
		return Convert(k, Null{})
	}
	switch val := x.(type) {
	case Value:
		return Convert(k, val)
	case bool:
		return Convert(k, Bool(val))
	case int:
		return Convert(k, Int64(val))
	case int32:
		return Convert(k, Int64(val))
	case int64:
		return Convert(k, Int64(val))
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("%d overflows int64", val)
		}
		return Convert(k, Int64(val))
	case float32:
		return Convert(k, Float32(val))
	case float64:
		if k == KindFloat32 {
			return nearestFloat32(val)
		}
		return Convert(k, Float64(val))
	case []byte:
		if k != KindBytes {
			return nil, fmt.Errorf("cannot use bytes as %s", k)
		}
		return Clone(Bytes(val)), nil
	case time.Time:
		return Convert(k, Instant(val))
	case string:
		switch k {
		case KindString:
			return String(val), nil
		case KindBytes:
			return Bytes(val), nil
		case KindInstant:
			t, err := time.Parse(time.RFC3339Nano, val)
			if err != nil {
				return nil, fmt.Errorf("parse instant %q: %w", val, err)
			}
			return Instant(t), nil
		default:
			return nil, fmt.Errorf("cannot use string %q as %s", val, k)
		}
	default:
		return nil, fmt.Errorf("unsupported Go type %T for %s", x, k)
	}
}

func nearestFloat32(f float64) (Value, error) {
	r := float32(f)
	if math.IsInf(float64(r), 0) && !math.IsInf(f, 0) {
		return nil, fmt.Errorf("%v overflows float32", f)
	}
	return Float32(r), nil
}
