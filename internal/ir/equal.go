package ir

import (
	"bytes"
	"math"
)

// Equal compares two values by their semantic meaning:
//   - numeric kinds by numeric value, regardless of width; NaN equals NaN
//   - strings and bytes by content
//   - instants by the represented time point
//   - references by (type, key)
//   - Null only equals Null
//   - lists element-wise
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}

	if an, aok := numeric(a); aok {
		bn, bok := numeric(b)
		if !bok {
			return false
		}
		return an.equal(bn)
	}

	switch av := a.(type) {
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Bytes:
		bv, ok := b.(Bytes)
		return ok && bytes.Equal(av, bv)
	case Instant:
		bv, ok := b.(Instant)
		return ok && av.Time().Equal(bv.Time())
	case Ref:
		bv, ok := b.(Ref)
		return ok && av.Type == bv.Type && Equal(av.Key, bv.Key)
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// number holds a numeric value in the widest form that keeps it exact.
type number struct {
	isInt bool
	i     int64
	f     float64
}

func (n number) equal(o number) bool {
	if n.isInt && o.isInt {
		return n.i == o.i
	}
	f, g := n.float(), o.float()
	return f == g || (math.IsNaN(f) && math.IsNaN(g))
}

func (n number) float() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

func numeric(v Value) (number, bool) {
	switch val := v.(type) {
	case Int8:
		return number{isInt: true, i: int64(val)}, true
	case Int16:
		return number{isInt: true, i: int64(val)}, true
	case Int32:
		return number{isInt: true, i: int64(val)}, true
	case Int64:
		return number{isInt: true, i: int64(val)}, true
	case Float32:
		return number{f: float64(val)}, true
	case Float64:
		return number{f: float64(val)}, true
	}
	return number{}, false
}
