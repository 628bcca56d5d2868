package rbxvalue

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// Convert attempts to re-type v as target. The matrix is deliberately
// conservative: it performs exact or well-defined conversions (numeric
// widening, checked narrowing, enum/int bridging, the two color forms,
// string/binary bridging) and rejects everything else with a reason.
//
// The switch over source kinds is exhaustive over Type; a new kind must be
// given a row here before it can flow through the encoder.
func Convert(v Variant, target Type) (Variant, error) {
	if v.Type() == target {
		return v, nil
	}

	switch v.Type() {
	case TypeBool:
		// No implicit conversions out of Bool.

	case TypeInt32:
		n := v.AsInt32()
		switch target {
		case TypeInt64:
			return Int64(int64(n)), nil
		case TypeFloat32:
			return Float32(float32(n)), nil
		case TypeFloat64:
			return Float64(float64(n)), nil
		case TypeEnum:
			if n < 0 {
				return Variant{}, fmt.Errorf("enum value cannot be negative (%d)", n)
			}
			return Enum(uint32(n)), nil
		}

	case TypeInt64:
		n := v.AsInt64()
		switch target {
		case TypeInt32:
			if n < math.MinInt32 || n > math.MaxInt32 {
				return Variant{}, fmt.Errorf("value %d out of Int32 range", n)
			}
			return Int32(int32(n)), nil
		case TypeFloat32:
			return Float32(float32(n)), nil
		case TypeFloat64:
			return Float64(float64(n)), nil
		case TypeEnum:
			if n < 0 || n > math.MaxUint32 {
				return Variant{}, fmt.Errorf("value %d out of enum range", n)
			}
			return Enum(uint32(n)), nil
		}

	case TypeFloat32:
		f := float64(v.AsFloat32())
		switch target {
		case TypeFloat64:
			return Float64(f), nil
		case TypeInt32, TypeInt64:
			return floatToInt(f, target)
		}

	case TypeFloat64:
		f := v.AsFloat64()
		switch target {
		case TypeFloat32:
			if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
				return Variant{}, fmt.Errorf("value %g overflows Float32", f)
			}
			return Float32(float32(f)), nil
		case TypeInt32, TypeInt64:
			return floatToInt(f, target)
		}

	case TypeString:
		if target == TypeBinaryString {
			return BinaryString([]byte(v.AsString())), nil
		}

	case TypeBinaryString:
		if target == TypeString {
			b := v.AsBinaryString()
			if !utf8.Valid(b) {
				return Variant{}, fmt.Errorf("binary payload is not valid UTF-8")
			}
			return String(string(b)), nil
		}

	case TypeEnum:
		e := v.AsEnum()
		switch target {
		case TypeInt32:
			if e > math.MaxInt32 {
				return Variant{}, fmt.Errorf("enum value %d out of Int32 range", e)
			}
			return Int32(int32(e)), nil
		case TypeInt64:
			return Int64(int64(e)), nil
		}

	case TypeColor3:
		if target == TypeColor3uint8 {
			c := v.AsColor3()
			return FromColor3uint8(Color3uint8{
				R: clampByte(c.R),
				G: clampByte(c.G),
				B: clampByte(c.B),
			}), nil
		}

	case TypeColor3uint8:
		if target == TypeColor3 {
			c := v.AsColor3uint8()
			return FromColor3(Color3{
				R: float32(c.R) / 255,
				G: float32(c.G) / 255,
				B: float32(c.B) / 255,
			}), nil
		}

	case TypeVector2, TypeVector3, TypeCFrame, TypeUDim, TypeUDim2, TypeRef, TypeSharedString:
		// Geometric, reference and shared payload kinds only convert to
		// themselves, which the identity check above already handled.

	default:
		return Variant{}, fmt.Errorf("invalid variant")
	}

	return Variant{}, fmt.Errorf("cannot convert %s to %s", v.Type(), target)
}

func floatToInt(f float64, target Type) (Variant, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return Variant{}, fmt.Errorf("value %g is not an integer", f)
	}
	switch target {
	case TypeInt32:
		if f < math.MinInt32 || f > math.MaxInt32 {
			return Variant{}, fmt.Errorf("value %g out of Int32 range", f)
		}
		return Int32(int32(f)), nil
	default:
		if f < math.MinInt64 || f >= math.MaxInt64 {
			return Variant{}, fmt.Errorf("value %g out of Int64 range", f)
		}
		return Int64(int64(f)), nil
	}
}

func clampByte(f float32) uint8 {
	scaled := math.Round(float64(f) * 255)
	if scaled < 0 {
		return 0
	}
	if scaled > 255 {
		return 255
	}
	return uint8(scaled)
}
