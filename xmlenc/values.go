package xmlenc

import (
	"encoding/base64"
	"math"
	"strconv"

	"github.com/weakdom/rbxml/rbxvalue"
)

// writeValue emits one property element. The element tag is the format's
// type discriminant, the name attribute is the (already final) property
// name. The switch is exhaustive over rbxvalue.Type.
func writeValue(sink Sink, state *emitState, name string, v rbxvalue.Variant) *Error {
	switch v.Type() {
	case rbxvalue.TypeBool:
		return writeScalar(sink, "bool", name, strconv.FormatBool(v.AsBool()))

	case rbxvalue.TypeInt32:
		return writeScalar(sink, "int", name, strconv.FormatInt(int64(v.AsInt32()), 10))

	case rbxvalue.TypeInt64:
		return writeScalar(sink, "int64", name, strconv.FormatInt(v.AsInt64(), 10))

	case rbxvalue.TypeFloat32:
		return writeScalar(sink, "float", name, formatFloat(float64(v.AsFloat32()), 32))

	case rbxvalue.TypeFloat64:
		return writeScalar(sink, "double", name, formatFloat(v.AsFloat64(), 64))

	case rbxvalue.TypeString:
		return writeScalar(sink, "string", name, v.AsString())

	case rbxvalue.TypeBinaryString:
		return writeScalar(sink, "BinaryString", name,
			base64.StdEncoding.EncodeToString(v.AsBinaryString()))

	case rbxvalue.TypeEnum:
		return writeScalar(sink, "token", name, strconv.FormatUint(uint64(v.AsEnum()), 10))

	case rbxvalue.TypeColor3:
		c := v.AsColor3()
		return writeComposite(sink, "Color3", name,
			field{"R", formatFloat(float64(c.R), 32)},
			field{"G", formatFloat(float64(c.G), 32)},
			field{"B", formatFloat(float64(c.B), 32)})

	case rbxvalue.TypeColor3uint8:
		return writeScalar(sink, "Color3uint8", name,
			strconv.FormatUint(uint64(v.AsColor3uint8().Pack()), 10))

	case rbxvalue.TypeVector2:
		p := v.AsVector2()
		return writeComposite(sink, "Vector2", name,
			field{"X", formatFloat(float64(p.X), 32)},
			field{"Y", formatFloat(float64(p.Y), 32)})

	case rbxvalue.TypeVector3:
		p := v.AsVector3()
		return writeComposite(sink, "Vector3", name,
			field{"X", formatFloat(float64(p.X), 32)},
			field{"Y", formatFloat(float64(p.Y), 32)},
			field{"Z", formatFloat(float64(p.Z), 32)})

	case rbxvalue.TypeCFrame:
		cf := v.AsCFrame()
		fields := make([]field, 0, 12)
		fields = append(fields,
			field{"X", formatFloat(float64(cf.Position.X), 32)},
			field{"Y", formatFloat(float64(cf.Position.Y), 32)},
			field{"Z", formatFloat(float64(cf.Position.Z), 32)})
		rotNames := [9]string{"R00", "R01", "R02", "R10", "R11", "R12", "R20", "R21", "R22"}
		for i, rn := range rotNames {
			fields = append(fields, field{rn, formatFloat(float64(cf.Rotation[i]), 32)})
		}
		return writeComposite(sink, "CoordinateFrame", name, fields...)

	case rbxvalue.TypeUDim:
		u := v.AsUDim()
		return writeComposite(sink, "UDim", name,
			field{"S", formatFloat(float64(u.Scale), 32)},
			field{"O", strconv.FormatInt(int64(u.Offset), 10)})

	case rbxvalue.TypeUDim2:
		u := v.AsUDim2()
		return writeComposite(sink, "UDim2", name,
			field{"XS", formatFloat(float64(u.X.Scale), 32)},
			field{"XO", strconv.FormatInt(int64(u.X.Offset), 10)},
			field{"YS", formatFloat(float64(u.Y.Scale), 32)},
			field{"YO", strconv.FormatInt(int64(u.Y.Offset), 10)})

	case rbxvalue.TypeRef:
		ref := v.AsRef()
		text := "null"
		if !ref.IsNull() {
			text = strconv.FormatUint(uint64(state.mapRef(ref)), 10)
		}
		return writeScalar(sink, "Ref", name, text)

	case rbxvalue.TypeSharedString:
		ss := v.AsSharedString()
		state.addSharedString(ss)
		return writeScalar(sink, "SharedString", name,
			base64.StdEncoding.EncodeToString(ss.Fingerprint()))

	default:
		return &Error{
			Kind:    KindSink,
			Message: "invalid variant",
			Cause:   errInvalidVariant,
		}
	}
}

type field struct {
	name string
	text string
}

func writeScalar(sink Sink, tag, name, text string) *Error {
	if err := sink.StartElement(tag, Attr{Name: "name", Value: name}); err != nil {
		return sinkError(err)
	}
	if err := sink.Text(text); err != nil {
		return sinkError(err)
	}
	if err := sink.EndElement(); err != nil {
		return sinkError(err)
	}
	return nil
}

func writeComposite(sink Sink, tag, name string, fields ...field) *Error {
	if err := sink.StartElement(tag, Attr{Name: "name", Value: name}); err != nil {
		return sinkError(err)
	}
	for _, f := range fields {
		if err := sink.StartElement(f.name); err != nil {
			return sinkError(err)
		}
		if err := sink.Text(f.text); err != nil {
			return sinkError(err)
		}
		if err := sink.EndElement(); err != nil {
			return sinkError(err)
		}
	}
	if err := sink.EndElement(); err != nil {
		return sinkError(err)
	}
	return nil
}

// formatFloat matches the format's float spellings, including the INF and
// NAN tokens the platform writes instead of Go's Inf/NaN.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case math.IsNaN(f):
		return "NAN"
	default:
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
}
