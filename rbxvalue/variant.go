// Package rbxvalue defines the property value domain for Roblox scene trees:
// a closed tagged union (Variant) over the platform's serializable types,
// instance reference handles (Ref), content-hashed shared payloads
// (SharedString), and the fallible conversion matrix between value kinds.
package rbxvalue

// Ref is an opaque handle identifying one instance within a tree.
//
// The zero value is the null reference. Refs are only meaningful within the
// tree that allocated them.
type Ref uint64

// NullRef is the absent-instance reference.
const NullRef Ref = 0

// IsNull reports whether r is the null reference.
func (r Ref) IsNull() bool { return r == NullRef }

// Type tags the kind held by a Variant.
//
// The set is closed: every switch over Type in this module is exhaustive,
// so adding a kind is a compile-surface change, not a silent no-op.
type Type uint8

const (
	TypeBool Type = iota + 1
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeString
	TypeBinaryString
	TypeEnum
	TypeColor3
	TypeColor3uint8
	TypeVector2
	TypeVector3
	TypeCFrame
	TypeUDim
	TypeUDim2
	TypeRef
	TypeSharedString
)

// String returns the type tag name used in error messages.
func (t Type) String() string {
	switch t {
	case TypeBool:
		return "Bool"
	case TypeInt32:
		return "Int32"
	case TypeInt64:
		return "Int64"
	case TypeFloat32:
		return "Float32"
	case TypeFloat64:
		return "Float64"
	case TypeString:
		return "String"
	case TypeBinaryString:
		return "BinaryString"
	case TypeEnum:
		return "Enum"
	case TypeColor3:
		return "Color3"
	case TypeColor3uint8:
		return "Color3uint8"
	case TypeVector2:
		return "Vector2"
	case TypeVector3:
		return "Vector3"
	case TypeCFrame:
		return "CFrame"
	case TypeUDim:
		return "UDim"
	case TypeUDim2:
		return "UDim2"
	case TypeRef:
		return "Ref"
	case TypeSharedString:
		return "SharedString"
	default:
		return "Unknown"
	}
}

// Vector2 is a 2D vector of 32-bit floats.
type Vector2 struct {
	X, Y float32
}

// Vector3 is a 3D vector of 32-bit floats.
type Vector3 struct {
	X, Y, Z float32
}

// CFrame is a position plus a row-major 3x3 rotation matrix.
type CFrame struct {
	Position Vector3
	// Rotation holds R00 R01 R02 R10 R11 R12 R20 R21 R22.
	Rotation [9]float32
}

// IdentityCFrame returns a CFrame at the origin with no rotation.
func IdentityCFrame() CFrame {
	return CFrame{Rotation: [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// Color3 is an RGB color with float components nominally in [0, 1].
type Color3 struct {
	R, G, B float32
}

// Color3uint8 is an RGB color with 8-bit components.
type Color3uint8 struct {
	R, G, B uint8
}

// Pack returns the color packed as 0x00RRGGBB, the form the XML format
// stores Color3uint8 values in.
func (c Color3uint8) Pack() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// UDim is a scale plus pixel offset.
type UDim struct {
	Scale  float32
	Offset int32
}

// UDim2 is a UDim per axis.
type UDim2 struct {
	X, Y UDim
}

// Variant is a value in the property domain. The zero Variant is invalid;
// construct through the typed constructors.
type Variant struct {
	typ Type

	boolVal  bool
	intVal   int64
	floatVal float64
	strVal   string
	binVal   []byte
	enumVal  uint32
	c3Val    Color3
	c3u8Val  Color3uint8
	v2Val    Vector2
	v3Val    Vector3
	cfVal    CFrame
	udVal    UDim
	ud2Val   UDim2
	refVal   Ref
	ssVal    SharedString
}

// Type returns the kind tag of the variant.
func (v Variant) Type() Type { return v.typ }

func Bool(b bool) Variant        { return Variant{typ: TypeBool, boolVal: b} }
func Int32(n int32) Variant      { return Variant{typ: TypeInt32, intVal: int64(n)} }
func Int64(n int64) Variant      { return Variant{typ: TypeInt64, intVal: n} }
func Float32(f float32) Variant  { return Variant{typ: TypeFloat32, floatVal: float64(f)} }
func Float64(f float64) Variant  { return Variant{typ: TypeFloat64, floatVal: f} }
func String(s string) Variant    { return Variant{typ: TypeString, strVal: s} }
func Enum(e uint32) Variant      { return Variant{typ: TypeEnum, enumVal: e} }
func FromColor3(c Color3) Variant { return Variant{typ: TypeColor3, c3Val: c} }
func FromColor3uint8(c Color3uint8) Variant {
	return Variant{typ: TypeColor3uint8, c3u8Val: c}
}
func FromVector2(v Vector2) Variant { return Variant{typ: TypeVector2, v2Val: v} }
func FromVector3(v Vector3) Variant { return Variant{typ: TypeVector3, v3Val: v} }
func FromCFrame(cf CFrame) Variant  { return Variant{typ: TypeCFrame, cfVal: cf} }
func FromUDim(u UDim) Variant       { return Variant{typ: TypeUDim, udVal: u} }
func FromUDim2(u UDim2) Variant     { return Variant{typ: TypeUDim2, ud2Val: u} }
func FromRef(r Ref) Variant         { return Variant{typ: TypeRef, refVal: r} }

// BinaryString wraps raw bytes. The variant aliases b; callers must not
// mutate it afterwards.
func BinaryString(b []byte) Variant { return Variant{typ: TypeBinaryString, binVal: b} }

// FromSharedString wraps an already-hashed shared payload.
func FromSharedString(s SharedString) Variant {
	return Variant{typ: TypeSharedString, ssVal: s}
}

// The typed accessors below are valid only when Type() reports the matching
// kind; for any other kind they return the zero value.

func (v Variant) AsBool() bool                 { return v.boolVal }
func (v Variant) AsInt32() int32               { return int32(v.intVal) }
func (v Variant) AsInt64() int64               { return v.intVal }
func (v Variant) AsFloat32() float32           { return float32(v.floatVal) }
func (v Variant) AsFloat64() float64           { return v.floatVal }
func (v Variant) AsString() string             { return v.strVal }
func (v Variant) AsBinaryString() []byte       { return v.binVal }
func (v Variant) AsEnum() uint32               { return v.enumVal }
func (v Variant) AsColor3() Color3             { return v.c3Val }
func (v Variant) AsColor3uint8() Color3uint8   { return v.c3u8Val }
func (v Variant) AsVector2() Vector2           { return v.v2Val }
func (v Variant) AsVector3() Vector3           { return v.v3Val }
func (v Variant) AsCFrame() CFrame             { return v.cfVal }
func (v Variant) AsUDim() UDim                 { return v.udVal }
func (v Variant) AsUDim2() UDim2               { return v.ud2Val }
func (v Variant) AsRef() Ref                   { return v.refVal }
func (v Variant) AsSharedString() SharedString { return v.ssVal }
