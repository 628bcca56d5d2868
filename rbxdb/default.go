package rbxdb

import (
	"fmt"

	"github.com/weakdom/rbxml/rbxvalue"
)

// ScreenInsets enum values used by the IgnoreGuiInset migration.
const (
	screenInsetsNone             = 0
	screenInsetsCoreUISafeInsets = 2
)

var defaultDatabase = NewStaticDatabase([]*Class{
	{
		Name: "Instance",
		Properties: map[string]*Descriptor{
			"Tags": {Name: "Tags", DataType: ValueType(rbxvalue.TypeBinaryString)},
			"AttributesSerialize": {
				Name:     "AttributesSerialize",
				DataType: ValueType(rbxvalue.TypeBinaryString),
			},
		},
	},
	{
		Name:       "PVInstance",
		Superclass: "Instance",
		Properties: map[string]*Descriptor{},
	},
	{
		Name:       "BasePart",
		Superclass: "PVInstance",
		Properties: map[string]*Descriptor{
			"Anchored":     {Name: "Anchored", DataType: ValueType(rbxvalue.TypeBool)},
			"CanCollide":   {Name: "CanCollide", DataType: ValueType(rbxvalue.TypeBool)},
			"CFrame":       {Name: "CFrame", DataType: ValueType(rbxvalue.TypeCFrame)},
			"Transparency": {Name: "Transparency", DataType: ValueType(rbxvalue.TypeFloat32)},
			"Reflectance":  {Name: "Reflectance", DataType: ValueType(rbxvalue.TypeFloat32)},
			"Material":     {Name: "Material", DataType: EnumType("Material")},
			// The stored Size and Color properties serialize under the
			// format's historical names and types.
			"Size":  {Name: "size", DataType: ValueType(rbxvalue.TypeVector3)},
			"Color": {Name: "Color3uint8", DataType: ValueType(rbxvalue.TypeColor3uint8)},
		},
	},
	{
		Name:       "Part",
		Superclass: "BasePart",
		Properties: map[string]*Descriptor{
			"Shape": {Name: "shape", DataType: EnumType("PartType")},
		},
	},
	{
		Name:       "MeshPart",
		Superclass: "BasePart",
		Properties: map[string]*Descriptor{
			"MeshId":             {Name: "MeshId", DataType: ValueType(rbxvalue.TypeString)},
			"PhysicalConfigData": {Name: "PhysicalConfigData", DataType: ValueType(rbxvalue.TypeSharedString)},
		},
	},
	{
		Name:       "Model",
		Superclass: "PVInstance",
		Properties: map[string]*Descriptor{
			"PrimaryPart": {Name: "PrimaryPart", DataType: ValueType(rbxvalue.TypeRef)},
		},
	},
	{
		Name:       "Folder",
		Superclass: "Instance",
		Properties: map[string]*Descriptor{},
	},
	{
		Name:       "StringValue",
		Superclass: "Instance",
		Properties: map[string]*Descriptor{
			"Value": {Name: "Value", DataType: ValueType(rbxvalue.TypeString)},
		},
	},
	{
		Name:       "Script",
		Superclass: "Instance",
		Properties: map[string]*Descriptor{
			"Source": {Name: "Source", DataType: ValueType(rbxvalue.TypeString)},
		},
	},
	{
		Name:       "ScreenGui",
		Superclass: "Instance",
		Properties: map[string]*Descriptor{
			"Enabled": {Name: "Enabled", DataType: ValueType(rbxvalue.TypeBool)},
			"IgnoreGuiInset": {
				Name:     "IgnoreGuiInset",
				DataType: ValueType(rbxvalue.TypeBool),
				Migration: &Migration{
					NewName: "ScreenInsets",
					Perform: migrateIgnoreGuiInset,
				},
			},
		},
	},
	{
		Name:       "Frame",
		Superclass: "Instance",
		Properties: map[string]*Descriptor{
			"Position": {Name: "Position", DataType: ValueType(rbxvalue.TypeUDim2)},
			"Size":     {Name: "Size", DataType: ValueType(rbxvalue.TypeUDim2)},
			"Visible":  {Name: "Visible", DataType: ValueType(rbxvalue.TypeBool)},
		},
	},
})

// Default returns the built-in reflection database.
func Default() Database { return defaultDatabase }

// migrateIgnoreGuiInset rewrites the legacy IgnoreGuiInset boolean to the
// ScreenInsets enum that replaced it.
func migrateIgnoreGuiInset(v rbxvalue.Variant) (rbxvalue.Variant, error) {
	if v.Type() != rbxvalue.TypeBool {
		return rbxvalue.Variant{}, fmt.Errorf("expected Bool, got %s", v.Type())
	}
	if v.AsBool() {
		return rbxvalue.Enum(screenInsetsNone), nil
	}
	return rbxvalue.Enum(screenInsetsCoreUISafeInsets), nil
}
