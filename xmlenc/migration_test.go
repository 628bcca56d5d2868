package xmlenc

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/weakdom/rbxml/rbxdb"
	"github.com/weakdom/rbxml/rbxtree"
	"github.com/weakdom/rbxml/rbxvalue"
)

func TestMigration_RewritesNameAndValue(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	gui, _ := tree.NewInstance("ScreenGui", "HUD", tree.Root())
	in, _ := tree.Get(gui)
	in.SetProperty("IgnoreGuiInset", rbxvalue.Bool(true))

	out := mustToString(t, tree, []rbxvalue.Ref{gui}, Options{})

	if !strings.Contains(out, `<token name="ScreenInsets">0</token>`) {
		t.Fatalf("migrated property missing:\n%s", out)
	}
	if strings.Contains(out, "IgnoreGuiInset") {
		t.Fatalf("legacy property name must not be emitted:\n%s", out)
	}
}

func TestMigration_LegacyColorRewrite(t *testing.T) {
	// A schema whose stored OldColor migrates to the canonical Color3uint8.
	db := rbxdb.NewStaticDatabase([]*rbxdb.Class{
		{
			Name: "Part",
			Properties: map[string]*rbxdb.Descriptor{
				"OldColor": {
					Name:     "OldColor",
					DataType: rbxdb.ValueType(rbxvalue.TypeColor3),
					Migration: &rbxdb.Migration{
						NewName: "Color3uint8",
						Perform: func(v rbxvalue.Variant) (rbxvalue.Variant, error) {
							return rbxvalue.Convert(v, rbxvalue.TypeColor3uint8)
						},
					},
				},
			},
		},
	})

	tree := rbxtree.New("DataModel", "Place")
	part, _ := tree.NewInstance("Part", "Brick", tree.Root())
	in, _ := tree.Get(part)
	in.SetProperty("OldColor", rbxvalue.FromColor3(rbxvalue.Color3{R: 1, G: 1, B: 1}))

	out := mustToString(t, tree, []rbxvalue.Ref{part}, Options{Database: db})

	if !strings.Contains(out, `<Color3uint8 name="Color3uint8">16777215</Color3uint8>`) {
		t.Fatalf("migration should emit the transformed value under the new name:\n%s", out)
	}
	if strings.Contains(out, "OldColor") {
		t.Fatalf("OldColor must never appear in output:\n%s", out)
	}
}

func TestMigration_FailureFallsBackToUnmigrated(t *testing.T) {
	db := rbxdb.NewStaticDatabase([]*rbxdb.Class{
		{
			Name: "Widget",
			Properties: map[string]*rbxdb.Descriptor{
				"Mode": {
					Name:     "Mode",
					DataType: rbxdb.ValueType(rbxvalue.TypeInt32),
					Migration: &rbxdb.Migration{
						NewName: "ModeV2",
						Perform: func(v rbxvalue.Variant) (rbxvalue.Variant, error) {
							return rbxvalue.Variant{}, fmt.Errorf("no mapping for this value")
						},
					},
				},
			},
		},
	})

	tree := rbxtree.New("DataModel", "Place")
	w, _ := tree.NewInstance("Widget", "W", tree.Root())
	in, _ := tree.Get(w)
	in.SetProperty("Mode", rbxvalue.Int64(3))

	// Migration failure is soft: the coerced value is emitted under the
	// pre-migration name, and the encode succeeds.
	out, err := ToString(tree, []rbxvalue.Ref{w}, Options{Database: db})
	if err != nil {
		t.Fatalf("migration failure must not abort the encode: %v", err)
	}
	if !strings.Contains(out, `<int name="Mode">3</int>`) {
		t.Fatalf("expected unmigrated coerced value:\n%s", out)
	}
	if strings.Contains(out, "ModeV2") {
		t.Fatalf("failed migration must not rename the property:\n%s", out)
	}
}

func TestCoercion_FailureAbortsEncode(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	part, _ := tree.NewInstance("Part", "Brick", tree.Root())
	in, _ := tree.Get(part)
	// Anchored is declared Bool; a string cannot convert.
	in.SetProperty("Anchored", rbxvalue.String("yes"))

	_, err := ToString(tree, []rbxvalue.Ref{part}, Options{})
	if err == nil {
		t.Fatalf("coercion failure must abort the encode")
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected structured *Error, got %T", err)
	}
	if e.Kind != KindUnsupportedPropertyConversion {
		t.Fatalf("expected KindUnsupportedPropertyConversion, got %s", e.Kind)
	}
	if e.Class != "Part" || e.Property != "Anchored" {
		t.Fatalf("error should name Part.Anchored, got %s.%s", e.Class, e.Property)
	}
	if e.Expected != rbxvalue.TypeBool || e.Actual != rbxvalue.TypeString {
		t.Fatalf("error types wrong: expected=%s actual=%s", e.Expected, e.Actual)
	}
	if e.Message == "" {
		t.Fatalf("conversion error should carry a reason")
	}
}

func TestCoercion_EnumDescriptorNormalizes(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	part, _ := tree.NewInstance("Part", "Brick", tree.Root())
	in, _ := tree.Get(part)
	// Shape is enum-typed; a stored Int32 coerces to a token.
	in.SetProperty("Shape", rbxvalue.Int32(1))

	out := mustToString(t, tree, []rbxvalue.Ref{part}, Options{})
	if !strings.Contains(out, `<token name="shape">1</token>`) {
		t.Fatalf("enum-typed descriptor should serialize as token:\n%s", out)
	}
}
