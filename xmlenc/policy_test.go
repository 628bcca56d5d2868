package xmlenc

import (
	"errors"
	"strings"
	"testing"

	"github.com/weakdom/rbxml/rbxdb"
	"github.com/weakdom/rbxml/rbxtree"
	"github.com/weakdom/rbxml/rbxvalue"
)

func unknownPropertyTree(t *testing.T) (*rbxtree.Tree, rbxvalue.Ref) {
	t.Helper()
	tree := rbxtree.New("DataModel", "Place")
	ref, err := tree.NewInstance("Part", "Brick", tree.Root())
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	in, _ := tree.Get(ref)
	in.SetProperty("TotallyUnknown", rbxvalue.Int32(7))
	return tree, ref
}

func TestPolicy_IgnoreUnknown(t *testing.T) {
	tree, ref := unknownPropertyTree(t)
	out := mustToString(t, tree, []rbxvalue.Ref{ref}, Options{Behavior: IgnoreUnknown})
	if strings.Contains(out, "TotallyUnknown") {
		t.Fatalf("IgnoreUnknown must leave no trace of the property:\n%s", out)
	}
}

func TestPolicy_WriteUnknown(t *testing.T) {
	tree, ref := unknownPropertyTree(t)
	out := mustToString(t, tree, []rbxvalue.Ref{ref}, Options{Behavior: WriteUnknown})
	if !strings.Contains(out, `<int name="TotallyUnknown">7</int>`) {
		t.Fatalf("WriteUnknown must emit the stored name and value:\n%s", out)
	}
}

func TestPolicy_ErrorOnUnknown(t *testing.T) {
	tree, ref := unknownPropertyTree(t)
	_, err := ToString(tree, []rbxvalue.Ref{ref}, Options{Behavior: ErrorOnUnknown})
	if err == nil {
		t.Fatalf("ErrorOnUnknown must abort the encode")
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected structured *Error, got %T", err)
	}
	if e.Kind != KindUnknownProperty {
		t.Fatalf("expected KindUnknownProperty, got %s", e.Kind)
	}
	if e.Class != "Part" || e.Property != "TotallyUnknown" {
		t.Fatalf("error should name the class and property, got %s.%s", e.Class, e.Property)
	}
}

func TestPolicy_ErrorOnUnknown_ResolvedStillEncodes(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	ref, _ := tree.NewInstance("Part", "Brick", tree.Root())
	in, _ := tree.Get(ref)
	in.SetProperty("Anchored", rbxvalue.Bool(true))

	out := mustToString(t, tree, []rbxvalue.Ref{ref}, Options{Behavior: ErrorOnUnknown})
	if !strings.Contains(out, `<bool name="Anchored">true</bool>`) {
		t.Fatalf("resolved properties must still encode under ErrorOnUnknown:\n%s", out)
	}
}

func TestPolicy_NoReflection(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	ref, _ := tree.NewInstance("Part", "Brick", tree.Root())
	in, _ := tree.Get(ref)
	// Size would normally resolve (and rename to "size"); Color would coerce.
	in.SetProperty("Size", rbxvalue.FromVector3(rbxvalue.Vector3{X: 1, Y: 2, Z: 3}))
	in.SetProperty("Color", rbxvalue.FromColor3(rbxvalue.Color3{R: 1}))
	in.SetProperty("TotallyUnknown", rbxvalue.Int32(7))

	counting := &countingDatabase{inner: rbxdb.Default()}
	out := mustToString(t, tree, []rbxvalue.Ref{ref}, Options{
		Behavior: NoReflection,
		Database: counting,
	})

	if counting.finds != 0 {
		t.Fatalf("NoReflection performed %d schema lookups", counting.finds)
	}
	for _, want := range []string{
		// Everything is written as stored: no rename, no coercion.
		`<Vector3 name="Size">`,
		`<Color3 name="Color">`,
		`<int name="TotallyUnknown">7</int>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in NoReflection output:\n%s", want, out)
		}
	}
	if strings.Contains(out, `name="size"`) || strings.Contains(out, "Color3uint8") {
		t.Fatalf("NoReflection must not apply schema renames or coercions:\n%s", out)
	}
}

func TestPolicy_DefaultIsIgnoreUnknown(t *testing.T) {
	tree, ref := unknownPropertyTree(t)
	out := mustToString(t, tree, []rbxvalue.Ref{ref}, Options{})
	if strings.Contains(out, "TotallyUnknown") {
		t.Fatalf("zero Options must behave as IgnoreUnknown:\n%s", out)
	}
}
