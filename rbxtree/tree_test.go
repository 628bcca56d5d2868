package rbxtree

import (
	"testing"

	"github.com/weakdom/rbxml/rbxvalue"
)

func TestNew_Root(t *testing.T) {
	tree := New("DataModel", "Place")
	root, ok := tree.Get(tree.Root())
	if !ok {
		t.Fatalf("root must exist")
	}
	if root.ClassName != "DataModel" || root.Name != "Place" {
		t.Fatalf("root: got %s %q", root.ClassName, root.Name)
	}
	if root.Ref().IsNull() {
		t.Fatalf("root ref must not be null")
	}
}

func TestNewInstance_ChildOrder(t *testing.T) {
	tree := New("DataModel", "Place")
	a, err := tree.NewInstance("Folder", "A", tree.Root())
	if err != nil {
		t.Fatalf("NewInstance A: %v", err)
	}
	b, err := tree.NewInstance("Folder", "B", tree.Root())
	if err != nil {
		t.Fatalf("NewInstance B: %v", err)
	}

	root, _ := tree.Get(tree.Root())
	kids := root.Children()
	if len(kids) != 2 || kids[0] != a || kids[1] != b {
		t.Fatalf("children out of order: %v (a=%v b=%v)", kids, a, b)
	}
}

func TestNewInstance_BadParent(t *testing.T) {
	tree := New("DataModel", "Place")
	if _, err := tree.NewInstance("Folder", "X", rbxvalue.NullRef); err != ErrNullParent {
		t.Fatalf("null parent: got %v", err)
	}
	if _, err := tree.NewInstance("Folder", "X", rbxvalue.Ref(999)); err != ErrNoSuchInstance {
		t.Fatalf("missing parent: got %v", err)
	}
}

func TestProperties(t *testing.T) {
	tree := New("DataModel", "Place")
	ref, err := tree.NewInstance("Part", "Brick", tree.Root())
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}
	in, _ := tree.Get(ref)

	in.SetProperty("Anchored", rbxvalue.Bool(true))
	v, ok := in.Property("Anchored")
	if !ok || !v.AsBool() {
		t.Fatalf("Anchored not stored")
	}
	if _, ok := in.Property("Missing"); ok {
		t.Fatalf("missing property should not resolve")
	}
	if len(in.Properties()) != 1 {
		t.Fatalf("expected 1 property, got %d", len(in.Properties()))
	}
}
