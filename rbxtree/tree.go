// Package rbxtree implements the in-memory scene tree ("weak DOM") the
// encoder walks: instances addressed by opaque refs, each with a class name,
// a display name, typed properties, and ordered children.
//
// The tree owns its instances. Encoding only borrows the tree read-only;
// concurrent mutation during an encode is the caller's problem to exclude.
package rbxtree

import (
	"errors"

	"github.com/weakdom/rbxml/rbxvalue"
)

var (
	ErrNoSuchInstance = errors.New("rbxtree: no such instance")
	ErrNullParent     = errors.New("rbxtree: parent ref is null")
)

// Instance is one node of the tree.
type Instance struct {
	ref       rbxvalue.Ref
	ClassName string
	Name      string

	properties map[string]rbxvalue.Variant
	children   []rbxvalue.Ref
}

// Ref returns the handle identifying this instance within its tree.
func (in *Instance) Ref() rbxvalue.Ref { return in.ref }

// SetProperty stores a property value under name.
func (in *Instance) SetProperty(name string, v rbxvalue.Variant) {
	in.properties[name] = v
}

// Property returns the stored value for name.
func (in *Instance) Property(name string) (rbxvalue.Variant, bool) {
	v, ok := in.properties[name]
	return v, ok
}

// Properties returns the instance's property map. The map is owned by the
// instance; callers must treat it as read-only.
func (in *Instance) Properties() map[string]rbxvalue.Variant { return in.properties }

// Children returns the instance's child refs in insertion order. The slice
// is owned by the instance; callers must treat it as read-only.
func (in *Instance) Children() []rbxvalue.Ref { return in.children }

// Tree is an arena of instances with a single root.
type Tree struct {
	root      rbxvalue.Ref
	nextRef   rbxvalue.Ref
	instances map[rbxvalue.Ref]*Instance
}

// New creates a tree whose root instance has the given class and name.
func New(rootClass, rootName string) *Tree {
	t := &Tree{
		nextRef:   1,
		instances: make(map[rbxvalue.Ref]*Instance),
	}
	t.root = t.alloc(rootClass, rootName)
	return t
}

// Root returns the root instance's ref.
func (t *Tree) Root() rbxvalue.Ref { return t.root }

// Get returns the instance for ref.
func (t *Tree) Get(ref rbxvalue.Ref) (*Instance, bool) {
	in, ok := t.instances[ref]
	return in, ok
}

// NewInstance creates an instance under parent and returns its ref.
func (t *Tree) NewInstance(class, name string, parent rbxvalue.Ref) (rbxvalue.Ref, error) {
	if parent.IsNull() {
		return rbxvalue.NullRef, ErrNullParent
	}
	p, ok := t.instances[parent]
	if !ok {
		return rbxvalue.NullRef, ErrNoSuchInstance
	}
	ref := t.alloc(class, name)
	p.children = append(p.children, ref)
	return ref, nil
}

func (t *Tree) alloc(class, name string) rbxvalue.Ref {
	ref := t.nextRef
	t.nextRef++
	t.instances[ref] = &Instance{
		ref:        ref,
		ClassName:  class,
		Name:       name,
		properties: make(map[string]rbxvalue.Variant),
	}
	return ref
}
