// Package rbxdb provides the reflection database the encoder resolves
// properties against: which stored property names serialize, under what
// canonical name and declared type, and which legacy properties migrate to
// canonical ones on the way out.
//
// The database is read-only and safe for concurrent use. Database is an
// interface so alternate schema versions and test doubles can be injected
// without touching the encoder.
package rbxdb

import "github.com/weakdom/rbxml/rbxvalue"

// DataType is the declared serialized type of a property: either a concrete
// value type, or a named enum (which always serializes as an integer token;
// the name matters only for validation, not encoding).
type DataType struct {
	Value rbxvalue.Type
	Enum  string
}

// IsEnum reports whether the property serializes as an enum token.
func (d DataType) IsEnum() bool { return d.Enum != "" }

// ValueType returns DataType with a concrete value type.
func ValueType(t rbxvalue.Type) DataType { return DataType{Value: t} }

// EnumType returns DataType for the named enum.
func EnumType(name string) DataType { return DataType{Enum: name} }

// Migration describes a legacy-to-canonical property rewrite: when the
// transform succeeds, the property is emitted under NewName with the
// transformed value. Migrations are best-effort; a failed Perform leaves
// the property emitted unmigrated.
type Migration struct {
	NewName string
	Perform func(rbxvalue.Variant) (rbxvalue.Variant, error)
}

// Descriptor is the serialized form of one property: its canonical on-disk
// name, its declared data type, and an optional migration.
type Descriptor struct {
	Name      string
	DataType  DataType
	Migration *Migration
}

// Database resolves a class/stored-property pair to its serialized
// descriptor. Find returns false when the pair is unknown to the schema.
type Database interface {
	Find(class, property string) (*Descriptor, bool)
}

// Class is one entry in a StaticDatabase's class graph.
type Class struct {
	Name       string
	Superclass string
	Properties map[string]*Descriptor
}

// StaticDatabase is an in-memory Database over a fixed class graph.
// Lookups walk the superclass chain, nearest class first.
type StaticDatabase struct {
	classes map[string]*Class
}

// NewStaticDatabase builds a database from classes. Superclass references
// to absent classes terminate the lookup chain silently.
func NewStaticDatabase(classes []*Class) *StaticDatabase {
	m := make(map[string]*Class, len(classes))
	for _, c := range classes {
		m[c.Name] = c
	}
	return &StaticDatabase{classes: m}
}

// Find implements Database.
func (db *StaticDatabase) Find(class, property string) (*Descriptor, bool) {
	for class != "" {
		c, ok := db.classes[class]
		if !ok {
			return nil, false
		}
		if d, ok := c.Properties[property]; ok {
			return d, true
		}
		class = c.Superclass
	}
	return nil, false
}
