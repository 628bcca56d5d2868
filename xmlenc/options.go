package xmlenc

import "github.com/weakdom/rbxml/rbxdb"

// PropertyBehavior selects how properties absent from the reflection
// database are handled. It is chosen once per encode call.
type PropertyBehavior uint8

const (
	// IgnoreUnknown silently omits unresolved properties.
	IgnoreUnknown PropertyBehavior = iota

	// WriteUnknown emits unresolved properties under their stored name and
	// unconverted value.
	WriteUnknown

	// ErrorOnUnknown aborts the encode with an UnknownProperty error.
	ErrorOnUnknown

	// NoReflection skips database lookups entirely; every property is
	// written as stored. Fastest, least validated.
	NoReflection
)

func (b PropertyBehavior) String() string {
	switch b {
	case IgnoreUnknown:
		return "IgnoreUnknown"
	case WriteUnknown:
		return "WriteUnknown"
	case ErrorOnUnknown:
		return "ErrorOnUnknown"
	case NoReflection:
		return "NoReflection"
	default:
		return "Unknown"
	}
}

// Options configures an encode call. The zero value means IgnoreUnknown
// with the built-in reflection database.
type Options struct {
	Behavior PropertyBehavior

	// Database is the reflection database to resolve against. Nil selects
	// rbxdb.Default().
	Database rbxdb.Database
}

func (o Options) withDefaults() Options {
	if o.Database == nil {
		o.Database = rbxdb.Default()
	}
	return o
}

func (o Options) useReflection() bool {
	return o.Behavior != NoReflection
}
