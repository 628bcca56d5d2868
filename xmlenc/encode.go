// Package xmlenc encodes a scene tree into the Roblox XML model/place
// format: one Item element per instance carrying its class and referent,
// a Properties block resolved through a reflection database, and a trailing
// SharedStrings block of deduplicated binary payloads.
//
// An encode call either produces a complete document or fails with a
// structured *Error; output already written to the sink is not retracted,
// so callers needing atomicity should encode to a buffer (ToString and
// EncodeDocument do).
package xmlenc

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/weakdom/rbxml/rbxdb"
	"github.com/weakdom/rbxml/rbxtree"
	"github.com/weakdom/rbxml/rbxvalue"
)

// formatVersion is the fixed version attribute on the document root.
const formatVersion = "4"

var errInvalidVariant = errors.New("xmlenc: invalid variant")

// Encode writes the XML document for the subtrees rooted at refs (in the
// given order) to w.
func Encode(w io.Writer, tree *rbxtree.Tree, refs []rbxvalue.Ref, opts Options) error {
	return EncodeToSink(NewXMLSink(w), tree, refs, opts)
}

// EncodeToSink is Encode against a caller-supplied markup sink.
func EncodeToSink(sink Sink, tree *rbxtree.Tree, refs []rbxvalue.Ref, opts Options) error {
	state := newEmitState(opts.withDefaults())
	enc := &encoder{sink: sink, state: state, tree: tree}

	if err := sink.StartElement("roblox", Attr{Name: "version", Value: formatVersion}); err != nil {
		return sinkError(err)
	}

	for _, ref := range refs {
		if err := enc.encodeInstance(ref); err != nil {
			return err
		}
	}

	if err := enc.flushSharedStrings(); err != nil {
		return err
	}

	if err := sink.EndElement(); err != nil {
		return sinkError(err)
	}
	if err := sink.Flush(); err != nil {
		return sinkError(err)
	}
	return nil
}

type encoder struct {
	sink  Sink
	state *emitState
	tree  *rbxtree.Tree

	// propBuf is scratch for sorting one instance's properties; it is
	// drained before recursing, so reuse across the walk is safe.
	propBuf []propEntry
}

type propEntry struct {
	name  string
	value rbxvalue.Variant
}

func (e *encoder) encodeInstance(ref rbxvalue.Ref) error {
	instance, ok := e.tree.Get(ref)
	if !ok {
		return fmt.Errorf("xmlenc: %w: ref %d", rbxtree.ErrNoSuchInstance, ref)
	}
	referent := e.state.mapRef(ref)

	err := e.sink.StartElement("Item",
		Attr{Name: "class", Value: instance.ClassName},
		Attr{Name: "referent", Value: strconv.FormatUint(uint64(referent), 10)},
	)
	if err != nil {
		return sinkError(err)
	}

	if err := e.sink.StartElement("Properties"); err != nil {
		return sinkError(err)
	}

	// The display name is always serialized as a synthetic Name property,
	// ahead of the sorted stored properties and outside any policy.
	if werr := writeValue(e.sink, e.state, "Name", rbxvalue.String(instance.Name)); werr != nil {
		return werr
	}

	e.propBuf = e.propBuf[:0]
	for name, value := range instance.Properties() {
		e.propBuf = append(e.propBuf, propEntry{name: name, value: value})
	}
	sort.Slice(e.propBuf, func(i, j int) bool {
		return e.propBuf[i].name < e.propBuf[j].name
	})

	for _, entry := range e.propBuf {
		if err := e.encodeProperty(instance, entry.name, entry.value); err != nil {
			return err
		}
	}

	if err := e.sink.EndElement(); err != nil {
		return sinkError(err)
	}

	for _, child := range instance.Children() {
		if err := e.encodeInstance(child); err != nil {
			return err
		}
	}

	return sinkErrorOrNil(e.sink.EndElement())
}

func (e *encoder) encodeProperty(instance *rbxtree.Instance, name string, value rbxvalue.Variant) error {
	var descriptor *rbxdb.Descriptor
	if e.state.opts.useReflection() {
		if d, ok := e.state.opts.Database.Find(instance.ClassName, name); ok {
			descriptor = d
		}
	}

	if descriptor == nil {
		switch e.state.opts.Behavior {
		case IgnoreUnknown:
			return nil
		case WriteUnknown, NoReflection:
			return werrOrNil(writeValue(e.sink, e.state, name, value))
		case ErrorOnUnknown:
			return &Error{
				Kind:     KindUnknownProperty,
				Class:    instance.ClassName,
				Property: name,
			}
		default:
			return nil
		}
	}

	// Enum-typed descriptors serialize as the Enum value kind; the enum's
	// own name only matters for validation.
	targetType := descriptor.DataType.Value
	if descriptor.DataType.IsEnum() {
		targetType = rbxvalue.TypeEnum
	}

	converted, err := rbxvalue.Convert(value, targetType)
	if err != nil {
		return &Error{
			Kind:     KindUnsupportedPropertyConversion,
			Class:    instance.ClassName,
			Property: name,
			Expected: targetType,
			Actual:   value.Type(),
			Message:  err.Error(),
		}
	}

	serializedName := descriptor.Name
	if m := descriptor.Migration; m != nil {
		// Migrations are best-effort: on failure the property is emitted
		// unmigrated rather than failing the document.
		if migrated, merr := m.Perform(converted); merr == nil {
			converted = migrated
			serializedName = m.NewName
		}
	}

	return werrOrNil(writeValue(e.sink, e.state, serializedName, converted))
}

func (e *encoder) flushSharedStrings() error {
	payloads := e.state.drainSharedStrings()
	if len(payloads) == 0 {
		return nil
	}

	if err := e.sink.StartElement("SharedStrings"); err != nil {
		return sinkError(err)
	}
	for _, ss := range payloads {
		// The attribute name is historical; the value is the base64 of the
		// 16-byte truncated content hash, not an MD5.
		err := e.sink.StartElement("SharedString",
			Attr{Name: "md5", Value: base64.StdEncoding.EncodeToString(ss.Fingerprint())})
		if err != nil {
			return sinkError(err)
		}
		if err := e.sink.Text(base64.StdEncoding.EncodeToString(ss.Data())); err != nil {
			return sinkError(err)
		}
		if err := e.sink.EndElement(); err != nil {
			return sinkError(err)
		}
	}
	return sinkErrorOrNil(e.sink.EndElement())
}

func sinkErrorOrNil(err error) error {
	if err != nil {
		return sinkError(err)
	}
	return nil
}

// werrOrNil converts a typed *Error into a plain error without wrapping a
// typed nil into a non-nil interface.
func werrOrNil(werr *Error) error {
	if werr != nil {
		return werr
	}
	return nil
}
