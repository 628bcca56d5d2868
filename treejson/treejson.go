// Package treejson decodes a JSON description of a scene tree into an
// rbxtree.Tree. It is the input format of the rbxml-encode CLI.
//
// Document shape:
//
//	{
//	  "className": "Folder",
//	  "name": "Workspace",
//	  "properties": {
//	    "Anchored": {"type": "bool", "value": true},
//	    "Size": {"type": "vector3", "value": {"x": 1, "y": 2, "z": 3}}
//	  },
//	  "children": [ ... ]
//	}
package treejson

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/weakdom/rbxml/rbxtree"
	"github.com/weakdom/rbxml/rbxvalue"
)

type node struct {
	ClassName  string          `json:"className"`
	Name       string          `json:"name"`
	Properties map[string]prop `json:"properties"`
	Children   []node          `json:"children"`
}

type prop struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Decode reads a JSON tree document from r and builds the tree.
func Decode(r io.Reader) (*rbxtree.Tree, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var root node
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("treejson: %w", err)
	}
	if root.ClassName == "" {
		return nil, fmt.Errorf("treejson: root className is required")
	}

	tree := rbxtree.New(root.ClassName, root.Name)
	if err := applyNode(tree, tree.Root(), &root); err != nil {
		return nil, err
	}
	return tree, nil
}

func applyNode(tree *rbxtree.Tree, ref rbxvalue.Ref, n *node) error {
	in, ok := tree.Get(ref)
	if !ok {
		return fmt.Errorf("treejson: %w", rbxtree.ErrNoSuchInstance)
	}

	// Apply properties in sorted order so ref-valued properties cannot make
	// tree construction order-dependent (refs are resolved later anyway, but
	// error reporting stays stable).
	names := make([]string, 0, len(n.Properties))
	for name := range n.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v, err := decodeValue(n.Properties[name])
		if err != nil {
			return fmt.Errorf("treejson: property %q of %s: %w", name, n.ClassName, err)
		}
		in.SetProperty(name, v)
	}

	for i := range n.Children {
		child := &n.Children[i]
		if child.ClassName == "" {
			return fmt.Errorf("treejson: child of %s: className is required", n.ClassName)
		}
		childRef, err := tree.NewInstance(child.ClassName, child.Name, ref)
		if err != nil {
			return err
		}
		if err := applyNode(tree, childRef, child); err != nil {
			return err
		}
	}
	return nil
}

func decodeValue(p prop) (rbxvalue.Variant, error) {
	switch p.Type {
	case "bool":
		var b bool
		if err := json.Unmarshal(p.Value, &b); err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.Bool(b), nil
	case "int32":
		var i int32
		if err := json.Unmarshal(p.Value, &i); err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.Int32(i), nil
	case "int64":
		var i int64
		if err := json.Unmarshal(p.Value, &i); err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.Int64(i), nil
	case "float32":
		f, err := decodeFloat(p.Value)
		if err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.Float32(float32(f)), nil
	case "float64":
		f, err := decodeFloat(p.Value)
		if err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.Float64(f), nil
	case "string":
		var s string
		if err := json.Unmarshal(p.Value, &s); err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.String(s), nil
	case "binarystring":
		var s string
		if err := json.Unmarshal(p.Value, &s); err != nil {
			return rbxvalue.Variant{}, err
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return rbxvalue.Variant{}, fmt.Errorf("invalid base64: %w", err)
		}
		return rbxvalue.BinaryString(b), nil
	case "enum":
		var e uint32
		if err := json.Unmarshal(p.Value, &e); err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.Enum(e), nil
	case "color3":
		var c struct{ R, G, B float32 }
		if err := json.Unmarshal(p.Value, &c); err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.FromColor3(rbxvalue.Color3{R: c.R, G: c.G, B: c.B}), nil
	case "color3uint8":
		var c struct{ R, G, B uint8 }
		if err := json.Unmarshal(p.Value, &c); err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.FromColor3uint8(rbxvalue.Color3uint8{R: c.R, G: c.G, B: c.B}), nil
	case "vector2":
		var v struct{ X, Y float32 }
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.FromVector2(rbxvalue.Vector2{X: v.X, Y: v.Y}), nil
	case "vector3":
		var v struct{ X, Y, Z float32 }
		if err := json.Unmarshal(p.Value, &v); err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.FromVector3(rbxvalue.Vector3{X: v.X, Y: v.Y, Z: v.Z}), nil
	case "cframe":
		var c struct {
			Position [3]float32  `json:"position"`
			Rotation *[9]float32 `json:"rotation"`
		}
		if err := json.Unmarshal(p.Value, &c); err != nil {
			return rbxvalue.Variant{}, err
		}
		cf := rbxvalue.IdentityCFrame()
		cf.Position = rbxvalue.Vector3{X: c.Position[0], Y: c.Position[1], Z: c.Position[2]}
		if c.Rotation != nil {
			cf.Rotation = *c.Rotation
		}
		return rbxvalue.FromCFrame(cf), nil
	case "udim":
		var u struct {
			Scale  float32 `json:"scale"`
			Offset int32   `json:"offset"`
		}
		if err := json.Unmarshal(p.Value, &u); err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.FromUDim(rbxvalue.UDim{Scale: u.Scale, Offset: u.Offset}), nil
	case "udim2":
		var u struct {
			X struct {
				Scale  float32 `json:"scale"`
				Offset int32   `json:"offset"`
			} `json:"x"`
			Y struct {
				Scale  float32 `json:"scale"`
				Offset int32   `json:"offset"`
			} `json:"y"`
		}
		if err := json.Unmarshal(p.Value, &u); err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.FromUDim2(rbxvalue.UDim2{
			X: rbxvalue.UDim{Scale: u.X.Scale, Offset: u.X.Offset},
			Y: rbxvalue.UDim{Scale: u.Y.Scale, Offset: u.Y.Offset},
		}), nil
	case "ref":
		if string(p.Value) == "null" {
			return rbxvalue.FromRef(rbxvalue.NullRef), nil
		}
		var r uint64
		if err := json.Unmarshal(p.Value, &r); err != nil {
			return rbxvalue.Variant{}, err
		}
		return rbxvalue.FromRef(rbxvalue.Ref(r)), nil
	case "sharedstring":
		var s string
		if err := json.Unmarshal(p.Value, &s); err != nil {
			return rbxvalue.Variant{}, err
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return rbxvalue.Variant{}, fmt.Errorf("invalid base64: %w", err)
		}
		return rbxvalue.FromSharedString(rbxvalue.NewSharedString(b)), nil
	case "":
		return rbxvalue.Variant{}, fmt.Errorf("missing type")
	default:
		return rbxvalue.Variant{}, fmt.Errorf("unknown type %q", p.Type)
	}
}

// decodeFloat accepts JSON numbers plus the spellings "INF", "-INF", "NAN".
func decodeFloat(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("expected number or INF/-INF/NAN string")
	}
	switch s {
	case "INF":
		return math.Inf(1), nil
	case "-INF":
		return math.Inf(-1), nil
	case "NAN":
		return math.NaN(), nil
	default:
		return 0, fmt.Errorf("invalid float string %q", s)
	}
}
