package xmlenc

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/weakdom/rbxml/rbxdb"
	"github.com/weakdom/rbxml/rbxtree"
	"github.com/weakdom/rbxml/rbxvalue"
)

// countingDatabase wraps a Database and counts Find calls.
type countingDatabase struct {
	inner rbxdb.Database
	finds int
}

func (db *countingDatabase) Find(class, property string) (*rbxdb.Descriptor, bool) {
	db.finds++
	return db.inner.Find(class, property)
}

// failingSink fails on the nth write call.
type failingSink struct {
	inner Sink
	n     int
	calls int
}

var errBrokenPipe = errors.New("broken pipe")

func (s *failingSink) step() error {
	s.calls++
	if s.calls >= s.n {
		return errBrokenPipe
	}
	return nil
}

func (s *failingSink) StartElement(name string, attrs ...Attr) error {
	if err := s.step(); err != nil {
		return err
	}
	return s.inner.StartElement(name, attrs...)
}

func (s *failingSink) Text(t string) error {
	if err := s.step(); err != nil {
		return err
	}
	return s.inner.Text(t)
}

func (s *failingSink) EndElement() error {
	if err := s.step(); err != nil {
		return err
	}
	return s.inner.EndElement()
}

func (s *failingSink) Flush() error { return s.inner.Flush() }

func mustToString(t *testing.T, tree *rbxtree.Tree, refs []rbxvalue.Ref, opts Options) string {
	t.Helper()
	out, err := ToString(tree, refs, opts)
	if err != nil {
		t.Fatalf("ToString: %v", err)
	}
	return out
}

func TestEncode_EmptyDocument(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	out := mustToString(t, tree, nil, Options{})
	want := `<roblox version="4"></roblox>`
	if out != want {
		t.Fatalf("empty document:\ngot  %q\nwant %q", out, want)
	}
}

func TestEncode_SingleFolder(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	ref, err := tree.NewInstance("Folder", "Assets", tree.Root())
	if err != nil {
		t.Fatalf("NewInstance: %v", err)
	}

	out := mustToString(t, tree, []rbxvalue.Ref{ref}, Options{})
	want := strings.Join([]string{
		`<roblox version="4">`,
		"\t" + `<Item class="Folder" referent="0">`,
		"\t\t" + `<Properties>`,
		"\t\t\t" + `<string name="Name">Assets</string>`,
		"\t\t" + `</Properties>`,
		"\t" + `</Item>`,
		`</roblox>`,
	}, "\n")
	if out != want {
		t.Fatalf("single folder:\ngot:\n%s\nwant:\n%s", out, want)
	}
}

func TestEncode_SyntheticNameAlwaysFirst(t *testing.T) {
	// "Alpha" sorts before "Name", but the synthetic Name property is
	// emitted first regardless.
	tree := rbxtree.New("DataModel", "Place")
	ref, _ := tree.NewInstance("Folder", "F", tree.Root())
	in, _ := tree.Get(ref)
	in.SetProperty("Alpha", rbxvalue.String("a"))
	in.SetProperty("Zeta", rbxvalue.String("z"))

	out := mustToString(t, tree, []rbxvalue.Ref{ref}, Options{Behavior: WriteUnknown})

	iName := strings.Index(out, `name="Name"`)
	iAlpha := strings.Index(out, `name="Alpha"`)
	iZeta := strings.Index(out, `name="Zeta"`)
	if iName < 0 || iAlpha < 0 || iZeta < 0 {
		t.Fatalf("missing properties in output:\n%s", out)
	}
	if !(iName < iAlpha && iAlpha < iZeta) {
		t.Fatalf("property order wrong (Name=%d Alpha=%d Zeta=%d):\n%s", iName, iAlpha, iZeta, out)
	}
}

func TestEncode_ChildrenNestAfterProperties(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	parent, _ := tree.NewInstance("Folder", "Parent", tree.Root())
	childA, _ := tree.NewInstance("Folder", "First", parent)
	childB, _ := tree.NewInstance("Folder", "Second", parent)
	_, _ = tree.NewInstance("Folder", "Grandchild", childA)

	out := mustToString(t, tree, []rbxvalue.Ref{parent}, Options{})

	// Stored child order is preserved.
	if strings.Index(out, ">First<") > strings.Index(out, ">Second<") {
		t.Fatalf("children out of stored order:\n%s", out)
	}
	// Children are textually nested inside the parent Item.
	if strings.Count(out, "<Item ") != 4 {
		t.Fatalf("expected 4 Item elements:\n%s", out)
	}
	if strings.Count(out, "</Item>") != 4 {
		t.Fatalf("unbalanced Item elements:\n%s", out)
	}
	// With proper nesting the grandchild opens before any Item closes.
	if strings.Index(out, ">Grandchild<") > strings.Index(out, "</Item>") {
		t.Fatalf("children are not nested inside their parent:\n%s", out)
	}
	// The parent's Properties block closes before its first child opens.
	if strings.Index(out, "</Properties>") > strings.Index(out, ">First<") {
		t.Fatalf("child emitted before the parent's properties closed:\n%s", out)
	}
	_ = childB
}

func TestEncode_ReferentsArePreOrder(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	a, _ := tree.NewInstance("Folder", "A", tree.Root())
	c, _ := tree.NewInstance("Folder", "C", a)
	b, _ := tree.NewInstance("Folder", "B", tree.Root())
	_ = c

	out := mustToString(t, tree, []rbxvalue.Ref{a, b}, Options{})

	// Pre-order: A first (0), its child C next (1), then top-level B (2).
	wantOrder := []string{
		`class="Folder" referent="0"`,
		`class="Folder" referent="1"`,
		`class="Folder" referent="2"`,
	}
	pos := -1
	for _, want := range wantOrder {
		i := strings.Index(out, want)
		if i < 0 {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
		if i < pos {
			t.Fatalf("referent order wrong at %q:\n%s", want, out)
		}
		pos = i
	}
	nameOrder := []string{">A<", ">C<", ">B<"}
	pos = -1
	for _, want := range nameOrder {
		i := strings.Index(out, want)
		if i < pos {
			t.Fatalf("instance order wrong at %q:\n%s", want, out)
		}
		pos = i
	}
}

func TestEncode_RefPropertyUsesReferent(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	model, _ := tree.NewInstance("Model", "Rig", tree.Root())
	part, _ := tree.NewInstance("Part", "Torso", model)
	m, _ := tree.Get(model)
	m.SetProperty("PrimaryPart", rbxvalue.FromRef(part))

	out := mustToString(t, tree, []rbxvalue.Ref{model}, Options{})

	// The model is visited first (referent 0); its PrimaryPart allocates the
	// part's referent (1) before the part itself is reached.
	if !strings.Contains(out, `<Ref name="PrimaryPart">1</Ref>`) {
		t.Fatalf("PrimaryPart should reference referent 1:\n%s", out)
	}
	if !strings.Contains(out, `class="Part" referent="1"`) {
		t.Fatalf("part should carry referent 1:\n%s", out)
	}
}

func TestEncode_NullRefSerializesAsNull(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	model, _ := tree.NewInstance("Model", "Rig", tree.Root())
	m, _ := tree.Get(model)
	m.SetProperty("PrimaryPart", rbxvalue.FromRef(rbxvalue.NullRef))

	out := mustToString(t, tree, []rbxvalue.Ref{model}, Options{})
	if !strings.Contains(out, `<Ref name="PrimaryPart">null</Ref>`) {
		t.Fatalf("null ref should serialize as null:\n%s", out)
	}
}

func TestEncode_ResolvedPropertyValueForms(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	part, _ := tree.NewInstance("Part", "Brick", tree.Root())
	in, _ := tree.Get(part)
	in.SetProperty("Anchored", rbxvalue.Bool(true))
	in.SetProperty("Transparency", rbxvalue.Float32(0.5))
	in.SetProperty("Size", rbxvalue.FromVector3(rbxvalue.Vector3{X: 4, Y: 1, Z: 2}))
	in.SetProperty("Color", rbxvalue.FromColor3(rbxvalue.Color3{R: 1, G: 0, B: 0}))
	in.SetProperty("Material", rbxvalue.Enum(256))
	in.SetProperty("CFrame", rbxvalue.FromCFrame(rbxvalue.IdentityCFrame()))

	out := mustToString(t, tree, []rbxvalue.Ref{part}, Options{})

	for _, want := range []string{
		`<bool name="Anchored">true</bool>`,
		`<float name="Transparency">0.5</float>`,
		// Size serializes under the format's historical lowercase name.
		`<Vector3 name="size">`,
		`<X>4</X>`,
		// Color coerces Color3 -> packed Color3uint8 (0xFF0000).
		`<Color3uint8 name="Color3uint8">16711680</Color3uint8>`,
		`<token name="Material">256</token>`,
		`<CoordinateFrame name="CFrame">`,
		`<R00>1</R00>`,
		`<R01>0</R01>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, `name="Size"`) {
		t.Fatalf("stored property name leaked past the descriptor rename:\n%s", out)
	}
}

func TestEncode_SpecialFloatSpellings(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	ref, _ := tree.NewInstance("Folder", "F", tree.Root())
	in, _ := tree.Get(ref)
	in.SetProperty("PosInf", rbxvalue.Float32(float32(math.Inf(1))))
	in.SetProperty("NegInf", rbxvalue.Float32(float32(math.Inf(-1))))
	in.SetProperty("NotANumber", rbxvalue.Float64(math.NaN()))

	out := mustToString(t, tree, []rbxvalue.Ref{ref}, Options{Behavior: WriteUnknown})

	for _, want := range []string{
		`<float name="PosInf">INF</float>`,
		`<float name="NegInf">-INF</float>`,
		`<double name="NotANumber">NAN</double>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestEncode_EscapesMarkup(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	ref, _ := tree.NewInstance("Folder", `<Tag & "Quote">`, tree.Root())

	out := mustToString(t, tree, []rbxvalue.Ref{ref}, Options{})
	if strings.Contains(out, `<Tag`) {
		t.Fatalf("display name was not escaped:\n%s", out)
	}
	if !strings.Contains(out, "&lt;Tag &amp;") {
		t.Fatalf("expected escaped markup in output:\n%s", out)
	}
}

func TestEncode_SinkFailurePropagates(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	ref, _ := tree.NewInstance("Folder", "F", tree.Root())

	// Fail at every successive write position; each failure must surface as
	// a Sink error wrapping the underlying cause.
	for n := 1; n <= 8; n++ {
		sink := &failingSink{inner: NewXMLSink(&strings.Builder{}), n: n}
		err := EncodeToSink(sink, tree, []rbxvalue.Ref{ref}, Options{})
		if err == nil {
			t.Fatalf("n=%d: expected sink failure", n)
		}
		if !IsKind(err, KindSink) {
			t.Fatalf("n=%d: expected KindSink, got %v", n, err)
		}
		if !errors.Is(err, errBrokenPipe) {
			t.Fatalf("n=%d: cause not preserved: %v", n, err)
		}
	}
}

func TestEncodeDocument_CID(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	ref, _ := tree.NewInstance("Folder", "F", tree.Root())

	doc1, err := EncodeDocument(tree, []rbxvalue.Ref{ref}, Options{})
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	doc2, err := EncodeDocument(tree, []rbxvalue.Ref{ref}, Options{})
	if err != nil {
		t.Fatalf("EncodeDocument: %v", err)
	}
	if doc1.CID == "" {
		t.Fatalf("document CID is empty")
	}
	if doc1.CID != doc2.CID {
		t.Fatalf("document CID not deterministic: %s vs %s", doc1.CID, doc2.CID)
	}
	if string(doc1.Bytes) != string(doc2.Bytes) {
		t.Fatalf("document bytes not deterministic")
	}
}

func TestEncode_MissingRef(t *testing.T) {
	tree := rbxtree.New("DataModel", "Place")
	err := Encode(&strings.Builder{}, tree, []rbxvalue.Ref{rbxvalue.Ref(12345)}, Options{})
	if err == nil {
		t.Fatalf("expected error for unknown ref")
	}
	if !errors.Is(err, rbxtree.ErrNoSuchInstance) {
		t.Fatalf("expected ErrNoSuchInstance, got %v", err)
	}
}
