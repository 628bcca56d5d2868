package xmlenc

import (
	"bytes"
	"unicode/utf8"

	"github.com/weakdom/rbxml/cidutil"
	"github.com/weakdom/rbxml/rbxtree"
	"github.com/weakdom/rbxml/rbxvalue"
)

// ToString encodes to an in-memory buffer and returns the document as
// validated text. Because the buffer is only returned on success, callers
// get atomicity for free: either the whole document or an error.
func ToString(tree *rbxtree.Tree, refs []rbxvalue.Ref, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, tree, refs, opts); err != nil {
		return "", err
	}
	out := buf.Bytes()
	if !utf8.Valid(out) {
		return "", &Error{Kind: KindTextEncoding, Message: "output contains invalid UTF-8 sequences"}
	}
	return string(out), nil
}

// Document is a first-class encoded model: the document bytes plus the CID
// derived from them.
//
// Documents are intentionally more than ephemeral output so they can be
// archived in a blob store, referenced from a manifest, and re-verified.
type Document struct {
	Bytes []byte
	CID   string
}

// EncodeDocument encodes the subtrees rooted at refs and returns the
// resulting document with its CID.
func EncodeDocument(tree *rbxtree.Tree, refs []rbxvalue.Ref, opts Options) (*Document, error) {
	text, err := ToString(tree, refs, opts)
	if err != nil {
		return nil, err
	}
	b := []byte(text)
	return &Document{Bytes: b, CID: cidutil.CIDv1RawSHA256(b)}, nil
}
