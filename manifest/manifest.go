// Package manifest implements a canonical, signable text manifest that
// attests to an encoded model document: which document bytes were produced
// (by CID), which shared-string payloads it references, and who signed it.
//
// Canonical form is byte-exact: UTF-8, LF line endings, no BOM, sections in
// a fixed order, keys sorted lexicographically, exactly one blank line
// between sections, no trailing newline. Parse rejects any non-canonical
// input.
package manifest

import (
	"bufio"
	"bytes"
	"io"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/weakdom/rbxml/cidutil"
)

// SectionOrder defines the canonical order of manifest sections.
var SectionOrder = []string{"META", "DOCUMENT", "CRYPTO"}

const (
	Preamble  = "-----BEGIN RBXML MANIFEST-----"
	Postamble = "-----END RBXML MANIFEST-----"
)

// Manifest is a parsed, canonical manifest.
type Manifest struct {
	Sections map[string]Section
	Raw      []byte // Canonical bytes
	Signed   []byte // Bytes covered by signature (BEGIN..end of DOCUMENT, inclusive)
}

type Section struct {
	Name  string
	Pairs map[string]string
}

// Parse parses a manifest and enforces the canonical serialization rules.
// Non-canonical inputs are rejected.
func Parse(data []byte) (*Manifest, error) {
	if !utf8.Valid(data) {
		return nil, newError(KindParse, "RBXM-STR-010", "manifest must be valid UTF-8")
	}
	if len(data) > 0 && data[len(data)-1] == '\n' {
		return nil, newError(KindCanonical, "RBXM-CANON-001", "trailing newline not allowed")
	}
	if bytes.Contains(data, []byte("\r")) {
		return nil, newError(KindCanonical, "RBXM-CANON-002", "CR line endings not allowed")
	}
	if bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		return nil, newError(KindCanonical, "RBXM-CANON-003", "BOM not allowed")
	}
	if !bytes.HasPrefix(data, []byte(Preamble)) {
		return nil, newError(KindParse, "RBXM-STR-011", "missing manifest preamble")
	}
	if !bytes.HasSuffix(data, []byte(Postamble)) {
		return nil, newError(KindParse, "RBXM-STR-012", "missing manifest postamble")
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) > 0 && (line[len(line)-1] == ' ' || line[len(line)-1] == '\t') {
			return nil, newError(KindCanonical, "RBXM-CANON-004", "trailing whitespace forbidden")
		}
	}

	sections := make(map[string]Section)
	reader := bufio.NewReader(bytes.NewReader(data))
	readLine := func() (string, error) {
		l, err := reader.ReadString('\n')
		if err == io.EOF {
			return strings.TrimRight(l, "\n"), io.EOF
		}
		if err != nil {
			return "", err
		}
		return strings.TrimRight(l, "\n"), nil
	}

	first, err := readLine()
	if err != nil && err != io.EOF {
		return nil, wrapError(KindInternal, "RBXM-INT-001", "read failed", err)
	}
	if first != Preamble {
		return nil, newError(KindParse, "RBXM-STR-013", "manifest preamble must be on its own line")
	}

	sectionIndex := -1
	var currSection string
	var currPairs map[string]string
	var currKeyOrder []string
	seenSection := map[string]bool{}
	seenAnySection := false
	afterSeparator := false

	flushSection := func() error {
		if currSection == "" {
			return nil
		}
		sorted := append([]string(nil), currKeyOrder...)
		sort.Strings(sorted)
		for i := range sorted {
			if sorted[i] != currKeyOrder[i] {
				return newError(KindCanonical, "RBXM-CANON-010", "keys not sorted lexicographically")
			}
		}
		sections[currSection] = Section{Name: currSection, Pairs: currPairs}
		currSection = ""
		currPairs = nil
		currKeyOrder = nil
		return nil
	}

	for {
		line, rerr := readLine()
		if rerr != nil && rerr != io.EOF {
			return nil, wrapError(KindInternal, "RBXM-INT-001", "read failed", rerr)
		}

		if line == Postamble {
			if afterSeparator {
				return nil, newError(KindCanonical, "RBXM-CANON-011", "unexpected blank line before postamble")
			}
			if err := flushSection(); err != nil {
				return nil, err
			}
			break
		}

		if isSectionHeader(line) {
			seenAnySection = true
			if currSection != "" {
				return nil, newError(KindCanonical, "RBXM-CANON-012", "missing blank line between sections")
			}
			if seenSection[line] {
				return nil, newError(KindParse, "RBXM-STR-020", "duplicate section")
			}
			if err := flushSection(); err != nil {
				return nil, err
			}
			sectionIndex++
			if sectionIndex >= len(SectionOrder) || SectionOrder[sectionIndex] != line {
				return nil, newError(KindCanonical, "RBXM-CANON-013", "sections missing or out of order")
			}
			if sectionIndex == 0 {
				if afterSeparator {
					return nil, newError(KindCanonical, "RBXM-CANON-014", "blank line before first section not allowed")
				}
			} else if !afterSeparator {
				return nil, newError(KindCanonical, "RBXM-CANON-012", "missing blank line between sections")
			}
			afterSeparator = false
			seenSection[line] = true
			currSection = line
			currPairs = make(map[string]string)
			continue
		}

		if !seenAnySection {
			return nil, newError(KindCanonical, "RBXM-CANON-015", "unexpected content before first section")
		}

		if line == "" {
			if currSection == "" {
				return nil, newError(KindCanonical, "RBXM-CANON-016", "blank line outside section not allowed")
			}
			if currSection == "CRYPTO" {
				return nil, newError(KindCanonical, "RBXM-CANON-017", "blank line after CRYPTO section not allowed")
			}
			if afterSeparator {
				return nil, newError(KindCanonical, "RBXM-CANON-018", "multiple blank lines between sections not allowed")
			}
			if err := flushSection(); err != nil {
				return nil, err
			}
			afterSeparator = true
			continue
		}

		if currSection == "" {
			return nil, newError(KindCanonical, "RBXM-CANON-019", "content outside section")
		}
		if afterSeparator {
			return nil, newError(KindCanonical, "RBXM-CANON-020", "expected section header after blank line")
		}
		if !strings.Contains(line, ": ") {
			return nil, newError(KindParse, "RBXM-STR-021", "invalid key-value formatting")
		}
		kv := strings.SplitN(line, ": ", 2)
		key, val := kv[0], kv[1]
		if key == "" {
			return nil, newError(KindParse, "RBXM-STR-022", "empty key")
		}
		if !isASCII(key) {
			return nil, newError(KindParse, "RBXM-STR-023", "non-ASCII key")
		}
		if strings.HasPrefix(val, " ") {
			return nil, newError(KindCanonical, "RBXM-CANON-021", "value must not start with a space")
		}
		if _, exists := currPairs[key]; exists {
			return nil, newError(KindParse, "RBXM-STR-024", "duplicate key in section")
		}
		currPairs[key] = val
		currKeyOrder = append(currKeyOrder, key)

		if rerr == io.EOF {
			return nil, newError(KindParse, "RBXM-STR-012", "missing manifest postamble")
		}
	}

	for _, s := range SectionOrder {
		if !seenSection[s] {
			return nil, newError(KindCanonical, "RBXM-CANON-013", "sections missing or out of order")
		}
	}

	// Enforce full canonical byte identity by re-rendering and comparing.
	// This makes Parse strictly reject any non-canonical inputs.
	canonical, rerr := Render(Draft{
		Meta:     sections["META"].Pairs,
		Document: sections["DOCUMENT"].Pairs,
		Crypto:   sections["CRYPTO"].Pairs,
	})
	if rerr != nil {
		return nil, rerr
	}
	if !bytes.Equal(data, canonical) {
		return nil, newError(KindCanonical, "RBXM-CANON-030", "non-canonical manifest")
	}

	signed, err := signedScopeFromCanonical(canonical)
	if err != nil {
		return nil, err
	}
	return &Manifest{Sections: sections, Raw: canonical, Signed: signed}, nil
}

// signedScopeFromCanonical computes the signed bytes: the BEGIN line through
// the end of the DOCUMENT section, inclusive of the separating blank line.
func signedScopeFromCanonical(canonical []byte) ([]byte, error) {
	marker := []byte("\nCRYPTO\n")
	idx := bytes.Index(canonical, marker)
	if idx < 0 {
		return nil, newError(KindInternal, "RBXM-INT-002", "cannot determine signature scope")
	}
	return canonical[:idx+1], nil
}

// CID returns a deterministic content identifier for the canonical manifest
// bytes (CIDv1, raw, sha2-256).
func (m *Manifest) CID() string {
	return cidutil.CIDv1RawSHA256(m.Raw)
}

// DocumentCID returns the CID of the attested document, or "".
func (m *Manifest) DocumentCID() string {
	if sec, ok := m.Sections["DOCUMENT"]; ok {
		return sec.Pairs["CID"]
	}
	return ""
}

// SharedStringCIDs returns the space-separated shared-string CID list from
// the DOCUMENT section, or nil.
func (m *Manifest) SharedStringCIDs() []string {
	sec, ok := m.Sections["DOCUMENT"]
	if !ok {
		return nil
	}
	v := sec.Pairs["Shared-Strings"]
	if v == "" {
		return nil
	}
	return strings.Fields(v)
}

// IssuerKey returns the CRYPTO Issuer-Key value, or "".
func (m *Manifest) IssuerKey() string {
	if sec, ok := m.Sections["CRYPTO"]; ok {
		return sec.Pairs["Issuer-Key"]
	}
	return ""
}

func isSectionHeader(line string) bool {
	for _, s := range SectionOrder {
		if line == s {
			return true
		}
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}
