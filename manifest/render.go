package manifest

import (
	"sort"
	"strings"
)

// Draft is the in-memory representation for producing a canonical manifest.
// Rendered bytes are always canonical (section order, key order, spacing,
// and blank lines).
type Draft struct {
	Meta     map[string]string
	Document map[string]string
	Crypto   map[string]string
}

// Render produces canonical manifest bytes from a Draft.
func Render(d Draft) ([]byte, error) {
	sections := []struct {
		name  string
		pairs map[string]string
	}{
		{name: "META", pairs: d.Meta},
		{name: "DOCUMENT", pairs: d.Document},
		{name: "CRYPTO", pairs: d.Crypto},
	}

	var sb strings.Builder
	sb.WriteString(Preamble)
	sb.WriteString("\n")

	for i, sec := range sections {
		sb.WriteString(sec.name)
		sb.WriteString("\n")

		keys := make([]string, 0, len(sec.pairs))
		for k := range sec.pairs {
			if k == "" {
				return nil, newError(KindRender, "RBXM-STR-001", "empty key")
			}
			if !isASCII(k) {
				return nil, newError(KindRender, "RBXM-STR-002", "non-ASCII key")
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := sec.pairs[k]
			if v == "" {
				return nil, newError(KindRender, "RBXM-STR-003", "empty value")
			}
			if strings.HasPrefix(v, " ") {
				return nil, newError(KindRender, "RBXM-STR-004", "value must not start with a space")
			}
			if strings.Contains(v, "\n") || strings.Contains(v, "\r") {
				return nil, newError(KindRender, "RBXM-STR-005", "value must not contain newlines")
			}
			if strings.HasSuffix(v, " ") || strings.HasSuffix(v, "\t") {
				return nil, newError(KindRender, "RBXM-STR-006", "trailing whitespace forbidden")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			sb.WriteString(v)
			sb.WriteString("\n")
		}

		if i != len(sections)-1 {
			sb.WriteString("\n")
		}
	}

	sb.WriteString(Postamble)
	return []byte(sb.String()), nil
}
