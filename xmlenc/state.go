package xmlenc

import (
	"bytes"
	"sort"

	"github.com/weakdom/rbxml/rbxvalue"
)

// emitState is the mutable traversal state threaded through one encode
// call: the referent map and the set of shared strings to emit. It is
// created empty per call and discarded afterwards; it is never shared
// across concurrent encodes.
type emitState struct {
	opts Options

	referents    map[rbxvalue.Ref]uint32
	nextReferent uint32

	shared map[rbxvalue.Hash]rbxvalue.SharedString
}

func newEmitState(opts Options) *emitState {
	return &emitState{
		opts:      opts,
		referents: make(map[rbxvalue.Ref]uint32),
		shared:    make(map[rbxvalue.Hash]rbxvalue.SharedString),
	}
}

// mapRef returns the document referent for ref, allocating the next
// sequential value on first sight.
func (s *emitState) mapRef(ref rbxvalue.Ref) uint32 {
	if n, ok := s.referents[ref]; ok {
		return n
	}
	n := s.nextReferent
	s.referents[ref] = n
	s.nextReferent++
	return n
}

// addSharedString records a shared payload for the trailing block.
// Repeated identical content is a no-op.
func (s *emitState) addSharedString(ss rbxvalue.SharedString) {
	s.shared[ss.Hash()] = ss
}

// drainSharedStrings returns the recorded payloads in ascending full-hash
// order, making the trailing block deterministic regardless of discovery
// order.
func (s *emitState) drainSharedStrings() []rbxvalue.SharedString {
	out := make([]rbxvalue.SharedString, 0, len(s.shared))
	for _, ss := range s.shared {
		out = append(out, ss)
	}
	sort.Slice(out, func(i, j int) bool {
		hi, hj := out[i].Hash(), out[j].Hash()
		return bytes.Compare(hi[:], hj[:]) < 0
	})
	return out
}
