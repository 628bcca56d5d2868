package blobstore

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/weakdom/rbxml/cidutil"
)

// NamedStore associates a Store with a stable backend name, for callers
// that need per-backend reporting.
type NamedStore struct {
	Name  string
	Store Store
}

// ReplicatingStore writes to all configured backends.
//
// Reads fall back in order. Writes go to all backends and require all
// returned CIDs to match, otherwise ErrCIDMismatch is returned.
type ReplicatingStore struct {
	Backends []NamedStore
}

var _ Store = ReplicatingStore{}

// PutAll writes the same bytes to every backend and returns the canonical
// CID plus the per-backend CID map. Any disagreement is ErrCIDMismatch.
func (r ReplicatingStore) PutAll(bytes []byte) (cid.Cid, map[string]cid.Cid, error) {
	want, err := cidutil.CIDv1RawSHA256CID(bytes)
	if err != nil {
		return cid.Undef, nil, err
	}
	if !want.Defined() {
		return cid.Undef, nil, ErrInvalidCID
	}
	if len(r.Backends) == 0 {
		return cid.Undef, nil, fmt.Errorf("blobstore: ReplicatingStore has no backends")
	}

	got := make(map[string]cid.Cid, len(r.Backends))
	for _, b := range r.Backends {
		id, err := b.Store.Put(bytes)
		if err != nil {
			return cid.Undef, nil, fmt.Errorf("blobstore: put to %q: %w", b.Name, err)
		}
		got[b.Name] = id
		if id.String() != want.String() {
			return cid.Undef, got, ErrCIDMismatch
		}
	}
	return want, got, nil
}

func (r ReplicatingStore) Put(bytes []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(bytes)
	return id, err
}

func (r ReplicatingStore) Get(id cid.Cid) ([]byte, error) {
	for _, b := range r.Backends {
		out, err := b.Store.Get(id)
		if err == nil {
			return out, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (r ReplicatingStore) Has(id cid.Cid) bool {
	for _, b := range r.Backends {
		if b.Store.Has(id) {
			return true
		}
	}
	return false
}
