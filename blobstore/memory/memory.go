// Package memory implements an in-memory blob store, used for tests and as
// a scratch backend for one-shot pipelines.
package memory

import (
	"bytes"
	"sync"

	"github.com/ipfs/go-cid"

	"github.com/weakdom/rbxml/blobstore"
	"github.com/weakdom/rbxml/cidutil"
)

// Store is an in-memory blobstore.Store. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ blobstore.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{objects: make(map[string][]byte)}
}

func (s *Store) Put(b []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA256CID(b)
	if err != nil {
		return cid.Undef, err
	}
	if !id.Defined() {
		return cid.Undef, blobstore.ErrInvalidCID
	}

	stored := make([]byte, len(b))
	copy(stored, b)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.objects[id.String()]; ok {
		if !bytes.Equal(existing, stored) {
			return cid.Undef, blobstore.ErrImmutable
		}
		return id, nil
	}
	s.objects[id.String()] = stored
	return id, nil
}

func (s *Store) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, blobstore.ErrInvalidCID
	}
	s.mu.RLock()
	b, ok := s.objects[id.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, blobstore.ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (s *Store) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	s.mu.RLock()
	_, ok := s.objects[id.String()]
	s.mu.RUnlock()
	return ok
}

// Len returns the number of stored objects.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
