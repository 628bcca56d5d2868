// Package blobstore provides content-addressable storage for the binary
// payloads that encoded documents reference: shared-string payloads and the
// encoded documents themselves. Objects are keyed by CIDv1 (raw, sha2-256).
package blobstore

import "github.com/ipfs/go-cid"

// Store is a minimal content-addressable blob store.
//
// Contract:
// - Put MUST be idempotent.
// - Stored objects MUST be immutable.
// - CIDs MUST be derived from the bytes written.
// - Get MUST return ErrNotFound when the CID is absent.
type Store interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}
