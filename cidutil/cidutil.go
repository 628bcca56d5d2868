// Package cidutil derives content identifiers for encoded documents and for
// shared-string payloads placed in a blob store.
package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/weakdom/rbxml/rbxvalue"
)

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1
		// length this is unreachable.
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// SharedStringCID returns the blob-store CID for a shared-string payload.
//
// Note this addresses the payload bytes, not the BLAKE3 hash the XML format
// keys shared strings by; the two identities coexist (BLAKE3 inside a
// document, CID inside a store).
func SharedStringCID(s rbxvalue.SharedString) (cid.Cid, error) {
	return CIDv1RawSHA256CID(s.Data())
}
