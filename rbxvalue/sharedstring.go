package rbxvalue

import "lukechampine.com/blake3"

// HashSize is the size of a shared-string content hash in bytes.
const HashSize = 32

// Hash is the BLAKE3 content hash identifying a shared payload.
type Hash [HashSize]byte

// SharedString is an immutable binary payload identified by its content
// hash. Two shared strings with the same bytes compare equal by hash, which
// is what lets a document emit each payload at most once no matter how many
// properties reference it.
type SharedString struct {
	data []byte
	hash Hash
}

// NewSharedString hashes data and returns the shared payload. The payload
// aliases data; callers must not mutate it afterwards.
func NewSharedString(data []byte) SharedString {
	return SharedString{data: data, hash: blake3.Sum256(data)}
}

// Data returns the payload bytes.
func (s SharedString) Data() []byte { return s.data }

// Hash returns the full content hash.
func (s SharedString) Hash() Hash { return s.hash }

// Fingerprint returns the truncated 16-byte hash prefix the XML format uses
// to key shared strings (stored under the legacy "md5" attribute name).
func (s SharedString) Fingerprint() []byte { return s.hash[:16] }
