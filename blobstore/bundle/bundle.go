// Package bundle archives one encoded document together with its
// shared-string payloads as a deterministic TAR: one blocks/<cid> entry per
// payload plus an index.json naming which block is the document. Exporting
// the same content always yields identical archive bytes, so archives are
// themselves stable blobs.
package bundle

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"github.com/weakdom/rbxml/blobstore"
	"github.com/weakdom/rbxml/cidutil"
)

// FormatVersion is the index.json schema version.
const FormatVersion = 1

const indexName = "index.json"

// Archive headers are normalized to the epoch so bundle bytes depend only
// on content.
var epoch = time.Unix(0, 0)

// Index is the archive's table of contents. Document is the CID of the
// encoded document block, SharedStrings the CIDs of its payload blocks,
// both in blocks/.
type Index struct {
	Version       int      `json:"version"`
	Document      string   `json:"document,omitempty"`
	SharedStrings []string `json:"sharedStrings,omitempty"`
}

// Export writes the archive for one encoded document: the document block,
// every shared-string block (deduplicated, lexicographic entry order), and
// the index. document may be cid.Undef for a payload-only archive. Every
// block is re-verified against its CID on the way out of the store.
func Export(w io.Writer, store blobstore.Store, document cid.Cid, shared []cid.Cid) error {
	if store == nil {
		return fmt.Errorf("bundle: nil store")
	}

	idx := Index{Version: FormatVersion}

	blocks := make(map[string]cid.Cid, len(shared)+1)
	if document.Defined() {
		idx.Document = document.String()
		blocks[idx.Document] = document
	}
	for _, id := range shared {
		if !id.Defined() {
			return blobstore.ErrInvalidCID
		}
		s := id.String()
		if s == idx.Document {
			continue
		}
		if _, dup := blocks[s]; dup {
			continue
		}
		blocks[s] = id
		idx.SharedStrings = append(idx.SharedStrings, s)
	}
	if len(blocks) == 0 {
		return fmt.Errorf("bundle: nothing to export")
	}
	sort.Strings(idx.SharedStrings)

	names := make([]string, 0, len(blocks))
	for s := range blocks {
		names = append(names, s)
	}
	sort.Strings(names)

	tw := tar.NewWriter(w)
	for _, s := range names {
		b, err := fetchVerified(store, blocks[s])
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeEntry(tw, "blocks/"+s, b); err != nil {
			_ = tw.Close()
			return err
		}
	}

	// Index fields are structs and sorted slices, so encoding/json emits
	// them deterministically.
	ib, err := json.Marshal(idx)
	if err != nil {
		_ = tw.Close()
		return err
	}
	if err := writeEntry(tw, indexName, append(ib, '\n')); err != nil {
		_ = tw.Close()
		return err
	}
	return tw.Close()
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	// IgnoreUnknown skips TAR entries outside blocks/ and index.json instead
	// of failing closed.
	IgnoreUnknown bool
}

// Import reads an archive from r, stores every block, and returns the
// index. It fails closed on unknown entries.
func Import(r io.Reader, store blobstore.Store) (*Index, error) {
	return ImportWithOptions(r, store, ImportOptions{})
}

// ImportWithOptions is Import with explicit options.
//
// Every block's bytes are verified against both the entry-name CID and the
// CID the destination store reports. The index must be present and may only
// reference blocks the archive actually carries.
func ImportWithOptions(r io.Reader, store blobstore.Store, opts ImportOptions) (*Index, error) {
	if store == nil {
		return nil, fmt.Errorf("bundle: nil store")
	}

	tr := tar.NewReader(r)
	imported := map[string]struct{}{}
	var idx *Index

	for {
		h, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		name := sanitizePath(h.Name)
		if name == "" {
			return nil, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}
		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return nil, fmt.Errorf("bundle: unexpected tar entry type %v (%s)", h.Typeflag, name)
		}

		switch {
		case name == indexName:
			if idx != nil {
				return nil, fmt.Errorf("bundle: duplicate index")
			}
			b, err := io.ReadAll(tr)
			if err != nil {
				return nil, err
			}
			idx = new(Index)
			if err := json.Unmarshal(b, idx); err != nil {
				return nil, fmt.Errorf("bundle: invalid index: %w", err)
			}

		case strings.HasPrefix(name, "blocks/"):
			id, err := cid.Decode(strings.TrimPrefix(name, "blocks/"))
			if err != nil || !id.Defined() {
				return nil, blobstore.ErrInvalidCID
			}
			if _, dup := imported[id.String()]; dup {
				return nil, fmt.Errorf("bundle: duplicate block entry: %s", id)
			}
			payload, err := io.ReadAll(tr)
			if err != nil {
				return nil, err
			}
			got, err := cidutil.CIDv1RawSHA256CID(payload)
			if err != nil {
				return nil, err
			}
			if !got.Equals(id) {
				return nil, blobstore.ErrCIDMismatch
			}
			stored, err := store.Put(payload)
			if err != nil {
				return nil, err
			}
			if !stored.Equals(id) {
				return nil, blobstore.ErrCIDMismatch
			}
			imported[id.String()] = struct{}{}

		default:
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return nil, fmt.Errorf("bundle: unknown entry: %s", name)
		}
	}

	if idx == nil {
		return nil, fmt.Errorf("bundle: missing index")
	}
	if idx.Version != FormatVersion {
		return nil, fmt.Errorf("bundle: unsupported index version %d", idx.Version)
	}
	if idx.Document != "" {
		if _, ok := imported[idx.Document]; !ok {
			return nil, fmt.Errorf("bundle: index references missing document block %s", idx.Document)
		}
	}
	for _, s := range idx.SharedStrings {
		if _, ok := imported[s]; !ok {
			return nil, fmt.Errorf("bundle: index references missing block %s", s)
		}
	}
	return idx, nil
}

func fetchVerified(store blobstore.Store, id cid.Cid) ([]byte, error) {
	b, err := store.Get(id)
	if err != nil {
		return nil, err
	}
	got, err := cidutil.CIDv1RawSHA256CID(b)
	if err != nil {
		return nil, err
	}
	if !got.Equals(id) {
		return nil, blobstore.ErrCIDMismatch
	}
	return b, nil
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func sanitizePath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
