package blobstore

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"github.com/weakdom/rbxml/rbxtree"
	"github.com/weakdom/rbxml/rbxvalue"
)

// ExtractTree walks the subtrees rooted at refs and stores every
// shared-string payload found on the way. It returns the stored CIDs in
// first-discovery order (pre-order over instances, lexicographic over each
// instance's property names is NOT guaranteed; payloads are deduplicated by
// content hash so order only affects reporting, not contents).
func ExtractTree(store Store, tree *rbxtree.Tree, refs []rbxvalue.Ref) ([]cid.Cid, error) {
	if store == nil {
		return nil, fmt.Errorf("blobstore: nil store")
	}
	seen := make(map[rbxvalue.Hash]struct{})
	var out []cid.Cid
	for _, ref := range refs {
		if err := extractInstance(store, tree, ref, seen, &out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func extractInstance(store Store, tree *rbxtree.Tree, ref rbxvalue.Ref, seen map[rbxvalue.Hash]struct{}, out *[]cid.Cid) error {
	instance, ok := tree.Get(ref)
	if !ok {
		return fmt.Errorf("blobstore: %w: ref %d", rbxtree.ErrNoSuchInstance, ref)
	}
	for _, v := range instance.Properties() {
		if v.Type() != rbxvalue.TypeSharedString {
			continue
		}
		ss := v.AsSharedString()
		if _, dup := seen[ss.Hash()]; dup {
			continue
		}
		seen[ss.Hash()] = struct{}{}
		id, err := store.Put(ss.Data())
		if err != nil {
			return err
		}
		*out = append(*out, id)
	}
	for _, child := range instance.Children() {
		if err := extractInstance(store, tree, child, seen, out); err != nil {
			return err
		}
	}
	return nil
}

// Hydrate fetches a shared-string payload back out of a store by CID and
// re-wraps it, restoring the content-hash identity documents key on.
func Hydrate(store Store, id cid.Cid) (rbxvalue.SharedString, error) {
	if store == nil {
		return rbxvalue.SharedString{}, fmt.Errorf("blobstore: nil store")
	}
	b, err := store.Get(id)
	if err != nil {
		return rbxvalue.SharedString{}, err
	}
	return rbxvalue.NewSharedString(b), nil
}
