package localfs_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/weakdom/rbxml/blobstore"
	"github.com/weakdom/rbxml/blobstore/localfs"
	"github.com/weakdom/rbxml/blobstore/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunConformance(t, func(t *testing.T) blobstore.Store {
		s, err := localfs.New(t.TempDir())
		if err != nil {
			t.Fatalf("localfs.New: %v", err)
		}
		return s
	})
}

func TestLocalFS_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s1, err := localfs.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	payload := []byte("persisted payload")
	id, err := s1.Put(payload)
	if err != nil {
		t.Fatal(err)
	}

	s2, err := localfs.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	got, err := s2.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch after reopen")
	}
}

func TestLocalFS_GetRejectsCorruptedObject(t *testing.T) {
	dir := t.TempDir()
	s, err := localfs.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.Put([]byte("original"))
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt the object on disk behind the store's back.
	str := id.String()
	path := filepath.Join(dir, str[:2], str)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Get(id); err != blobstore.ErrCIDMismatch {
		t.Fatalf("Get after corruption: got %v, want ErrCIDMismatch", err)
	}
}

func TestLocalFS_RequiresRoot(t *testing.T) {
	if _, err := localfs.New(""); err == nil {
		t.Fatalf("New(\"\") should fail")
	}
}
