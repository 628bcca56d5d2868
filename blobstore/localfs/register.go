package localfs

import (
	"flag"
	"fmt"

	"github.com/weakdom/rbxml/blobstore"
	"github.com/weakdom/rbxml/blobstore/registry"
)

var flagLocalDir string

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "localfs",
		Description: "Local filesystem blob store (directory)",
		Usage:       registry.UsageCLI | registry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagLocalDir, "localfs-dir", "", "blob store directory (for -backend=localfs)")
		},
		Open: func() (blobstore.Store, func() error, error) {
			if flagLocalDir == "" {
				return nil, nil, fmt.Errorf("missing -localfs-dir")
			}
			s, err := New(flagLocalDir)
			return s, nil, err
		},
	})
}
