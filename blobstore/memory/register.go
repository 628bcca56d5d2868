package memory

import (
	"flag"

	"github.com/weakdom/rbxml/blobstore"
	"github.com/weakdom/rbxml/blobstore/registry"
)

func init() {
	registry.MustRegister(registry.Backend{
		Name:        "memory",
		Description: "In-memory blob store (contents discarded on exit)",
		Usage:       registry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			// No flags; the store is empty at startup.
		},
		Open: func() (blobstore.Store, func() error, error) {
			return New(), nil, nil
		},
	})
}
