// Command rbxml-blobd serves a blob store over gRPC so document pipelines
// can share extracted shared-string payloads.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"github.com/weakdom/rbxml/blobstore/grpcstore"
	"github.com/weakdom/rbxml/blobstore/registry"

	_ "github.com/weakdom/rbxml/blobstore/localfs"
	_ "github.com/weakdom/rbxml/blobstore/memory"
)

func main() {
	fs := flag.NewFlagSet("rbxml-blobd", flag.ExitOnError)
	listen := fs.String("listen", "127.0.0.1:7677", "listen address")
	backend := fs.String("backend", "localfs", "blob store backend name")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")

	registry.RegisterFlags(fs, registry.UsageDaemon)

	_ = fs.Parse(os.Args[1:])
	if *listBackends {
		for _, b := range registry.List(registry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return
	}

	store, closeFn, err := registry.Open(*backend, registry.UsageDaemon)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer lis.Close()

	s := grpc.NewServer()
	grpcstore.RegisterBlobStoreServer(s, &grpcstore.Server{Store: store})

	fmt.Fprintf(os.Stderr, "rbxml-blobd listening on %s (backend=%s)\n", lis.Addr().String(), *backend)
	if err := s.Serve(lis); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
