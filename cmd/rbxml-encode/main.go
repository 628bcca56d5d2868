// Command rbxml-encode encodes a JSON scene description into the XML model
// format, with optional shared-string extraction into a blob store and
// manifest signing.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ipfs/go-cid"

	"github.com/weakdom/rbxml/blobstore"
	"github.com/weakdom/rbxml/blobstore/bundle"
	"github.com/weakdom/rbxml/blobstore/registry"
	"github.com/weakdom/rbxml/cidutil"
	"github.com/weakdom/rbxml/keys"
	"github.com/weakdom/rbxml/manifest"
	"github.com/weakdom/rbxml/rbxvalue"
	"github.com/weakdom/rbxml/treejson"
	"github.com/weakdom/rbxml/xmlenc"

	_ "github.com/weakdom/rbxml/blobstore/localfs"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "encode":
		return cmdEncode(args[1:], out, errOut)
	case "doc-cid":
		return cmdDocCID(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "bundle":
		return cmdBundle(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "rbxml-encode: XML model encoder")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  rbxml-encode encode [--behavior ignore|write|error|no-reflect] [--out <file>] [--extract <backend>] [--bundle <file>] [--manifest <file> --signer <name> | --seed-hex <64hex>] [--signer-alg ed25519|dilithium3] <tree.json>")
	fmt.Fprintln(w, "  rbxml-encode doc-cid <file>")
	fmt.Fprintln(w, "  rbxml-encode verify <manifest>")
	fmt.Fprintln(w, "  rbxml-encode bundle export --out <file> --backend <backend> [--document <cid>] <cid>...")
	fmt.Fprintln(w, "  rbxml-encode bundle import --backend <backend> <file>")
	fmt.Fprintln(w, "  rbxml-encode key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  rbxml-encode key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  rbxml-encode key list")
	fmt.Fprintln(w, "  rbxml-encode key export --name <name> [--role <role>]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - encode writes the document to stdout unless --out is given")
	fmt.Fprintln(w, "  - the Document-CID is printed to stderr")
	fmt.Fprintln(w, "  - --extract stores shared-string payloads in the named blob store backend")
	fmt.Fprintln(w, "  - --bundle (with --extract) archives the document and its payloads as a TAR")
	fmt.Fprintln(w, "  - keys are stored under ~/.rbxml/keys/<name> (0600 seed files)")
}

func parseBehavior(s string) (xmlenc.PropertyBehavior, error) {
	switch s {
	case "", "ignore":
		return xmlenc.IgnoreUnknown, nil
	case "write":
		return xmlenc.WriteUnknown, nil
	case "error":
		return xmlenc.ErrorOnUnknown, nil
	case "no-reflect":
		return xmlenc.NoReflection, nil
	default:
		return 0, fmt.Errorf("unknown behavior %q (want ignore, write, error, or no-reflect)", s)
	}
}

func cmdEncode(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var behavior string
	var outPath string
	var extractBackend string
	var bundlePath string
	var manifestPath string
	var seedHex string
	var signerName string
	var signerRole string
	var signerAlg string
	var keyFile string

	fs.StringVar(&behavior, "behavior", "ignore", "Unknown-property behavior: ignore, write, error, no-reflect")
	fs.StringVar(&outPath, "out", "", "Write the document to a file instead of stdout")
	fs.StringVar(&extractBackend, "extract", "", "Store shared-string payloads in the named blob store backend")
	fs.StringVar(&bundlePath, "bundle", "", "Archive the document and its payloads as a TAR (requires --extract)")
	fs.StringVar(&manifestPath, "manifest", "", "Write a signed manifest to a file (requires a signer)")
	fs.StringVar(&seedHex, "seed-hex", "", "Signing seed as 64 hex chars")
	fs.StringVar(&signerName, "signer", "", "Use a stored key by name (from 'rbxml-encode key init')")
	fs.StringVar(&signerRole, "signer-role", "", "When using --signer, optionally use a derived role key")
	fs.StringVar(&signerAlg, "signer-alg", "ed25519", "Signature algorithm: ed25519 or dilithium3")
	fs.StringVar(&keyFile, "key-file", "", "Path to a seed file (hex)")

	registry.RegisterFlags(fs, registry.UsageCLI)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: rbxml-encode encode [flags] <tree.json>")
		return 2
	}

	b, err := parseBehavior(behavior)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read tree: %v\n", err)
		return 1
	}
	tree, err := treejson.Decode(f)
	_ = f.Close()
	if err != nil {
		fmt.Fprintf(errOut, "decode tree: %v\n", err)
		return 1
	}

	refs := []rbxvalue.Ref{tree.Root()}
	doc, err := xmlenc.EncodeDocument(tree, refs, xmlenc.Options{Behavior: b})
	if err != nil {
		fmt.Fprintf(errOut, "encode: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "Document-CID: %s\n", doc.CID)

	if bundlePath != "" && extractBackend == "" {
		fmt.Fprintln(errOut, "--bundle requires --extract")
		return 2
	}

	var extracted []cid.Cid
	if extractBackend != "" {
		store, closeFn, err := registry.Open(extractBackend, registry.UsageCLI)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 2
		}
		if closeFn != nil {
			defer closeFn()
		}
		extracted, err = blobstore.ExtractTree(store, tree, refs)
		if err != nil {
			fmt.Fprintf(errOut, "extract: %v\n", err)
			return 1
		}
		for _, id := range extracted {
			fmt.Fprintf(errOut, "Shared-String-CID: %s\n", id)
		}

		if bundlePath != "" {
			docCID, err := store.Put(doc.Bytes)
			if err != nil {
				fmt.Fprintf(errOut, "store document: %v\n", err)
				return 1
			}
			bf, err := os.Create(bundlePath)
			if err != nil {
				fmt.Fprintf(errOut, "create bundle: %v\n", err)
				return 1
			}
			if err := bundle.Export(bf, store, docCID, extracted); err != nil {
				_ = bf.Close()
				fmt.Fprintf(errOut, "bundle: %v\n", err)
				return 1
			}
			if err := bf.Close(); err != nil {
				fmt.Fprintf(errOut, "write bundle: %v\n", err)
				return 1
			}
		}
	}

	if manifestPath != "" {
		if seedHex == "" && signerName == "" && keyFile == "" {
			fmt.Fprintln(errOut, "missing signer: use --seed-hex, --signer, or --key-file")
			return 2
		}
		manifestBytes, err := buildSignedManifest(doc, extracted, signerAlg, seedHex, signerName, signerRole, keyFile)
		if err != nil {
			fmt.Fprintf(errOut, "manifest: %v\n", err)
			return 1
		}
		if err := os.WriteFile(manifestPath, manifestBytes, 0o644); err != nil {
			fmt.Fprintf(errOut, "write manifest: %v\n", err)
			return 1
		}
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, doc.Bytes, 0o644); err != nil {
			fmt.Fprintf(errOut, "write document: %v\n", err)
			return 1
		}
		return 0
	}
	_, _ = out.Write(doc.Bytes)
	return 0
}

func buildSignedManifest(doc *xmlenc.Document, extracted []cid.Cid, signerAlg, seedHex, signerName, signerRole, keyFile string) ([]byte, error) {
	ks, err := keys.CreateKeyStore("")
	if err != nil {
		return nil, err
	}
	seed, err := ks.LoadSeed(seedHex, signerName, signerRole, keyFile)
	if err != nil {
		return nil, err
	}
	signer, err := keys.NewSigner(signerAlg, seed)
	if err != nil {
		return nil, err
	}
	hashAlg := keys.DefaultHashAlg(signer.Alg())

	document := map[string]string{"CID": doc.CID}
	if len(extracted) > 0 {
		ss := make([]string, 0, len(extracted))
		for _, id := range extracted {
			ss = append(ss, id.String())
		}
		document["Shared-Strings"] = strings.Join(ss, " ")
	}

	d := manifest.Draft{
		Meta:     map[string]string{"Format": "rbxlx", "Version": "4"},
		Document: document,
		Crypto: map[string]string{
			"Hash-Alg":      hashAlg,
			"Issuer-Key":    signer.IssuerKey(),
			"Signature":     "0",
			"Signature-Alg": signer.Alg(),
		},
	}

	pre, err := manifest.Render(d)
	if err != nil {
		return nil, err
	}
	parsed, err := manifest.Parse(pre)
	if err != nil {
		return nil, err
	}
	d.Crypto["Signature"], err = signer.Sign(hashAlg, parsed.Signed)
	if err != nil {
		return nil, err
	}

	final, err := manifest.Render(d)
	if err != nil {
		return nil, err
	}
	m, err := manifest.Parse(final)
	if err != nil {
		return nil, err
	}
	if err := m.Verify(); err != nil {
		return nil, err
	}
	return final, nil
}

func cmdDocCID(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("doc-cid", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: rbxml-encode doc-cid <file>")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, cidutil.CIDv1RawSHA256(b))
	return 0
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var docPath string
	fs.StringVar(&docPath, "doc", "", "Also check the manifest's DOCUMENT CID against this file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: rbxml-encode verify [--doc <file>] <manifest>")
		return 2
	}
	b, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read manifest: %v\n", err)
		return 1
	}
	m, err := manifest.Parse(b)
	if err != nil {
		fmt.Fprintf(errOut, "invalid manifest: %v\n", err)
		return 1
	}
	if err := m.Verify(); err != nil {
		fmt.Fprintf(errOut, "verify: %v\n", err)
		return 1
	}

	if docPath != "" {
		docBytes, err := os.ReadFile(docPath)
		if err != nil {
			fmt.Fprintf(errOut, "read document: %v\n", err)
			return 1
		}
		got := cidutil.CIDv1RawSHA256(docBytes)
		if got != m.DocumentCID() {
			fmt.Fprintf(errOut, "document CID mismatch:\n  manifest: %s\n  file:     %s\n", m.DocumentCID(), got)
			return 1
		}
	}

	_, _ = fmt.Fprintln(out, "OK")
	return 0
}

func cmdBundle(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printBundleUsage(errOut)
		return 2
	}
	switch args[0] {
	case "export":
		return cmdBundleExport(args[1:], out, errOut)
	case "import":
		return cmdBundleImport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printBundleUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown bundle subcommand: %s\n\n", args[0])
		printBundleUsage(errOut)
		return 2
	}
}

func printBundleUsage(w io.Writer) {
	fmt.Fprintln(w, "rbxml-encode bundle: move documents and payloads between blob stores as TAR archives")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  rbxml-encode bundle export --out <file> --backend <backend> [--document <cid>] <cid>...")
	fmt.Fprintln(w, "  rbxml-encode bundle import --backend <backend> <file>")
}

func cmdBundleExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var outPath string
	var backend string
	var documentCID string

	fs.StringVar(&outPath, "out", "", "Archive file to write")
	fs.StringVar(&backend, "backend", "", "Blob store backend to read blocks from")
	fs.StringVar(&documentCID, "document", "", "CID of the document block")

	registry.RegisterFlags(fs, registry.UsageCLI)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if outPath == "" || backend == "" {
		fmt.Fprintln(errOut, "usage: rbxml-encode bundle export --out <file> --backend <backend> [--document <cid>] <cid>...")
		return 2
	}

	document := cid.Undef
	if documentCID != "" {
		var err error
		document, err = cid.Decode(documentCID)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --document CID: %v\n", err)
			return 2
		}
	}
	shared := make([]cid.Cid, 0, fs.NArg())
	for _, arg := range fs.Args() {
		id, err := cid.Decode(arg)
		if err != nil {
			fmt.Fprintf(errOut, "invalid CID %q: %v\n", arg, err)
			return 2
		}
		shared = append(shared, id)
	}

	store, closeFn, err := registry.Open(backend, registry.UsageCLI)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(errOut, "create archive: %v\n", err)
		return 1
	}
	if err := bundle.Export(f, store, document, shared); err != nil {
		_ = f.Close()
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(errOut, "write archive: %v\n", err)
		return 1
	}
	return 0
}

func cmdBundleImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle import", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var backend string
	fs.StringVar(&backend, "backend", "", "Blob store backend to import blocks into")

	registry.RegisterFlags(fs, registry.UsageCLI)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if backend == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: rbxml-encode bundle import --backend <backend> <file>")
		return 2
	}

	store, closeFn, err := registry.Open(backend, registry.UsageCLI)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(errOut, "read archive: %v\n", err)
		return 1
	}
	idx, err := bundle.Import(f, store)
	_ = f.Close()
	if err != nil {
		fmt.Fprintf(errOut, "import: %v\n", err)
		return 1
	}

	if idx.Document != "" {
		fmt.Fprintf(errOut, "Document-CID: %s\n", idx.Document)
	}
	for _, s := range idx.SharedStrings {
		fmt.Fprintf(errOut, "Shared-String-CID: %s\n", s)
	}
	return 0
}

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "derive":
		return cmdKeyDerive(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "export":
		return cmdKeyExport(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "rbxml-encode key: minimal local key management")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  rbxml-encode key init --name <name> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  rbxml-encode key derive --from <name> --role <role> [--force]")
	fmt.Fprintln(w, "  rbxml-encode key list")
	fmt.Fprintln(w, "  rbxml-encode key export --name <name> [--role <role>]")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var seedHex string
	var force bool

	fs.StringVar(&name, "name", "", "Key name (directory under ~/.rbxml/keys)")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible setups)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}

	var seed []byte
	if seedHex != "" {
		var err error
		seed, err = keys.ParseSeedHex(seedHex)
		if err != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", err)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "generate seed: %v\n", err)
			return 1
		}
	}

	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	issuerKey, path, err := ks.InitializeRootKey(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "init: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "stored: %s\n", path)
	_, _ = fmt.Fprintln(out, issuerKey)
	return 0
}

func cmdKeyDerive(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key derive", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var from string
	var role string
	var force bool

	fs.StringVar(&from, "from", "", "Root key name")
	fs.StringVar(&role, "role", "", "Role name for the derived key")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if from == "" || role == "" {
		fmt.Fprintln(errOut, "usage: rbxml-encode key derive --from <name> --role <role> [--force]")
		return 2
	}

	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	issuerKey, path, err := ks.DeriveKeyFromRole(from, role, force)
	if err != nil {
		fmt.Fprintf(errOut, "derive: %v\n", err)
		return 1
	}
	fmt.Fprintf(errOut, "stored: %s\n", path)
	_, _ = fmt.Fprintln(out, issuerKey)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	entries, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list: %v\n", err)
		return 1
	}
	for _, e := range entries {
		if len(e.Roles) == 0 {
			_, _ = fmt.Fprintln(out, e.Identifier)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\n", e.Identifier, strings.Join(e.Roles, ","))
	}
	return 0
}

func cmdKeyExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key export", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var role string
	fs.StringVar(&name, "name", "", "Key name")
	fs.StringVar(&role, "role", "", "Optional role key to export")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}

	ks, err := keys.CreateKeyStore("")
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	issuerKey, err := ks.ExportKey(name, role)
	if err != nil {
		fmt.Fprintf(errOut, "export: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(out, issuerKey)
	return 0
}
