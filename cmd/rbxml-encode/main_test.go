package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testTree = `{
  "className": "Folder",
  "name": "Workspace",
  "children": [
    {
      "className": "MeshPart",
      "name": "Rock",
      "properties": {
        "PhysicalConfigData": {"type": "sharedstring", "value": "cGF5bG9hZA=="}
      }
    }
  ]
}`

const testSeedHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func writeTestTree(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.json")
	if err := os.WriteFile(path, []byte(testTree), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_EncodeBundleRoundTrip(t *testing.T) {
	treePath := writeTestTree(t)
	srcDir := t.TempDir()
	bundlePath := filepath.Join(t.TempDir(), "doc.tar")

	var out, errOut bytes.Buffer
	code := run([]string{
		"encode",
		"-extract", "localfs", "-localfs-dir", srcDir,
		"-bundle", bundlePath,
		treePath,
	}, &out, &errOut)
	if code != 0 {
		t.Fatalf("encode exit = %d, stderr:\n%s", code, errOut.String())
	}
	if !strings.Contains(errOut.String(), "Document-CID: bafkrei") {
		t.Fatalf("missing document CID, stderr:\n%s", errOut.String())
	}
	if !strings.Contains(errOut.String(), "Shared-String-CID: bafkrei") {
		t.Fatalf("missing shared-string CID, stderr:\n%s", errOut.String())
	}

	dstDir := t.TempDir()
	out.Reset()
	errOut.Reset()
	code = run([]string{
		"bundle", "import",
		"-backend", "localfs", "-localfs-dir", dstDir,
		bundlePath,
	}, &out, &errOut)
	if code != 0 {
		t.Fatalf("bundle import exit = %d, stderr:\n%s", code, errOut.String())
	}
	if !strings.Contains(errOut.String(), "Document-CID: bafkrei") {
		t.Fatalf("import did not report a document CID, stderr:\n%s", errOut.String())
	}
	if !strings.Contains(errOut.String(), "Shared-String-CID: bafkrei") {
		t.Fatalf("import did not report the payload CID, stderr:\n%s", errOut.String())
	}
}

func TestRun_EncodeBundleRequiresExtract(t *testing.T) {
	treePath := writeTestTree(t)

	var out, errOut bytes.Buffer
	code := run([]string{
		"encode",
		"-bundle", filepath.Join(t.TempDir(), "doc.tar"),
		treePath,
	}, &out, &errOut)
	if code != 2 {
		t.Fatalf("exit = %d, want 2", code)
	}
}

func TestRun_SignedManifestVerifies(t *testing.T) {
	for _, alg := range []string{"ed25519", "dilithium3"} {
		t.Run(alg, func(t *testing.T) {
			treePath := writeTestTree(t)
			manifestPath := filepath.Join(t.TempDir(), "doc.manifest")

			var out, errOut bytes.Buffer
			code := run([]string{
				"encode",
				"-manifest", manifestPath,
				"-seed-hex", testSeedHex,
				"-signer-alg", alg,
				treePath,
			}, &out, &errOut)
			if code != 0 {
				t.Fatalf("encode exit = %d, stderr:\n%s", code, errOut.String())
			}

			out.Reset()
			errOut.Reset()
			code = run([]string{"verify", manifestPath}, &out, &errOut)
			if code != 0 {
				t.Fatalf("verify exit = %d, stderr:\n%s", code, errOut.String())
			}
			if strings.TrimSpace(out.String()) != "OK" {
				t.Fatalf("verify output = %q", out.String())
			}

			b, err := os.ReadFile(manifestPath)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(b), "Signature-Alg: "+alg) {
				t.Fatalf("manifest does not carry Signature-Alg %s:\n%s", alg, b)
			}
		})
	}
}

func TestRun_UnknownSignerAlg(t *testing.T) {
	treePath := writeTestTree(t)

	var out, errOut bytes.Buffer
	code := run([]string{
		"encode",
		"-manifest", filepath.Join(t.TempDir(), "doc.manifest"),
		"-seed-hex", testSeedHex,
		"-signer-alg", "rsa",
		treePath,
	}, &out, &errOut)
	if code == 0 {
		t.Fatalf("expected failure for unsupported signature algorithm")
	}
}
