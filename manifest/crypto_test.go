package manifest

import (
	"bytes"
	"testing"

	"github.com/weakdom/rbxml/keys"
)

func testSigner(t *testing.T, alg string, offset byte) keys.Signer {
	t.Helper()

	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i) + offset
	}
	signer, err := keys.NewSigner(alg, seed)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return signer
}

func signedDraft(t *testing.T, signer keys.Signer) Draft {
	t.Helper()

	return Draft{
		Meta: map[string]string{
			"Format":  "rbxlx",
			"Version": "4",
		},
		Document: map[string]string{
			"CID": "bafkreifakedocumentcid",
		},
		Crypto: map[string]string{
			"Issuer-Key":    signer.IssuerKey(),
			"Signature-Alg": signer.Alg(),
			"Hash-Alg":      keys.DefaultHashAlg(signer.Alg()),
			"Signature":     "placeholder",
		},
	}
}

func signDraft(t *testing.T, d Draft, signer keys.Signer) []byte {
	t.Helper()

	// The signed scope is independent of the Signature value itself, so a
	// placeholder render is enough to compute it.
	canonical, err := Render(d)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	signed, err := signedScopeFromCanonical(canonical)
	if err != nil {
		t.Fatalf("signedScopeFromCanonical: %v", err)
	}
	sig, err := signer.Sign(d.Crypto["Hash-Alg"], signed)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	d.Crypto["Signature"] = sig

	final, err := Render(d)
	if err != nil {
		t.Fatalf("Render(signed): %v", err)
	}
	return final
}

func TestVerify_Ed25519(t *testing.T) {
	signer := testSigner(t, "ed25519", 7)
	canonical := signDraft(t, signedDraft(t, signer), signer)

	m, err := Parse(canonical)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := m.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerify_RejectsTamperedDocument(t *testing.T) {
	signer := testSigner(t, "ed25519", 7)
	canonical := signDraft(t, signedDraft(t, signer), signer)

	tampered := bytes.Replace(canonical,
		[]byte("CID: bafkreifakedocumentcid"),
		[]byte("CID: bafkreiothercidentirely"), 1)
	m, err := Parse(tampered)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	err = m.Verify()
	if err == nil {
		t.Fatalf("Verify should reject a tampered document")
	}
	if !IsKind(err, KindCrypto) {
		t.Fatalf("kind = %v, want Crypto", err)
	}
	if RuleID(err) != "RBXM-CRYPTO-401" {
		t.Fatalf("RuleID = %q", RuleID(err))
	}
}

func TestVerify_RejectsWrongKey(t *testing.T) {
	signer := testSigner(t, "ed25519", 7)
	other := testSigner(t, "ed25519", 100)

	// Issuer-Key names signer, but the signature comes from other.
	canonical := signDraft(t, signedDraft(t, signer), other)

	m, err := Parse(canonical)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := m.Verify(); err == nil {
		t.Fatalf("Verify should reject a signature from the wrong key")
	}
}

func TestVerify_RejectsAlgMismatch(t *testing.T) {
	signer := testSigner(t, "ed25519", 7)
	d := signedDraft(t, signer)
	d.Crypto["Signature-Alg"] = "dilithium3"
	canonical := signDraft(t, d, signer)

	m, err := Parse(canonical)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	err = m.Verify()
	if err == nil {
		t.Fatalf("Verify should reject Issuer-Key/Signature-Alg mismatch")
	}
	if RuleID(err) != "RBXM-CRYPTO-121" {
		t.Fatalf("RuleID = %q", RuleID(err))
	}
}

func TestVerify_Dilithium3(t *testing.T) {
	signer := testSigner(t, "dilithium3", 11)
	canonical := signDraft(t, signedDraft(t, signer), signer)

	m, err := Parse(canonical)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := m.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}
