package manifest

import (
	"crypto/ed25519"
	"encoding/base64"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"github.com/weakdom/rbxml/keys"
)

func (m *Manifest) SignatureAlg() string {
	if sec, ok := m.Sections["CRYPTO"]; ok {
		return sec.Pairs["Signature-Alg"]
	}
	return ""
}

func (m *Manifest) HashAlg() string {
	if sec, ok := m.Sections["CRYPTO"]; ok {
		return sec.Pairs["Hash-Alg"]
	}
	return ""
}

func (m *Manifest) Signature() string {
	if sec, ok := m.Sections["CRYPTO"]; ok {
		return sec.Pairs["Signature"]
	}
	return ""
}

// IssuerPublicKeyBytes returns the raw public key bytes for the issuer.
// Supported encodings:
// - ed25519:<base64>
// - dilithium3:<base64>
func (m *Manifest) IssuerPublicKeyBytes() ([]byte, error) {
	issuer := m.IssuerKey()
	if issuer == "" {
		return nil, newError(KindCrypto, "RBXM-CRYPTO-103", "missing Issuer-Key")
	}

	alg, enc, ok := strings.Cut(issuer, ":")
	if !ok {
		return nil, newError(KindCrypto, "RBXM-CRYPTO-111", "invalid Issuer-Key encoding")
	}
	pub, err := decodeBase64(enc)
	if err != nil {
		return nil, wrapError(KindCrypto, "RBXM-CRYPTO-113", "invalid issuer key base64", err)
	}

	switch alg {
	case "ed25519":
		if len(pub) != ed25519.PublicKeySize {
			return nil, newError(KindCrypto, "RBXM-CRYPTO-114", "invalid ed25519 public key length")
		}
		return pub, nil
	case "dilithium3":
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return nil, wrapError(KindCrypto, "RBXM-CRYPTO-115", "invalid dilithium3 public key", err)
		}
		return pub, nil
	default:
		return nil, newError(KindCrypto, "RBXM-CRYPTO-112", "unsupported issuer key encoding")
	}
}

func (m *Manifest) SignatureBytes() ([]byte, error) {
	s := m.Signature()
	if s == "" {
		return nil, newError(KindCrypto, "RBXM-CRYPTO-104", "missing Signature")
	}
	sig, err := decodeBase64(s)
	if err != nil {
		return nil, wrapError(KindCrypto, "RBXM-CRYPTO-131", "invalid signature base64", err)
	}
	switch m.SignatureAlg() {
	case "":
		return nil, newError(KindCrypto, "RBXM-CRYPTO-101", "missing Signature-Alg")
	case "ed25519":
		if len(sig) != ed25519.SignatureSize {
			return nil, newError(KindCrypto, "RBXM-CRYPTO-132", "invalid ed25519 signature length")
		}
	case "dilithium3":
		if len(sig) != mode3.SignatureSize {
			return nil, newError(KindCrypto, "RBXM-CRYPTO-133", "invalid dilithium3 signature length")
		}
	}
	return sig, nil
}

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	digest, err := keys.Digest(hashAlg, message)
	if err != nil {
		return nil, wrapError(KindCrypto, "RBXM-CRYPTO-201", "unsupported Hash-Alg", err)
	}
	return digest, nil
}

// Verify verifies the manifest signature.
// For Signature-Alg=ed25519 and Hash-Alg=sha256, the signed message is
// sha256(Signed). Also supported:
// - Hash-Alg: sha512, sha3-256
// - Signature-Alg: dilithium3 (post-quantum)
func (m *Manifest) Verify() error {
	if m == nil {
		return newError(KindCrypto, "RBXM-CRYPTO-001", "nil manifest")
	}
	// Re-parse the receiver bytes so canonicalization cannot be bypassed via
	// a manually-constructed Manifest or mutated fields.
	parsed, err := Parse(m.Raw)
	if err != nil {
		return err
	}
	m = parsed

	if m.SignatureAlg() == "" {
		return newError(KindCrypto, "RBXM-CRYPTO-101", "missing Signature-Alg")
	}
	if m.HashAlg() == "" {
		return newError(KindCrypto, "RBXM-CRYPTO-102", "missing Hash-Alg")
	}

	issuer := m.IssuerKey()
	if issuer == "" {
		return newError(KindCrypto, "RBXM-CRYPTO-103", "missing Issuer-Key")
	}
	issuerAlg, _, ok := strings.Cut(issuer, ":")
	if !ok {
		return newError(KindCrypto, "RBXM-CRYPTO-111", "invalid Issuer-Key encoding")
	}
	if issuerAlg != m.SignatureAlg() {
		return newError(KindCrypto, "RBXM-CRYPTO-121", "Issuer-Key alg does not match Signature-Alg")
	}

	pub, err := m.IssuerPublicKeyBytes()
	if err != nil {
		return err
	}
	sig, err := m.SignatureBytes()
	if err != nil {
		return err
	}
	digest, err := digestFor(m.HashAlg(), m.Signed)
	if err != nil {
		return err
	}

	switch m.SignatureAlg() {
	case "ed25519":
		if !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return newError(KindCrypto, "RBXM-CRYPTO-401", "signature invalid")
		}
		return nil
	case "dilithium3":
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return wrapError(KindCrypto, "RBXM-CRYPTO-115", "invalid dilithium3 public key", err)
		}
		if !mode3.Verify(&pk, digest, sig) {
			return newError(KindCrypto, "RBXM-CRYPTO-401", "signature invalid")
		}
		return nil
	default:
		return newError(KindCrypto, "RBXM-CRYPTO-301", "unsupported Signature-Alg")
	}
}

func decodeBase64(s string) ([]byte, error) {
	// Prefer standard padded encoding, but accept raw encoding too.
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
