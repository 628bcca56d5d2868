package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// Digest hashes a manifest signed scope with the named Hash-Alg.
// Supported: sha256, sha512, sha3-256.
func Digest(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// Signer signs manifest scopes on behalf of one issuer key. Implementations
// are keyed by the manifest Signature-Alg value.
type Signer interface {
	// Alg is the manifest Signature-Alg value.
	Alg() string
	// IssuerKey is the manifest Issuer-Key value: "<alg>:<base64 pubkey>".
	IssuerKey() string
	// Sign returns the base64 signature over Digest(hashAlg, message).
	Sign(hashAlg string, message []byte) (string, error)
}

// NewSigner builds a Signer for alg ("ed25519" or "dilithium3") from a
// 32-byte seed. Both algorithms derive their keypair deterministically, so
// one stored seed serves either.
func NewSigner(alg string, seed []byte) (Signer, error) {
	switch alg {
	case "ed25519":
		return NewEd25519Signer(seed)
	case "dilithium3":
		return NewDilithium3Signer(seed)
	default:
		return nil, fmt.Errorf("unsupported signature algorithm: %q", alg)
	}
}

// DefaultHashAlg returns the Hash-Alg conventionally paired with a
// Signature-Alg: sha3-256 for dilithium3, sha256 otherwise.
func DefaultHashAlg(alg string) string {
	if alg == "dilithium3" {
		return "sha3-256"
	}
	return "sha256"
}

type ed25519Signer struct {
	priv ed25519.PrivateKey
}

// NewEd25519Signer builds an ed25519 Signer from a seed.
func NewEd25519Signer(seed []byte) (Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &ed25519Signer{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

func (s *ed25519Signer) Alg() string { return "ed25519" }

func (s *ed25519Signer) IssuerKey() string {
	pub := s.priv.Public().(ed25519.PublicKey)
	return "ed25519:" + base64.StdEncoding.EncodeToString(pub)
}

func (s *ed25519Signer) Sign(hashAlg string, message []byte) (string, error) {
	digest, err := Digest(hashAlg, message)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(s.priv, digest)), nil
}

type dilithium3Signer struct {
	pub  *mode3.PublicKey
	priv *mode3.PrivateKey
}

// NewDilithium3Signer builds a dilithium3 Signer from a seed.
func NewDilithium3Signer(seed []byte) (Signer, error) {
	if len(seed) != mode3.SeedSize {
		return nil, fmt.Errorf("expected seed length of %d bytes, got %d", mode3.SeedSize, len(seed))
	}
	var s [mode3.SeedSize]byte
	copy(s[:], seed)
	pub, priv := mode3.NewKeyFromSeed(&s)
	return &dilithium3Signer{pub: pub, priv: priv}, nil
}

func (s *dilithium3Signer) Alg() string { return "dilithium3" }

func (s *dilithium3Signer) IssuerKey() string {
	b, err := s.pub.MarshalBinary()
	if err != nil {
		return ""
	}
	return "dilithium3:" + base64.StdEncoding.EncodeToString(b)
}

func (s *dilithium3Signer) Sign(hashAlg string, message []byte) (string, error) {
	digest, err := Digest(hashAlg, message)
	if err != nil {
		return "", err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, digest, sig)
	return base64.StdEncoding.EncodeToString(sig), nil
}
