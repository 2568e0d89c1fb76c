// Package crypto provides signing for report envelopes and attestation
// certificates.
package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Signer interface for cryptographic signatures. Allows swapping the
// in-memory backend for an HSM or cloud KMS.
type Signer interface {
	Sign(data []byte) (string, error)
	PublicKey() string
	PublicKeyBytes() []byte
}

// Ed25519Signer implementation.
type Ed25519Signer struct {
	privKey ed25519.PrivateKey
	pubKey  ed25519.PublicKey
	KeyID   string
}

func NewEd25519Signer(keyID string) (*Ed25519Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("key generation failed: %w", err)
	}
	return &Ed25519Signer{
		privKey: priv,
		pubKey:  pub,
		KeyID:   keyID,
	}, nil
}

func NewEd25519SignerFromKey(priv ed25519.PrivateKey, keyID string) *Ed25519Signer {
	return &Ed25519Signer{
		privKey: priv,
		pubKey:  priv.Public().(ed25519.PublicKey),
		KeyID:   keyID,
	}
}

func (s *Ed25519Signer) Sign(data []byte) (string, error) {
	sig := ed25519.Sign(s.privKey, data)
	return hex.EncodeToString(sig), nil
}

func (s *Ed25519Signer) PublicKey() string {
	return hex.EncodeToString(s.pubKey)
}

func (s *Ed25519Signer) PublicKeyBytes() []byte {
	return s.pubKey
}

// Key exposes the private key for JWS signing. The attestation layer
// hands it to the JWT library, which performs the signature itself.
func (s *Ed25519Signer) Key() ed25519.PrivateKey {
	return s.privKey
}

// DeriveForCase derives a case-scoped signer using HKDF-SHA256. The
// master seed is the IKM and the case ID the info input; every case
// gets a unique, reproducible keypair.
func (s *Ed25519Signer) DeriveForCase(caseID string) (*Ed25519Signer, error) {
	if caseID == "" {
		return nil, fmt.Errorf("caseID must not be empty")
	}

	seed := s.privKey.Seed()
	reader := hkdf.New(sha256.New, seed, []byte("docket-case-kdf"), []byte(caseID))
	caseSeed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(reader, caseSeed); err != nil {
		return nil, fmt.Errorf("HKDF derivation failed: %w", err)
	}

	priv := ed25519.NewKeyFromSeed(caseSeed)
	return NewEd25519SignerFromKey(priv, s.KeyID+"/"+caseID), nil
}

// Verify verifies a signature against a public key.
func Verify(pubKeyHex, sigHex string, data []byte) (bool, error) {
	pubKey, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false, fmt.Errorf("invalid public key hex: %w", err)
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("invalid signature hex: %w", err)
	}

	if len(pubKey) != ed25519.PublicKeySize {
		return false, fmt.Errorf("invalid public key size")
	}

	return ed25519.Verify(ed25519.PublicKey(pubKey), data, sig), nil
}
