// Package cryptoffi wraps the hash and signature primitives
// used by the sparse node commitments.
package cryptoffi

import (
	"crypto/ed25519"
	"crypto/rand"
	"log"

	"github.com/zeebo/blake3"
)

const (
	HashLen uint64 = 32
)

// # Hash

type Hasher struct {
	h *blake3.Hasher
}

func NewHasher() *Hasher {
	return &Hasher{h: blake3.New()}
}

func (hr *Hasher) Write(b []byte) {
	// blake3 writes never error.
	hr.h.Write(b)
}

// Sum appends the hash to b and returns the result.
func (hr *Hasher) Sum(b []byte) []byte {
	return hr.h.Sum(b)
}

func Hash(data []byte) []byte {
	h := blake3.Sum256(data)
	return h[:]
}

// # Signature

// SigPrivateKey has an unexported sk, which can't be accessed outside
// the package, without reflection or unsafe.
type SigPrivateKey struct {
	sk ed25519.PrivateKey
}

type SigPublicKey ed25519.PublicKey

func SigGenerateKey() (SigPublicKey, *SigPrivateKey) {
	pk, sk, err := ed25519.GenerateKey(nil)
	if err != nil {
		log.Fatal(err)
	}
	return SigPublicKey(pk), &SigPrivateKey{sk: sk}
}

func (sk *SigPrivateKey) Sign(message []byte) []byte {
	return ed25519.Sign(sk.sk, message)
}

// Verify errors if sig isn't over message from pk.
func (pk SigPublicKey) Verify(message []byte, sig []byte) bool {
	return !ed25519.Verify(ed25519.PublicKey(pk), message, sig)
}

// # Rand

// RandBytes returns numBytes of cryptographic randomness.
func RandBytes(numBytes uint64) []byte {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		panic("cryptoffi: rand read err")
	}
	return b
}
