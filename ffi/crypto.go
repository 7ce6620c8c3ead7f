// Package ffi backs the link-signing identities with tink keysets,
// which the daemons load from disk.
package ffi

import (
	"log"
	"os"

	"github.com/tink-crypto/tink-go/v2/insecurecleartextkeyset"
	"github.com/tink-crypto/tink-go/v2/keyset"
	"github.com/tink-crypto/tink-go/v2/signature"
	"github.com/tink-crypto/tink-go/v2/tink"
)

type Signer struct {
	s tink.Signer
}

type Verifier struct {
	v tink.Verifier
}

func (s *Signer) Sign(data []byte) []byte {
	b, err := s.s.Sign(data)
	if err != nil {
		log.Fatal(err)
	}
	return b
}

// Verify errors if sig isn't over data.
func (v *Verifier) Verify(data, sig []byte) bool {
	return v.v.Verify(sig, data) != nil
}

// MakeKeys generates an in-memory key pair.
func MakeKeys() (*Signer, *Verifier) {
	h, err := keyset.NewHandle(signature.ED25519KeyTemplate())
	if err != nil {
		log.Fatal(err)
	}
	s, err := signature.NewSigner(h)
	if err != nil {
		log.Fatal(err)
	}
	hPub, err := h.Public()
	if err != nil {
		log.Fatal(err)
	}
	v, err := signature.NewVerifier(hPub)
	if err != nil {
		log.Fatal(err)
	}
	return &Signer{s}, &Verifier{v}
}

// GenerateKeys writes a fresh ed25519 keyset to privPath and its
// public half to pubPath.
func GenerateKeys(privPath, pubPath string) error {
	h, err := keyset.NewHandle(signature.ED25519KeyTemplate())
	if err != nil {
		return err
	}

	privF, err := os.OpenFile(privPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer privF.Close()
	if err := insecurecleartextkeyset.Write(h, keyset.NewJSONWriter(privF)); err != nil {
		return err
	}

	hPub, err := h.Public()
	if err != nil {
		return err
	}
	pubF, err := os.Create(pubPath)
	if err != nil {
		return err
	}
	defer pubF.Close()
	return hPub.WriteWithNoSecrets(keyset.NewJSONWriter(pubF))
}

func LoadSigner(path string) (*Signer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h, err := insecurecleartextkeyset.Read(keyset.NewJSONReader(f))
	if err != nil {
		return nil, err
	}
	s, err := signature.NewSigner(h)
	if err != nil {
		return nil, err
	}
	return &Signer{s}, nil
}

func LoadVerifier(path string) (*Verifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	h, err := keyset.ReadWithNoSecrets(keyset.NewJSONReader(f))
	if err != nil {
		return nil, err
	}
	v, err := signature.NewVerifier(h)
	if err != nil {
		return nil, err
	}
	return &Verifier{v}, nil
}
