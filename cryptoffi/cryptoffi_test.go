package cryptoffi

import (
	"bytes"
	"testing"
)

func TestHash(t *testing.T) {
	// same hashes for same input.
	d1 := []byte("d1")
	hr1 := NewHasher()
	hr1.Write(d1)
	h1 := hr1.Sum(nil)
	hr2 := NewHasher()
	hr2.Write(d1)
	h2 := hr2.Sum(nil)
	if !bytes.Equal(h1, h2) {
		t.Fatal()
	}
	if uint64(len(h1)) != HashLen {
		t.Fatal()
	}

	// streaming writes match the one-shot helper.
	h3 := Hash(d1)
	if !bytes.Equal(h1, h3) {
		t.Fatal()
	}

	// diff hashes for diff inputs.
	d2 := []byte("d2")
	hr4 := NewHasher()
	hr4.Write(d2)
	h4 := hr4.Sum(nil)
	if bytes.Equal(h1, h4) {
		t.Fatal()
	}
}

func TestRand(t *testing.T) {
	r1 := RandBytes(HashLen)
	r2 := RandBytes(HashLen)
	if uint64(len(r1)) != HashLen {
		t.Fatal()
	}
	if bytes.Equal(r1, r2) {
		t.Fatal()
	}
}

func TestSig(t *testing.T) {
	// verify true.
	d := RandBytes(HashLen)
	pk, sk := SigGenerateKey()
	sig := sk.Sign(d)
	if pk.Verify(d, sig) {
		t.Fatal()
	}

	// verify false for bad msg.
	if !pk.Verify([]byte("d1"), sig) {
		t.Fatal()
	}

	// verify false for bad pk.
	pk2, _ := SigGenerateKey()
	if !pk2.Verify(d, sig) {
		t.Fatal()
	}

	// verify false for bad sig.
	sig2 := bytes.Clone(sig)
	sig2[0] = ^sig2[0]
	if !pk.Verify(d, sig2) {
		t.Fatal()
	}
}
