package merkle

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/MystenLabs/sparse-nodes/cryptoffi"
)

func putCheck(t *testing.T, tr *Tree, label []byte, val []byte) *UpdateProof {
	prevDig := tr.Digest()
	upd, err := tr.Put(label, val)
	if err {
		t.Fatal()
	}
	prevDig0, nextDig, err := VerifyUpdate(label, val, upd)
	if err {
		t.Fatal()
	}
	if !bytes.Equal(prevDig, prevDig0) {
		t.Fatal()
	}
	if !bytes.Equal(tr.Digest(), nextDig) {
		t.Fatal()
	}
	return upd
}

func getMembCheck(t *testing.T, tr *Tree, label []byte) []byte {
	inTree, val, proof, dig, err := tr.Prove(label)
	if err {
		t.Fatal()
	}
	if !inTree {
		t.Fatal()
	}
	if VerifyProof(true, label, val, proof, dig) {
		t.Fatal()
	}
	return val
}

func getNonmembCheck(t *testing.T, tr *Tree, label []byte) {
	inTree, _, proof, dig, err := tr.Prove(label)
	if err {
		t.Fatal()
	}
	if inTree {
		t.Fatal()
	}
	if VerifyProof(false, label, nil, proof, dig) {
		t.Fatal()
	}
}

func TestOnePut(t *testing.T) {
	label0 := make([]byte, cryptoffi.HashLen)
	val0 := []byte("val0")

	tr := NewTree()
	putCheck(t, tr, label0, val0)
	val1 := getMembCheck(t, tr, label0)
	if !bytes.Equal(val0, val1) {
		t.Fatal()
	}
}

func TestTwoPut(t *testing.T) {
	label0 := cryptoffi.Hash([]byte("l0"))
	val0 := []byte("val0")
	label1 := cryptoffi.Hash([]byte("l1"))
	val1 := []byte("val1")

	tr := NewTree()
	putCheck(t, tr, label0, val0)
	putCheck(t, tr, label1, val1)
	val2 := getMembCheck(t, tr, label0)
	val3 := getMembCheck(t, tr, label1)
	if !bytes.Equal(val0, val2) {
		t.Fatal()
	}
	if !bytes.Equal(val1, val3) {
		t.Fatal()
	}
}

func TestOverwrite(t *testing.T) {
	label0 := cryptoffi.Hash([]byte("l0"))
	val0 := []byte("val0")
	val1 := []byte("val1")

	tr := NewTree()
	putCheck(t, tr, label0, val0)
	upd := putCheck(t, tr, label0, val1)
	if !upd.OldInTree {
		t.Fatal()
	}
	if !bytes.Equal(upd.OldVal, val0) {
		t.Fatal()
	}
	val2 := getMembCheck(t, tr, label0)
	if !bytes.Equal(val1, val2) {
		t.Fatal()
	}
}

func TestNonmemb(t *testing.T) {
	tr := NewTree()

	// empty tree.
	label0 := cryptoffi.Hash([]byte("l0"))
	getNonmembCheck(t, tr, label0)

	// terminate at empty node or divergent leaf.
	putCheck(t, tr, label0, []byte("val0"))
	label1 := cryptoffi.Hash([]byte("l1"))
	getNonmembCheck(t, tr, label1)
}

func TestBadLabelLen(t *testing.T) {
	tr := NewTree()
	if _, err := tr.Put([]byte("short"), nil); !err {
		t.Fatal()
	}
	if _, _, err := tr.Get([]byte("short")); !err {
		t.Fatal()
	}
}

func TestDigestDeterministic(t *testing.T) {
	var seed [32]byte
	rndSrc := rand.NewChaCha8(seed)
	labels := make([][]byte, 100)
	vals := make([][]byte, 100)
	for i := range labels {
		labels[i] = make([]byte, cryptoffi.HashLen)
		rndSrc.Read(labels[i])
		vals[i] = make([]byte, cryptoffi.HashLen)
		rndSrc.Read(vals[i])
	}

	// same digest regardless of insertion order.
	tr0 := NewTree()
	for i := range labels {
		putCheck(t, tr0, labels[i], vals[i])
	}
	tr1 := NewTree()
	for i := len(labels) - 1; i >= 0; i-- {
		putCheck(t, tr1, labels[i], vals[i])
	}
	if !bytes.Equal(tr0.Digest(), tr1.Digest()) {
		t.Fatal()
	}
}

func TestBadProofs(t *testing.T) {
	label0 := cryptoffi.Hash([]byte("l0"))
	val0 := []byte("val0")
	tr := NewTree()
	putCheck(t, tr, label0, val0)
	_, val, proof, dig, err := tr.Prove(label0)
	if err {
		t.Fatal()
	}

	// wrong val.
	if !VerifyProof(true, label0, []byte("val1"), proof, dig) {
		t.Fatal()
	}
	// wrong dig.
	badDig := bytes.Clone(dig)
	badDig[0] = ^badDig[0]
	if !VerifyProof(true, label0, val, proof, badDig) {
		t.Fatal()
	}
	// ragged siblings.
	bad := &Proof{Siblings: append(bytes.Clone(proof.Siblings), 0)}
	if !VerifyProof(true, label0, val, bad, dig) {
		t.Fatal()
	}
	// membership claimed as non-membership.
	if !VerifyProof(false, label0, nil, proof, dig) {
		t.Fatal()
	}
}

func TestUpdateChain(t *testing.T) {
	var seed [32]byte
	rndSrc := rand.NewChaCha8(seed)

	// an observer tracking only the digest can follow a chain of
	// update proofs, including overwrites.
	tr := NewTree()
	dig := tr.Digest()
	for i := 0; i < 200; i++ {
		label := make([]byte, cryptoffi.HashLen)
		rndSrc.Read(label)
		if i%3 == 0 {
			// reuse an existing region of labels to force overwrites.
			label = cryptoffi.Hash([]byte{byte(i % 7)})
		}
		val := make([]byte, cryptoffi.HashLen)
		rndSrc.Read(val)

		upd, err := tr.Put(label, val)
		if err {
			t.Fatal()
		}
		prevDig, nextDig, err := VerifyUpdate(label, val, upd)
		if err {
			t.Fatal()
		}
		if !bytes.Equal(dig, prevDig) {
			t.Fatal()
		}
		dig = nextDig
	}
	if !bytes.Equal(dig, tr.Digest()) {
		t.Fatal()
	}
}

func TestProofSerde(t *testing.T) {
	label0 := cryptoffi.Hash([]byte("l0"))
	label1 := cryptoffi.Hash([]byte("l1"))
	tr := NewTree()
	putCheck(t, tr, label0, []byte("val0"))
	upd, err := tr.Put(label1, []byte("val1"))
	if err {
		t.Fatal()
	}

	b := UpdateProofEncode(nil, upd)
	upd1, rem, err := UpdateProofDecode(b)
	if err {
		t.Fatal()
	}
	if len(rem) != 0 {
		t.Fatal()
	}
	_, nextDig, err := VerifyUpdate(label1, []byte("val1"), upd1)
	if err {
		t.Fatal()
	}
	if !bytes.Equal(nextDig, tr.Digest()) {
		t.Fatal()
	}

	_, val, proof, dig, err := tr.Prove(label0)
	if err {
		t.Fatal()
	}
	b1 := ProofEncode(nil, proof)
	proof1, rem1, err := ProofDecode(b1)
	if err {
		t.Fatal()
	}
	if len(rem1) != 0 {
		t.Fatal()
	}
	if VerifyProof(true, label0, val, proof1, dig) {
		t.Fatal()
	}
}
