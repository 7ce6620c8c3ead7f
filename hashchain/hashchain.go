// Package hashchain commits to the list of checkpoint digests.
package hashchain

import (
	"github.com/MystenLabs/sparse-nodes/cryptoffi"
	"github.com/goose-lang/std"
)

type HashChain struct {
	// links[i] commits the first i vals. links[0] is the empty link.
	links [][]byte
	// vals is pre-flattened to quickly convert it to a proof.
	vals []byte
}

func New() *HashChain {
	return &HashChain{links: [][]byte{EmptyLink()}}
}

// Append adds a val and returns the new link.
// it expects val to be of constant len, which lets us encode smaller proofs.
func (c *HashChain) Append(val []byte) []byte {
	std.Assert(uint64(len(val)) == cryptoffi.HashLen)
	link := NextLink(c.links[len(c.links)-1], val)
	c.links = append(c.links, link)
	c.vals = append(c.vals, val...)
	return link
}

// Len returns the number of vals committed so far.
func (c *HashChain) Len() uint64 {
	return uint64(len(c.vals)) / cryptoffi.HashLen
}

// Link returns the latest link.
func (c *HashChain) Link() []byte {
	return std.BytesClone(c.links[len(c.links)-1])
}

// Prove transitions from knowing a prevLen prefix to knowing the latest list.
// it expects prevLen <= curr len.
func (c *HashChain) Prove(prevLen uint64) []byte {
	start := prevLen * cryptoffi.HashLen
	return std.BytesClone(c.vals[start:])
}

// Bootstrap returns the second-to-last link and a proof extending it,
// which lets late joiners learn the latest val without full history.
func (c *HashChain) Bootstrap() ([]byte, []byte) {
	n := c.Len()
	if n == 0 {
		return c.Link(), nil
	}
	predLink := std.BytesClone(c.links[n-1])
	return predLink, c.Prove(n - 1)
}

// Verify updates prevLink with proof, returning the extended length,
// last val, and new link.
// if length extension is 0, last val is nil.
// it errors on failure.
func Verify(prevLink, proof []byte) (uint64, []byte, []byte, bool) {
	proofLen := uint64(len(proof))
	if proofLen%cryptoffi.HashLen != 0 {
		return 0, nil, nil, true
	}
	lenVals := proofLen / cryptoffi.HashLen

	var lastVal []byte
	var newLink = prevLink
	for i := uint64(0); i < lenVals; i++ {
		start := i * cryptoffi.HashLen
		end := (i + 1) * cryptoffi.HashLen
		lastVal = proof[start:end]
		newLink = NextLink(newLink, lastVal)
	}
	return lenVals, lastVal, newLink, false
}

func EmptyLink() []byte {
	return cryptoffi.Hash(nil)
}

func NextLink(prevLink, nextVal []byte) []byte {
	hr := cryptoffi.NewHasher()
	hr.Write(prevLink)
	hr.Write(nextVal)
	return hr.Sum(nil)
}
