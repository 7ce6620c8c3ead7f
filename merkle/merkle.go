// Package merkle commits to the per-stream summary leaves with a
// sparse binary prefix tree keyed by hashed stream labels.
package merkle

import (
	"github.com/MystenLabs/sparse-nodes/cryptoffi"
	"github.com/MystenLabs/sparse-nodes/cryptoutil"
	"github.com/goose-lang/std"
	"github.com/tchajed/marshal"
)

const (
	emptyNodeTag    byte = 0
	interiorNodeTag byte = 1
	leafNodeTag     byte = 2
)

type Tree struct {
	cache *cache
	root  *node
}

// node contains the union of different node types, which distinguish as:
//  1. empty node. if node ptr is nil.
//  2. interior node. if either child0 or child1 not nil. has hash.
//  3. leaf node. else. has hash, full label, and val.
type node struct {
	hash []byte
	// only for interior node.
	child0 *node
	// only for interior node.
	child1 *node
	// only for leaf node.
	label []byte
	// only for leaf node.
	val []byte
}

// Proof has non-nil leaf data for non-membership proofs
// that terminate in a different leaf.
type Proof struct {
	Siblings  []byte
	LeafLabel []byte
	LeafVal   []byte
}

// UpdateProof proves a digest transition from putting (label, val).
// it carries the pre-put path for label: either the old val under the
// same label, or a non-membership terminator (empty or divergent leaf).
type UpdateProof struct {
	Siblings []byte
	// OldInTree is set if label was already bound, to OldVal.
	OldInTree bool
	OldVal    []byte
	// divergent leaf terminator, pre-put.
	LeafLabel []byte
	LeafVal   []byte
}

type cache struct {
	emptyHash []byte
}

func NewTree() *Tree {
	c := &cache{emptyHash: compEmptyHash()}
	return &Tree{cache: c}
}

// Put binds label to val and returns a proof of the digest transition.
// it errors if label isn't a hash.
// it consumes both label and val.
func (t *Tree) Put(label []byte, val []byte) (*UpdateProof, bool) {
	if uint64(len(label)) != cryptoffi.HashLen {
		return nil, true
	}
	inTree, oldVal, proof, _, err := t.get(label, true)
	if err {
		return nil, true
	}
	upd := &UpdateProof{Siblings: proof.Siblings, LeafLabel: proof.LeafLabel, LeafVal: proof.LeafVal}
	if inTree {
		upd.OldInTree = true
		upd.OldVal = oldVal
	}
	put(&t.root, 0, label, val, t.cache)
	return upd, false
}

func put(n0 **node, depth uint64, label, val []byte, cache *cache) {
	n := *n0
	// empty node.
	if n == nil {
		// replace with leaf node.
		leaf := &node{label: label, val: val}
		*n0 = leaf
		setLeafHash(leaf)
		return
	}

	// leaf node.
	if n.child0 == nil && n.child1 == nil {
		// on exact label match, replace val.
		if std.BytesEqual(n.label, label) {
			n.val = val
			setLeafHash(n)
			return
		}

		// otherwise, replace with interior node that links
		// to existing leaf, and recurse.
		inter := &node{}
		*n0 = inter
		leafChild, _ := getChild(inter, n.label, depth)
		*leafChild = n
		recurChild, _ := getChild(inter, label, depth)
		put(recurChild, depth+1, label, val, cache)
		setInteriorHash(inter, cache)
		return
	}

	// interior node. recurse.
	c, _ := getChild(n, label, depth)
	put(c, depth+1, label, val, cache)
	setInteriorHash(n, cache)
}

// Get returns if label is in the tree and, if so, the val.
// it errors if label isn't a hash.
func (t *Tree) Get(label []byte) (bool, []byte, bool) {
	inTree, val, _, _, err := t.get(label, false)
	return inTree, val, err
}

// Prove returns (1) if label is in the tree and, if so, (2) the val.
// it gives a (3) cryptographic proof of this, against (4) the tree digest.
// it (5) errors if label isn't a hash.
func (t *Tree) Prove(label []byte) (bool, []byte, *Proof, []byte, bool) {
	return t.get(label, true)
}

// Digest commits to the entire tree.
func (t *Tree) Digest() []byte {
	return getNodeHash(t.root, t.cache)
}

func (t *Tree) get(label []byte, prove bool) (bool, []byte, *Proof, []byte, bool) {
	if uint64(len(label)) != cryptoffi.HashLen {
		return false, nil, nil, nil, true
	}
	var n = t.root
	var sibs []byte
	if prove {
		// pre-size for roughly 2^30 (1.07B) entries.
		sibs = make([]byte, 0, 30*cryptoffi.HashLen)
	}
	var depth uint64
	for ; depth < cryptoffi.HashLen*8; depth++ {
		// break if empty node or leaf node.
		if n == nil {
			break
		}
		if n.child0 == nil && n.child1 == nil {
			break
		}
		child, sib := getChild(n, label, depth)
		if prove {
			// proof will have sibling hash for each interior node.
			sibs = append(sibs, getNodeHash(sib, t.cache)...)
		}
		n = *child
	}

	dig := getNodeHash(t.root, t.cache)
	proof := &Proof{Siblings: sibs}
	// empty node.
	if n == nil {
		return false, nil, proof, dig, false
	}
	// not interior node. can't go full depth down and still have interior.
	std.Assert(n.child0 == nil && n.child1 == nil)
	// leaf node with different label.
	if !std.BytesEqual(n.label, label) {
		proof.LeafLabel = n.label
		proof.LeafVal = n.val
		return false, nil, proof, dig, false
	}
	// leaf node with same label.
	return true, n.val, proof, dig, false
}

// VerifyProof verifies proof against the tree rooted at dig
// and returns an error upon failure.
// there are two types of inputs.
// if inTree, (label, val) should be in the tree.
// if !inTree, label should not be in the tree.
func VerifyProof(inTree bool, label, val []byte, proof *Proof, dig []byte) bool {
	if uint64(len(label)) != cryptoffi.HashLen {
		return true
	}
	maxDepth, err := checkSiblings(proof.Siblings)
	if err {
		return true
	}

	// compute leaf hash.
	var currHash []byte
	if inTree {
		currHash = compLeafHash(label, val)
	} else {
		if proof.LeafLabel != nil {
			// divergent leaf shouldn't have the same label.
			if std.BytesEqual(proof.LeafLabel, label) {
				return true
			}
			currHash = compLeafHash(proof.LeafLabel, proof.LeafVal)
		} else {
			currHash = compEmptyHash()
		}
	}

	currHash = foldPath(label, currHash, proof.Siblings, maxDepth)
	// check against supplied dig.
	return !std.BytesEqual(currHash, dig)
}

// VerifyUpdate replays the digest transition of putting (label, val)
// and returns the digests before and after.
// it errors on a malformed proof.
func VerifyUpdate(label, val []byte, proof *UpdateProof) ([]byte, []byte, bool) {
	if uint64(len(label)) != cryptoffi.HashLen {
		return nil, nil, true
	}
	maxDepth, err := checkSiblings(proof.Siblings)
	if err {
		return nil, nil, true
	}

	// digest before the put.
	var oldHash []byte
	if proof.OldInTree {
		oldHash = compLeafHash(label, proof.OldVal)
	} else if proof.LeafLabel != nil {
		if uint64(len(proof.LeafLabel)) != cryptoffi.HashLen {
			return nil, nil, true
		}
		if std.BytesEqual(proof.LeafLabel, label) {
			return nil, nil, true
		}
		oldHash = compLeafHash(proof.LeafLabel, proof.LeafVal)
	} else {
		oldHash = compEmptyHash()
	}
	prevDig := foldPath(label, oldHash, proof.Siblings, maxDepth)

	// digest after the put.
	newLeaf := compLeafHash(label, val)
	if proof.OldInTree || proof.LeafLabel == nil {
		// val replacement or insertion under an empty slot.
		// the path shape doesn't change.
		nextDig := foldPath(label, newLeaf, proof.Siblings, maxDepth)
		return prevDig, nextDig, false
	}

	// insertion pushes the divergent leaf down to the first
	// differing bit, padding the path with empty siblings.
	divDepth := firstDiffBit(label, proof.LeafLabel)
	if divDepth < maxDepth {
		// the pre-put path already followed label up to maxDepth.
		return nil, nil, true
	}
	currHash := compInteriorHash(orderChildren(label, divDepth, newLeaf, oldHash))
	empty := compEmptyHash()
	for depth := divDepth; depth > maxDepth; depth-- {
		currHash = compInteriorHash(orderChildren(label, depth-1, currHash, empty))
	}
	nextDig := foldPath(label, currHash, proof.Siblings, maxDepth)
	return prevDig, nextDig, false
}

func checkSiblings(sibs []byte) (uint64, bool) {
	sibsLen := uint64(len(sibs))
	if sibsLen%cryptoffi.HashLen != 0 {
		return 0, true
	}
	maxDepth := sibsLen / cryptoffi.HashLen
	if maxDepth > cryptoffi.HashLen*8 {
		return 0, true
	}
	return maxDepth, false
}

// foldPath computes the hash up the tree from currHash at maxDepth.
func foldPath(label, currHash, sibs []byte, maxDepth uint64) []byte {
	// depth offset by one to prevent underflow.
	for depth := maxDepth; depth >= 1; depth-- {
		begin := (depth - 1) * cryptoffi.HashLen
		end := depth * cryptoffi.HashLen
		sib := sibs[begin:end]
		currHash = compInteriorHash(orderChildren(label, depth-1, currHash, sib))
	}
	return currHash
}

// orderChildren places curr and other as child0 / child1,
// relative to the bit referenced by label and depth.
func orderChildren(label []byte, depth uint64, curr, other []byte) ([]byte, []byte) {
	if !getBit(label, depth) {
		return curr, other
	}
	return other, curr
}

// firstDiffBit returns the first bit where two distinct labels differ.
func firstDiffBit(l0, l1 []byte) uint64 {
	var n uint64
	for ; n < cryptoffi.HashLen*8; n++ {
		if getBit(l0, n) != getBit(l1, n) {
			break
		}
	}
	return n
}

func getNodeHash(n *node, c *cache) []byte {
	if n == nil {
		return c.emptyHash
	}
	return n.hash
}

func compEmptyHash() []byte {
	b := []byte{emptyNodeTag}
	return cryptoutil.Hash(b)
}

func setLeafHash(n *node) {
	n.hash = compLeafHash(n.label, n.val)
}

func compLeafHash(label, val []byte) []byte {
	valLen := uint64(len(val))
	var b = make([]byte, 0, cryptoffi.HashLen+8+valLen+1)
	b = append(b, label...)
	b = marshal.WriteInt(b, valLen)
	b = append(b, val...)
	b = append(b, leafNodeTag)
	return cryptoutil.Hash(b)
}

func setInteriorHash(n *node, c *cache) {
	child0 := getNodeHash(n.child0, c)
	child1 := getNodeHash(n.child1, c)
	n.hash = compInteriorHash(child0, child1)
}

func compInteriorHash(child0, child1 []byte) []byte {
	var b = make([]byte, 0, 2*cryptoffi.HashLen+1)
	b = append(b, child0...)
	b = append(b, child1...)
	b = append(b, interiorNodeTag)
	return cryptoutil.Hash(b)
}

// getChild returns a child and its sibling child,
// relative to the bit referenced by label and depth.
func getChild(n *node, label []byte, depth uint64) (**node, *node) {
	if !getBit(label, depth) {
		return &n.child0, n.child1
	} else {
		return &n.child1, n.child0
	}
}

func getBit(b []byte, n uint64) bool {
	slot := n / 8
	off := n % 8
	x := b[slot]
	return x&(1<<off) != 0
}
