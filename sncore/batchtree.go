package sncore

import (
	"github.com/MystenLabs/sparse-nodes/cryptoffi"
	"github.com/MystenLabs/sparse-nodes/cryptoutil"
	"github.com/goose-lang/std"
)

// the in-batch merkle tree for the MHC encoding.
// a balanced binary tree over the batch's points, with an odd node
// at a level promoted unchanged.

const (
	batchEmptyTag    byte = 0
	batchLeafTag     byte = 1
	batchInteriorTag byte = 2
)

// BatchDigest commits to one checkpoint batch of points.
func BatchDigest(points [][]byte) []byte {
	if len(points) == 0 {
		return cryptoutil.Hash([]byte{batchEmptyTag})
	}
	level := make([][]byte, 0, len(points))
	for _, p := range points {
		level = append(level, compBatchLeafHash(p))
	}
	for len(level) > 1 {
		level = nextLevel(level)
	}
	return level[0]
}

// BatchProve proves membership of points[idx] under [BatchDigest].
// the proof is the flattened sibling hashes, bottom-up.
func BatchProve(points [][]byte, idx uint64) ([]byte, bool) {
	n := uint64(len(points))
	if idx >= n {
		return nil, true
	}
	level := make([][]byte, 0, n)
	for _, p := range points {
		level = append(level, compBatchLeafHash(p))
	}

	var proof []byte
	i := idx
	for len(level) > 1 {
		sib, ok := sibIdx(i, uint64(len(level)))
		if ok {
			proof = append(proof, level[sib]...)
		}
		level = nextLevel(level)
		i = i / 2
	}
	return proof, false
}

// BatchVerify checks that point sat at idx in a batch of n points
// with the given digest. it errors on failure.
func BatchVerify(dig, point []byte, idx, n uint64, proof []byte) bool {
	if n == 0 || idx >= n {
		return true
	}
	if uint64(len(proof))%cryptoffi.HashLen != 0 {
		return true
	}

	curr := compBatchLeafHash(point)
	var off uint64
	i := idx
	size := n
	for size > 1 {
		sib, ok := sibIdx(i, size)
		if ok {
			if off+cryptoffi.HashLen > uint64(len(proof)) {
				return true
			}
			sibHash := proof[off : off+cryptoffi.HashLen]
			off += cryptoffi.HashLen
			if sib > i {
				curr = compBatchInteriorHash(curr, sibHash)
			} else {
				curr = compBatchInteriorHash(sibHash, curr)
			}
		}
		i = i / 2
		size = (size + 1) / 2
	}
	if off != uint64(len(proof)) {
		return true
	}
	return !std.BytesEqual(curr, dig)
}

// sibIdx returns the sibling of node i at a level of the given size,
// or false if i gets promoted.
func sibIdx(i, size uint64) (uint64, bool) {
	if i%2 == 1 {
		return i - 1, true
	}
	if i+1 < size {
		return i + 1, true
	}
	return 0, false
}

func nextLevel(level [][]byte) [][]byte {
	n := len(level)
	next := make([][]byte, 0, (n+1)/2)
	for i := 0; i+1 < n; i += 2 {
		next = append(next, compBatchInteriorHash(level[i], level[i+1]))
	}
	if n%2 == 1 {
		next = append(next, level[n-1])
	}
	return next
}

func compBatchLeafHash(point []byte) []byte {
	var b = make([]byte, 0, 1+PointLen)
	b = append(b, batchLeafTag)
	b = append(b, point...)
	return cryptoutil.Hash(b)
}

func compBatchInteriorHash(child0, child1 []byte) []byte {
	var b = make([]byte, 0, 1+2*cryptoffi.HashLen)
	b = append(b, batchInteriorTag)
	b = append(b, child0...)
	b = append(b, child1...)
	return cryptoutil.Hash(b)
}
