// Package sparsenode maintains the per-stream summary states and the
// commitment tree over them for a single node.
//
// the node picks one encoding at creation and keeps it for life.
// every stream's summary leaf lives in a sparse merkle tree under
// label = Hash(streamId); a checkpoint publishes the tree digest.
package sparsenode

import (
	"sync"

	"github.com/MystenLabs/sparse-nodes/merkle"
	"github.com/MystenLabs/sparse-nodes/sncore"
	"github.com/goose-lang/std"
)

type Node struct {
	enc    sncore.Encoding
	states map[uint64]*sncore.StreamState
	tree   *merkle.Tree
}

func NewNode(enc sncore.Encoding) *Node {
	return &Node{enc: enc, states: make(map[uint64]*sncore.StreamState), tree: merkle.NewTree()}
}

// Load rebuilds the tree from persisted states.
// it errors if a state's leaf doesn't bind the state under the
// encoding, or if a stream appears twice.
func (n *Node) Load(states []*sncore.StreamState) bool {
	for _, st := range states {
		if _, ok := n.states[st.Stream]; ok {
			return true
		}
		if sncore.CheckLeaf(n.enc, st) {
			return true
		}
		_, errb := n.tree.Put(sncore.StreamLabel(st.Stream), st.Leaf)
		if errb {
			return true
		}
		n.states[st.Stream] = st
	}
	return false
}

// Update folds one checkpoint's batches into the tree.
// it returns the new digest, the touched states, and per-leaf update
// proofs in batch order, for auditors to replay.
// it errors without modifying the node if any batch is empty or
// malformed, or if a stream appears twice in the batch.
func (n *Node) Update(upds []*sncore.StreamUpdate) ([]byte, []*sncore.StreamState, []*sncore.LeafUpd, bool) {
	if uint64(len(upds)) == 0 {
		return nil, nil, nil, true
	}
	seen := make(map[uint64]bool, len(upds))
	for _, u := range upds {
		if seen[u.Stream] {
			return nil, nil, nil, true
		}
		seen[u.Stream] = true
	}
	nexts := n.foldAll(upds)
	for _, st := range nexts {
		if st == nil {
			return nil, nil, nil, true
		}
	}

	sts := make([]*sncore.StreamState, 0, len(upds))
	leafUpds := make([]*sncore.LeafUpd, 0, len(upds))
	for i, u := range upds {
		st := nexts[i]
		label := sncore.StreamLabel(u.Stream)
		p, errb := n.tree.Put(label, st.Leaf)
		// labels are hashes, so Put only fails on bad label len.
		std.Assert(!errb)
		n.states[u.Stream] = st
		sts = append(sts, st)
		leafUpds = append(leafUpds, &sncore.LeafUpd{Label: label, Val: std.BytesClone(st.Leaf), Proof: p})
	}
	return n.tree.Digest(), sts, leafUpds, false
}

// foldAll runs the per-stream folds in parallel.
// no two batches touch the same stream, so the folds don't race.
func (n *Node) foldAll(upds []*sncore.StreamUpdate) []*sncore.StreamState {
	nexts := make([]*sncore.StreamState, len(upds))
	wg := new(sync.WaitGroup)
	for i := uint64(0); i < uint64(len(upds)); i++ {
		u := upds[i]
		prev, ok := n.states[u.Stream]
		if !ok {
			prev = sncore.NewState(n.enc, u.Stream)
		}
		wg.Add(1)
		go func(i uint64, prev *sncore.StreamState) {
			st, errb := sncore.Fold(n.enc, prev, u.Points)
			if !errb {
				nexts[i] = st
			}
			wg.Done()
		}(i, prev)
	}
	wg.Wait()
	return nexts
}

// Prove gives a (non-)membership proof for a stream against the
// current digest, along with the state if the stream exists.
func (n *Node) Prove(stream uint64) (bool, *sncore.StreamState, *merkle.Proof, []byte, bool) {
	inTree, _, proof, dig, errb := n.tree.Prove(sncore.StreamLabel(stream))
	if errb {
		return false, nil, nil, nil, true
	}
	var st *sncore.StreamState
	if inTree {
		st = n.states[stream]
	}
	return inTree, st, proof, dig, false
}

func (n *Node) Digest() []byte {
	return n.tree.Digest()
}

func (n *Node) State(stream uint64) (*sncore.StreamState, bool) {
	st, ok := n.states[stream]
	return st, ok
}

func (n *Node) NumStreams() uint64 {
	return uint64(len(n.states))
}

func (n *Node) Encoding() sncore.Encoding {
	return n.enc
}
