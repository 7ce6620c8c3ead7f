// Package store persists per-stream summary states and the
// checkpoint history.
package store

import (
	"bytes"
	"cmp"
	"slices"

	"github.com/MystenLabs/sparse-nodes/sncore"
)

// Checkpoint is one committed epoch.
type Checkpoint struct {
	Epoch  uint64
	Digest []byte
	Link   []byte
	Sig    []byte
}

// StreamStore is the durable state behind a sparse node server.
// Commit must apply the checkpoint row and the touched stream states
// atomically: a half-applied checkpoint would break digest replay.
type StreamStore interface {
	// LoadStates returns all stream states, in stream order.
	LoadStates() ([]*sncore.StreamState, error)
	// LastCheckpoint returns the latest checkpoint,
	// or false if nothing committed yet.
	LastCheckpoint() (*Checkpoint, bool, error)
	// Checkpoints returns all checkpoints from fromEpoch on, in order.
	Checkpoints(fromEpoch uint64) ([]*Checkpoint, error)
	Commit(cp *Checkpoint, touched []*sncore.StreamState) error
	Close() error
}

// MemStore keeps everything in memory. it backs tests and benches.
type MemStore struct {
	states map[uint64]*sncore.StreamState
	cps    []*Checkpoint
}

func NewMemStore() *MemStore {
	return &MemStore{states: make(map[uint64]*sncore.StreamState)}
}

func (s *MemStore) LoadStates() ([]*sncore.StreamState, error) {
	out := make([]*sncore.StreamState, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, cloneState(st))
	}
	sortStates(out)
	return out, nil
}

func (s *MemStore) LastCheckpoint() (*Checkpoint, bool, error) {
	if len(s.cps) == 0 {
		return nil, false, nil
	}
	return cloneCheckpoint(s.cps[len(s.cps)-1]), true, nil
}

func (s *MemStore) Checkpoints(fromEpoch uint64) ([]*Checkpoint, error) {
	var out []*Checkpoint
	for _, cp := range s.cps {
		if cp.Epoch >= fromEpoch {
			out = append(out, cloneCheckpoint(cp))
		}
	}
	return out, nil
}

func (s *MemStore) Commit(cp *Checkpoint, touched []*sncore.StreamState) error {
	s.cps = append(s.cps, cloneCheckpoint(cp))
	for _, st := range touched {
		s.states[st.Stream] = cloneState(st)
	}
	return nil
}

func (s *MemStore) Close() error {
	return nil
}

func cloneState(st *sncore.StreamState) *sncore.StreamState {
	return &sncore.StreamState{
		Stream: st.Stream,
		Count:  st.Count,
		Batch:  st.Batch,
		Head:   bytes.Clone(st.Head),
		Leaf:   bytes.Clone(st.Leaf),
	}
}

func cloneCheckpoint(cp *Checkpoint) *Checkpoint {
	return &Checkpoint{
		Epoch:  cp.Epoch,
		Digest: bytes.Clone(cp.Digest),
		Link:   bytes.Clone(cp.Link),
		Sig:    bytes.Clone(cp.Sig),
	}
}

func sortStates(sts []*sncore.StreamState) {
	slices.SortFunc(sts, func(a, b *sncore.StreamState) int {
		return cmp.Compare(a.Stream, b.Stream)
	})
}
