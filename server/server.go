// Package server runs a stream node: it batches append requests into
// checkpoints, commits the tree digest onto a signed hashchain, and
// persists enough to recover after a restart.
package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/MystenLabs/sparse-nodes/hashchain"
	"github.com/MystenLabs/sparse-nodes/sncore"
	"github.com/MystenLabs/sparse-nodes/sparsenode"
	"github.com/MystenLabs/sparse-nodes/store"
	"github.com/goose-lang/std"
	"github.com/prometheus/client_golang/prometheus"
)

type Server struct {
	mu  *sync.RWMutex
	sig sncore.Signer
	// node holds the stream states and commitment tree.
	node *sparsenode.Node
	hist *history
	st   store.StreamStore
	// workQ batch-processes append requests into checkpoints.
	workQ *WorkQ
	met   *Metrics
}

type history struct {
	// chain is a hashchain of tree digests across the checkpoints.
	chain *hashchain.HashChain
	// audits has replay proofs for prior checkpoints.
	// checkpoints recovered from storage only carry the link sig.
	audits []*sncore.AuditProof
}

type WQReq struct {
	Stream uint64
	Points [][]byte
}

type WQResp struct {
	Epoch uint64
	Err   bool
}

// New recovers a server from storage, committing an empty checkpoint 0
// if the store is fresh.
// reg may be nil to keep metrics off any shared registry.
func New(enc sncore.Encoding, sig sncore.Signer, st store.StreamStore, reg prometheus.Registerer) (*Server, error) {
	node := sparsenode.NewNode(enc)
	states, err := st.LoadStates()
	if err != nil {
		return nil, err
	}
	if node.Load(states) {
		return nil, fmt.Errorf("server: stored stream state doesn't match encoding %d", enc)
	}

	chain := hashchain.New()
	hist := &history{chain: chain}
	cps, err := st.Checkpoints(0)
	if err != nil {
		return nil, err
	}
	for _, cp := range cps {
		link := chain.Append(cp.Digest)
		if !std.BytesEqual(link, cp.Link) {
			return nil, fmt.Errorf("server: stored link broken at epoch %d", cp.Epoch)
		}
		hist.audits = append(hist.audits, &sncore.AuditProof{LinkSig: cp.Sig})
	}
	if len(cps) > 0 && !std.BytesEqual(cps[len(cps)-1].Digest, node.Digest()) {
		return nil, fmt.Errorf("server: stored states don't match last digest")
	}

	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{mu: new(sync.RWMutex), sig: sig, node: node, hist: hist,
		st: st, workQ: NewWorkQ(), met: NewMetrics(reg)}
	s.met.streams.Set(float64(node.NumStreams()))

	if len(cps) == 0 {
		// commit empty tree as epoch 0.
		dig := node.Digest()
		link := chain.Append(dig)
		linkSig := sncore.SignLink(sig, 0, link)
		hist.audits = append(hist.audits, &sncore.AuditProof{LinkSig: linkSig})
		if err := st.Commit(&store.Checkpoint{Epoch: 0, Digest: dig, Link: link, Sig: linkSig}, nil); err != nil {
			return nil, err
		}
	}

	go func() {
		for {
			s.worker()
		}
	}()
	return s, nil
}

// Start bootstraps a party with knowledge of the hashchain.
func (s *Server) Start() *StartReply {
	s.mu.RLock()
	defer s.mu.RUnlock()
	predLen := uint64(len(s.hist.audits)) - 1
	predLink, proof := s.hist.chain.Bootstrap()
	lastSig := s.hist.audits[predLen].LinkSig
	return &StartReply{StartEpochLen: predLen, StartLink: predLink,
		ChainProof: proof, LinkSig: lastSig, Enc: uint64(s.node.Encoding())}
}

// Update queues points for stream's next checkpoint and blocks until
// it commits, returning the checkpoint epoch.
// it errors on an empty or malformed batch, or if another request for
// the same stream landed in the same checkpoint.
func (s *Server) Update(stream uint64, points [][]byte) (uint64, bool) {
	resp := s.workQ.Do(&WQReq{Stream: stream, Points: points})
	return resp.Epoch, resp.Err
}

// Query gives a stream's committed state with a (non-)membership proof
// against the latest digest, plus a chain extension past prevEpoch,
// which the caller already saw.
func (s *Server) Query(stream, prevEpoch uint64) *QueryReply {
	s.mu.RLock()
	defer s.mu.RUnlock()
	numEps := uint64(len(s.hist.audits))
	if prevEpoch >= numEps {
		return &QueryReply{Err: sncore.BlameUnknown}
	}

	chainProof := s.hist.chain.Prove(prevEpoch + 1)
	linkSig := s.hist.audits[numEps-1].LinkSig
	inTree, state, proof, _, errb := s.node.Prove(stream)
	std.Assert(!errb)

	if prevEpoch+1 == numEps {
		// client already saw sig. don't send.
		linkSig = nil
	}
	return &QueryReply{ChainProof: chainProof, LinkSig: linkSig,
		InTree: inTree, State: state, MerkleProof: proof}
}

// Audit returns replay proofs for epochs past prevEpochLen.
// epochs committed before the last restart only carry link sigs.
func (s *Server) Audit(prevEpochLen uint64) ([]*sncore.AuditProof, sncore.Blame) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	numEps := uint64(len(s.hist.audits))
	if prevEpochLen > numEps {
		return nil, sncore.BlameUnknown
	}

	var proof []*sncore.AuditProof
	for ep := prevEpochLen; ep < numEps; ep++ {
		proof = append(proof, s.hist.audits[ep])
	}
	return proof, sncore.BlameNone
}

func (s *Server) worker() {
	work := s.workQ.Get()
	// NOTE: for correctness, commit (write) must start with the same
	// state as checkRequests (read). we ensure this by not having any
	// write lockers outside this fn.
	okWork := s.checkRequests(work)

	if len(okWork) > 0 {
		t0 := time.Now()
		s.mu.Lock()
		s.commit(okWork)
		s.mu.Unlock()

		s.met.checkpoints.Inc()
		s.met.batchStreams.Observe(float64(len(okWork)))
		s.met.commitSeconds.Observe(time.Since(t0).Seconds())
		s.met.streams.Set(float64(s.node.NumStreams()))
	}

	for _, w := range work {
		w.Finish()
	}
}

// checkRequests errors out requests that can't fold, and returns the
// rest.
func (s *Server) checkRequests(work []*Work) []*Work {
	var okWork []*Work
	streamSet := make(map[uint64]bool, len(work))
	for _, w := range work {
		w.Resp = &WQResp{}
		req := w.Req
		if uint64(len(req.Points)) == 0 {
			w.Resp.Err = true
			continue
		}
		var badPt bool
		for _, p := range req.Points {
			if uint64(len(p)) != sncore.PointLen {
				badPt = true
			}
		}
		if badPt {
			w.Resp.Err = true
			continue
		}
		var count uint64
		if st, ok := s.node.State(req.Stream); ok {
			count = st.Count
		}
		if !std.SumNoOverflow(count, uint64(len(req.Points))) {
			w.Resp.Err = true
			continue
		}
		// error out duplicate streams. arbitrarily picks one to succeed.
		if streamSet[req.Stream] {
			w.Resp.Err = true
			continue
		}
		streamSet[req.Stream] = true
		okWork = append(okWork, w)
	}
	return okWork
}

func (s *Server) commit(okWork []*Work) {
	upds := make([]*sncore.StreamUpdate, 0, len(okWork))
	for _, w := range okWork {
		upds = append(upds, &sncore.StreamUpdate{Stream: w.Req.Stream, Points: w.Req.Points})
	}
	// requests were pre-checked, so the folds can't fail.
	dig, sts, leafUpds, errb := s.node.Update(upds)
	std.Assert(!errb)

	link := s.hist.chain.Append(dig)
	epoch := uint64(len(s.hist.audits))
	sig := sncore.SignLink(s.sig, epoch, link)
	s.hist.audits = append(s.hist.audits, &sncore.AuditProof{Updates: leafUpds, LinkSig: sig})

	err := s.st.Commit(&store.Checkpoint{Epoch: epoch, Digest: dig, Link: link, Sig: sig}, sts)
	// on failure, memory would run ahead of storage. fail loudly.
	std.Assert(err == nil)

	for _, w := range okWork {
		w.Resp.Epoch = epoch
	}
}
