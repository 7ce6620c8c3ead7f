// Package sncore defines the sparse node protocol.
// every checkpoint, a batch of stream updates folds into per-stream
// summary leaves, which commit under hashed stream labels in a merkle
// tree. the tree digests chain across checkpoints, and the server
// signs each link.
//
// three summary encodings exist:
//   - Counters: leaf binds (stream, batch count, total count).
//   - Chains: leaf is the running hash chain head over all points.
//   - MHC: leaf binds (stream, total count, head), where the head
//     chains the merkle digests of each batch. this keeps point
//     membership provable inside a batch at log cost, on top of the
//     chain linkage across checkpoints.
package sncore

import (
	"github.com/MystenLabs/sparse-nodes/cryptoffi"
	"github.com/MystenLabs/sparse-nodes/cryptoutil"
	"github.com/MystenLabs/sparse-nodes/marshalutil"
	"github.com/goose-lang/std"
	"github.com/tchajed/marshal"
)

// PointLen is the length of a stream data point,
// either an effects digest or an event digest.
const PointLen uint64 = cryptoffi.HashLen

type Encoding uint64

const (
	EncCounters Encoding = 0
	EncChains   Encoding = 1
	EncMHC      Encoding = 2
)

// leaf domain separation tags.
const (
	counterLeafTag byte = 0
	mhcLeafTag     byte = 1
)

// StreamUpdate carries the points appended to one stream
// since the last checkpoint.
type StreamUpdate struct {
	Stream uint64
	Points [][]byte
}

// StreamState is the per-stream summary state.
// Head is nil for [EncCounters].
// Batch is the size of the last committed batch, which the counter
// leaf binds.
// Leaf is the last committed leaf val. it depends on how updates were
// batched, so it must persist alongside the state.
type StreamState struct {
	Stream uint64
	Count  uint64
	Batch  uint64
	Head   []byte
	Leaf   []byte
}

// StreamLabel gives the commitment tree label for a stream.
func StreamLabel(stream uint64) []byte {
	return cryptoutil.Hash(marshal.WriteInt(nil, stream))
}

// EmptyHead is the chain head of a stream with no points.
func EmptyHead() []byte {
	return make([]byte, cryptoffi.HashLen)
}

// NextHead extends a chain head with one val.
func NextHead(head, val []byte) []byte {
	return cryptoutil.Hash2(head, val)
}

// Fold applies one checkpoint batch of points to a stream state,
// returning the new state, with the leaf to commit.
// it errors on an empty batch, a malformed point, or count overflow.
// it's deterministic and public: verifiers re-run it over their own
// point history to predict leaves.
func Fold(enc Encoding, prev *StreamState, points [][]byte) (*StreamState, bool) {
	lc := uint64(len(points))
	if lc == 0 {
		return nil, true
	}
	for _, p := range points {
		if uint64(len(p)) != PointLen {
			return nil, true
		}
	}
	if !std.SumNoOverflow(prev.Count, lc) {
		return nil, true
	}
	next := &StreamState{Stream: prev.Stream, Count: prev.Count + lc, Batch: lc}

	switch enc {
	case EncCounters:
		next.Leaf = compCounterLeaf(next.Stream, lc, next.Count)
	case EncChains:
		var head = prev.Head
		for _, p := range points {
			head = NextHead(head, p)
		}
		next.Head = head
		next.Leaf = std.BytesClone(head)
	case EncMHC:
		localDig := BatchDigest(points)
		next.Head = NextHead(prev.Head, localDig)
		next.Leaf = compMHCLeaf(next.Stream, next.Count, next.Head)
	default:
		return nil, true
	}
	return next, false
}

// CheckLeaf errors if a claimed state's leaf doesn't bind the rest of
// the state under the encoding.
func CheckLeaf(enc Encoding, st *StreamState) bool {
	switch enc {
	case EncCounters:
		return !std.BytesEqual(st.Leaf, compCounterLeaf(st.Stream, st.Batch, st.Count))
	case EncChains:
		return !std.BytesEqual(st.Leaf, st.Head)
	case EncMHC:
		return !std.BytesEqual(st.Leaf, compMHCLeaf(st.Stream, st.Count, st.Head))
	default:
		return true
	}
}

// NewState is the state of a stream before any points.
func NewState(enc Encoding, stream uint64) *StreamState {
	st := &StreamState{Stream: stream}
	if enc != EncCounters {
		st.Head = EmptyHead()
	}
	return st
}

func compCounterLeaf(stream, lc, gc uint64) []byte {
	var b = make([]byte, 0, 1+8+8+8)
	b = marshalutil.WriteByte(b, counterLeafTag)
	b = marshal.WriteInt(b, stream)
	b = marshal.WriteInt(b, lc)
	b = marshal.WriteInt(b, gc)
	return cryptoutil.Hash(b)
}

func compMHCLeaf(stream, count uint64, head []byte) []byte {
	var b = make([]byte, 0, 1+8+8+cryptoffi.HashLen)
	b = marshalutil.WriteByte(b, mhcLeafTag)
	b = marshal.WriteInt(b, stream)
	b = marshal.WriteInt(b, count)
	b = append(b, head...)
	return cryptoutil.Hash(b)
}

// # Link signatures

type Signer interface {
	Sign(data []byte) []byte
}

// Verifier errors if sig isn't over data.
type Verifier interface {
	Verify(data, sig []byte) bool
}

const linkSigTag byte = 2

func SignLink(sk Signer, epoch uint64, link []byte) []byte {
	return sk.Sign(compLinkPre(epoch, link))
}

// VerifyLink errors if sig isn't a link sig for (epoch, link).
func VerifyLink(vk Verifier, epoch uint64, link, sig []byte) bool {
	return vk.Verify(compLinkPre(epoch, link), sig)
}

func compLinkPre(epoch uint64, link []byte) []byte {
	var b = make([]byte, 0, 1+8+cryptoffi.HashLen)
	b = marshalutil.WriteByte(b, linkSigTag)
	b = marshal.WriteInt(b, epoch)
	b = append(b, link...)
	return b
}

// # Blame

// Blame a specific party when a bad thing happens.
// if a party is good, we should not see its [Blame] code.
type Blame uint64

const BlameNone Blame = 0

const (
	// BlameServSig faults a signing predicate, whereas
	// [BlameServFull] faults the full server protocol,
	// which is generally a superset of trust assumptions.
	BlameServSig Blame = 1 << iota
	BlameServFull
	BlameAdtrSig
	BlameAdtrFull
	// BlameUnknown should only be used sparingly.
	// in this system, these are the only [BlameUnknown]s:
	//  * misc network errors.
	//  * out-of-bounds epoch queries.
	BlameUnknown
)

// CheckBlame prevents bad parties from giving bad [Blame] codes.
func CheckBlame(b Blame, allowed []Blame) bool {
	var all Blame
	for _, x := range allowed {
		all |= x
	}
	return b & ^all != 0
}
