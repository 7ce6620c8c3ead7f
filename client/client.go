// Package client appends points to streams and verifies everything the
// server claims about them: chain extensions, link sigs, merkle
// proofs, and the folds of its own streams.
package client

import (
	"github.com/MystenLabs/sparse-nodes/advrpc"
	"github.com/MystenLabs/sparse-nodes/auditor"
	"github.com/MystenLabs/sparse-nodes/hashchain"
	"github.com/MystenLabs/sparse-nodes/merkle"
	"github.com/MystenLabs/sparse-nodes/server"
	"github.com/MystenLabs/sparse-nodes/sncore"
	"github.com/goose-lang/std"
)

type Client struct {
	servCli *advrpc.Client
	servPk  sncore.Verifier
	enc     sncore.Encoding
	// last chain position the client accepted.
	epoch uint64
	link  []byte
	dig   []byte
	// seenLinks stores signed links by epoch, for equivocation evidence.
	seenLinks map[uint64]*SignedLink
	// streams has our own folds for the streams this client writes.
	// a written stream must have this client as its only writer.
	streams map[uint64]*sncore.StreamState
}

// ClientErr abstracts client failures.
// maybe a party is to blame. if so, maybe there's irrefutable evidence.
type ClientErr struct {
	Evid  *Evid
	Blame sncore.Blame
}

var errNone = &ClientErr{Blame: sncore.BlameNone}

// New bootstraps a client from the server's latest link.
func New(addr string, servPk sncore.Verifier) (*Client, *ClientErr) {
	c := &Client{servCli: advrpc.Dial(addr), servPk: servPk,
		seenLinks: make(map[uint64]*SignedLink),
		streams:   make(map[uint64]*sncore.StreamState)}
	sr, errb := server.CallServStart(c.servCli)
	if errb {
		return nil, &ClientErr{Blame: sncore.BlameServFull}
	}
	if sncore.Encoding(sr.Enc) > sncore.EncMHC {
		return nil, &ClientErr{Blame: sncore.BlameServFull}
	}
	c.enc = sncore.Encoding(sr.Enc)

	extLen, lastVal, link, errb := hashchain.Verify(sr.StartLink, sr.ChainProof)
	if errb || extLen == 0 {
		return nil, &ClientErr{Blame: sncore.BlameServFull}
	}
	epoch := sr.StartEpochLen + extLen - 1
	if sncore.VerifyLink(servPk, epoch, link, sr.LinkSig) {
		return nil, &ClientErr{Blame: sncore.BlameServSig}
	}
	c.epoch = epoch
	c.link = link
	c.dig = lastVal
	c.seenLinks[epoch] = &SignedLink{Epoch: epoch, Link: link, Sig: sr.LinkSig}
	return c, errNone
}

// Update appends points to a stream this client writes, returning the
// epoch that committed them.
func (c *Client) Update(stream uint64, points [][]byte) (uint64, *ClientErr) {
	epoch, errb := server.CallServUpdate(c.servCli, stream, points)
	if errb {
		return 0, &ClientErr{Blame: sncore.BlameUnknown}
	}
	// the server folds our batch as one checkpoint entry, so our
	// fold predicts its committed state.
	prev, ok := c.streams[stream]
	if !ok {
		prev = sncore.NewState(c.enc, stream)
	}
	next, errb := sncore.Fold(c.enc, prev, points)
	std.Assert(!errb)
	c.streams[stream] = next
	return epoch, errNone
}

// Query fetches a stream's committed state with proof.
// for streams this client writes, it also checks the server folded
// exactly what we appended.
func (c *Client) Query(stream uint64) (*sncore.StreamState, bool, *ClientErr) {
	r, blame := server.CallServQuery(c.servCli, stream, c.epoch)
	if blame != sncore.BlameNone {
		return nil, false, &ClientErr{Blame: blame}
	}
	if err := c.checkChainExt(r.ChainProof, r.LinkSig); err.Blame != sncore.BlameNone {
		return nil, false, err
	}

	label := sncore.StreamLabel(stream)
	exp, tracked := c.streams[stream]
	if !r.InTree {
		if merkle.VerifyProof(false, label, nil, r.MerkleProof, c.dig) {
			return nil, false, &ClientErr{Blame: sncore.BlameServFull}
		}
		if tracked {
			// server signed away a stream we appended to.
			return nil, false, &ClientErr{Blame: sncore.BlameServFull}
		}
		return nil, false, errNone
	}

	if r.State == nil || r.State.Stream != stream {
		return nil, false, &ClientErr{Blame: sncore.BlameServFull}
	}
	if merkle.VerifyProof(true, label, r.State.Leaf, r.MerkleProof, c.dig) {
		return nil, false, &ClientErr{Blame: sncore.BlameServFull}
	}
	if sncore.CheckLeaf(c.enc, r.State) {
		return nil, false, &ClientErr{Blame: sncore.BlameServFull}
	}
	if tracked && checkStateEq(exp, r.State) {
		return nil, false, &ClientErr{Blame: sncore.BlameServFull}
	}
	return r.State, true, errNone
}

// Audit cross-checks our link at the current epoch against an auditor.
// a mismatch of two signed links is evidence of server equivocation.
func (c *Client) Audit(adtrCli *advrpc.Client, adtrPk sncore.Verifier) *ClientErr {
	info, errb := auditor.CallAdtrGet(adtrCli, c.epoch)
	if errb {
		// auditor hasn't mirrored this far.
		return &ClientErr{Blame: sncore.BlameUnknown}
	}
	if sncore.VerifyLink(adtrPk, c.epoch, info.Link, info.AdtrSig) {
		return &ClientErr{Blame: sncore.BlameAdtrSig}
	}
	if sncore.VerifyLink(c.servPk, c.epoch, info.Link, info.ServSig) {
		return &ClientErr{Blame: sncore.BlameServSig}
	}
	if !std.BytesEqual(info.Link, c.link) {
		adtrLink := &SignedLink{Epoch: c.epoch, Link: info.Link, Sig: info.ServSig}
		evid := &Evid{Link0: c.seenLinks[c.epoch], Link1: adtrLink}
		return &ClientErr{Evid: evid, Blame: sncore.BlameServSig}
	}
	return errNone
}

// Epoch returns the last epoch this client accepted.
func (c *Client) Epoch() uint64 {
	return c.epoch
}

// checkChainExt walks the chain forward and records the new link.
func (c *Client) checkChainExt(chainProof, linkSig []byte) *ClientErr {
	extLen, lastVal, newLink, errb := hashchain.Verify(c.link, chainProof)
	if errb {
		return &ClientErr{Blame: sncore.BlameServFull}
	}
	if extLen == 0 {
		// same epoch. no new sig to check.
		return errNone
	}
	if linkSig == nil {
		return &ClientErr{Blame: sncore.BlameServFull}
	}
	newEpoch := c.epoch + extLen
	if sncore.VerifyLink(c.servPk, newEpoch, newLink, linkSig) {
		return &ClientErr{Blame: sncore.BlameServSig}
	}
	sl := &SignedLink{Epoch: newEpoch, Link: newLink, Sig: linkSig}
	if seen, ok := c.seenLinks[newEpoch]; ok && !std.BytesEqual(seen.Link, newLink) {
		return &ClientErr{Evid: &Evid{Link0: seen, Link1: sl}, Blame: sncore.BlameServSig}
	}
	c.epoch = newEpoch
	c.link = newLink
	c.dig = lastVal
	c.seenLinks[newEpoch] = sl
	return errNone
}

// checkStateEq errors if the server's committed state diverges from
// our own fold.
func checkStateEq(exp, got *sncore.StreamState) bool {
	if exp.Count != got.Count || exp.Batch != got.Batch {
		return true
	}
	if !std.BytesEqual(exp.Head, got.Head) {
		return true
	}
	return !std.BytesEqual(exp.Leaf, got.Leaf)
}
