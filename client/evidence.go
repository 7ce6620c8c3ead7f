package client

import (
	"github.com/MystenLabs/sparse-nodes/sncore"
	"github.com/goose-lang/std"
)

// SignedLink is a server sig binding an epoch to a chain link.
type SignedLink struct {
	Epoch uint64
	Link  []byte
	Sig   []byte
}

// Check errors if the sig isn't the server's.
func (o *SignedLink) Check(servPk sncore.Verifier) bool {
	return sncore.VerifyLink(servPk, o.Epoch, o.Link, o.Sig)
}

// Evid is evidence that the server signed two conflicting links for
// the same epoch.
type Evid struct {
	Link0 *SignedLink
	Link1 *SignedLink
}

// Check returns an error if the evidence does not check out.
// otherwise, it proves that the server was dishonest.
func (e *Evid) Check(servPk sncore.Verifier) bool {
	if e.Link0.Check(servPk) {
		return true
	}
	if e.Link1.Check(servPk) {
		return true
	}
	if e.Link0.Epoch != e.Link1.Epoch {
		return true
	}
	return std.BytesEqual(e.Link0.Link, e.Link1.Link)
}
