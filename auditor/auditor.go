// Package auditor mirrors a server's checkpoint history by replaying
// its leaf updates, and countersigns every link it accepts.
// clients cross-check the server against auditors they trust.
package auditor

import (
	"sync"

	"github.com/MystenLabs/sparse-nodes/advrpc"
	"github.com/MystenLabs/sparse-nodes/hashchain"
	"github.com/MystenLabs/sparse-nodes/merkle"
	"github.com/MystenLabs/sparse-nodes/server"
	"github.com/MystenLabs/sparse-nodes/sncore"
	"github.com/goose-lang/std"
)

type Auditor struct {
	mu     *sync.Mutex
	sk     sncore.Signer
	servPk sncore.Verifier
	// tree mirrors the server's commitment tree.
	tree  *merkle.Tree
	chain *hashchain.HashChain
	// hist[e] has both parties' sigs over epoch e's link.
	hist []*EpochInfo
}

type EpochInfo struct {
	Link    []byte
	ServSig []byte
	AdtrSig []byte
}

func New(sk sncore.Signer, servPk sncore.Verifier) *Auditor {
	return &Auditor{mu: new(sync.Mutex), sk: sk, servPk: servPk,
		tree: merkle.NewTree(), chain: hashchain.New()}
}

// Update replays one checkpoint's proof onto the mirror.
// it blames the server for a broken replay or a bad link sig, and
// leaves the mirror untouched on fail.
func (a *Auditor) Update(p *sncore.AuditProof) sncore.Blame {
	a.mu.Lock()
	defer a.mu.Unlock()

	// dry-run the digest transitions before mutating the tree.
	var runDig = a.tree.Digest()
	for _, lu := range p.Updates {
		d0, d1, errb := merkle.VerifyUpdate(lu.Label, lu.Val, lu.Proof)
		if errb || !std.BytesEqual(d0, runDig) {
			return sncore.BlameServFull
		}
		runDig = d1
	}
	epoch := uint64(len(a.hist))
	link := hashchain.NextLink(a.chain.Link(), runDig)
	if sncore.VerifyLink(a.servPk, epoch, link, p.LinkSig) {
		return sncore.BlameServSig
	}

	for _, lu := range p.Updates {
		_, errb := a.tree.Put(lu.Label, lu.Val)
		std.Assert(!errb)
	}
	// the replayed transitions must land on the tree we now have.
	std.Assert(std.BytesEqual(a.tree.Digest(), runDig))
	std.Assert(std.BytesEqual(a.chain.Append(runDig), link))

	adtrSig := sncore.SignLink(a.sk, epoch, link)
	a.hist = append(a.hist, &EpochInfo{Link: link, ServSig: p.LinkSig, AdtrSig: adtrSig})
	return sncore.BlameNone
}

// Get returns the auditor's known link for a particular epoch, and
// errs if it hasn't seen it.
func (a *Auditor) Get(epoch uint64) (*EpochInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if epoch >= uint64(len(a.hist)) {
		return nil, true
	}
	return a.hist[epoch], false
}

func (a *Auditor) Len() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return uint64(len(a.hist))
}

// Sync pulls and replays all checkpoints the auditor hasn't seen.
// the server must have its full history in memory, so auditors should
// start alongside it.
func (a *Auditor) Sync(c *advrpc.Client) sncore.Blame {
	proofs, blame := server.CallServAudit(c, a.Len())
	if blame != sncore.BlameNone {
		return blame
	}
	for _, p := range proofs {
		if blame := a.Update(p); blame != sncore.BlameNone {
			return blame
		}
	}
	return sncore.BlameNone
}
