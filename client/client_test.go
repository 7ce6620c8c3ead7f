package client

import (
	"math/rand/v2"
	"testing"

	"github.com/MystenLabs/sparse-nodes/advrpc"
	"github.com/MystenLabs/sparse-nodes/auditor"
	"github.com/MystenLabs/sparse-nodes/cryptoffi"
	"github.com/MystenLabs/sparse-nodes/server"
	"github.com/MystenLabs/sparse-nodes/sncore"
	"github.com/MystenLabs/sparse-nodes/store"
)

func mkPoints(rnd *rand.ChaCha8, n int) [][]byte {
	pts := make([][]byte, n)
	for i := range pts {
		p := make([]byte, sncore.PointLen)
		rnd.Read(p)
		pts[i] = p
	}
	return pts
}

type setupParams struct {
	servAddr string
	servPk   cryptoffi.SigPublicKey
	servSk   *cryptoffi.SigPrivateKey
	serv     *server.Server
}

func setup(t *testing.T, enc sncore.Encoding) *setupParams {
	servPk, servSk := cryptoffi.SigGenerateKey()
	s, err := server.New(enc, servSk, store.NewMemStore(), nil)
	if err != nil {
		t.Fatal(err)
	}
	l := server.NewRpcServer(s).Serve("127.0.0.1:0")
	t.Cleanup(l.Close)
	return &setupParams{servAddr: l.Addr(), servPk: servPk, servSk: servSk, serv: s}
}

func TestUpdateQuery(t *testing.T) {
	for _, enc := range []sncore.Encoding{sncore.EncCounters, sncore.EncChains, sncore.EncMHC} {
		rnd := rand.NewChaCha8([32]byte{1})
		p := setup(t, enc)
		c, err := New(p.servAddr, p.servPk)
		if err.Blame != sncore.BlameNone {
			t.Fatal()
		}

		for i := 0; i < 3; i++ {
			if _, err := c.Update(9, mkPoints(rnd, 2)); err.Blame != sncore.BlameNone {
				t.Fatal()
			}
			st, inTree, err := c.Query(9)
			if err.Blame != sncore.BlameNone || !inTree {
				t.Fatal()
			}
			if st.Count != uint64(2*(i+1)) {
				t.Fatal()
			}
		}

		// a stream nobody wrote.
		_, inTree, err := c.Query(100)
		if err.Blame != sncore.BlameNone || inTree {
			t.Fatal()
		}

		// a second client sees the same committed states.
		c2, err := New(p.servAddr, p.servPk)
		if err.Blame != sncore.BlameNone {
			t.Fatal()
		}
		st, inTree, err := c2.Query(9)
		if err.Blame != sncore.BlameNone || !inTree || st.Count != 6 {
			t.Fatal()
		}
	}
}

func TestUpdateErrs(t *testing.T) {
	p := setup(t, sncore.EncCounters)
	c, err := New(p.servAddr, p.servPk)
	if err.Blame != sncore.BlameNone {
		t.Fatal()
	}
	if _, err := c.Update(0, nil); err.Blame == sncore.BlameNone {
		t.Fatal()
	}
}

func TestAudit(t *testing.T) {
	rnd := rand.NewChaCha8([32]byte{2})
	p := setup(t, sncore.EncMHC)
	adtrPk, adtrSk := cryptoffi.SigGenerateKey()
	a := auditor.New(adtrSk, p.servPk)
	adtrL := auditor.NewRpcServer(a).Serve("127.0.0.1:0")
	defer adtrL.Close()

	c, err := New(p.servAddr, p.servPk)
	if err.Blame != sncore.BlameNone {
		t.Fatal()
	}
	if _, err := c.Update(4, mkPoints(rnd, 3)); err.Blame != sncore.BlameNone {
		t.Fatal()
	}
	if _, _, err := c.Query(4); err.Blame != sncore.BlameNone {
		t.Fatal()
	}

	adtrCli := advrpc.Dial(adtrL.Addr())
	// auditor lags the client's epoch.
	if err := c.Audit(adtrCli, adtrPk); err.Blame != sncore.BlameUnknown {
		t.Fatal()
	}
	if a.Sync(advrpc.Dial(p.servAddr)) != sncore.BlameNone {
		t.Fatal()
	}
	if err := c.Audit(adtrCli, adtrPk); err.Blame != sncore.BlameNone {
		t.Fatal()
	}
}

func TestEvid(t *testing.T) {
	servPk, servSk := cryptoffi.SigGenerateKey()
	link0 := cryptoffi.Hash([]byte("link0"))
	link1 := cryptoffi.Hash([]byte("link1"))
	sl0 := &SignedLink{Epoch: 5, Link: link0, Sig: sncore.SignLink(servSk, 5, link0)}
	sl1 := &SignedLink{Epoch: 5, Link: link1, Sig: sncore.SignLink(servSk, 5, link1)}

	// conflicting links at one epoch convict the server.
	evid := &Evid{Link0: sl0, Link1: sl1}
	if evid.Check(servPk) {
		t.Fatal()
	}

	// the same link twice proves nothing.
	evid = &Evid{Link0: sl0, Link1: sl0}
	if !evid.Check(servPk) {
		t.Fatal()
	}

	// links from different epochs prove nothing.
	sl2 := &SignedLink{Epoch: 6, Link: link1, Sig: sncore.SignLink(servSk, 6, link1)}
	evid = &Evid{Link0: sl0, Link1: sl2}
	if !evid.Check(servPk) {
		t.Fatal()
	}

	// a forged sig proves nothing.
	sl3 := &SignedLink{Epoch: 5, Link: link1, Sig: sl0.Sig}
	evid = &Evid{Link0: sl0, Link1: sl3}
	if !evid.Check(servPk) {
		t.Fatal()
	}
}
