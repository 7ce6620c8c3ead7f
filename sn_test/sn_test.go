// Package sn_test runs the full system over TCP: one server, two
// auditors, and clients that write, read, and audit concurrently.
package sn_test

import (
	"sync"
	"testing"
	"time"

	"github.com/MystenLabs/sparse-nodes/advrpc"
	"github.com/MystenLabs/sparse-nodes/auditor"
	"github.com/MystenLabs/sparse-nodes/client"
	"github.com/MystenLabs/sparse-nodes/ffi"
	"github.com/MystenLabs/sparse-nodes/server"
	"github.com/MystenLabs/sparse-nodes/sncore"
	"github.com/MystenLabs/sparse-nodes/store"
)

const (
	aliceStream uint64 = 0
	numUpdates  int    = 20
)

type setupParams struct {
	servAddr  string
	servPk    *ffi.Verifier
	adtrAddrs []string
	adtrPks   []*ffi.Verifier
	adtrs     []*auditor.Auditor
}

// setup starts a server and auditors on loopback ports.
func setup(t *testing.T, enc sncore.Encoding, numAdtrs int) *setupParams {
	servSk, servPk := ffi.MakeKeys()
	serv, err := server.New(enc, servSk, store.NewMemStore(), nil)
	if err != nil {
		t.Fatal(err)
	}
	servL := server.NewRpcServer(serv).Serve("127.0.0.1:0")
	t.Cleanup(servL.Close)

	p := &setupParams{servAddr: servL.Addr(), servPk: servPk}
	for i := 0; i < numAdtrs; i++ {
		adtrSk, adtrPk := ffi.MakeKeys()
		adtr := auditor.New(adtrSk, servPk)
		adtrL := auditor.NewRpcServer(adtr).Serve("127.0.0.1:0")
		t.Cleanup(adtrL.Close)
		p.adtrAddrs = append(p.adtrAddrs, adtrL.Addr())
		p.adtrPks = append(p.adtrPks, adtrPk)
		p.adtrs = append(p.adtrs, adtr)
	}
	return p
}

func (p *setupParams) syncAdtrs(t *testing.T) {
	for _, a := range p.adtrs {
		if a.Sync(advrpc.Dial(p.servAddr)) != sncore.BlameNone {
			t.Fatal()
		}
	}
}

func doAudits(t *testing.T, cli *client.Client, p *setupParams) {
	for i := range p.adtrAddrs {
		err := cli.Audit(advrpc.Dial(p.adtrAddrs[i]), p.adtrPks[i])
		if err.Blame != sncore.BlameNone {
			t.Fatal()
		}
	}
}

type alice struct {
	cli *client.Client
}

// run does a bunch of appends, each as its own checkpoint batch.
func (a *alice) run(t *testing.T) {
	for i := 0; i < numUpdates; i++ {
		time.Sleep(5 * time.Millisecond)
		pt := make([]byte, sncore.PointLen)
		pt[0] = byte(i)
		if _, err := a.cli.Update(aliceStream, [][]byte{pt}); err.Blame != sncore.BlameNone {
			t.Error()
			return
		}
	}
}

type bob struct {
	cli   *client.Client
	count uint64
}

// run reads alice's stream at some time in the middle of her appends.
func (b *bob) run(t *testing.T) {
	time.Sleep(40 * time.Millisecond)
	st, inTree, err := b.cli.Query(aliceStream)
	if err.Blame != sncore.BlameNone {
		t.Error()
		return
	}
	if inTree {
		b.count = st.Count
	}
}

func TestAll(t *testing.T) {
	for _, enc := range []sncore.Encoding{sncore.EncCounters, sncore.EncChains, sncore.EncMHC} {
		p := setup(t, enc, 2)
		aliceCli, err := client.New(p.servAddr, p.servPk)
		if err.Blame != sncore.BlameNone {
			t.Fatal()
		}
		bobCli, err := client.New(p.servAddr, p.servPk)
		if err.Blame != sncore.BlameNone {
			t.Fatal()
		}
		a := &alice{cli: aliceCli}
		b := &bob{cli: bobCli}

		wg := new(sync.WaitGroup)
		wg.Add(2)
		go func() {
			a.run(t)
			wg.Done()
		}()
		go func() {
			b.run(t)
			wg.Done()
		}()
		wg.Wait()
		if t.Failed() {
			t.Fatal()
		}

		// alice re-reads her stream. the client checks the server's
		// fold against her own.
		st, inTree, cerr := aliceCli.Query(aliceStream)
		if cerr.Blame != sncore.BlameNone || !inTree {
			t.Fatal()
		}
		if st.Count != uint64(numUpdates) {
			t.Fatal()
		}
		// bob saw a prefix of alice's appends.
		if b.count > st.Count {
			t.Fatal()
		}

		// auditors haven't synced yet, so audits may fail, but only
		// with unknown blame. anything else blames a good party.
		for i := range p.adtrAddrs {
			aerr := aliceCli.Audit(advrpc.Dial(p.adtrAddrs[i]), p.adtrPks[i])
			if sncore.CheckBlame(aerr.Blame, []sncore.Blame{sncore.BlameUnknown}) {
				t.Fatal()
			}
		}

		// sync auditors. in real world, this'll happen periodically.
		p.syncAdtrs(t)

		// both clients cross-check their links with every auditor.
		doAudits(t, aliceCli, p)
		doAudits(t, bobCli, p)
	}
}
