package server

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/MystenLabs/sparse-nodes/sncore"
	porc "github.com/anishathalye/porcupine"
)

// Code based off of:
// https://github.com/anishathalye/porcupine/blob/master/porcupine_test.go

const (
	opUpdate uint64 = 0
	opQuery  uint64 = 1
)

type snInput struct {
	op     uint64
	stream uint64
	// numPts is only set for updates.
	numPts uint64
}

type snOutput struct {
	count uint64
}

// snModel says stream counts act like per-stream atomic adders:
// an update adds its points to the count by the time it returns, and
// a query reads some count between its call and return.
var snModel = porc.Model{
	Partition: func(history []porc.Operation) [][]porc.Operation {
		m := make(map[uint64][]porc.Operation)
		for _, v := range history {
			stream := v.Input.(snInput).stream
			m[stream] = append(m[stream], v)
		}
		streams := make([]uint64, 0, len(m))
		for k := range m {
			streams = append(streams, k)
		}
		slices.Sort(streams)
		ret := make([][]porc.Operation, 0, len(streams))
		for _, k := range streams {
			ret = append(ret, m[k])
		}
		return ret
	},
	Init: func() interface{} {
		// we partition by stream, so one count suffices.
		return uint64(0)
	},
	Step: func(state, input, output interface{}) (bool, interface{}) {
		inp := input.(snInput)
		out := output.(snOutput)
		st := state.(uint64)
		switch inp.op {
		case opUpdate:
			return true, st + inp.numPts
		case opQuery:
			return out.count == st, state
		default:
			return false, state
		}
	},
	DescribeOperation: func(input, output interface{}) string {
		inp := input.(snInput)
		out := output.(snOutput)
		switch inp.op {
		case opUpdate:
			return fmt.Sprintf("update(%v, +%v)", inp.stream, inp.numPts)
		case opQuery:
			return fmt.Sprintf("query(%v) -> %v", inp.stream, out.count)
		default:
			return "<invalid>"
		}
	},
}

func TestPorc(t *testing.T) {
	s, _ := newTestServer(t, sncore.EncCounters)
	nCli := 6
	nOps := 30

	mu := new(sync.Mutex)
	var ops []porc.Operation
	wg := new(sync.WaitGroup)
	for c := 0; c < nCli; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			rnd := rand.NewChaCha8([32]byte{byte(c)})
			var cliOps []porc.Operation
			for i := 0; i < nOps; i++ {
				stream := uint64(rnd.Uint64() % 3)
				if rnd.Uint64()%2 == 0 {
					n := int(rnd.Uint64()%3) + 1
					start := time.Now().UnixNano()
					_, errb := s.Update(stream, mkPoints(rnd, n))
					end := time.Now().UnixNano()
					if errb {
						// lost a same-stream race in this checkpoint.
						continue
					}
					cliOps = append(cliOps, porc.Operation{ClientId: c,
						Input: snInput{op: opUpdate, stream: stream, numPts: uint64(n)},
						Call:  start, Output: snOutput{}, Return: end})
				} else {
					start := time.Now().UnixNano()
					r := s.Query(stream, 0)
					end := time.Now().UnixNano()
					if r.Err != sncore.BlameNone {
						t.Error()
						return
					}
					var count uint64
					if r.InTree {
						count = r.State.Count
					}
					cliOps = append(cliOps, porc.Operation{ClientId: c,
						Input: snInput{op: opQuery, stream: stream},
						Call:  start, Output: snOutput{count: count}, Return: end})
				}
			}
			mu.Lock()
			ops = append(ops, cliOps...)
			mu.Unlock()
		}(c)
	}
	wg.Wait()

	res := porc.CheckOperations(snModel, ops)
	if !res {
		t.Fatal("history isn't linearizable")
	}
}
