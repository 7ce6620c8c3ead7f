package server

import (
	"sync"
)

type Work struct {
	mu   *sync.Mutex
	cond *sync.Cond
	done bool
	Req  *WQReq
	Resp *WQResp
}

// WorkQ collects append requests so the worker can commit them as one
// checkpoint.
type WorkQ struct {
	mu   *sync.Mutex
	work []*Work
	cond *sync.Cond
}

func NewWorkQ() *WorkQ {
	mu := new(sync.Mutex)
	cond := sync.NewCond(mu)
	return &WorkQ{mu: mu, cond: cond}
}

func (w *Work) Finish() {
	w.mu.Lock()
	w.done = true
	w.cond.Signal()
	w.mu.Unlock()
}

// Do submits a request and blocks until a checkpoint resolves it.
func (wq *WorkQ) Do(req *WQReq) *WQResp {
	w := &Work{mu: new(sync.Mutex), Req: req}
	w.cond = sync.NewCond(w.mu)

	wq.mu.Lock()
	wq.work = append(wq.work, w)
	wq.cond.Signal()
	wq.mu.Unlock()

	w.mu.Lock()
	for !w.done {
		w.cond.Wait()
	}
	w.mu.Unlock()

	return w.Resp
}

// DoBatch submits many requests at once, e.g., for seeding benchmarks.
// the requests join the queue together, so an idle worker takes them
// as one checkpoint batch. responses come back in request order.
func (wq *WorkQ) DoBatch(reqs []*WQReq) []*WQResp {
	works := make([]*Work, len(reqs))
	for i, req := range reqs {
		works[i] = &Work{mu: new(sync.Mutex), Req: req}
		works[i].cond = sync.NewCond(works[i].mu)
	}

	wq.mu.Lock()
	wq.work = append(wq.work, works...)
	wq.cond.Signal()
	wq.mu.Unlock()

	n := len(works)
	resps := make([]*WQResp, n)
	for i := 0; i < n; i++ {
		w := works[n-1-i]

		w.mu.Lock()
		for !w.done {
			w.cond.Wait()
		}
		w.mu.Unlock()
		resps[n-1-i] = w.Resp
	}
	return resps
}

// Get blocks until there's work, then takes all of it.
func (wq *WorkQ) Get() []*Work {
	wq.mu.Lock()
	for wq.work == nil {
		wq.cond.Wait()
	}

	work := wq.work
	wq.work = nil
	wq.mu.Unlock()
	return work
}
