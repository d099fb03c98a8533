package shipping

import (
	"context"
	"sync"
)

// Inflight keeps at most one running lookup per key, ordered by generation.
// A newer generation cancels the running older one; an older generation
// arriving late gets an already cancelled context.
type Inflight struct {
	mu   sync.Mutex
	seq  uint64
	runs map[string]inflightRun
}

type inflightRun struct {
	id     uint64
	gen    uint64
	cancel context.CancelFunc
}

// Begin derives a cancelable context for the lookup gen of key. done must be
// called when the lookup finishes.
func (f *Inflight) Begin(ctx context.Context, key string, gen uint64) (context.Context, func()) {
	runCtx, cancel := context.WithCancel(ctx)

	f.mu.Lock()
	if f.runs == nil {
		f.runs = make(map[string]inflightRun)
	}
	if prev, ok := f.runs[key]; ok {
		if prev.gen > gen {
			f.mu.Unlock()
			cancel()
			return runCtx, func() {}
		}
		prev.cancel()
	}
	f.seq++
	id := f.seq
	f.runs[key] = inflightRun{id: id, gen: gen, cancel: cancel}
	f.mu.Unlock()

	return runCtx, func() {
		f.mu.Lock()
		if cur, ok := f.runs[key]; ok && cur.id == id {
			delete(f.runs, key)
		}
		f.mu.Unlock()
		cancel()
	}
}

// Len reports the number of running lookups.
func (f *Inflight) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.runs)
}
