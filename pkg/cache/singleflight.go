package cache

import "sync"

// call is an in-flight or completed producer invocation shared by every
// caller that asked for the same key concurrently.
type call struct {
	wg    sync.WaitGroup
	value interface{}
	err   error
}

// group de-duplicates concurrent producer calls for the same key within
// one process — the in-process half of the single-flight guarantee
// (§4.1, §8 invariant 2). Redis's SETNX covers the cross-process half;
// this covers goroutines racing inside the same Smart Cache instance,
// which SETNX alone cannot, since both would still call their local
// producer before either write lands.
type group struct {
	mu    sync.Mutex
	calls map[string]*call
}

func newGroup() *group {
	return &group{calls: make(map[string]*call)}
}

// do runs fn for key, collapsing concurrent callers onto one execution.
func (g *group) do(key string, fn func() (interface{}, error)) (interface{}, error) {
	g.mu.Lock()
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.value, c.err
	}

	c := new(call)
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	c.value, c.err = fn()
	c.wg.Done()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()

	return c.value, c.err
}
