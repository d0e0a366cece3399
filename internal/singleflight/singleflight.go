// Package singleflight coalesces concurrent identical GET requests so that
// only one upstream round trip is issued; every waiter receives the owner's
// payload and error.
package singleflight

import (
	"sync"
	"time"
)

// retainFor keeps a completed call visible briefly so bursts arriving right
// at completion still coalesce, without leaking the map over time.
const retainFor = 100 * time.Millisecond

// Group manages in-flight calls keyed by request fingerprint.
type Group struct {
	mu sync.Mutex
	m  map[string]*call
}

type call struct {
	wg      sync.WaitGroup
	payload []byte
	err     error
}

// New creates an empty Group.
func New() *Group {
	return &Group{m: make(map[string]*call)}
}

// Do executes fn, ensuring only one execution is in flight for key at a
// time. Duplicate callers wait for the original and receive the same
// payload and error. The second return reports whether this caller shared
// another caller's result.
func (g *Group) Do(key string, fn func() ([]byte, error)) ([]byte, bool, error) {
	g.mu.Lock()
	if c, ok := g.m[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.payload, true, c.err
	}

	c := &call{}
	c.wg.Add(1)
	g.m[key] = c
	g.mu.Unlock()

	c.payload, c.err = fn()
	c.wg.Done()

	go func() {
		time.Sleep(retainFor)
		g.mu.Lock()
		if g.m[key] == c {
			delete(g.m, key)
		}
		g.mu.Unlock()
	}()

	return c.payload, false, c.err
}
