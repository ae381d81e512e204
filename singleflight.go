package tinycdn

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// channelRegistry coalesces concurrent requests for the same channel key
// (group:url), per spec.md §4.1 and §4.6. It is a thin wrapper around
// golang.org/x/sync/singleflight.Group — Do already gives the "first caller
// triggers work, later callers attach and receive the same result"
// contract the spec describes as add/remove, so there is no separate
// manual waiter list to manage. The wrapper's only addition is a live
// waiter count per key, used to populate the "held" argument of the
// OnError callback (spec.md §6) with how many responders were coalesced
// onto a failing producer.
type channelRegistry struct {
	group singleflight.Group

	mu       sync.Mutex
	waiting  map[string]*int32
}

func newChannelRegistry() *channelRegistry {
	return &channelRegistry{waiting: make(map[string]*int32)}
}

func (r *channelRegistry) counter(key string) *int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.waiting[key]
	if !ok {
		c = new(int32)
		r.waiting[key] = c
	}
	return c
}

func (r *channelRegistry) forget(key string, c *int32) {
	if atomic.LoadInt32(c) != 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if atomic.LoadInt32(c) == 0 {
		delete(r.waiting, key)
	}
}

// Do runs fn at most once per key among concurrently-overlapping callers,
// returning the shared result to every caller. held reports how many
// callers (including this one) were still registered on key when this
// caller returned from the episode; other attached callers may already have
// left by then, so it is a lower bound. It is only meaningful on the error
// path.
func (r *channelRegistry) Do(key string, fn func() (interface{}, error)) (v interface{}, held int, err error) {
	c := r.counter(key)
	atomic.AddInt32(c, 1)
	defer func() {
		atomic.AddInt32(c, -1)
		r.forget(key, c)
	}()

	v, err, _ = r.group.Do(key, fn)
	held = int(atomic.LoadInt32(c))
	return v, held, err
}
