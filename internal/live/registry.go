package live

import (
	"errors"
	"sort"
	"sync"
)

// ErrLimit is returned when a new key would exceed the registry cap
var ErrLimit = errors.New("subscription limit reached")

// ErrClosed is returned when the registry was closed while a key was opening
var ErrClosed = errors.New("subscription registry closed")

// Registry tracks the open subscriptions of one viewer session.
// Subscriptions are keyed; acquiring an open key reuses it and bumps its
// reference count, and the last release stops it.
type Registry struct {
	mu      sync.Mutex
	limit   int
	entries map[string]*entry
}

type entry struct {
	refs int
	stop func()
}

// NewRegistry creates a registry holding at most limit distinct keys (0 = unbounded)
func NewRegistry(limit int) *Registry {
	return &Registry{
		limit:   limit,
		entries: make(map[string]*entry),
	}
}

// Acquire returns a release func for key, calling open only when key is not
// already running. open returns the func that stops the subscription.
func (r *Registry) Acquire(key string, open func() (stop func())) (release func(), err error) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if ok {
		e.refs++
		r.mu.Unlock()
		return r.releaser(key), nil
	}
	if r.limit > 0 && len(r.entries) >= r.limit {
		r.mu.Unlock()
		return nil, ErrLimit
	}
	e = &entry{refs: 1}
	r.entries[key] = e
	r.mu.Unlock()

	// open outside the lock: stores may block while establishing the channel
	stop := open()

	r.mu.Lock()
	if cur, ok := r.entries[key]; ok && cur == e {
		e.stop = stop
		r.mu.Unlock()
		return r.releaser(key), nil
	}
	r.mu.Unlock()
	stop()
	return nil, ErrClosed
}

func (r *Registry) releaser(key string) func() {
	var once sync.Once
	return func() {
		once.Do(func() { r.release(key) })
	}
}

func (r *Registry) release(key string) {
	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		r.mu.Unlock()
		return
	}
	e.refs--
	if e.refs > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.entries, key)
	stop := e.stop
	r.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// Has reports whether key is currently open
func (r *Registry) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

// Len returns the number of open keys
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Keys returns the open keys in sorted order
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close stops every subscription regardless of reference counts
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		if e.stop != nil {
			e.stop()
		}
	}
}
