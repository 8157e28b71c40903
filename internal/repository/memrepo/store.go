// Package memrepo is an in-memory implementation of the repository
// interfaces. Live queries re-run on every write, and server timestamps
// come from an injectable clock that never goes backwards.
package memrepo

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/quocanhngo/firechat/internal/live"
	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/repository"
)

// Store holds every collection behind one lock
type Store struct {
	mu          sync.Mutex
	clock       func() time.Time
	lastStamp   time.Time
	seq         int
	writes      int
	users       map[string]model.UserProfile
	chats       map[string]model.Chat
	messages    map[string]model.Message
	invitations map[string]model.Invitation
	failures    map[string]error
	watchers    map[*watcher]struct{}
}

type watcher struct {
	notify chan struct{}
}

// New creates an empty store using the wall clock
func New() *Store {
	return &Store{
		clock:       time.Now,
		users:       make(map[string]model.UserProfile),
		chats:       make(map[string]model.Chat),
		messages:    make(map[string]model.Message),
		invitations: make(map[string]model.Invitation),
		failures:    make(map[string]error),
		watchers:    make(map[*watcher]struct{}),
	}
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Users:       s.Users(),
		Chats:       s.Chats(),
		Messages:    s.Messages(),
		Invitations: s.Invitations(),
	}
}

// SetClock replaces the server clock
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// FailNext makes the next call of op return err. Ops are named
// "<collection>.<method>", e.g. "messages.MarkRead".
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

// Writes returns how many successful writes the store has applied
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// failure pops an injected error; callers hold mu
func (s *Store) failure(op string) error {
	if err, ok := s.failures[op]; ok {
		delete(s.failures, op)
		return err
	}
	return nil
}

// stamp returns a strictly increasing server time; callers hold mu
func (s *Store) stamp() time.Time {
	t := s.clock()
	if !t.After(s.lastStamp) {
		t = s.lastStamp.Add(time.Microsecond)
	}
	s.lastStamp = t
	return t
}

// nextID returns a fresh document id; callers hold mu
func (s *Store) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%04d", prefix, s.seq)
}

// commit records a write and wakes every watcher; callers hold mu
func (s *Store) commit() {
	s.writes++
	for w := range s.watchers {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

func (s *Store) addWatcher() *watcher {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := &watcher{notify: make(chan struct{}, 1)}
	s.watchers[w] = struct{}{}
	return w
}

func (s *Store) removeWatcher(w *watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.watchers, w)
}

// Watchers returns the number of running live queries
func (s *Store) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// watch re-runs query after every write and emits when the result changes
func watch[T any](ctx context.Context, s *Store, query func() []T) *live.Subscription[T] {
	return live.Start(ctx, func(ctx context.Context, emit func([]T)) error {
		w := s.addWatcher()
		defer s.removeWatcher(w)

		var last []T
		first := true
		for {
			items := query()
			if first || !reflect.DeepEqual(items, last) {
				first = false
				last = items
				emit(clone(items))
			}
			select {
			case <-ctx.Done():
				return nil
			case <-w.notify:
			}
		}
	})
}

func sortedIDs[T any](m map[string]T) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
