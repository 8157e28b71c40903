package memrepo

import (
	"context"

	"github.com/quocanhngo/firechat/internal/live"
	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/repository"
)

// UserRepo is the in-memory users collection
type UserRepo struct{ s *Store }

func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Put writes a profile directly, replacing any existing one
func (r *UserRepo) Put(profile model.UserProfile) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.users[profile.UID] = cloneUser(profile)
	r.s.commit()
}

func (r *UserRepo) Get(_ context.Context, uid string) (*model.UserProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.Get"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[uid]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (r *UserRepo) Create(_ context.Context, profile *model.UserProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.Create"); err != nil {
		return err
	}
	if _, ok := r.s.users[profile.UID]; ok {
		return repository.ErrAlreadyExists
	}
	r.s.users[profile.UID] = cloneUser(*profile)
	r.s.commit()
	return nil
}

func (r *UserRepo) SetHasPassword(_ context.Context, uid string, value bool) error {
	return r.update("users.SetHasPassword", uid, true, func(u *model.UserProfile) {
		u.UID = uid
		u.HasSetPassword = value
	})
}

func (r *UserRepo) SetPresence(_ context.Context, uid string, status model.PresenceStatus) error {
	return r.update("users.SetPresence", uid, false, func(u *model.UserProfile) {
		now := r.s.stamp()
		u.Status = status
		u.LastSeen = &now
	})
}

func (r *UserRepo) AddBlocked(_ context.Context, uid, target string) error {
	return r.update("users.AddBlocked", uid, false, func(u *model.UserProfile) {
		u.BlockedUsers = addString(u.BlockedUsers, target)
	})
}

func (r *UserRepo) RemoveBlocked(_ context.Context, uid, target string) error {
	return r.update("users.RemoveBlocked", uid, false, func(u *model.UserProfile) {
		u.BlockedUsers = removeString(u.BlockedUsers, target)
	})
}

// update applies fn under the lock; upsert mirrors a merge write
func (r *UserRepo) update(op, uid string, upsert bool, fn func(*model.UserProfile)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(op); err != nil {
		return err
	}
	u, ok := r.s.users[uid]
	if !ok && !upsert {
		return repository.ErrNotFound
	}
	fn(&u)
	r.s.users[uid] = u
	r.s.commit()
	return nil
}

func (r *UserRepo) List(_ context.Context) ([]model.UserProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("users.List"); err != nil {
		return nil, err
	}
	return r.list(func(model.UserProfile) bool { return true }), nil
}

// list returns matching profiles in id order; callers hold mu
func (r *UserRepo) list(match func(model.UserProfile) bool) []model.UserProfile {
	out := []model.UserProfile{}
	for _, id := range sortedIDs(r.s.users) {
		if u := r.s.users[id]; match(u) {
			out = append(out, cloneUser(u))
		}
	}
	return out
}

func (r *UserRepo) Watch(ctx context.Context, uid string) *live.Subscription[model.UserProfile] {
	return watch(ctx, r.s, func() []model.UserProfile {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		return r.list(func(u model.UserProfile) bool { return u.UID == uid })
	})
}
