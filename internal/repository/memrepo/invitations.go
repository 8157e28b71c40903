package memrepo

import (
	"context"

	"github.com/quocanhngo/firechat/internal/live"
	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/repository"
)

// InvitationRepo is the in-memory invitations collection
type InvitationRepo struct{ s *Store }

func (s *Store) Invitations() *InvitationRepo { return &InvitationRepo{s: s} }

func (r *InvitationRepo) Get(_ context.Context, id string) (*model.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("invitations.Get"); err != nil {
		return nil, err
	}
	inv, ok := r.s.invitations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	inv = cloneDoc(inv)
	return &inv, nil
}

func (r *InvitationRepo) Create(_ context.Context, inv *model.Invitation) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("invitations.Create"); err != nil {
		return "", err
	}
	stored := cloneDoc(*inv)
	stored.ID = r.s.nextID("inv")
	stored.Status = model.InvitationPending
	now := r.s.stamp()
	stored.Timestamp = &now
	r.s.invitations[stored.ID] = stored
	r.s.commit()
	return stored.ID, nil
}

func (r *InvitationRepo) Resolve(_ context.Context, id string, to model.InvitationStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("invitations.Resolve"); err != nil {
		return err
	}
	inv, ok := r.s.invitations[id]
	if !ok {
		return repository.ErrNotFound
	}
	if inv.Status != model.InvitationPending {
		return repository.ErrConflict
	}
	inv.Status = to
	r.s.invitations[id] = inv
	r.s.commit()
	return nil
}

// All returns every invitation regardless of status
func (r *InvitationRepo) All() []model.Invitation {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Invitation{}
	for _, id := range sortedIDs(r.s.invitations) {
		out = append(out, cloneDoc(r.s.invitations[id]))
	}
	return out
}

func (r *InvitationRepo) WatchPending(ctx context.Context, uid string) *live.Subscription[model.Invitation] {
	return watch(ctx, r.s, func() []model.Invitation {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		out := []model.Invitation{}
		for _, id := range sortedIDs(r.s.invitations) {
			if inv := r.s.invitations[id]; inv.ToUID == uid && inv.Status == model.InvitationPending {
				out = append(out, cloneDoc(inv))
			}
		}
		return out
	})
}

var (
	_ repository.UserRepository       = (*UserRepo)(nil)
	_ repository.ChatRepository       = (*ChatRepo)(nil)
	_ repository.MessageRepository    = (*MessageRepo)(nil)
	_ repository.InvitationRepository = (*InvitationRepo)(nil)
)
