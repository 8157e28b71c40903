package memrepo

import (
	"context"

	"github.com/quocanhngo/firechat/internal/live"
	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/repository"
)

// ChatRepo is the in-memory chats collection
type ChatRepo struct{ s *Store }

func (s *Store) Chats() *ChatRepo { return &ChatRepo{s: s} }

func (r *ChatRepo) Get(_ context.Context, id string) (*model.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("chats.Get"); err != nil {
		return nil, err
	}
	c, ok := r.s.chats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = cloneChat(c)
	return &c, nil
}

func (r *ChatRepo) Create(_ context.Context, chat *model.Chat) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("chats.Create"); err != nil {
		return "", err
	}
	c := cloneChat(*chat)
	c.ID = r.s.nextID("chat")
	now := r.s.stamp()
	c.CreatedAt = &now
	if c.LastMessage != nil {
		c.LastMessage.Timestamp = &now
	}
	if !c.IsGroup() {
		c.Name = ""
		c.CreatorID = ""
	}
	r.s.chats[c.ID] = c
	r.s.commit()
	return c.ID, nil
}

func (r *ChatRepo) FindOneToOne(_ context.Context, uid, peer string) (*model.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("chats.FindOneToOne"); err != nil {
		return nil, err
	}
	for _, c := range r.list(uid) {
		if !c.IsGroup() && c.IsMember(peer) {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ChatRepo) ListForMember(_ context.Context, uid string) ([]model.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("chats.ListForMember"); err != nil {
		return nil, err
	}
	return r.list(uid), nil
}

// list returns uid's chats in id order; callers hold mu
func (r *ChatRepo) list(uid string) []model.Chat {
	out := []model.Chat{}
	for _, id := range sortedIDs(r.s.chats) {
		if c := r.s.chats[id]; c.IsMember(uid) {
			out = append(out, cloneChat(c))
		}
	}
	return out
}

func (r *ChatRepo) SetLastMessage(_ context.Context, id string, summary model.LastMessage) error {
	return r.update("chats.SetLastMessage", id, func(c *model.Chat) {
		now := r.s.stamp()
		summary.Timestamp = &now
		c.LastMessage = &summary
	})
}

func (r *ChatRepo) AddMember(_ context.Context, id, uid string, snapshot model.MemberSnapshot) error {
	return r.update("chats.AddMember", id, func(c *model.Chat) {
		c.Members = addString(c.Members, uid)
		if c.MembersData == nil {
			c.MembersData = make(map[string]model.MemberSnapshot)
		}
		c.MembersData[uid] = snapshot
	})
}

func (r *ChatRepo) RemoveMember(_ context.Context, id, uid string) error {
	return r.update("chats.RemoveMember", id, func(c *model.Chat) {
		c.Members = removeString(c.Members, uid)
		delete(c.MembersData, uid)
	})
}

func (r *ChatRepo) update(op, id string, fn func(*model.Chat)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(op); err != nil {
		return err
	}
	c, ok := r.s.chats[id]
	if !ok {
		return repository.ErrNotFound
	}
	c = cloneChat(c)
	fn(&c)
	r.s.chats[id] = c
	r.s.commit()
	return nil
}

func (r *ChatRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("chats.Delete"); err != nil {
		return err
	}
	delete(r.s.chats, id)
	r.s.commit()
	return nil
}

func (r *ChatRepo) WatchForMember(ctx context.Context, uid string) *live.Subscription[model.Chat] {
	return watch(ctx, r.s, func() []model.Chat {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		return r.list(uid)
	})
}
