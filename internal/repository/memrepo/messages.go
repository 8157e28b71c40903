package memrepo

import (
	"context"
	"time"

	"github.com/quocanhngo/firechat/internal/live"
	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/repository"
)

// MessageRepo is the in-memory messages collection
type MessageRepo struct{ s *Store }

func (s *Store) Messages() *MessageRepo { return &MessageRepo{s: s} }

// Put writes a message directly, keeping its id and timestamps as given
func (r *MessageRepo) Put(msg model.Message) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.messages[msg.ID] = cloneMessage(msg)
	r.s.commit()
}

func (r *MessageRepo) Get(_ context.Context, id string) (*model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("messages.Get"); err != nil {
		return nil, err
	}
	m, ok := r.s.messages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m = cloneMessage(m)
	return &m, nil
}

func (r *MessageRepo) Create(_ context.Context, msg *model.Message) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("messages.Create"); err != nil {
		return "", err
	}
	m := cloneMessage(*msg)
	m.ID = r.s.nextID("msg")
	now := r.s.stamp()
	m.Timestamp = &now
	m.IsDeleted = false
	m.DeletedFor = nil
	m.Reactions = nil
	m.ReadBy = map[string]time.Time{m.SenderID: now}
	r.s.messages[m.ID] = m
	r.s.commit()
	return m.ID, nil
}

func (r *MessageRepo) HideFor(_ context.Context, id, uid string) error {
	return r.update("messages.HideFor", id, func(m *model.Message) {
		m.DeletedFor = addString(m.DeletedFor, uid)
	})
}

func (r *MessageRepo) Tombstone(_ context.Context, id string) error {
	return r.update("messages.Tombstone", id, func(m *model.Message) {
		m.IsDeleted = true
		m.Text = model.DeletedMessageText
		m.FileURL = ""
		m.FileName = ""
	})
}

func (r *MessageRepo) AddReaction(_ context.Context, id, emoji, uid string) error {
	return r.update("messages.AddReaction", id, func(m *model.Message) {
		if m.Reactions == nil {
			m.Reactions = make(map[string][]string)
		}
		m.Reactions[emoji] = addString(m.Reactions[emoji], uid)
	})
}

func (r *MessageRepo) RemoveReaction(_ context.Context, id, emoji, uid string) error {
	return r.update("messages.RemoveReaction", id, func(m *model.Message) {
		if users, ok := m.Reactions[emoji]; ok {
			m.Reactions[emoji] = removeString(users, uid)
		}
	})
}

// MarkRead applies every receipt or none, like a batched commit
func (r *MessageRepo) MarkRead(_ context.Context, uid string, ids []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure("messages.MarkRead"); err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := r.s.messages[id]; !ok {
			return repository.ErrNotFound
		}
	}
	now := r.s.stamp()
	for _, id := range ids {
		m := cloneMessage(r.s.messages[id])
		if m.ReadBy == nil {
			m.ReadBy = make(map[string]time.Time)
		}
		m.ReadBy[uid] = now
		r.s.messages[id] = m
	}
	r.s.commit()
	return nil
}

func (r *MessageRepo) update(op, id string, fn func(*model.Message)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.failure(op); err != nil {
		return err
	}
	m, ok := r.s.messages[id]
	if !ok {
		return repository.ErrNotFound
	}
	m = cloneMessage(m)
	fn(&m)
	r.s.messages[id] = m
	r.s.commit()
	return nil
}

func (r *MessageRepo) WatchChat(ctx context.Context, chatID string) *live.Subscription[model.Message] {
	return watch(ctx, r.s, func() []model.Message {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		out := []model.Message{}
		for _, id := range sortedIDs(r.s.messages) {
			if m := r.s.messages[id]; m.ChatID == chatID {
				out = append(out, cloneMessage(m))
			}
		}
		return out
	})
}
