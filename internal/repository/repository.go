// Package repository adapts the hosted document store (Firestore) to the
// four collections the sync core reads and writes: users, chats, messages
// and invitations.
package repository

import (
	"context"
	"errors"

	"github.com/quocanhngo/firechat/internal/live"
	"github.com/quocanhngo/firechat/internal/model"
)

var (
	// ErrNotFound is returned when a document does not exist
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the document id is taken
	ErrAlreadyExists = errors.New("document already exists")
	// ErrConflict is returned when a guarded transition finds unexpected state
	ErrConflict = errors.New("document state changed")
)

const (
	usersCollection       = "users"
	chatsCollection       = "chats"
	messagesCollection    = "messages"
	invitationsCollection = "invitations"
)

// UserRepository persists UserProfile documents keyed by uid
type UserRepository interface {
	Get(ctx context.Context, uid string) (*model.UserProfile, error)
	Create(ctx context.Context, profile *model.UserProfile) error
	SetHasPassword(ctx context.Context, uid string, value bool) error
	SetPresence(ctx context.Context, uid string, status model.PresenceStatus) error
	AddBlocked(ctx context.Context, uid, target string) error
	RemoveBlocked(ctx context.Context, uid, target string) error
	List(ctx context.Context) ([]model.UserProfile, error)
	Watch(ctx context.Context, uid string) *live.Subscription[model.UserProfile]
}

// ChatRepository persists one-to-one and group chats.
// Create assigns createdAt and lastMessage.timestamp on the server.
type ChatRepository interface {
	Get(ctx context.Context, id string) (*model.Chat, error)
	Create(ctx context.Context, chat *model.Chat) (string, error)
	FindOneToOne(ctx context.Context, uid, peer string) (*model.Chat, error)
	ListForMember(ctx context.Context, uid string) ([]model.Chat, error)
	SetLastMessage(ctx context.Context, id string, summary model.LastMessage) error
	AddMember(ctx context.Context, id, uid string, snapshot model.MemberSnapshot) error
	RemoveMember(ctx context.Context, id, uid string) error
	Delete(ctx context.Context, id string) error
	WatchForMember(ctx context.Context, uid string) *live.Subscription[model.Chat]
}

// MessageRepository persists messages. Create assigns timestamp and seeds
// readBy[sender] with the server time.
type MessageRepository interface {
	Get(ctx context.Context, id string) (*model.Message, error)
	Create(ctx context.Context, msg *model.Message) (string, error)
	HideFor(ctx context.Context, id, uid string) error
	Tombstone(ctx context.Context, id string) error
	AddReaction(ctx context.Context, id, emoji, uid string) error
	RemoveReaction(ctx context.Context, id, emoji, uid string) error
	MarkRead(ctx context.Context, uid string, ids []string) error
	WatchChat(ctx context.Context, chatID string) *live.Subscription[model.Message]
}

// InvitationRepository persists group invitations
type InvitationRepository interface {
	Get(ctx context.Context, id string) (*model.Invitation, error)
	Create(ctx context.Context, inv *model.Invitation) (string, error)
	Resolve(ctx context.Context, id string, to model.InvitationStatus) error
	WatchPending(ctx context.Context, uid string) *live.Subscription[model.Invitation]
}

// Repositories bundles the four collections
type Repositories struct {
	Users       UserRepository
	Chats       ChatRepository
	Messages    MessageRepository
	Invitations InvitationRepository
}
