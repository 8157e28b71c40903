package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/quocanhngo/firechat/internal/live"
	"github.com/quocanhngo/firechat/internal/model"
)

// FirestoreChatRepository handles chats/{id} documents
type FirestoreChatRepository struct {
	client *firestore.Client
}

func NewChatRepository(client *firestore.Client) *FirestoreChatRepository {
	return &FirestoreChatRepository{client: client}
}

func (r *FirestoreChatRepository) col() *firestore.CollectionRef {
	return r.client.Collection(chatsCollection)
}

func decodeChat(doc *firestore.DocumentSnapshot) (model.Chat, error) {
	var c model.Chat
	if err := doc.DataTo(&c); err != nil {
		return c, fmt.Errorf("decode chat %s: %w", doc.Ref.ID, err)
	}
	c.ID = doc.Ref.ID
	return c, nil
}

func encodeLastMessage(summary model.LastMessage) map[string]interface{} {
	return map[string]interface{}{
		"text":       summary.Text,
		"senderId":   summary.SenderID,
		"senderName": summary.SenderName,
		"timestamp":  firestore.ServerTimestamp,
	}
}

// Get finds a chat by id
func (r *FirestoreChatRepository) Get(ctx context.Context, id string) (*model.Chat, error) {
	doc, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	c, err := decodeChat(doc)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a chat with server-assigned createdAt and lastMessage timestamp
func (r *FirestoreChatRepository) Create(ctx context.Context, chat *model.Chat) (string, error) {
	data := map[string]interface{}{
		"type":        string(chat.Type),
		"members":     chat.Members,
		"membersData": chat.MembersData,
		"createdAt":   firestore.ServerTimestamp,
	}
	if chat.IsGroup() {
		data["name"] = chat.Name
		data["creatorId"] = chat.CreatorID
	}
	if chat.LastMessage != nil {
		data["lastMessage"] = encodeLastMessage(*chat.LastMessage)
	}

	ref := r.col().NewDoc()
	if _, err := ref.Create(ctx, data); err != nil {
		return "", mapError(err)
	}
	return ref.ID, nil
}

// FindOneToOne returns the one-to-one chat holding both uids
func (r *FirestoreChatRepository) FindOneToOne(ctx context.Context, uid, peer string) (*model.Chat, error) {
	chats, err := getAll(ctx, r.col().
		Where("type", "==", string(model.ChatTypeOneToOne)).
		Where("members", "array-contains", uid), decodeChat)
	if err != nil {
		return nil, err
	}
	for i := range chats {
		if chats[i].IsMember(peer) {
			return &chats[i], nil
		}
	}
	return nil, ErrNotFound
}

// ListForMember returns every chat whose members contain uid
func (r *FirestoreChatRepository) ListForMember(ctx context.Context, uid string) ([]model.Chat, error) {
	return getAll(ctx, r.col().Where("members", "array-contains", uid), decodeChat)
}

// SetLastMessage replaces the denormalized summary, stamping it on the server
func (r *FirestoreChatRepository) SetLastMessage(ctx context.Context, id string, summary model.LastMessage) error {
	_, err := r.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: "lastMessage", Value: encodeLastMessage(summary)},
	})
	return mapError(err)
}

// AddMember unions uid into members and snapshots their profile into membersData
func (r *FirestoreChatRepository) AddMember(ctx context.Context, id, uid string, snapshot model.MemberSnapshot) error {
	_, err := r.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: "members", Value: firestore.ArrayUnion(uid)},
		{FieldPath: firestore.FieldPath{"membersData", uid}, Value: snapshot},
	})
	return mapError(err)
}

// RemoveMember removes uid from members and deletes their membersData entry
func (r *FirestoreChatRepository) RemoveMember(ctx context.Context, id, uid string) error {
	_, err := r.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: "members", Value: firestore.ArrayRemove(uid)},
		{FieldPath: firestore.FieldPath{"membersData", uid}, Value: firestore.Delete},
	})
	return mapError(err)
}

// Delete removes the chat document. Its messages are left in place.
func (r *FirestoreChatRepository) Delete(ctx context.Context, id string) error {
	_, err := r.col().Doc(id).Delete(ctx)
	return mapError(err)
}

// WatchForMember streams every chat whose members contain uid
func (r *FirestoreChatRepository) WatchForMember(ctx context.Context, uid string) *live.Subscription[model.Chat] {
	return live.Start(ctx, watchQuery(r.col().Where("members", "array-contains", uid), decodeChat))
}
