package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/quocanhngo/firechat/internal/live"
	"github.com/quocanhngo/firechat/internal/model"
)

// FirestoreMessageRepository handles messages/{id} documents
type FirestoreMessageRepository struct {
	client *firestore.Client
}

func NewMessageRepository(client *firestore.Client) *FirestoreMessageRepository {
	return &FirestoreMessageRepository{client: client}
}

func (r *FirestoreMessageRepository) col() *firestore.CollectionRef {
	return r.client.Collection(messagesCollection)
}

func decodeMessage(doc *firestore.DocumentSnapshot) (model.Message, error) {
	var m model.Message
	if err := doc.DataTo(&m); err != nil {
		return m, fmt.Errorf("decode message %s: %w", doc.Ref.ID, err)
	}
	m.ID = doc.Ref.ID
	return m, nil
}

func encodeMessage(m *model.Message) map[string]interface{} {
	data := map[string]interface{}{
		"chatId":      m.ChatID,
		"senderId":    m.SenderID,
		"senderName":  m.SenderName,
		"text":        m.Text,
		"type":        string(m.Type),
		"timestamp":   firestore.ServerTimestamp,
		"isDeleted":   false,
		"isForwarded": m.IsForwarded,
		"readBy": map[string]interface{}{
			m.SenderID: firestore.ServerTimestamp,
		},
	}
	if m.FileURL != "" {
		data["fileUrl"] = m.FileURL
		data["fileName"] = m.FileName
	}
	if m.ReplyTo != nil {
		data["replyTo"] = map[string]interface{}{
			"id":         m.ReplyTo.ID,
			"text":       m.ReplyTo.Text,
			"senderName": m.ReplyTo.SenderName,
		}
	}
	return data
}

// Get finds a message by id
func (r *FirestoreMessageRepository) Get(ctx context.Context, id string) (*model.Message, error) {
	doc, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	m, err := decodeMessage(doc)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a message; the sender is recorded as its first reader
func (r *FirestoreMessageRepository) Create(ctx context.Context, msg *model.Message) (string, error) {
	ref := r.col().NewDoc()
	if _, err := ref.Create(ctx, encodeMessage(msg)); err != nil {
		return "", mapError(err)
	}
	return ref.ID, nil
}

// HideFor adds uid to deletedFor
func (r *FirestoreMessageRepository) HideFor(ctx context.Context, id, uid string) error {
	_, err := r.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: "deletedFor", Value: firestore.ArrayUnion(uid)},
	})
	return mapError(err)
}

// Tombstone marks the message deleted for everyone and drops its file reference
func (r *FirestoreMessageRepository) Tombstone(ctx context.Context, id string) error {
	_, err := r.col().Doc(id).Update(ctx, []firestore.Update{
		{Path: "isDeleted", Value: true},
		{Path: "text", Value: model.DeletedMessageText},
		{Path: "fileUrl", Value: firestore.Delete},
		{Path: "fileName", Value: firestore.Delete},
	})
	return mapError(err)
}

// AddReaction unions uid into reactions[emoji]
func (r *FirestoreMessageRepository) AddReaction(ctx context.Context, id, emoji, uid string) error {
	_, err := r.col().Doc(id).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"reactions", emoji}, Value: firestore.ArrayUnion(uid)},
	})
	return mapError(err)
}

// RemoveReaction removes uid from reactions[emoji]
func (r *FirestoreMessageRepository) RemoveReaction(ctx context.Context, id, emoji, uid string) error {
	_, err := r.col().Doc(id).Update(ctx, []firestore.Update{
		{FieldPath: firestore.FieldPath{"reactions", emoji}, Value: firestore.ArrayRemove(uid)},
	})
	return mapError(err)
}

// MarkRead stamps readBy[uid] on every id. Ids are committed in batches of
// maxBatchWrites; a failed batch leaves earlier ones committed.
func (r *FirestoreMessageRepository) MarkRead(ctx context.Context, uid string, ids []string) error {
	for _, part := range chunk(ids, maxBatchWrites) {
		batch := r.client.Batch()
		for _, id := range part {
			batch.Update(r.col().Doc(id), []firestore.Update{
				{FieldPath: firestore.FieldPath{"readBy", uid}, Value: firestore.ServerTimestamp},
			})
		}
		if _, err := batch.Commit(ctx); err != nil {
			return mapError(err)
		}
	}
	return nil
}

// WatchChat streams every message of a chat
func (r *FirestoreMessageRepository) WatchChat(ctx context.Context, chatID string) *live.Subscription[model.Message] {
	return live.Start(ctx, watchQuery(r.col().Where("chatId", "==", chatID), decodeMessage))
}
