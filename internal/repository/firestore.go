package repository

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/quocanhngo/firechat/internal/live"
)

// NewFirestore builds all repositories on one Firestore client
func NewFirestore(client *firestore.Client) *Repositories {
	return &Repositories{
		Users:       NewUserRepository(client),
		Chats:       NewChatRepository(client),
		Messages:    NewMessageRepository(client),
		Invitations: NewInvitationRepository(client),
	}
}

// mapError converts gRPC status codes into repository sentinels
func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	}
	return err
}

// stopped reports whether a live iterator ended because its context was released
func stopped(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, iterator.Done) || status.Code(err) == codes.Canceled
}

func decodeDocs[T any](docs []*firestore.DocumentSnapshot, decode func(*firestore.DocumentSnapshot) (T, error)) []T {
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := decode(doc)
		if err != nil {
			log.Warn().Err(err).Str("doc", doc.Ref.Path).Msg("Skipping undecodable document")
			continue
		}
		items = append(items, item)
	}
	return items
}

// watchQuery streams the full result set of q on every change
func watchQuery[T any](q firestore.Query, decode func(*firestore.DocumentSnapshot) (T, error)) live.WatchFunc[T] {
	return func(ctx context.Context, emit func([]T)) error {
		it := q.Snapshots(ctx)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if stopped(ctx, err) {
					return nil
				}
				return err
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				if stopped(ctx, err) {
					return nil
				}
				return err
			}
			emit(decodeDocs(docs, decode))
		}
	}
}

// watchDoc streams a single document as a zero- or one-element result set
func watchDoc[T any](ref *firestore.DocumentRef, decode func(*firestore.DocumentSnapshot) (T, error)) live.WatchFunc[T] {
	return func(ctx context.Context, emit func([]T)) error {
		it := ref.Snapshots(ctx)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if stopped(ctx, err) {
					return nil
				}
				return err
			}
			if !snap.Exists() {
				emit(nil)
				continue
			}
			emit(decodeDocs([]*firestore.DocumentSnapshot{snap}, decode))
		}
	}
}

func getAll[T any](ctx context.Context, q firestore.Query, decode func(*firestore.DocumentSnapshot) (T, error)) ([]T, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, mapError(err)
	}
	return decodeDocs(docs, decode), nil
}

var (
	_ UserRepository       = (*FirestoreUserRepository)(nil)
	_ ChatRepository       = (*FirestoreChatRepository)(nil)
	_ MessageRepository    = (*FirestoreMessageRepository)(nil)
	_ InvitationRepository = (*FirestoreInvitationRepository)(nil)
)

// maxBatchWrites is the Firestore limit on writes per batch
const maxBatchWrites = 500

// chunk splits ids into consecutive parts of at most size
func chunk(ids []string, size int) [][]string {
	var parts [][]string
	for len(ids) > size {
		parts = append(parts, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		parts = append(parts, ids)
	}
	return parts
}
