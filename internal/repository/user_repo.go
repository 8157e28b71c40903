package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/quocanhngo/firechat/internal/live"
	"github.com/quocanhngo/firechat/internal/model"
)

// FirestoreUserRepository handles users/{uid} documents
type FirestoreUserRepository struct {
	client *firestore.Client
}

func NewUserRepository(client *firestore.Client) *FirestoreUserRepository {
	return &FirestoreUserRepository{client: client}
}

func (r *FirestoreUserRepository) col() *firestore.CollectionRef {
	return r.client.Collection(usersCollection)
}

func decodeUser(doc *firestore.DocumentSnapshot) (model.UserProfile, error) {
	var u model.UserProfile
	if err := doc.DataTo(&u); err != nil {
		return u, fmt.Errorf("decode user %s: %w", doc.Ref.ID, err)
	}
	if u.UID == "" {
		u.UID = doc.Ref.ID
	}
	return u, nil
}

// Get finds a profile by uid
func (r *FirestoreUserRepository) Get(ctx context.Context, uid string) (*model.UserProfile, error) {
	doc, err := r.col().Doc(uid).Get(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	u, err := decodeUser(doc)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a fresh profile; it fails with ErrAlreadyExists if the uid is taken
func (r *FirestoreUserRepository) Create(ctx context.Context, profile *model.UserProfile) error {
	_, err := r.col().Doc(profile.UID).Create(ctx, profile)
	return mapError(err)
}

// SetHasPassword merges the hasSetPassword flag
func (r *FirestoreUserRepository) SetHasPassword(ctx context.Context, uid string, value bool) error {
	_, err := r.col().Doc(uid).Set(ctx, map[string]interface{}{
		"hasSetPassword": value,
	}, firestore.MergeAll)
	return mapError(err)
}

// SetPresence updates status and stamps lastSeen with the server time
func (r *FirestoreUserRepository) SetPresence(ctx context.Context, uid string, status model.PresenceStatus) error {
	_, err := r.col().Doc(uid).Update(ctx, []firestore.Update{
		{Path: "status", Value: string(status)},
		{Path: "lastSeen", Value: firestore.ServerTimestamp},
	})
	return mapError(err)
}

// AddBlocked adds target to uid's blockedUsers set
func (r *FirestoreUserRepository) AddBlocked(ctx context.Context, uid, target string) error {
	_, err := r.col().Doc(uid).Update(ctx, []firestore.Update{
		{Path: "blockedUsers", Value: firestore.ArrayUnion(target)},
	})
	return mapError(err)
}

// RemoveBlocked removes target from uid's blockedUsers set
func (r *FirestoreUserRepository) RemoveBlocked(ctx context.Context, uid, target string) error {
	_, err := r.col().Doc(uid).Update(ctx, []firestore.Update{
		{Path: "blockedUsers", Value: firestore.ArrayRemove(target)},
	})
	return mapError(err)
}

// List returns every profile. The directory is small enough to filter client-side.
func (r *FirestoreUserRepository) List(ctx context.Context) ([]model.UserProfile, error) {
	return getAll(ctx, r.col().Query, decodeUser)
}

// Watch streams uid's profile document
func (r *FirestoreUserRepository) Watch(ctx context.Context, uid string) *live.Subscription[model.UserProfile] {
	return live.Start(ctx, watchDoc(r.col().Doc(uid), decodeUser))
}
