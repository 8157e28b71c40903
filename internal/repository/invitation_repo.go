package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/quocanhngo/firechat/internal/live"
	"github.com/quocanhngo/firechat/internal/model"
)

// FirestoreInvitationRepository handles invitations/{id} documents
type FirestoreInvitationRepository struct {
	client *firestore.Client
}

func NewInvitationRepository(client *firestore.Client) *FirestoreInvitationRepository {
	return &FirestoreInvitationRepository{client: client}
}

func (r *FirestoreInvitationRepository) col() *firestore.CollectionRef {
	return r.client.Collection(invitationsCollection)
}

func decodeInvitation(doc *firestore.DocumentSnapshot) (model.Invitation, error) {
	var inv model.Invitation
	if err := doc.DataTo(&inv); err != nil {
		return inv, fmt.Errorf("decode invitation %s: %w", doc.Ref.ID, err)
	}
	inv.ID = doc.Ref.ID
	return inv, nil
}

// Get finds an invitation by id
func (r *FirestoreInvitationRepository) Get(ctx context.Context, id string) (*model.Invitation, error) {
	doc, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	inv, err := decodeInvitation(doc)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create inserts a pending invitation
func (r *FirestoreInvitationRepository) Create(ctx context.Context, inv *model.Invitation) (string, error) {
	ref := r.col().NewDoc()
	_, err := ref.Create(ctx, map[string]interface{}{
		"groupId":   inv.GroupID,
		"groupName": inv.GroupName,
		"toUid":     inv.ToUID,
		"fromUid":   inv.FromUID,
		"fromName":  inv.FromName,
		"status":    string(model.InvitationPending),
		"timestamp": firestore.ServerTimestamp,
	})
	if err != nil {
		return "", mapError(err)
	}
	return ref.ID, nil
}

// Resolve moves a pending invitation to a terminal status.
// It returns ErrConflict when the invitation is no longer pending.
func (r *FirestoreInvitationRepository) Resolve(ctx context.Context, id string, to model.InvitationStatus) error {
	ref := r.col().Doc(id)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			return mapError(err)
		}
		inv, err := decodeInvitation(doc)
		if err != nil {
			return err
		}
		if inv.Status != model.InvitationPending {
			return ErrConflict
		}
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(to)},
		})
	})
	return mapError(err)
}

// WatchPending streams uid's pending invitations
func (r *FirestoreInvitationRepository) WatchPending(ctx context.Context, uid string) *live.Subscription[model.Invitation] {
	q := r.col().
		Where("toUid", "==", uid).
		Where("status", "==", string(model.InvitationPending))
	return live.Start(ctx, watchQuery(q, decodeInvitation))
}
