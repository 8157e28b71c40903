package model

import "time"

// InvitationStatus is a one-way state: pending -> accepted | rejected
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationRejected InvitationStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationAccepted || s == InvitationRejected
}

// Invitation asks a user to join a group
type Invitation struct {
	ID        string           `json:"id" firestore:"-"`
	GroupID   string           `json:"groupId" firestore:"groupId"`
	GroupName string           `json:"groupName" firestore:"groupName"`
	ToUID     string           `json:"toUid" firestore:"toUid"`
	FromUID   string           `json:"fromUid" firestore:"fromUid"`
	FromName  string           `json:"fromName" firestore:"fromName"`
	Status    InvitationStatus `json:"status" firestore:"status"`
	Timestamp *time.Time       `json:"timestamp,omitempty" firestore:"timestamp"`
}
