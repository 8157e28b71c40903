package model

import (
	"net/url"
	"strings"
	"time"
)

// PresenceStatus is the coarse online indicator written by the Hub
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
)

// UserProfile is the identity-keyed document stored in users/{uid}
type UserProfile struct {
	UID            string         `json:"uid" firestore:"uid"`
	Email          string         `json:"email" firestore:"email"`
	DisplayName    string         `json:"displayName" firestore:"displayName"`
	PhotoURL       string         `json:"photoURL" firestore:"photoURL"`
	HasSetPassword bool           `json:"hasSetPassword" firestore:"hasSetPassword"`
	BlockedUsers   []string       `json:"blockedUsers,omitempty" firestore:"blockedUsers,omitempty"`
	Status         PresenceStatus `json:"status,omitempty" firestore:"status,omitempty"`
	LastSeen       *time.Time     `json:"lastSeen,omitempty" firestore:"lastSeen,omitempty"`
}

// HasBlocked reports whether this profile's owner blocked uid
func (u *UserProfile) HasBlocked(uid string) bool {
	return containsString(u.BlockedUsers, uid)
}

// Snapshot returns the denormalized copy stored in chat.membersData
func (u *UserProfile) Snapshot() MemberSnapshot {
	return MemberSnapshot{DisplayName: u.DisplayName, PhotoURL: u.PhotoURL}
}

// MemberSnapshot is the {displayName, photoURL} pair copied into a chat at join time.
// It is not refreshed when the profile changes.
type MemberSnapshot struct {
	DisplayName string `json:"displayName" firestore:"displayName"`
	PhotoURL    string `json:"photoURL" firestore:"photoURL"`
}

// AvatarURL builds the generated-avatar fallback used when no photo is set
func AvatarURL(name string) string {
	if name == "" {
		name = "U"
	}
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name)
}

// DefaultDisplayName picks the first usable name for a fresh profile
func DefaultDisplayName(name, email string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	if local, _, ok := strings.Cut(email, "@"); ok && local != "" {
		return local
	}
	if email != "" {
		return email
	}
	return "User"
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
