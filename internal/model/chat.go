package model

import (
	"time"
)

// ChatType defines whether the chat is a one-to-one pair or a named group
type ChatType string

const (
	ChatTypeOneToOne ChatType = "one-to-one"
	ChatTypeGroup    ChatType = "group"
)

// LastMessage is the denormalized summary written next to every new message
type LastMessage struct {
	Text       string     `json:"text" firestore:"text"`
	SenderID   string     `json:"senderId" firestore:"senderId"`
	SenderName string     `json:"senderName" firestore:"senderName"`
	Timestamp  *time.Time `json:"timestamp,omitempty" firestore:"timestamp"`
}

// Chat represents a conversation document in chats/{id}
type Chat struct {
	ID          string                    `json:"id" firestore:"-"`
	Type        ChatType                  `json:"type" firestore:"type"`
	Members     []string                  `json:"members" firestore:"members"`
	MembersData map[string]MemberSnapshot `json:"membersData,omitempty" firestore:"membersData,omitempty"`
	Name        string                    `json:"name,omitempty" firestore:"name,omitempty"`           // group only
	CreatorID   string                    `json:"creatorId,omitempty" firestore:"creatorId,omitempty"` // group only
	CreatedAt   *time.Time                `json:"createdAt,omitempty" firestore:"createdAt"`
	LastMessage *LastMessage              `json:"lastMessage,omitempty" firestore:"lastMessage,omitempty"`
}

// IsGroup reports whether the chat is a named group
func (c *Chat) IsGroup() bool {
	return c.Type == ChatTypeGroup
}

// IsMember reports whether uid belongs to the chat
func (c *Chat) IsMember(uid string) bool {
	return containsString(c.Members, uid)
}

// IsOwner reports whether uid created the group
func (c *Chat) IsOwner(uid string) bool {
	return c.IsGroup() && c.CreatorID != "" && c.CreatorID == uid
}

// Peer returns the other member of a one-to-one chat
func (c *Chat) Peer(uid string) string {
	for _, m := range c.Members {
		if m != uid {
			return m
		}
	}
	return ""
}

// LastActivity returns the lastMessage timestamp, or the zero time when the chat has none
func (c *Chat) LastActivity() time.Time {
	if c.LastMessage == nil || c.LastMessage.Timestamp == nil {
		return time.Time{}
	}
	return *c.LastMessage.Timestamp
}

// MemberName resolves a display name from the membersData snapshot
func (c *Chat) MemberName(uid string) string {
	if data, ok := c.MembersData[uid]; ok && data.DisplayName != "" {
		return data.DisplayName
	}
	return "User"
}

// DisplayName is the title shown for the chat from the viewer's side
func (c *Chat) DisplayName(viewer string) string {
	if c.IsGroup() {
		return c.Name
	}
	if data, ok := c.MembersData[c.Peer(viewer)]; ok && data.DisplayName != "" {
		return data.DisplayName
	}
	return "Chat"
}

// DisplayPhoto is the avatar shown for the chat from the viewer's side
func (c *Chat) DisplayPhoto(viewer string) string {
	if c.IsGroup() {
		name := c.Name
		if name == "" {
			name = "G"
		}
		return AvatarURL(name) + "&background=random"
	}
	if data, ok := c.MembersData[c.Peer(viewer)]; ok && data.PhotoURL != "" {
		return data.PhotoURL
	}
	return AvatarURL(c.DisplayName(viewer))
}
