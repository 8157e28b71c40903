package model

import (
	"time"
)

// MessageType defines the type of message content
type MessageType string

const (
	MessageTypeText MessageType = "text"
	MessageTypeFile MessageType = "file"
)

const (
	// DeletedMessageText replaces the text of a message deleted for everyone
	DeletedMessageText = "This message was deleted"
	// DeletedReplyText is captured when replying to a tombstone
	DeletedReplyText = "Deleted message"
)

// ReactionPalette lists the emojis a viewer can react with
var ReactionPalette = []string{"👍", "❤️", "😂", "😮", "😢", "🔥"}

// IsReaction reports whether emoji is part of the palette
func IsReaction(emoji string) bool {
	return containsString(ReactionPalette, emoji)
}

// ReplyRef is the immutable snapshot of the message being replied to
type ReplyRef struct {
	ID         string `json:"id" firestore:"id"`
	Text       string `json:"text" firestore:"text"`
	SenderName string `json:"senderName" firestore:"senderName"`
}

// Message represents a chat message in messages/{id}
type Message struct {
	ID          string               `json:"id" firestore:"-"`
	ChatID      string               `json:"chatId" firestore:"chatId"`
	SenderID    string               `json:"senderId" firestore:"senderId"`
	SenderName  string               `json:"senderName" firestore:"senderName"`
	Text        string               `json:"text" firestore:"text"`
	Type        MessageType          `json:"type" firestore:"type"`
	FileURL     string               `json:"fileUrl,omitempty" firestore:"fileUrl,omitempty"`
	FileName    string               `json:"fileName,omitempty" firestore:"fileName,omitempty"`
	Timestamp   *time.Time           `json:"timestamp,omitempty" firestore:"timestamp"` // nil until the server assigns it
	IsDeleted   bool                 `json:"isDeleted,omitempty" firestore:"isDeleted,omitempty"`
	DeletedFor  []string             `json:"deletedFor,omitempty" firestore:"deletedFor,omitempty"`
	Reactions   map[string][]string  `json:"reactions,omitempty" firestore:"reactions,omitempty"`
	ReadBy      map[string]time.Time `json:"readBy,omitempty" firestore:"readBy,omitempty"`
	ReplyTo     *ReplyRef            `json:"replyTo,omitempty" firestore:"replyTo,omitempty"`
	IsForwarded bool                 `json:"isForwarded,omitempty" firestore:"isForwarded,omitempty"`
}

// IsHiddenFor reports whether uid deleted this message for themselves
func (m *Message) IsHiddenFor(uid string) bool {
	return containsString(m.DeletedFor, uid)
}

// IsUnreadBy reports whether uid still has to read this message
func (m *Message) IsUnreadBy(uid string) bool {
	if m.SenderID == uid {
		return false
	}
	_, ok := m.ReadBy[uid]
	return !ok
}

// HasReacted reports whether uid reacted with emoji
func (m *Message) HasReacted(emoji, uid string) bool {
	return containsString(m.Reactions[emoji], uid)
}

// Readers returns every uid in readBy except the sender
func (m *Message) Readers() []string {
	readers := make([]string, 0, len(m.ReadBy))
	for uid := range m.ReadBy {
		if uid != m.SenderID {
			readers = append(readers, uid)
		}
	}
	return readers
}

// ReplySnapshot captures the reply reference for a new message
func (m *Message) ReplySnapshot() *ReplyRef {
	text := m.Text
	if m.IsDeleted {
		text = DeletedReplyText
	}
	return &ReplyRef{ID: m.ID, Text: text, SenderName: m.SenderName}
}
