package model

import "time"

// Derived views pushed to the rendering layer. None of these are persisted.

type ProfileView struct {
	Profile       UserProfile `json:"profile"`
	NeedsPassword bool        `json:"needs_password"`
}

type ChatSummary struct {
	ID          string       `json:"id"`
	Type        ChatType     `json:"type"`
	Name        string       `json:"name"`
	PhotoURL    string       `json:"photo_url"`
	MemberCount int          `json:"member_count"`
	IsOwner     bool         `json:"is_owner"`
	LastMessage *LastMessage `json:"last_message,omitempty"`
}

type ChatListView struct {
	Chats []ChatSummary `json:"chats"`
}

type InvitationListView struct {
	Invitations []Invitation `json:"invitations"`
}

type Reader struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"display_name"`
	ReadAt      time.Time `json:"read_at"`
}

type ReactionView struct {
	Emoji       string   `json:"emoji"`
	Count       int      `json:"count"`
	ReactedByMe bool     `json:"reacted_by_me"`
	UserIDs     []string `json:"user_ids"`
}

type MessageView struct {
	ID          string         `json:"id"`
	SenderID    string         `json:"sender_id"`
	SenderName  string         `json:"sender_name"`
	Text        string         `json:"text"`
	Type        MessageType    `json:"type"`
	FileURL     string         `json:"file_url,omitempty"`
	FileName    string         `json:"file_name,omitempty"`
	Timestamp   *time.Time     `json:"timestamp,omitempty"`
	IsMine      bool           `json:"is_mine"`
	IsDeleted   bool           `json:"is_deleted"`
	IsForwarded bool           `json:"is_forwarded"`
	IsUnread    bool           `json:"is_unread"`
	IsRead      bool           `json:"is_read"`
	IsReadByAll bool           `json:"is_read_by_all"`
	Readers     []Reader       `json:"readers,omitempty"`
	Reactions   []ReactionView `json:"reactions,omitempty"`
	ReplyTo     *ReplyRef      `json:"reply_to,omitempty"`
}

type MessageListView struct {
	ChatID        string        `json:"chat_id"`
	Messages      []MessageView `json:"messages"`
	FirstUnreadID string        `json:"first_unread_id,omitempty"`
	ReplyToID     string        `json:"reply_to_id,omitempty"`
	Draft         string        `json:"draft,omitempty"`
}

type UnreadView struct {
	ChatID string `json:"chat_id"`
	Count  int    `json:"count"`
	Badge  string `json:"badge,omitempty"`
}

type BlockStateView struct {
	ChatID       string `json:"chat_id"`
	BlockedByMe  bool   `json:"blocked_by_me"`
	HasBlockedMe bool   `json:"has_blocked_me"`
	CanSend      bool   `json:"can_send"`
	Notice       string `json:"notice,omitempty"`
}

type ChatClosedView struct {
	ChatID string `json:"chat_id"`
	Reason string `json:"reason"`
}

type WarningView struct {
	Message string `json:"message"`
}
