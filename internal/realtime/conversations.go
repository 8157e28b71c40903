package realtime

import (
	"sort"

	"github.com/quocanhngo/firechat/internal/model"
)

// SortChats orders chats by lastMessage timestamp, newest first.
// Chats without a summary sort last.
func SortChats(chats []model.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		ti, tj := chats[i].LastActivity(), chats[j].LastActivity()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return chats[i].ID < chats[j].ID
	})
}

// ChatList builds the viewer's conversation list from a chats snapshot
func ChatList(viewer string, snapshot []model.Chat) model.ChatListView {
	chats := make([]model.Chat, 0, len(snapshot))
	for _, c := range snapshot {
		if c.IsMember(viewer) {
			chats = append(chats, c)
		}
	}
	SortChats(chats)

	view := model.ChatListView{Chats: make([]model.ChatSummary, 0, len(chats))}
	for i := range chats {
		view.Chats = append(view.Chats, Summarize(viewer, &chats[i]))
	}
	return view
}

// Summarize derives the list entry for one chat
func Summarize(viewer string, c *model.Chat) model.ChatSummary {
	s := model.ChatSummary{
		ID:          c.ID,
		Type:        c.Type,
		Name:        c.DisplayName(viewer),
		PhotoURL:    c.DisplayPhoto(viewer),
		MemberCount: len(c.Members),
		IsOwner:     c.IsOwner(viewer),
	}
	if c.LastMessage != nil {
		lm := *c.LastMessage
		s.LastMessage = &lm
	}
	return s
}
