// Package realtime merges the live document streams of one viewer into the
// views pushed over their WebSocket connection.
package realtime

import (
	"sort"
	"time"

	"github.com/quocanhngo/firechat/internal/model"
)

// MessageReduction is the result of applying one messages snapshot
type MessageReduction struct {
	Messages    []model.MessageView
	FirstUnread string
	// Unread holds the ids the viewer has not read yet, in display order.
	// They are committed as one read-receipt batch.
	Unread []string
}

// MessageReducer derives the viewer's message list for one open chat.
// The first-unread marker is pinned once captured and only cleared by
// ClearMarker or by discarding the reducer.
type MessageReducer struct {
	viewer      string
	chat        model.Chat
	firstUnread string
	now         func() time.Time
}

func NewMessageReducer(viewer string, chat model.Chat) *MessageReducer {
	return &MessageReducer{viewer: viewer, chat: chat, now: time.Now}
}

// SetChat refreshes the member data used for reader names and read-by-all
func (r *MessageReducer) SetChat(chat model.Chat) {
	r.chat = chat
}

// FirstUnread returns the pinned marker, empty when none was captured
func (r *MessageReducer) FirstUnread() string {
	return r.firstUnread
}

// ClearMarker drops the marker so later arrivals can capture a new one
func (r *MessageReducer) ClearMarker() {
	r.firstUnread = ""
}

// Reduce applies a full snapshot of the chat's messages
func (r *MessageReducer) Reduce(snapshot []model.Message) MessageReduction {
	visible := make([]model.Message, 0, len(snapshot))
	for _, m := range snapshot {
		if m.IsHiddenFor(r.viewer) {
			continue
		}
		visible = append(visible, m)
	}
	SortMessages(visible, r.now())

	out := MessageReduction{Messages: make([]model.MessageView, 0, len(visible))}
	for i := range visible {
		m := &visible[i]
		if m.IsUnreadBy(r.viewer) {
			out.Unread = append(out.Unread, m.ID)
		}
		out.Messages = append(out.Messages, r.view(m))
	}

	if r.firstUnread == "" && len(out.Unread) > 0 {
		r.firstUnread = out.Unread[0]
	}
	out.FirstUnread = r.firstUnread
	return out
}

// SortMessages orders by server timestamp ascending. Messages still waiting
// for their timestamp sort as now; ties fall back to id.
func SortMessages(msgs []model.Message, now time.Time) {
	at := func(m *model.Message) time.Time {
		if m.Timestamp == nil {
			return now
		}
		return *m.Timestamp
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		ti, tj := at(&msgs[i]), at(&msgs[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return msgs[i].ID < msgs[j].ID
	})
}

func (r *MessageReducer) view(m *model.Message) model.MessageView {
	v := model.MessageView{
		ID:         m.ID,
		SenderID:   m.SenderID,
		SenderName: m.SenderName,
		Timestamp:  m.Timestamp,
		IsMine:     m.SenderID == r.viewer,
		IsUnread:   m.IsUnreadBy(r.viewer),
		Readers:    r.readers(m),
	}
	v.IsRead = len(v.Readers) > 0
	v.IsReadByAll = v.IsRead && r.readByAll(m)

	if m.IsDeleted {
		v.IsDeleted = true
		v.Type = model.MessageTypeText
		v.Text = model.DeletedMessageText
		return v
	}

	v.Type = m.Type
	v.Text = m.Text
	v.FileURL = m.FileURL
	v.FileName = m.FileName
	v.IsForwarded = m.IsForwarded
	v.Reactions = ReactionSummary(m, r.viewer)
	if m.ReplyTo != nil {
		reply := *m.ReplyTo
		v.ReplyTo = &reply
	}
	return v
}

func (r *MessageReducer) readers(m *model.Message) []model.Reader {
	uids := m.Readers()
	if len(uids) == 0 {
		return nil
	}
	readers := make([]model.Reader, 0, len(uids))
	for _, uid := range uids {
		readers = append(readers, model.Reader{
			UID:         uid,
			DisplayName: r.chat.MemberName(uid),
			ReadAt:      m.ReadBy[uid],
		})
	}
	sort.Slice(readers, func(i, j int) bool {
		if !readers[i].ReadAt.Equal(readers[j].ReadAt) {
			return readers[i].ReadAt.Before(readers[j].ReadAt)
		}
		return readers[i].UID < readers[j].UID
	})
	return readers
}

// readByAll: in a group every member except the sender has read it,
// in a one-to-one chat a single reader is enough
func (r *MessageReducer) readByAll(m *model.Message) bool {
	if !r.chat.IsGroup() {
		return true
	}
	for _, uid := range r.chat.Members {
		if uid == m.SenderID {
			continue
		}
		if _, ok := m.ReadBy[uid]; !ok {
			return false
		}
	}
	return true
}

// ReactionSummary lists non-empty reactions, palette emojis first
func ReactionSummary(m *model.Message, viewer string) []model.ReactionView {
	if len(m.Reactions) == 0 {
		return nil
	}
	rank := func(emoji string) int {
		for i, e := range model.ReactionPalette {
			if e == emoji {
				return i
			}
		}
		return len(model.ReactionPalette)
	}

	var out []model.ReactionView
	for emoji, users := range m.Reactions {
		if len(users) == 0 {
			continue
		}
		ids := append([]string(nil), users...)
		sort.Strings(ids)
		out = append(out, model.ReactionView{
			Emoji:       emoji,
			Count:       len(ids),
			ReactedByMe: m.HasReacted(emoji, viewer),
			UserIDs:     ids,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := rank(out[i].Emoji), rank(out[j].Emoji)
		if ri != rj {
			return ri < rj
		}
		return out[i].Emoji < out[j].Emoji
	})
	return out
}
