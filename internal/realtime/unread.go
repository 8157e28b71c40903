package realtime

import (
	"strconv"

	"github.com/quocanhngo/firechat/internal/model"
)

const badgeCap = 99

// UnreadCount counts messages the viewer has neither read nor hidden
func UnreadCount(viewer string, snapshot []model.Message) int {
	n := 0
	for i := range snapshot {
		m := &snapshot[i]
		if m.IsHiddenFor(viewer) {
			continue
		}
		if m.IsUnreadBy(viewer) {
			n++
		}
	}
	return n
}

// Badge renders a count for the list, empty when nothing is unread
func Badge(count int) string {
	switch {
	case count <= 0:
		return ""
	case count > badgeCap:
		return "99+"
	}
	return strconv.Itoa(count)
}

func unreadView(chatID string, count int) model.UnreadView {
	return model.UnreadView{ChatID: chatID, Count: count, Badge: Badge(count)}
}

// counterWindow picks the chat ids that get an unread counter: the first
// limit entries of the already sorted list (0 = all)
func counterWindow(list model.ChatListView, limit int) []string {
	ids := make([]string, 0, len(list.Chats))
	for _, c := range list.Chats {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, c.ID)
	}
	return ids
}
