package realtime

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocanhngo/firechat/internal/model"
)

func TestChatListSortsByLastActivity(t *testing.T) {
	older := groupChat()
	older.ID = "older"
	older.LastMessage = &model.LastMessage{Text: "hi", Timestamp: at(1)}

	newer := directChat()
	newer.ID = "newer"
	newer.LastMessage = &model.LastMessage{Text: "yo", Timestamp: at(5)}

	empty := groupChat()
	empty.ID = "empty"

	view := ChatList("alice", []model.Chat{empty, older, newer})
	require.Len(t, view.Chats, 3)
	assert.Equal(t, "newer", view.Chats[0].ID)
	assert.Equal(t, "older", view.Chats[1].ID)
	assert.Equal(t, "empty", view.Chats[2].ID)

	assert.Equal(t, "Bob", view.Chats[0].Name)
	assert.Equal(t, "Team", view.Chats[1].Name)
	assert.True(t, view.Chats[1].IsOwner)
	assert.Equal(t, 3, view.Chats[1].MemberCount)
}

func TestChatListUsesAvatarFallback(t *testing.T) {
	c := directChat()
	view := ChatList("bob", []model.Chat{c})
	assert.Equal(t, "Alice", view.Chats[0].Name)
	assert.Equal(t, model.AvatarURL("Alice"), view.Chats[0].PhotoURL)
}

func TestInvitationListKeepsPendingNewestFirst(t *testing.T) {
	view := InvitationList("bob", []model.Invitation{
		{ID: "i1", ToUID: "bob", Status: model.InvitationPending, Timestamp: at(1)},
		{ID: "i2", ToUID: "bob", Status: model.InvitationAccepted, Timestamp: at(2)},
		{ID: "i3", ToUID: "bob", Status: model.InvitationPending, Timestamp: at(3)},
		{ID: "i4", ToUID: "carol", Status: model.InvitationPending, Timestamp: at(4)},
	})
	require.Len(t, view.Invitations, 2)
	assert.Equal(t, "i3", view.Invitations[0].ID)
	assert.Equal(t, "i1", view.Invitations[1].ID)
}

func TestUnreadCountSkipsReadOwnAndHidden(t *testing.T) {
	hidden := msg("m4", "bob", at(4))
	hidden.DeletedFor = []string{"alice"}
	n := UnreadCount("alice", []model.Message{
		msg("m1", "alice", at(1)),
		msg("m2", "bob", at(2), "alice"),
		msg("m3", "bob", at(3)),
		hidden,
	})
	assert.Equal(t, 1, n)
}

func TestBadge(t *testing.T) {
	assert.Equal(t, "", Badge(0))
	assert.Equal(t, "7", Badge(7))
	assert.Equal(t, "99", Badge(99))
	assert.Equal(t, "99+", Badge(100))
}

func TestCounterWindow(t *testing.T) {
	var list model.ChatListView
	for i := 0; i < 5; i++ {
		list.Chats = append(list.Chats, model.ChatSummary{ID: fmt.Sprintf("c%d", i)})
	}
	assert.Equal(t, []string{"c0", "c1"}, counterWindow(list, 2))
	assert.Len(t, counterWindow(list, 0), 5)
}

func TestBlockStateIsDerivedFromBothSides(t *testing.T) {
	alice := &model.UserProfile{UID: "alice"}
	bob := &model.UserProfile{UID: "bob"}
	assert.True(t, ComputeBlockState("alice", "bob", alice, bob).CanSend())

	alice.BlockedUsers = []string{"bob"}
	st := ComputeBlockState("alice", "bob", alice, bob)
	assert.True(t, st.BlockedByMe)
	assert.False(t, st.CanSend())
	assert.Equal(t, NoticeBlockedByMe, st.Notice())

	peerView := ComputeBlockState("bob", "alice", bob, alice)
	assert.True(t, peerView.HasBlockedMe)
	assert.Equal(t, NoticeBlockedByPeer, peerView.Notice())
}

func TestBlockStateWithMissingProfile(t *testing.T) {
	bob := &model.UserProfile{UID: "bob", BlockedUsers: []string{"alice"}}

	// the peer's block holds even when the viewer has no profile yet
	st := ComputeBlockState("alice", "bob", nil, bob)
	assert.True(t, st.HasBlockedMe)
	assert.False(t, st.CanSend())

	st = ComputeBlockState("bob", "alice", bob, nil)
	assert.True(t, st.BlockedByMe)
	assert.False(t, st.HasBlockedMe)

	assert.True(t, ComputeBlockState("alice", "carol", nil, nil).CanSend())
}
