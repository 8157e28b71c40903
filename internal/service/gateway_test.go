package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/realtime"
	"github.com/quocanhngo/firechat/pkg/upload"
)

func TestSendMessageUpdatesSummary(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	chatID := f.direct(t, "alice", "bob")

	id := f.send(t, "alice", chatID, "hello")

	msg := f.message(t, id)
	assert.Equal(t, "hello", msg.Text)
	assert.Equal(t, model.MessageTypeText, msg.Type)
	assert.Equal(t, "alice", msg.SenderName)
	assert.Contains(t, msg.ReadBy, "alice")
	assert.NotNil(t, msg.Timestamp)

	chat, err := f.store.Chats().Get(ctx, chatID)
	require.NoError(t, err)
	require.NotNil(t, chat.LastMessage)
	assert.Equal(t, "hello", chat.LastMessage.Text)
	assert.Equal(t, "alice", chat.LastMessage.SenderID)
}

func TestSendMessageRejectsEmptyAndStrangers(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	chatID := f.direct(t, "alice", "bob")
	before := f.store.Writes()

	_, err := f.gateway.SendMessage(ctx, "alice", chatID, model.SendMessageRequest{Text: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.gateway.SendMessage(ctx, "carol", chatID, model.SendMessageRequest{Text: "hi"})
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = f.gateway.SendMessage(ctx, "alice", "missing", model.SendMessageRequest{Text: "hi"})
	assert.ErrorIs(t, err, ErrChatNotFound)

	assert.Equal(t, before, f.store.Writes())
}

func TestReplyCapturesSnapshot(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	chatID := f.direct(t, "alice", "bob")
	orig := f.send(t, "bob", chatID, "question?")

	id, err := f.gateway.SendMessage(ctx, "alice", chatID, model.SendMessageRequest{Text: "answer", ReplyToID: orig})
	require.NoError(t, err)

	reply := f.message(t, id).ReplyTo
	require.NotNil(t, reply)
	assert.Equal(t, orig, reply.ID)
	assert.Equal(t, "question?", reply.Text)
	assert.Equal(t, "bob", reply.SenderName)

	// the snapshot does not follow later edits of the replied-to message
	require.NoError(t, f.gateway.DeleteForEveryone(ctx, "bob", orig))
	assert.Equal(t, "question?", f.message(t, id).ReplyTo.Text)

	next, err := f.gateway.SendMessage(ctx, "alice", chatID, model.SendMessageRequest{Text: "again", ReplyToID: orig})
	require.NoError(t, err)
	assert.Equal(t, model.DeletedReplyText, f.message(t, next).ReplyTo.Text)
}

func TestReplyMustStayInChat(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	first := f.direct(t, "alice", "bob")
	second := f.direct(t, "alice", "carol")
	orig := f.send(t, "bob", first, "secret")

	_, err := f.gateway.SendMessage(context.Background(), "alice", second, model.SendMessageRequest{Text: "x", ReplyToID: orig})
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestDeleteForMeHidesOnlyForViewer(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	chatID := f.direct(t, "alice", "bob")
	id := f.send(t, "alice", chatID, "oops")

	require.NoError(t, f.gateway.DeleteForMe(ctx, "bob", id))
	require.NoError(t, f.gateway.DeleteForMe(ctx, "bob", id))

	msg := f.message(t, id)
	assert.Equal(t, []string{"bob"}, msg.DeletedFor)

	msgs := []model.Message{*msg}
	assert.Empty(t, realtime.NewMessageReducer("bob", model.Chat{}).Reduce(msgs).Messages)
	assert.Len(t, realtime.NewMessageReducer("alice", model.Chat{}).Reduce(msgs).Messages, 1)

	assert.ErrorIs(t, f.gateway.DeleteForMe(ctx, "bob", "missing"), ErrMessageNotFound)
}

func TestDeleteForMeNeedsMembership(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	groupID := f.group(t, "alice", "bob", "carol")
	id := f.send(t, "alice", groupID, "hello")
	require.NoError(t, f.store.Messages().MarkRead(ctx, "bob", []string{id}))
	require.NoError(t, f.gateway.LeaveGroup(ctx, "bob", groupID, true))
	require.NoError(t, f.gateway.LeaveGroup(ctx, "carol", groupID, true))

	before := f.store.Writes()
	assert.ErrorIs(t, f.gateway.DeleteForMe(ctx, "carol", id), ErrNotMember)
	assert.Equal(t, before, f.store.Writes())

	// bob read it while still a member
	require.NoError(t, f.gateway.DeleteForMe(ctx, "bob", id))
	require.NoError(t, f.gateway.DeleteForMe(ctx, "alice", id))
	assert.ElementsMatch(t, []string{"alice", "bob"}, f.message(t, id).DeletedFor)
}

func TestDeleteForEveryoneTombstones(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	chatID := f.direct(t, "alice", "bob")

	id, err := f.gateway.SendFile(ctx, "alice", chatID, upload.File{Name: "a.pdf", Size: 3})
	require.NoError(t, err)
	_, err = f.gateway.React(ctx, "bob", id, "👍")
	require.NoError(t, err)
	require.NoError(t, f.store.Messages().MarkRead(ctx, "bob", []string{id}))

	assert.ErrorIs(t, f.gateway.DeleteForEveryone(ctx, "bob", id), ErrNotSender)
	require.NoError(t, f.gateway.DeleteForEveryone(ctx, "alice", id))
	assert.ErrorIs(t, f.gateway.DeleteForEveryone(ctx, "alice", id), ErrAlreadyDeleted)

	msg := f.message(t, id)
	assert.True(t, msg.IsDeleted)
	assert.Equal(t, model.DeletedMessageText, msg.Text)
	assert.Empty(t, msg.FileURL)
	assert.Contains(t, msg.ReadBy, "bob")

	views := realtime.NewMessageReducer("bob", model.Chat{}).Reduce([]model.Message{*msg}).Messages
	require.Len(t, views, 1)
	assert.Equal(t, model.DeletedMessageText, views[0].Text)
	assert.Equal(t, model.MessageTypeText, views[0].Type)
	assert.Empty(t, views[0].FileURL)
	assert.Empty(t, views[0].Reactions)
}

func TestReactTogglesParity(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	chatID := f.direct(t, "alice", "bob")
	id := f.send(t, "alice", chatID, "nice")

	for i := 1; i <= 4; i++ {
		added, err := f.gateway.React(ctx, "bob", id, "🔥")
		require.NoError(t, err)
		assert.Equal(t, i%2 == 1, added)
		assert.Equal(t, i%2 == 1, f.message(t, id).HasReacted("🔥", "bob"))
	}

	_, err := f.gateway.React(ctx, "bob", id, "🦄")
	assert.ErrorIs(t, err, ErrInvalidReaction)
	_, err = f.gateway.React(ctx, "carol", id, "👍")
	assert.ErrorIs(t, err, ErrNotMember)

	require.NoError(t, f.gateway.DeleteForEveryone(ctx, "alice", id))
	_, err = f.gateway.React(ctx, "bob", id, "👍")
	assert.ErrorIs(t, err, ErrAlreadyDeleted)
}

func TestSendFile(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	chatID := f.direct(t, "alice", "bob")

	id, err := f.gateway.SendFile(ctx, "alice", chatID, upload.File{Name: "a.pdf", Size: 3})
	require.NoError(t, err)

	msg := f.message(t, id)
	assert.Equal(t, model.MessageTypeFile, msg.Type)
	assert.Equal(t, "https://files.example.com/a.pdf", msg.FileURL)
	assert.Equal(t, "a.pdf", msg.FileName)
	assert.Equal(t, "📎 Sent a file: a.pdf", msg.Text)

	chat, err := f.store.Chats().Get(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, "📎 a.pdf", chat.LastMessage.Text)
}

func TestSendFileFailureWritesNothing(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	chatID := f.direct(t, "alice", "bob")
	before := f.store.Writes()

	f.relay.err = &upload.Error{StatusCode: 413, Message: "File too large"}
	_, err := f.gateway.SendFile(ctx, "alice", chatID, upload.File{Name: "big.bin"})
	var uerr *upload.Error
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, 413, uerr.StatusCode)

	f.relay.err = errors.New("connection refused")
	_, err = f.gateway.SendFile(ctx, "alice", chatID, upload.File{Name: "big.bin"})
	require.ErrorAs(t, err, &uerr)
	assert.Contains(t, uerr.Message, "connection refused")

	assert.Equal(t, before, f.store.Writes())
}

func TestForward(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	source := f.direct(t, "alice", "bob")
	target := f.direct(t, "alice", "carol")
	id := f.send(t, "bob", source, "news")

	fwdID, err := f.gateway.Forward(ctx, "alice", id, target)
	require.NoError(t, err)

	fwd := f.message(t, fwdID)
	assert.True(t, fwd.IsForwarded)
	assert.Equal(t, "alice", fwd.SenderID)
	assert.Equal(t, "news", fwd.Text)
	assert.Equal(t, target, fwd.ChatID)

	chat, err := f.store.Chats().Get(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, "Forwarded: news", chat.LastMessage.Text)

	_, err = f.gateway.Forward(ctx, "carol", id, target)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestBlockRejectsSendWithoutWrites(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	chatID := f.direct(t, "alice", "bob")

	assert.ErrorIs(t, f.gateway.SetBlocked(ctx, "alice", chatID, true, false), ErrConfirmationRequired)
	require.NoError(t, f.gateway.SetBlocked(ctx, "alice", chatID, true, true))

	before := f.store.Writes()
	_, err := f.gateway.SendMessage(ctx, "alice", chatID, model.SendMessageRequest{Text: "hi"})
	assert.ErrorIs(t, err, ErrBlockedByYou)
	_, err = f.gateway.SendMessage(ctx, "bob", chatID, model.SendMessageRequest{Text: "hi"})
	assert.ErrorIs(t, err, ErrBlockedByPeer)
	_, err = f.gateway.SendFile(ctx, "bob", chatID, upload.File{Name: "a.pdf"})
	assert.ErrorIs(t, err, ErrBlockedByPeer)
	assert.Equal(t, before, f.store.Writes())
	assert.Zero(t, f.relay.calls)

	// unblocking needs no confirmation
	require.NoError(t, f.gateway.SetBlocked(ctx, "alice", chatID, false, false))
	f.send(t, "bob", chatID, "back")
}

func TestBlockHoldsWithoutSenderProfile(t *testing.T) {
	f := newFixture(t, "bob")
	ctx := context.Background()
	chatID, err := f.store.Chats().Create(ctx, &model.Chat{Type: model.ChatTypeOneToOne, Members: []string{"alice", "bob"}})
	require.NoError(t, err)
	require.NoError(t, f.store.Users().AddBlocked(ctx, "bob", "alice"))

	before := f.store.Writes()
	_, err = f.gateway.SendMessage(ctx, "alice", chatID, model.SendMessageRequest{Text: "hi"})
	assert.ErrorIs(t, err, ErrBlockedByPeer)
	assert.Equal(t, before, f.store.Writes())
}

func TestBlockAppliesToForwardTarget(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	source := f.direct(t, "alice", "bob")
	target := f.direct(t, "alice", "carol")
	id := f.send(t, "bob", source, "news")
	require.NoError(t, f.gateway.SetBlocked(ctx, "carol", target, true, true))

	_, err := f.gateway.Forward(ctx, "alice", id, target)
	assert.ErrorIs(t, err, ErrBlockedByPeer)
}

func TestBlockOnlyInOneToOne(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	groupID := f.group(t, "alice", "bob")

	err := f.gateway.SetBlocked(context.Background(), "alice", groupID, true, true)
	assert.ErrorIs(t, err, ErrNotOneToOne)
}

func TestGroupOwnership(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	groupID := f.group(t, "alice", "bob")

	assert.ErrorIs(t, f.gateway.AddMember(ctx, "bob", groupID, "carol"), ErrNotOwner)
	assert.ErrorIs(t, f.gateway.AddMember(ctx, "alice", groupID, "nobody"), ErrUserNotFound)
	require.NoError(t, f.gateway.AddMember(ctx, "alice", groupID, "carol"))

	chat, err := f.store.Chats().Get(ctx, groupID)
	require.NoError(t, err)
	assert.True(t, chat.IsMember("carol"))
	assert.Equal(t, "carol", chat.MembersData["carol"].DisplayName)

	assert.ErrorIs(t, f.gateway.LeaveGroup(ctx, "carol", groupID, false), ErrConfirmationRequired)
	assert.ErrorIs(t, f.gateway.LeaveGroup(ctx, "alice", groupID, true), ErrOwnerCannotLeave)
	require.NoError(t, f.gateway.LeaveGroup(ctx, "carol", groupID, true))

	assert.ErrorIs(t, f.gateway.DeleteGroup(ctx, "bob", groupID, true), ErrNotOwner)
	assert.ErrorIs(t, f.gateway.DeleteGroup(ctx, "alice", groupID, false), ErrConfirmationRequired)
}

func TestDeleteGroupKeepsMessages(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	groupID := f.group(t, "alice", "bob")
	id := f.send(t, "bob", groupID, "bye")

	require.NoError(t, f.gateway.DeleteGroup(ctx, "alice", groupID, true))

	for _, uid := range []string{"alice", "bob"} {
		chats, err := f.store.Chats().ListForMember(ctx, uid)
		require.NoError(t, err)
		assert.Empty(t, chats)
	}
	assert.Equal(t, "bye", f.message(t, id).Text)
}

func TestInvitationAcceptedAfterGroupDeleted(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()
	groupID, err := f.chats.CreateGroup(ctx, "alice", model.CreateGroupRequest{Name: "Team", InviteeIDs: []string{"bob"}})
	require.NoError(t, err)
	invs := f.store.Invitations().All()
	require.Len(t, invs, 1)

	require.NoError(t, f.gateway.DeleteGroup(ctx, "alice", groupID, true))
	require.NoError(t, f.gateway.AcceptInvitation(ctx, "bob", invs[0].ID))

	inv, err := f.store.Invitations().Get(ctx, invs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, model.InvitationAccepted, inv.Status)

	chats, err := f.store.Chats().ListForMember(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, chats)
}

func TestInvitationLifecycle(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	groupID, err := f.chats.CreateGroup(ctx, "alice", model.CreateGroupRequest{Name: "Team", InviteeIDs: []string{"bob", "carol"}})
	require.NoError(t, err)

	byUser := map[string]string{}
	for _, inv := range f.store.Invitations().All() {
		byUser[inv.ToUID] = inv.ID
	}
	require.Len(t, byUser, 2)

	assert.ErrorIs(t, f.gateway.AcceptInvitation(ctx, "carol", byUser["bob"]), ErrNotRecipient)
	require.NoError(t, f.gateway.AcceptInvitation(ctx, "bob", byUser["bob"]))
	assert.ErrorIs(t, f.gateway.AcceptInvitation(ctx, "bob", byUser["bob"]), ErrInvitationResolved)
	require.NoError(t, f.gateway.RejectInvitation(ctx, "carol", byUser["carol"]))
	assert.ErrorIs(t, f.gateway.RejectInvitation(ctx, "carol", "missing"), ErrInvitationNotFound)

	chat, err := f.store.Chats().Get(ctx, groupID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, chat.Members)
	assert.Equal(t, "bob", chat.MembersData["bob"].DisplayName)
}
