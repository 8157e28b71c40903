package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocanhngo/firechat/internal/model"
)

func TestCreateOneToOneDeduplicates(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	first, err := f.chats.CreateOneToOne(ctx, "alice", "bob")
	require.NoError(t, err)
	again, err := f.chats.CreateOneToOne(ctx, "alice", "bob")
	require.NoError(t, err)
	reverse, err := f.chats.CreateOneToOne(ctx, "bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, first, again)
	assert.Equal(t, first, reverse)

	chat, err := f.store.Chats().Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, model.ChatTypeOneToOne, chat.Type)
	assert.ElementsMatch(t, []string{"alice", "bob"}, chat.Members)
	assert.Equal(t, "bob", chat.MembersData["bob"].DisplayName)
	assert.Equal(t, "Started a new conversation", chat.LastMessage.Text)
	assert.Empty(t, chat.CreatorID)
}

func TestCreateOneToOneValidation(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()

	_, err := f.chats.CreateOneToOne(ctx, "alice", "alice")
	assert.ErrorIs(t, err, ErrInvalidPeer)
	_, err = f.chats.CreateOneToOne(ctx, "alice", "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateGroupInvitesEveryoneOnce(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	id, err := f.chats.CreateGroup(ctx, "alice", model.CreateGroupRequest{
		Name:       "  Team  ",
		InviteeIDs: []string{"bob", "carol", "bob", "alice", ""},
	})
	require.NoError(t, err)

	chat, err := f.store.Chats().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Team", chat.Name)
	assert.Equal(t, "alice", chat.CreatorID)
	assert.Equal(t, []string{"alice"}, chat.Members)
	assert.Equal(t, "Group created. Invitations sent.", chat.LastMessage.Text)

	invs := f.store.Invitations().All()
	require.Len(t, invs, 2)
	var to []string
	for _, inv := range invs {
		to = append(to, inv.ToUID)
		assert.Equal(t, model.InvitationPending, inv.Status)
		assert.Equal(t, "Team", inv.GroupName)
		assert.Equal(t, "alice", inv.FromName)
	}
	assert.ElementsMatch(t, []string{"bob", "carol"}, to)

	_, err = f.chats.CreateGroup(ctx, "alice", model.CreateGroupRequest{Name: " ", InviteeIDs: []string{"bob"}})
	assert.ErrorIs(t, err, ErrEmptyGroupName)
}

func TestCreateGroupSurvivesInvitationFailure(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	f.store.FailNext("invitations.Create", errors.New("quota exceeded"))

	id, err := f.chats.CreateGroup(context.Background(), "alice", model.CreateGroupRequest{Name: "Team", InviteeIDs: []string{"bob"}})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Empty(t, f.store.Invitations().All())
}

func TestSearchUsers(t *testing.T) {
	f := newFixture(t, "alice", "bob", "bobby", "carol")
	ctx := context.Background()
	require.NoError(t, f.store.Users().AddBlocked(ctx, "bob", "carol"))

	users, err := f.chats.SearchUsers(ctx, "alice", "BOB")
	require.NoError(t, err)
	var uids []string
	for _, u := range users {
		uids = append(uids, u.UID)
		assert.Empty(t, u.BlockedUsers)
	}
	assert.ElementsMatch(t, []string{"bob", "bobby"}, uids)

	all, err := f.chats.SearchUsers(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byEmail, err := f.chats.SearchUsers(ctx, "alice", "carol@example")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, "carol", byEmail[0].UID)
}

func TestAddMemberCandidates(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()
	groupID := f.group(t, "alice", "bob")

	users, err := f.chats.AddMemberCandidates(ctx, "alice", groupID, "")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "carol", users[0].UID)

	_, err = f.chats.AddMemberCandidates(ctx, "carol", groupID, "")
	assert.ErrorIs(t, err, ErrNotMember)

	direct := f.direct(t, "alice", "bob")
	_, err = f.chats.AddMemberCandidates(ctx, "alice", direct, "")
	assert.ErrorIs(t, err, ErrNotGroup)
}
