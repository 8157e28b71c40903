package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/repository/memrepo"
	"github.com/quocanhngo/firechat/pkg/upload"
)

type stubRelay struct {
	res   *upload.Result
	err   error
	calls int
}

func (r *stubRelay) Upload(_ context.Context, file upload.File) (*upload.Result, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.res, nil
}

type fixture struct {
	store   *memrepo.Store
	gateway *Gateway
	chats   *ChatService
	relay   *stubRelay
}

func newFixture(t *testing.T, uids ...string) *fixture {
	t.Helper()
	store := memrepo.New()
	for _, uid := range uids {
		store.Users().Put(model.UserProfile{
			UID:         uid,
			Email:       uid + "@example.com",
			DisplayName: uid,
			PhotoURL:    model.AvatarURL(uid),
		})
	}
	relay := &stubRelay{res: &upload.Result{URL: "https://files.example.com/a.pdf", Name: "a.pdf", Size: 3}}
	repos := store.Repositories()
	return &fixture{
		store:   store,
		gateway: NewGateway(repos, relay, zerolog.Nop()),
		chats:   NewChatService(repos, zerolog.Nop()),
		relay:   relay,
	}
}

func (f *fixture) direct(t *testing.T, a, b string) string {
	t.Helper()
	id, err := f.chats.CreateOneToOne(context.Background(), a, b)
	require.NoError(t, err)
	return id
}

func (f *fixture) group(t *testing.T, owner string, members ...string) string {
	t.Helper()
	ctx := context.Background()
	id, err := f.chats.CreateGroup(ctx, owner, model.CreateGroupRequest{Name: "Team", InviteeIDs: members})
	require.NoError(t, err)
	for _, uid := range members {
		require.NoError(t, f.store.Chats().AddMember(ctx, id, uid, model.MemberSnapshot{DisplayName: uid}))
	}
	return id
}

func (f *fixture) send(t *testing.T, viewer, chatID, text string) string {
	t.Helper()
	id, err := f.gateway.SendMessage(context.Background(), viewer, chatID, model.SendMessageRequest{Text: text})
	require.NoError(t, err)
	return id
}

func (f *fixture) message(t *testing.T, id string) *model.Message {
	t.Helper()
	msg, err := f.store.Messages().Get(context.Background(), id)
	require.NoError(t, err)
	return msg
}
