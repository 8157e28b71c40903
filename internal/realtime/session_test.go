package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/repository"
	"github.com/quocanhngo/firechat/internal/repository/memrepo"
)

const waitFor = 2 * time.Second

type recorder struct {
	mu     sync.Mutex
	events []model.WSEvent
}

func (r *recorder) Emit(event model.WSEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// last returns the newest event of type typ matching ok
func (r *recorder) last(typ string, ok func(model.WSEvent) bool) (model.WSEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if ev := r.events[i]; ev.Type == typ && (ok == nil || ok(ev)) {
			return ev, true
		}
	}
	return model.WSEvent{}, false
}

func (r *recorder) wait(t *testing.T, typ string, ok func(model.WSEvent) bool) model.WSEvent {
	t.Helper()
	var found model.WSEvent
	require.Eventually(t, func() bool {
		ev, hit := r.last(typ, ok)
		found = ev
		return hit
	}, waitFor, 5*time.Millisecond, "no %s event", typ)
	return found
}

type stubSender struct {
	mu    sync.Mutex
	store *memrepo.Store
	reqs  []model.SendMessageRequest
}

func (s *stubSender) SendMessage(ctx context.Context, viewer, chatID string, req model.SendMessageRequest) (string, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	return s.store.Messages().Create(ctx, &model.Message{ChatID: chatID, SenderID: viewer, Text: req.Text, Type: model.MessageTypeText})
}

func (s *stubSender) requests() []model.SendMessageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SendMessageRequest(nil), s.reqs...)
}

type harness struct {
	store   *memrepo.Store
	out     *recorder
	sender  *stubSender
	session *Session
	cancel  context.CancelFunc
}

func startSession(t *testing.T, viewer string, seed func(s *memrepo.Store)) *harness {
	t.Helper()
	return startSessionWith(t, viewer, seed, nil)
}

// startSessionWith lets wrap replace repositories before the session starts
func startSessionWith(t *testing.T, viewer string, seed func(s *memrepo.Store), wrap func(*repository.Repositories)) *harness {
	t.Helper()
	store := memrepo.New()
	for _, uid := range []string{"alice", "bob", "carol"} {
		store.Users().Put(model.UserProfile{UID: uid, DisplayName: uid, Email: uid + "@example.com"})
	}
	if seed != nil {
		seed(store)
	}

	h := &harness{store: store, out: &recorder{}, sender: &stubSender{store: store}}
	cfg := Config{MaxSubscriptions: 32, MaxUnreadCounters: 10}
	repos := store.Repositories()
	if wrap != nil {
		wrap(repos)
	}
	h.session = NewSession(viewer, repos, h.sender, h.out, cfg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go h.session.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.session.Done()
	})
	return h
}

func (h *harness) createChat(t *testing.T, chat *model.Chat) string {
	t.Helper()
	id, err := h.store.Chats().Create(context.Background(), chat)
	require.NoError(t, err)
	return id
}

func (h *harness) waitChats(t *testing.T, n int) {
	t.Helper()
	h.out.wait(t, model.WSEventChats, func(ev model.WSEvent) bool {
		return len(ev.Payload.(model.ChatListView).Chats) == n
	})
}

func direct(a, b string) *model.Chat {
	return &model.Chat{Type: model.ChatTypeOneToOne, Members: []string{a, b}}
}

func TestSessionEmitsProfileAndChats(t *testing.T) {
	h := startSession(t, "alice", nil)
	h.createChat(t, direct("alice", "bob"))

	ev := h.out.wait(t, model.WSEventProfile, nil)
	view := ev.Payload.(model.ProfileView)
	assert.Equal(t, "alice", view.Profile.UID)
	assert.True(t, view.NeedsPassword)

	h.waitChats(t, 1)
	h.out.wait(t, model.WSEventInvitations, nil)

	require.NoError(t, h.store.Users().SetHasPassword(context.Background(), "alice", true))
	h.out.wait(t, model.WSEventProfile, func(ev model.WSEvent) bool {
		return !ev.Payload.(model.ProfileView).NeedsPassword
	})
}

func TestSessionOpenChatCommitsReceipts(t *testing.T) {
	h := startSession(t, "alice", nil)
	ctx := context.Background()
	chatID := h.createChat(t, direct("alice", "bob"))
	msgID, err := h.store.Messages().Create(ctx, &model.Message{ChatID: chatID, SenderID: "bob", Text: "hi"})
	require.NoError(t, err)
	h.waitChats(t, 1)

	h.session.OpenChat(chatID)

	ev := h.out.wait(t, model.WSEventMessages, nil)
	list := ev.Payload.(model.MessageListView)
	assert.Equal(t, chatID, list.ChatID)
	require.Len(t, list.Messages, 1)
	assert.Equal(t, msgID, list.FirstUnreadID)

	require.Eventually(t, func() bool {
		msg, err := h.store.Messages().Get(ctx, msgID)
		return err == nil && !msg.IsUnreadBy("alice")
	}, waitFor, 5*time.Millisecond)

	// the divider stays where it was after the receipts land
	h.out.wait(t, model.WSEventMessages, func(ev model.WSEvent) bool {
		l := ev.Payload.(model.MessageListView)
		return len(l.Messages) == 1 && !l.Messages[0].IsUnread && l.FirstUnreadID == msgID
	})
}

// heldReceipts blocks the first MarkRead until release is closed
type heldReceipts struct {
	repository.MessageRepository
	once    sync.Once
	held    chan struct{}
	release chan struct{}
}

func (m *heldReceipts) MarkRead(ctx context.Context, uid string, ids []string) error {
	first := false
	m.once.Do(func() { first = true })
	if first {
		close(m.held)
		<-m.release
	}
	return m.MessageRepository.MarkRead(ctx, uid, ids)
}

func TestSessionCommitsReceiptsArrivingDuringBatch(t *testing.T) {
	gate := &heldReceipts{held: make(chan struct{}), release: make(chan struct{})}
	h := startSessionWith(t, "alice", nil, func(r *repository.Repositories) {
		gate.MessageRepository = r.Messages
		r.Messages = gate
	})
	ctx := context.Background()
	chatID := h.createChat(t, direct("alice", "bob"))
	first, err := h.store.Messages().Create(ctx, &model.Message{ChatID: chatID, SenderID: "bob", Text: "a"})
	require.NoError(t, err)
	h.waitChats(t, 1)

	h.session.OpenChat(chatID)
	select {
	case <-gate.held:
	case <-time.After(waitFor):
		t.Fatal("receipt batch never started")
	}

	second, err := h.store.Messages().Create(ctx, &model.Message{ChatID: chatID, SenderID: "bob", Text: "b"})
	require.NoError(t, err)
	h.out.wait(t, model.WSEventMessages, func(ev model.WSEvent) bool {
		return len(ev.Payload.(model.MessageListView).Messages) == 2
	})
	close(gate.release)

	for _, id := range []string{first, second} {
		id := id
		require.Eventually(t, func() bool {
			msg, err := h.store.Messages().Get(ctx, id)
			return err == nil && !msg.IsUnreadBy("alice")
		}, waitFor, 5*time.Millisecond, "message %s stays unread", id)
	}
	require.Eventually(t, func() bool {
		ev, ok := h.out.last(model.WSEventUnread, func(ev model.WSEvent) bool {
			return ev.Payload.(model.UnreadView).ChatID == chatID
		})
		return ok && ev.Payload.(model.UnreadView).Count == 0
	}, waitFor, 5*time.Millisecond)
}

func TestSessionReceiptFailureWarns(t *testing.T) {
	h := startSession(t, "alice", nil)
	ctx := context.Background()
	chatID := h.createChat(t, direct("alice", "bob"))
	_, err := h.store.Messages().Create(ctx, &model.Message{ChatID: chatID, SenderID: "bob", Text: "hi"})
	require.NoError(t, err)
	h.waitChats(t, 1)

	h.store.FailNext("messages.MarkRead", errors.New("unavailable"))
	h.session.OpenChat(chatID)

	ev := h.out.wait(t, model.WSEventWarning, nil)
	assert.Equal(t, "Could not mark messages as read", ev.Payload.(model.WarningView).Message)
}

func TestSessionClosesDeletedChat(t *testing.T) {
	h := startSession(t, "bob", nil)
	groupID := h.createChat(t, &model.Chat{
		Type:      model.ChatTypeGroup,
		Name:      "Team",
		CreatorID: "alice",
		Members:   []string{"alice", "bob"},
	})
	h.waitChats(t, 1)
	h.session.OpenChat(groupID)
	h.out.wait(t, model.WSEventMessages, nil)

	require.NoError(t, h.store.Chats().Delete(context.Background(), groupID))

	ev := h.out.wait(t, model.WSEventChatClosed, nil)
	assert.Equal(t, model.ChatClosedView{ChatID: groupID, Reason: "removed"}, ev.Payload)
	h.waitChats(t, 0)
}

func TestSessionUnreadCounters(t *testing.T) {
	h := startSession(t, "alice", nil)
	ctx := context.Background()
	chatID := h.createChat(t, direct("alice", "bob"))
	h.waitChats(t, 1)
	h.out.wait(t, model.WSEventUnread, func(ev model.WSEvent) bool {
		return ev.Payload.(model.UnreadView).Count == 0
	})

	_, err := h.store.Messages().Create(ctx, &model.Message{ChatID: chatID, SenderID: "bob", Text: "one"})
	require.NoError(t, err)
	_, err = h.store.Messages().Create(ctx, &model.Message{ChatID: chatID, SenderID: "bob", Text: "two"})
	require.NoError(t, err)

	ev := h.out.wait(t, model.WSEventUnread, func(ev model.WSEvent) bool {
		return ev.Payload.(model.UnreadView).Count == 2
	})
	assert.Equal(t, model.UnreadView{ChatID: chatID, Count: 2, Badge: "2"}, ev.Payload)

	// opening the chat reads everything
	h.session.OpenChat(chatID)
	h.out.wait(t, model.WSEventUnread, func(ev model.WSEvent) bool {
		v := ev.Payload.(model.UnreadView)
		return v.ChatID == chatID && v.Count == 0
	})
}

func TestSessionBlockStateStopsSend(t *testing.T) {
	h := startSession(t, "alice", nil)
	ctx := context.Background()
	chatID := h.createChat(t, direct("alice", "bob"))
	h.waitChats(t, 1)
	h.session.OpenChat(chatID)
	h.out.wait(t, model.WSEventBlockState, func(ev model.WSEvent) bool {
		return ev.Payload.(model.BlockStateView).CanSend
	})

	require.NoError(t, h.store.Users().AddBlocked(ctx, "bob", "alice"))
	ev := h.out.wait(t, model.WSEventBlockState, func(ev model.WSEvent) bool {
		return ev.Payload.(model.BlockStateView).HasBlockedMe
	})
	view := ev.Payload.(model.BlockStateView)
	assert.False(t, view.CanSend)
	assert.Equal(t, NoticeBlockedByPeer, view.Notice)

	h.session.Send("hello?")
	errEv := h.out.wait(t, model.WSEventError, nil)
	assert.Equal(t, NoticeBlockedByPeer, errEv.Payload.(model.ErrorResponse).Error)
	assert.Empty(t, h.sender.requests())
}

func TestSessionSendUsesComposer(t *testing.T) {
	h := startSession(t, "alice", nil)
	ctx := context.Background()
	chatID := h.createChat(t, direct("alice", "bob"))
	orig, err := h.store.Messages().Create(ctx, &model.Message{ChatID: chatID, SenderID: "bob", Text: "question"})
	require.NoError(t, err)
	h.waitChats(t, 1)
	h.session.OpenChat(chatID)
	h.out.wait(t, model.WSEventMessages, func(ev model.WSEvent) bool {
		l := ev.Payload.(model.MessageListView)
		return len(l.Messages) == 1 && !l.Messages[0].IsUnread
	})

	h.session.SetReply(orig)
	h.out.wait(t, model.WSEventMessages, func(ev model.WSEvent) bool {
		return ev.Payload.(model.MessageListView).ReplyToID == orig
	})
	h.session.SetDraft("draft answer")
	h.session.Send("")

	require.Eventually(t, func() bool { return len(h.sender.requests()) == 1 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, model.SendMessageRequest{Text: "draft answer", ReplyToID: orig}, h.sender.requests()[0])

	h.out.wait(t, model.WSEventMessages, func(ev model.WSEvent) bool {
		l := ev.Payload.(model.MessageListView)
		return len(l.Messages) == 2 && l.ReplyToID == "" && l.Draft == "" && l.FirstUnreadID == ""
	})
}

func TestSessionSendWithoutOpenChat(t *testing.T) {
	h := startSession(t, "alice", nil)
	h.session.Send("hi")

	ev := h.out.wait(t, model.WSEventError, nil)
	assert.Equal(t, ErrChatNotOpen.Error(), ev.Payload.(model.ErrorResponse).Error)
}

func TestSessionReleasesSubscriptionsOnExit(t *testing.T) {
	h := startSession(t, "alice", nil)
	chatID := h.createChat(t, direct("alice", "bob"))
	h.waitChats(t, 1)
	h.session.OpenChat(chatID)
	h.out.wait(t, model.WSEventMessages, nil)
	assert.Positive(t, h.store.Watchers())

	h.cancel()
	<-h.session.Done()
	assert.Eventually(t, func() bool { return h.store.Watchers() == 0 }, waitFor, 5*time.Millisecond)
}
