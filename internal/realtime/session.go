package realtime

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quocanhngo/firechat/internal/live"
	"github.com/quocanhngo/firechat/internal/model"
	"github.com/quocanhngo/firechat/internal/repository"
)

const (
	keyChats       = "chats"
	keyInvitations = "invitations"
	prefixUser     = "user:"
	prefixMessages = "messages:"
)

var (
	ErrChatNotOpen = errors.New("no conversation is open")
	ErrEmptyText   = errors.New("message text is empty")
)

// Emitter delivers events to the viewer's connection
type Emitter interface {
	Emit(event model.WSEvent)
}

// Sender is the part of the mutation gateway a session drives directly
type Sender interface {
	SendMessage(ctx context.Context, viewer, chatID string, req model.SendMessageRequest) (string, error)
}

// Config bounds the subscriptions one session may hold
type Config struct {
	MaxSubscriptions  int
	MaxUnreadCounters int
}

// conversation is the state of the chat the viewer has open.
// It is discarded when the chat is closed or switched.
type conversation struct {
	chatID    string
	peer      string
	reducer   *MessageReducer
	view      MessageReduction
	loaded    bool
	replyTo   string
	draft     string
	marking   bool
	// receipted holds unread ids already sent in a batch, until the
	// snapshot shows them read
	receipted map[string]bool
	releases  []func()
}

type receiptResult struct {
	chatID string
	ids    []string
	err    error
}

type sendResult struct {
	chatID string
	err    error
}

// Session owns every live subscription of one viewer connection.
// All state below is touched only by the Run goroutine.
type Session struct {
	viewer string
	repos  *repository.Repositories
	sender Sender
	out    Emitter
	cfg    Config
	log    zerolog.Logger

	ctx      context.Context
	registry *live.Registry
	events   chan live.Event
	commands chan func()
	receipts chan receiptResult
	sends    chan sendResult
	done     chan struct{}

	chats    map[string]model.Chat
	list     model.ChatListView
	users    map[string]*model.UserProfile
	messages map[string][]model.Message
	counters map[string]func()
	counts   map[string]int
	releases []func()
	open     *conversation
}

func NewSession(viewer string, repos *repository.Repositories, sender Sender, out Emitter, cfg Config, logger zerolog.Logger) *Session {
	return &Session{
		viewer:   viewer,
		repos:    repos,
		sender:   sender,
		out:      out,
		cfg:      cfg,
		log:      logger.With().Str("component", "session").Str("uid", viewer).Logger(),
		registry: live.NewRegistry(cfg.MaxSubscriptions),
		events:   make(chan live.Event, 16),
		commands: make(chan func(), 16),
		receipts: make(chan receiptResult, 4),
		sends:    make(chan sendResult, 4),
		done:     make(chan struct{}),
		chats:    make(map[string]model.Chat),
		users:    make(map[string]*model.UserProfile),
		messages: make(map[string][]model.Message),
		counters: make(map[string]func()),
		counts:   make(map[string]int),
	}
}

// Run is the session's event loop. It returns when ctx ends, after
// releasing every subscription.
func (s *Session) Run(ctx context.Context) {
	s.ctx = ctx
	defer close(s.done)
	defer s.shutdown()

	for _, acquire := range []func() (func(), error){
		func() (func(), error) { return s.watchUser(s.viewer) },
		s.watchChats,
		s.watchInvitations,
	} {
		release, err := acquire()
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to open session subscription")
			continue
		}
		s.releases = append(s.releases, release)
	}
	s.log.Info().Msg("🔌 Session started")

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.events:
			s.handleEvent(ev)
		case cmd := <-s.commands:
			cmd()
		case res := <-s.receipts:
			s.handleReceipts(res)
		case res := <-s.sends:
			if res.err != nil {
				s.log.Warn().Err(res.err).Str("chat", res.chatID).Msg("Send failed")
				s.emitError(res.err)
			}
		}
	}
}

// Done is closed once Run has returned
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) shutdown() {
	s.closeConversation()
	for id, release := range s.counters {
		release()
		delete(s.counters, id)
	}
	for _, release := range s.releases {
		release()
	}
	s.registry.Close()
	s.log.Info().Msg("🔌 Session closed")
}

// do queues fn on the event loop; it is dropped once the session ended
func (s *Session) do(fn func()) {
	select {
	case s.commands <- fn:
	case <-s.done:
	}
}

// ========== Commands from the connection ==========

// OpenChat switches the open conversation to chatID
func (s *Session) OpenChat(chatID string) {
	s.do(func() { s.openConversation(chatID) })
}

// CloseChat discards the open conversation
func (s *Session) CloseChat() {
	s.do(s.closeConversation)
}

// SetReply targets a visible message of the open conversation
func (s *Session) SetReply(messageID string) {
	s.do(func() {
		c := s.open
		if c == nil {
			s.emitError(ErrChatNotOpen)
			return
		}
		for _, m := range c.view.Messages {
			if m.ID == messageID && !m.IsDeleted {
				c.replyTo = messageID
				s.emitMessages()
				return
			}
		}
		s.emitError(repository.ErrNotFound)
	})
}

// ClearReply drops the reply target
func (s *Session) ClearReply() {
	s.do(func() {
		if s.open != nil && s.open.replyTo != "" {
			s.open.replyTo = ""
			s.emitMessages()
		}
	})
}

// SetDraft keeps the composer text for the open conversation
func (s *Session) SetDraft(text string) {
	s.do(func() {
		if s.open != nil {
			s.open.draft = text
		}
	})
}

// Send posts text to the open conversation. The composer is cleared
// before the write completes; a failure is reported as an error event.
func (s *Session) Send(text string) {
	s.do(func() {
		c := s.open
		if c == nil {
			s.emitError(ErrChatNotOpen)
			return
		}
		if c.peer != "" {
			if st := s.blockState(c.peer); !st.CanSend() {
				s.emitError(errors.New(st.Notice()))
				return
			}
		}
		if strings.TrimSpace(text) == "" {
			text = c.draft
		}
		if strings.TrimSpace(text) == "" {
			s.emitError(ErrEmptyText)
			return
		}
		req := model.SendMessageRequest{Text: text, ReplyToID: c.replyTo}
		c.replyTo = ""
		c.draft = ""
		c.reducer.ClearMarker()
		c.view.FirstUnread = ""
		s.emitMessages()

		chatID := c.chatID
		go func() {
			_, err := s.sender.SendMessage(s.ctx, s.viewer, chatID, req)
			select {
			case s.sends <- sendResult{chatID: chatID, err: err}:
			case <-s.ctx.Done():
			}
		}()
	})
}

// ========== Subscriptions ==========

func subscribe[T any](s *Session, key string, start func(ctx context.Context) *live.Subscription[T]) (func(), error) {
	return s.registry.Acquire(key, func() func() {
		ctx, cancel := context.WithCancel(s.ctx)
		sub := start(ctx)
		go live.Pump(ctx, key, sub, s.events)
		return func() {
			cancel()
			sub.Stop()
		}
	})
}

func (s *Session) watchUser(uid string) (func(), error) {
	return subscribe(s, prefixUser+uid, func(ctx context.Context) *live.Subscription[model.UserProfile] {
		return s.repos.Users.Watch(ctx, uid)
	})
}

func (s *Session) watchChats() (func(), error) {
	return subscribe(s, keyChats, func(ctx context.Context) *live.Subscription[model.Chat] {
		return s.repos.Chats.WatchForMember(ctx, s.viewer)
	})
}

func (s *Session) watchInvitations() (func(), error) {
	return subscribe(s, keyInvitations, func(ctx context.Context) *live.Subscription[model.Invitation] {
		return s.repos.Invitations.WatchPending(ctx, s.viewer)
	})
}

func (s *Session) watchMessages(chatID string) (func(), error) {
	return subscribe(s, prefixMessages+chatID, func(ctx context.Context) *live.Subscription[model.Message] {
		return s.repos.Messages.WatchChat(ctx, chatID)
	})
}

// forget drops cached snapshots of keys that are no longer open
func (s *Session) forget() {
	for id := range s.messages {
		if !s.registry.Has(prefixMessages + id) {
			delete(s.messages, id)
		}
	}
	for uid := range s.users {
		if !s.registry.Has(prefixUser + uid) {
			delete(s.users, uid)
		}
	}
}

// ========== Snapshot handling ==========

func (s *Session) handleEvent(ev live.Event) {
	if !s.registry.Has(ev.Key) {
		return
	}
	if ev.Err != nil {
		s.log.Error().Err(ev.Err).Str("key", ev.Key).Msg("Live query failed")
		s.warn("Lost connection to " + ev.Key)
		return
	}

	switch {
	case ev.Key == keyChats:
		chats, _ := ev.Items.([]model.Chat)
		s.onChats(chats)
	case ev.Key == keyInvitations:
		invs, _ := ev.Items.([]model.Invitation)
		s.out.Emit(model.WSEvent{Type: model.WSEventInvitations, Payload: InvitationList(s.viewer, invs)})
	case strings.HasPrefix(ev.Key, prefixUser):
		users, _ := ev.Items.([]model.UserProfile)
		s.onUser(strings.TrimPrefix(ev.Key, prefixUser), users)
	case strings.HasPrefix(ev.Key, prefixMessages):
		msgs, _ := ev.Items.([]model.Message)
		s.onMessages(strings.TrimPrefix(ev.Key, prefixMessages), msgs)
	}
}

func (s *Session) onChats(snapshot []model.Chat) {
	s.chats = make(map[string]model.Chat, len(snapshot))
	for _, c := range snapshot {
		s.chats[c.ID] = c
	}
	s.list = ChatList(s.viewer, snapshot)
	s.out.Emit(model.WSEvent{Type: model.WSEventChats, Payload: s.list})

	if c := s.open; c != nil {
		chat, ok := s.chats[c.chatID]
		if !ok {
			s.out.Emit(model.WSEvent{
				Type:    model.WSEventChatClosed,
				Payload: model.ChatClosedView{ChatID: c.chatID, Reason: "removed"},
			})
			s.closeConversation()
		} else {
			c.reducer.SetChat(chat)
			if c.loaded {
				s.applyMessages(c, s.messages[c.chatID])
			}
		}
	}
	s.syncCounters()
}

// syncCounters keeps one unread counter per chat in the window
func (s *Session) syncCounters() {
	want := make(map[string]bool)
	for _, id := range counterWindow(s.list, s.cfg.MaxUnreadCounters) {
		want[id] = true
	}

	for id, release := range s.counters {
		if !want[id] {
			release()
			delete(s.counters, id)
			delete(s.counts, id)
		}
	}
	for _, id := range counterWindow(s.list, s.cfg.MaxUnreadCounters) {
		if _, ok := s.counters[id]; ok {
			continue
		}
		release, err := s.watchMessages(id)
		if err != nil {
			s.log.Warn().Err(err).Str("chat", id).Msg("Unread counter not started")
			break
		}
		s.counters[id] = release
		if msgs, ok := s.messages[id]; ok {
			s.updateCount(id, msgs)
		}
	}
	s.forget()
}

func (s *Session) onUser(uid string, snapshot []model.UserProfile) {
	if len(snapshot) == 0 {
		delete(s.users, uid)
	} else {
		u := snapshot[0]
		s.users[uid] = &u
	}

	if uid == s.viewer {
		if p := s.users[uid]; p != nil {
			s.out.Emit(model.WSEvent{
				Type:    model.WSEventProfile,
				Payload: model.ProfileView{Profile: *p, NeedsPassword: !p.HasSetPassword},
			})
		}
	}
	if c := s.open; c != nil && c.peer != "" && (uid == s.viewer || uid == c.peer) {
		s.out.Emit(model.WSEvent{Type: model.WSEventBlockState, Payload: s.blockState(c.peer).View(c.chatID)})
	}
}

func (s *Session) blockState(peer string) BlockState {
	return ComputeBlockState(s.viewer, peer, s.users[s.viewer], s.users[peer])
}

func (s *Session) onMessages(chatID string, snapshot []model.Message) {
	s.messages[chatID] = snapshot
	if _, ok := s.counters[chatID]; ok {
		s.updateCount(chatID, snapshot)
	}
	if c := s.open; c != nil && c.chatID == chatID {
		s.applyMessages(c, snapshot)
	}
}

func (s *Session) updateCount(chatID string, snapshot []model.Message) {
	n := UnreadCount(s.viewer, snapshot)
	if prev, ok := s.counts[chatID]; ok && prev == n {
		return
	}
	s.counts[chatID] = n
	s.out.Emit(model.WSEvent{Type: model.WSEventUnread, Payload: unreadView(chatID, n)})
}

func (s *Session) applyMessages(c *conversation, snapshot []model.Message) {
	c.view = c.reducer.Reduce(snapshot)
	c.loaded = true
	s.emitMessages()

	s.commitReceipts(c)
}

// commitReceipts sends one batch for the unread ids not already sent.
// Only one batch per conversation is in flight at a time.
func (s *Session) commitReceipts(c *conversation) {
	if c.marking {
		return
	}
	if c.receipted == nil {
		c.receipted = make(map[string]bool)
	}
	unread := make(map[string]bool, len(c.view.Unread))
	var pending []string
	for _, id := range c.view.Unread {
		unread[id] = true
		if !c.receipted[id] {
			pending = append(pending, id)
		}
	}
	for id := range c.receipted {
		if !unread[id] {
			delete(c.receipted, id)
		}
	}
	if len(pending) == 0 {
		return
	}
	for _, id := range pending {
		c.receipted[id] = true
	}
	c.marking = true
	s.markRead(c.chatID, pending)
}

// markRead commits receipts off the loop; the result comes back on s.receipts
func (s *Session) markRead(chatID string, ids []string) {
	ids = append([]string(nil), ids...)
	go func() {
		err := s.repos.Messages.MarkRead(s.ctx, s.viewer, ids)
		select {
		case s.receipts <- receiptResult{chatID: chatID, ids: ids, err: err}:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Session) handleReceipts(res receiptResult) {
	if res.err != nil {
		s.log.Warn().Err(res.err).Str("chat", res.chatID).Msg("Read receipts not committed")
		s.warn("Could not mark messages as read")
	}
	c := s.open
	if c == nil || c.chatID != res.chatID {
		return
	}
	c.marking = false
	if res.err != nil {
		// the next snapshot re-attempts these
		for _, id := range res.ids {
			delete(c.receipted, id)
		}
		return
	}
	// ids that arrived while the batch was in flight
	s.commitReceipts(c)
}

// ========== Conversation lifecycle ==========

func (s *Session) openConversation(chatID string) {
	if s.open != nil && s.open.chatID == chatID {
		s.emitMessages()
		return
	}
	chat, ok := s.chats[chatID]
	if !ok {
		s.emitError(repository.ErrNotFound)
		return
	}
	s.closeConversation()

	c := &conversation{
		chatID:  chatID,
		reducer: NewMessageReducer(s.viewer, chat),
	}
	if !chat.IsGroup() {
		c.peer = chat.Peer(s.viewer)
	}

	release, err := s.watchMessages(chatID)
	if err != nil {
		s.log.Warn().Err(err).Str("chat", chatID).Msg("Cannot open conversation")
		s.emitError(err)
		return
	}
	c.releases = append(c.releases, release)

	if c.peer != "" {
		release, err := s.watchUser(c.peer)
		if err != nil {
			for _, r := range c.releases {
				r()
			}
			s.forget()
			s.emitError(err)
			return
		}
		c.releases = append(c.releases, release)
	}

	s.open = c
	s.log.Debug().Str("chat", chatID).Msg("Conversation opened")

	// a shared subscription will not re-deliver its current snapshot
	if msgs, ok := s.messages[chatID]; ok {
		s.applyMessages(c, msgs)
	}
	if c.peer != "" {
		if _, ok := s.users[c.peer]; ok {
			s.out.Emit(model.WSEvent{Type: model.WSEventBlockState, Payload: s.blockState(c.peer).View(chatID)})
		}
	}
}

func (s *Session) closeConversation() {
	c := s.open
	if c == nil {
		return
	}
	s.open = nil
	for _, release := range c.releases {
		release()
	}
	s.forget()
	s.log.Debug().Str("chat", c.chatID).Msg("Conversation closed")
}

// ========== Output ==========

func (s *Session) emitMessages() {
	c := s.open
	if c == nil || !c.loaded {
		return
	}
	s.out.Emit(model.WSEvent{
		Type: model.WSEventMessages,
		Payload: model.MessageListView{
			ChatID:        c.chatID,
			Messages:      c.view.Messages,
			FirstUnreadID: c.view.FirstUnread,
			ReplyToID:     c.replyTo,
			Draft:         c.draft,
		},
	})
}

func (s *Session) warn(msg string) {
	s.out.Emit(model.WSEvent{Type: model.WSEventWarning, Payload: model.WarningView{Message: msg}})
}

func (s *Session) emitError(err error) {
	s.out.Emit(model.WSEvent{
		Type:    model.WSEventError,
		Payload: model.ErrorResponse{Error: err.Error()},
	})
}
