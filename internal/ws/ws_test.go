package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quocanhngo/firechat/internal/model"
)

type presence struct {
	mu     sync.Mutex
	status map[string]bool
}

func (p *presence) set(uid string, online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status[uid] = online
}

func (p *presence) get(uid string) (bool, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	online, ok := p.status[uid]
	return online, ok
}

func startHub(t *testing.T) (*Hub, *presence) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	p := &presence{status: map[string]bool{}}
	hub := NewHub(rdb, p.set, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(Channel)[Channel] == 1
	}, 2*time.Second, 5*time.Millisecond, "hub never subscribed")
	return hub, p
}

func localClient(hub *Hub, uid string) *Client {
	return &Client{hub: hub, UID: uid, log: zerolog.Nop(), send: make(chan []byte, 8)}
}

func receive(t *testing.T, c *Client) model.WSEvent {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var ev model.WSEvent
		require.NoError(t, json.Unmarshal(data, &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
		return model.WSEvent{}
	}
}

func TestHubDeliversTargetedEvents(t *testing.T) {
	hub, _ := startHub(t)
	alice := localClient(hub, "alice")
	bob := localClient(hub, "bob")
	require.True(t, hub.Register(alice))
	require.True(t, hub.Register(bob))

	hub.SendToUser("alice", &model.WSEvent{Type: model.WSEventWarning, Payload: model.WarningView{Message: "hi"}})

	ev := receive(t, alice)
	assert.Equal(t, model.WSEventWarning, ev.Type)
	assert.Empty(t, bob.send)
}

func TestHubSignedOutClosesConnections(t *testing.T) {
	hub, _ := startHub(t)
	tab1 := localClient(hub, "alice")
	tab2 := localClient(hub, "alice")
	require.True(t, hub.Register(tab1))
	require.True(t, hub.Register(tab2))

	hub.SendToUser("alice", &model.WSEvent{Type: model.WSEventSignedOut})

	for _, c := range []*Client{tab1, tab2} {
		assert.Equal(t, model.WSEventSignedOut, receive(t, c).Type)
		_, ok := <-c.send
		assert.False(t, ok)
	}
	// emitting after sign-out is a no-op
	tab1.Emit(model.WSEvent{Type: model.WSEventWarning})
}

func TestHubPresence(t *testing.T) {
	hub, p := startHub(t)
	tab1 := localClient(hub, "alice")
	tab2 := localClient(hub, "alice")

	hub.Register(tab1)
	hub.Register(tab2)
	require.Eventually(t, func() bool {
		online, ok := p.get("alice")
		return ok && online
	}, time.Second, 5*time.Millisecond)
	assert.True(t, hub.IsUserOnline("alice"))

	hub.Unregister(tab1)
	online, _ := p.get("alice")
	assert.True(t, online)

	hub.Unregister(tab2)
	require.Eventually(t, func() bool {
		online, _ := p.get("alice")
		return !online
	}, time.Second, 5*time.Millisecond)
	assert.False(t, hub.IsUserOnline("alice"))
}

func TestClientBufferOverflowDropsConnection(t *testing.T) {
	c := &Client{UID: "alice", log: zerolog.Nop(), send: make(chan []byte, 1)}
	assert.True(t, c.enqueue([]byte("1")))
	assert.False(t, c.enqueue([]byte("2")))
	assert.False(t, c.enqueue([]byte("3")))
	c.closeSend()
}

type recordedCommands struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordedCommands) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recordedCommands) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordedCommands) OpenChat(id string)   { r.add("open:" + id) }
func (r *recordedCommands) CloseChat()           { r.add("close") }
func (r *recordedCommands) SetReply(id string)   { r.add("reply:" + id) }
func (r *recordedCommands) ClearReply()          { r.add("clear_reply") }
func (r *recordedCommands) SetDraft(text string) { r.add("draft:" + text) }
func (r *recordedCommands) Send(text string)     { r.add("send:" + text) }

func TestDispatch(t *testing.T) {
	cmds := &recordedCommands{}
	events := []string{
		`{"type":"open_chat","payload":{"chat_id":"c1"}}`,
		`{"type":"set_reply","payload":{"message_id":"m1"}}`,
		`{"type":"draft","payload":{"text":"typing"}}`,
		`{"type":"send_message","payload":{"text":"hello"}}`,
		`{"type":"clear_reply"}`,
		`{"type":"close_chat"}`,
	}
	for _, raw := range events {
		var ev inbound
		require.NoError(t, json.Unmarshal([]byte(raw), &ev))
		require.NoError(t, dispatch(cmds, ev))
	}
	assert.Equal(t, []string{"open:c1", "reply:m1", "draft:typing", "send:hello", "clear_reply", "close"}, cmds.list())

	assert.Error(t, dispatch(cmds, inbound{Type: "call_offer"}))
	assert.Error(t, dispatch(cmds, inbound{Type: model.WSEventOpenChat}))
	assert.Error(t, dispatch(cmds, inbound{Type: model.WSEventDraft, Payload: json.RawMessage(`[1]`)}))
}

func TestClientRoundTrip(t *testing.T) {
	hub, _ := startHub(t)
	cmds := &recordedCommands{}
	upgrader := websocket.Upgrader{}
	connected := make(chan *Client, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		client := NewClient(hub, conn, "alice", zerolog.Nop())
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump(cmds)
		connected <- client
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	client := <-connected

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "open_chat", "payload": map[string]string{"chat_id": "c9"}}))
	require.Eventually(t, func() bool { return len(cmds.list()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "open:c9", cmds.list()[0])

	client.Emit(model.WSEvent{Type: model.WSEventChats, Payload: model.ChatListView{Chats: []model.ChatSummary{}}})
	var ev model.WSEvent
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, model.WSEventChats, ev.Type)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, model.WSEventError, ev.Type)
}
