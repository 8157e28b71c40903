package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quocanhngo/firechat/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; drafts can be long
	maxMessageSize = 16 * 1024

	sendBuffer = 256
)

// Commands is what a connection can ask its session to do
type Commands interface {
	OpenChat(chatID string)
	CloseChat()
	SetReply(messageID string)
	ClearReply()
	SetDraft(text string)
	Send(text string)
}

// Client represents a single WebSocket connection
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	log  zerolog.Logger
	UID  string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, uid string, logger zerolog.Logger) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		log:  logger.With().Str("component", "ws").Str("uid", uid).Logger(),
		UID:  uid,
		send: make(chan []byte, sendBuffer),
	}
}

// Emit queues an event for the connection. It is safe to call after the
// connection closed; the event is dropped.
func (c *Client) Emit(event model.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		c.log.Error().Err(err).Str("type", event.Type).Msg("Error marshaling event")
		return
	}
	c.enqueue(data)
}

// enqueue hands data to WritePump. A full buffer means the peer stopped
// reading, so the connection is dropped.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		c.log.Warn().Msg("Send buffer full, closing connection")
		c.closed = true
		close(c.send)
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// inbound is a client event whose payload is decoded per type
type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ReadPump pumps messages from the WebSocket connection into cmds.
// Runs in a per-client goroutine and unregisters the client on exit.
func (c *Client) ReadPump(cmds Commands) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}

		var event inbound
		if err := json.Unmarshal(message, &event); err != nil {
			c.log.Debug().Err(err).Msg("Error parsing WebSocket message")
			c.Emit(errorEvent("malformed event"))
			continue
		}
		if err := dispatch(cmds, event); err != nil {
			c.log.Debug().Err(err).Str("type", event.Type).Msg("Rejected WebSocket event")
			c.Emit(errorEvent(err.Error()))
		}
	}
}

// dispatch routes one client event to the session
func dispatch(cmds Commands, event inbound) error {
	switch event.Type {
	case model.WSEventOpenChat:
		var p model.OpenChatEvent
		if err := decode(event, &p); err != nil {
			return err
		}
		if p.ChatID == "" {
			return fmt.Errorf("%s: chat_id is required", event.Type)
		}
		cmds.OpenChat(p.ChatID)
	case model.WSEventCloseChat:
		cmds.CloseChat()
	case model.WSEventSetReply:
		var p model.SetReplyEvent
		if err := decode(event, &p); err != nil {
			return err
		}
		cmds.SetReply(p.MessageID)
	case model.WSEventClearReply:
		cmds.ClearReply()
	case model.WSEventDraft:
		var p model.DraftEvent
		if err := decode(event, &p); err != nil {
			return err
		}
		cmds.SetDraft(p.Text)
	case model.WSEventSendMessage:
		var p model.SendMessageEvent
		if err := decode(event, &p); err != nil {
			return err
		}
		cmds.Send(p.Text)
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
	return nil
}

func decode(event inbound, v interface{}) error {
	if len(event.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(event.Payload, v); err != nil {
		return fmt.Errorf("%s: invalid payload", event.Type)
	}
	return nil
}

func errorEvent(msg string) model.WSEvent {
	return model.WSEvent{Type: model.WSEventError, Payload: model.ErrorResponse{Error: msg}}
}

// WritePump pumps queued events to the WebSocket connection
// Runs in a per-client goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub or session closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one event per frame; clients parse each frame as JSON
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
