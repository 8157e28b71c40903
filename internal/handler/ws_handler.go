package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quocanhngo/firechat/internal/middleware"
	"github.com/quocanhngo/firechat/internal/realtime"
	"github.com/quocanhngo/firechat/internal/repository"
	"github.com/quocanhngo/firechat/internal/ws"
)

// WSHandler upgrades connections and gives each one its own session
type WSHandler struct {
	hub      *ws.Hub
	authn    middleware.Authenticator
	repos    *repository.Repositories
	sender   realtime.Sender
	cfg      realtime.Config
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(
	hub *ws.Hub,
	authn middleware.Authenticator,
	repos *repository.Repositories,
	sender realtime.Sender,
	cfg realtime.Config,
	origins []string,
	logger zerolog.Logger,
) *WSHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &WSHandler{
		hub:    hub,
		authn:  authn,
		repos:  repos,
		sender: sender,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
		log: logger.With().Str("component", "ws_handler").Logger(),
	}
}

// HandleWebSocket upgrades HTTP to WebSocket and runs the viewer's session
// Client connects with: ws://host/ws?token=<jwt_token>
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// browsers cannot set headers on a WebSocket handshake
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}
	claims, err := h.authn.Authenticate(c.Request.Context(), token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UID, h.log)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}
	session := realtime.NewSession(claims.UID, h.repos, h.sender, client, h.cfg, h.log)

	// the session outlives the request; it ends with the connection
	ctx, cancel := context.WithCancel(context.Background())
	go session.Run(ctx)
	go client.WritePump()
	go func() {
		defer cancel()
		client.ReadPump(session)
	}()

	h.log.Info().Str("uid", claims.UID).Msg("✅ WS Connected")
}
