package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"status-image/src/internal/gateway"
)

// handleWebsocket pushes a status snapshot right away and then every
// server.stream_interval until the client goes away.
func (s *Server) handleWebsocket(c *gin.Context) {
	gw := c.MustGet("gateway").(*gateway.Gateway)

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
	if _, ok := c.Get("ws_key_protocol"); ok {
		upgrader.Subprotocols = []string{keyProtocol}
	}
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	interval := gw.Config.Server.StreamInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	// The reader only exists to notice the close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := ws.WriteJSON(gin.H{"type": "status", "status": gw.Plugin.Snapshot(ctx)}); err != nil {
			slog.Debug("ws write failed", "error", err)
			return
		}
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
