package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

var serverUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebSocketHandler returns an http.HandlerFunc that upgrades each incoming
// connection to a websocket and serves server over it for the connection's
// lifetime, for environments that want a long-lived duplex MCP connection
// instead of a subprocess.
func WebSocketHandler(server *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := serverUpgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Default().Error("mcp websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()
		serveWebSocketConn(r.Context(), server, conn)
	}
}

func serveWebSocketConn(ctx context.Context, server *Server, conn *websocket.Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Default().Warn("mcp websocket read error", "error", err)
			}
			return
		}

		resp, handled := dispatchLine(ctx, server, message)
		if !handled {
			continue
		}
		data, err := json.Marshal(resp)
		if err != nil {
			slog.Default().Error("marshal mcp response", "error", err)
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			slog.Default().Error("mcp websocket write error", "error", err)
			return
		}
	}
}
