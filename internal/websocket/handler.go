package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/toolshub/internal/auth"
)

// HandleWebSocket returns an HTTP handler that upgrades connections and runs
// them as Hub clients. originPatterns lists the hosts allowed to connect
// cross-origin.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		NewClient(hub, conn, auth.UserID(r.Context())).Run(r.Context())
	}
}
