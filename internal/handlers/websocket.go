// handlers/websocket.go
package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/saraspatika/absensi_backend/internal/middleware"
	"github.com/saraspatika/absensi_backend/internal/services/live"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveFeedHandler upgrades the connection and subscribes it to the
// attendance event feed.
func LiveFeedHandler(hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.GetUserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "invalid user", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Print("Upgrade error:", err)
			return
		}

		client := &live.Client{
			Conn:   conn,
			Send:   make(chan []byte, 256),
			UserID: userID,
		}

		hub.Register(client)

		go hub.ReadPump(client)
		go hub.WritePump(client)
	}
}
