package userws

import (
	"net/http"
	"slices"

	httpadapter "blogsmith/internal/adapters/http"
	"blogsmith/internal/logger"

	"github.com/gorilla/websocket"
)

type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	log      logger.Logger
}

func NewHandler(hub *Hub, log logger.Logger, allowedOrigins []string) *Handler {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			if !slices.Contains(allowedOrigins, origin) {
				log.Warn("ws auth: origin rejected", "origin", origin)
				return false
			}
			return true
		},
	}

	return &Handler{
		hub:      hub,
		upgrader: upgrader,
		log:      log,
	}
}

// ServeHTTP upgrades the connection for the authenticated owner. It is
// mounted behind the auth middleware, which already resolved the owner.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ownerID := httpadapter.OwnerID(r.Context())
	if ownerID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("ws: upgrade failed", "error", err)
		return
	}

	NewClient(h.hub, conn, h.log, ownerID).Start()
}
