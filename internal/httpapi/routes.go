package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"platform-party-server/internal/config"
	"platform-party-server/internal/hub"
	"platform-party-server/internal/lobby"
	"platform-party-server/internal/ws"
)

func SetupRoutes(h *hub.Hub, l *lobby.Lobby, cfg config.Config, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Browser clients poll the lobby from arbitrary origins; preflight is
	// handled here so the handlers never see OPTIONS.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}))

	// Public routes
	r.Post("/rooms", CreateRoom(h, log))
	r.Get("/rooms", ListRooms(l))
	r.Post("/rooms/notify", NotifyRoom(l, log))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.RoomHandler(h, cfg.AllowedOrigins, log))
	r.Get("/lobby/ws", ws.LobbyHandler(l, cfg.AllowedOrigins, log))
	return r
}
