package httpapi

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"

	"go.uber.org/zap"

	"platform-party-server/internal/hub"
	"platform-party-server/internal/lobby"
	"platform-party-server/internal/protocol"
	"platform-party-server/internal/room"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateRoom mints a collision-free room code. The room actor itself is
// created by the first websocket join, so an unused code costs nothing.
func CreateRoom(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				http.Error(w, "failed to generate code", http.StatusInternalServerError)
				return
			}
			reply := make(chan *room.Room, 1)
			h.Inbox() <- hub.GetRoom{Code: c, Reply: reply}
			if <-reply == nil {
				code = c
				break
			}
			log.Info("collision on code, regenerating")
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Code string `json:"code"`
		}{Code: code})
	}
}

// ListRooms serves the lobby's room list as plain JSON, the same shape the
// websocket push uses, for clients without a persistent connection.
func ListRooms(l *lobby.Lobby) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan []protocol.RoomSummary, 1)
		l.Inbox() <- lobby.Snapshot{Reply: reply}
		rooms := <-reply

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			Type  string                 `json:"type"`
			Rooms []protocol.RoomSummary `json:"rooms"`
		}{Type: protocol.TypeRoomList, Rooms: rooms})
	}
}

// NotifyRoom is the server-to-server registration endpoint: room processes
// hosted elsewhere can push CREATED/UPDATED/CLOSED summaries into this
// lobby's directory.
func NotifyRoom(l *lobby.Lobby, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var n protocol.RoomNotification
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}

		switch n.Type {
		case protocol.TypeRoomCreated, protocol.TypeRoomUpdated:
			if n.Room == nil || n.Room.RoomID == "" {
				http.Error(w, "missing room", http.StatusBadRequest)
				return
			}
			l.Inbox() <- lobby.Upsert{Summary: *n.Room}
		case protocol.TypeRoomClosed:
			if n.RoomID == "" {
				http.Error(w, "missing roomId", http.StatusBadRequest)
				return
			}
			l.Inbox() <- lobby.Remove{RoomID: n.RoomID}
		default:
			log.Warn("unknown room notification", zap.String("type", n.Type))
			http.Error(w, "unknown type", http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
