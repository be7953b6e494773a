package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"platform-party-server/internal/hub"
	"platform-party-server/internal/lobby"
	"platform-party-server/internal/protocol"
	"platform-party-server/internal/room"
)

const writeTimeout = 3 * time.Second

// RoomHandler upgrades a connection and joins it to the room for ?code=.
// The join itself is the implicit JOIN of the protocol: display name and
// room name ride along as query parameters.
func RoomHandler(h *hub.Hub, origins []string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		name := r.URL.Query().Get("name")
		roomName := r.URL.Query().Get("room")

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		// Only a successful upgrade may create the room actor; a failed
		// Accept must leave no trace in the hub.
		reply := make(chan *room.Room, 1)
		h.Inbox() <- hub.EnsureRoom{Code: code, Name: roomName, Reply: reply}
		rm := <-reply
		if rm == nil {
			conn.Close(websocket.StatusInternalError, "room unavailable")
			return
		}

		connID := uuid.NewString()
		out := make(chan protocol.ServerMessage, 32)
		writerDone := startWriter(r.Context(), conn, out)

		joinReply := make(chan room.JoinResult, 1)
		rm.Inbox() <- room.Join{ConnID: connID, Name: name, Outbox: out, Reply: joinReply}
		res := <-joinReply
		if !res.OK {
			// The typed reject is already in the outbox; let the writer
			// flush it before closing.
			<-writerDone
			conn.Close(websocket.StatusNormalClosure, res.Reject)
			return
		}
		defer func() { rm.Inbox() <- room.Leave{ConnID: connID} }()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				// Clean close/going-away is a normal leave; so is anything
				// else, the deferred Leave covers both.
				return
			}

			var cm protocol.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				log.Warn("malformed message dropped", zap.String("conn", connID), zap.Error(err))
				continue
			}

			msg, ok := toRoomMsg(cm, connID)
			if !ok {
				log.Warn("unknown message type dropped",
					zap.String("conn", connID), zap.String("type", cm.Type))
				continue
			}
			rm.Inbox() <- msg
		}
	}
}

// LobbyHandler upgrades a connection and subscribes it to room-list pushes.
func LobbyHandler(l *lobby.Lobby, origins []string, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		out := make(chan protocol.ServerMessage, 8)
		startWriter(r.Context(), conn, out)

		l.Inbox() <- lobby.Subscribe{ConnID: connID, Outbox: out}
		defer func() { l.Inbox() <- lobby.Unsubscribe{ConnID: connID} }()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				return
			}

			var cm protocol.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				log.Warn("malformed lobby message dropped", zap.String("conn", connID), zap.Error(err))
				continue
			}
			if cm.Type != protocol.TypeListRooms {
				log.Warn("unknown lobby message type dropped",
					zap.String("conn", connID), zap.String("type", cm.Type))
				continue
			}
			l.Inbox() <- lobby.ListRequest{ConnID: connID}
		}
	}
}

// startWriter drains the outbox onto the socket until the actor closes it.
// The returned channel closes when the writer exits.
func startWriter(parent context.Context, conn *websocket.Conn, out <-chan protocol.ServerMessage) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range out {
			payload, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			ctx, cancel := context.WithTimeout(parent, writeTimeout)
			_ = conn.Write(ctx, websocket.MessageText, payload)
			cancel()
		}
	}()
	return done
}

// toRoomMsg converts a decoded client message into a typed room command.
// This is the only place the wire discriminant is examined.
func toRoomMsg(cm protocol.ClientMessage, connID string) (room.Msg, bool) {
	switch cm.Type {
	case protocol.TypePlayerReady:
		return room.SetReady{ConnID: connID, Ready: cm.Ready}, true
	case protocol.TypeStartGame:
		return room.StartGame{ConnID: connID, LevelID: cm.LevelID}, true
	case protocol.TypeSelectLevel:
		return room.SelectLevel{ConnID: connID, LevelID: cm.LevelID}, true
	case protocol.TypeNextLevel:
		return room.NextLevel{ConnID: connID}, true
	case protocol.TypePlayerUpdate:
		return room.PlayerUpdate{
			ConnID:     connID,
			X:          cm.X,
			Y:          cm.Y,
			FlipX:      cm.FlipX,
			Anim:       cm.Anim,
			VelocityY:  cm.VelocityY,
			IsAirborne: cm.IsAirborne,
		}, true
	case protocol.TypeGameEvent:
		return room.GameEvent{ConnID: connID, Event: cm.Event, Data: cm.Data}, true
	default:
		return nil, false
	}
}
