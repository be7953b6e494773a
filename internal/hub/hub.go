package hub

import (
	"context"

	"go.uber.org/zap"

	"platform-party-server/internal/room"
)

type HubMsg interface{ isHubMsg() }

// EnsureRoom returns the room for a code, creating it if needed. Rooms come
// into being on the first join, not when the code is minted.
type EnsureRoom struct {
	Code  string
	Name  string // display name, only used if creation happens
	Reply chan *room.Room
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ShutdownHub struct{}

func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ShutdownHub) isHubMsg() {}

// Hub is the registry actor mapping room codes to live room actors.
type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	dir    room.Directory
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, dir room.Directory, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		dir:    dir,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case EnsureRoom:
				if rm := h.rooms[msg.Code]; rm != nil && alive(rm) {
					msg.Reply <- rm
					break
				}
				msg.Reply <- h.create(msg.Code, msg.Name)

			case GetRoom:
				rm := h.rooms[msg.Code]
				if rm != nil && !alive(rm) {
					delete(h.rooms, msg.Code)
					rm = nil
				}
				msg.Reply <- rm // May be nil

			case RemoveRoom:
				delete(h.rooms, msg.Code)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create(code, name string) *room.Room {
	if name == "" {
		name = "Room " + code
	}
	// onEmpty must not block the room loop; a full inbox just means the
	// dead entry lingers until the next EnsureRoom replaces it.
	onEmpty := func() {
		select {
		case h.inbox <- RemoveRoom{Code: code}:
		default:
		}
	}
	rm := room.NewRoom(h.ctx, code, name, h.dir, onEmpty, h.log)
	h.rooms[code] = rm
	h.log.Info("room registered", zap.String("room", code))
	return rm
}

// alive reports whether a room actor is still running. A torn-down room can
// linger in the map briefly when its RemoveRoom notification was dropped.
func alive(rm *room.Room) bool {
	select {
	case <-rm.Done():
		return false
	default:
		return true
	}
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		select {
		case rm.Inbox() <- room.Shutdown{}:
		default:
			// Room is wedged or already gone; its context is a child of
			// ours, cancel below reaches it anyway.
		}
	}
	clear(h.rooms)
	h.cancel()
}
