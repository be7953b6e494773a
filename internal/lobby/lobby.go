package lobby

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"platform-party-server/internal/protocol"
)

// staleAfter is how long a room may go without an update before the lazy
// sweep drops it from listings.
const staleAfter = 30 * time.Minute

type Msg interface{ isLobbyMsg() }

type Subscribe struct {
	ConnID string
	Outbox chan protocol.ServerMessage // where this client wants to receive room lists
}

type Unsubscribe struct{ ConnID string }

// ListRequest answers over the subscriber's outbox, for clients that prefer
// request/response over the push they already get.
type ListRequest struct{ ConnID string }

// Snapshot answers over a reply channel; used by the HTTP GET surface.
type Snapshot struct {
	Reply chan []protocol.RoomSummary
}

type Upsert struct {
	Summary protocol.RoomSummary
}

type Remove struct{ RoomID string }

type Shutdown struct{}

// GetState reflects internal state without data races; test-only.
type GetState struct {
	Reply chan View
}

func (Subscribe) isLobbyMsg()   {}
func (Unsubscribe) isLobbyMsg() {}
func (ListRequest) isLobbyMsg() {}
func (Snapshot) isLobbyMsg()    {}
func (Upsert) isLobbyMsg()      {}
func (Remove) isLobbyMsg()      {}
func (Shutdown) isLobbyMsg()    {}
func (GetState) isLobbyMsg()    {}

type View struct {
	NumRooms       int
	NumSubscribers int
	Rooms          []protocol.RoomSummary
}

// Lobby is the passive directory of open rooms. It holds summaries pushed by
// room actors (or the registration endpoint) and fans the filtered list out
// to subscribed connections.
type Lobby struct {
	inbox  chan Msg
	rooms  map[string]protocol.RoomSummary
	subs   map[string]chan protocol.ServerMessage
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewLobby(parent context.Context, log *zap.Logger) *Lobby {
	return newLobby(parent, staleAfter, time.Now, log)
}

func newLobby(parent context.Context, ttl time.Duration, now func() time.Time, log *zap.Logger) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	l := &Lobby{
		inbox:  make(chan Msg, 64),
		rooms:  make(map[string]protocol.RoomSummary),
		subs:   make(map[string]chan protocol.ServerMessage),
		ttl:    ttl,
		now:    now,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	go l.loop()
	return l
}

func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Room actors notify the directory without ever blocking on it; a full inbox
// drops the notification, the next update supersedes it anyway.

func (l *Lobby) RoomCreated(s protocol.RoomSummary) { l.post(Upsert{Summary: s}) }

func (l *Lobby) RoomUpdated(s protocol.RoomSummary) { l.post(Upsert{Summary: s}) }

func (l *Lobby) RoomClosed(roomID string) { l.post(Remove{RoomID: roomID}) }

func (l *Lobby) post(m Msg) {
	select {
	case l.inbox <- m:
	default:
		l.log.Warn("lobby inbox full, notification dropped")
	}
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Subscribe:
				// Register + send the current list immediately (push model).
				l.subs[msg.ConnID] = msg.Outbox
				l.send(msg.ConnID, msg.Outbox, l.listMessage())

			case Unsubscribe:
				// Closing the outbox releases the connection's writer.
				if out, ok := l.subs[msg.ConnID]; ok {
					close(out)
					delete(l.subs, msg.ConnID)
				}

			case ListRequest:
				if out, ok := l.subs[msg.ConnID]; ok {
					l.send(msg.ConnID, out, l.listMessage())
				}

			case Snapshot:
				msg.Reply <- l.openRooms()

			case Upsert:
				l.rooms[msg.Summary.RoomID] = msg.Summary
				l.broadcast()

			case Remove:
				delete(l.rooms, msg.RoomID)
				l.broadcast()

			case GetState:
				rooms := l.openRooms()
				msg.Reply <- View{
					NumRooms:       len(l.rooms),
					NumSubscribers: len(l.subs),
					Rooms:          rooms,
				}

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) shutdown() {
	for id, ch := range l.subs {
		close(ch)
		delete(l.subs, id)
	}
	l.cancel()
}

// sweep drops rooms whose last update is older than the TTL. Invoked lazily
// before any listing, never by a timer.
func (l *Lobby) sweep() {
	cutoff := l.now().Add(-l.ttl).UnixMilli()
	for id, s := range l.rooms {
		if s.UpdatedAt < cutoff {
			delete(l.rooms, id)
			l.log.Info("stale room swept", zap.String("room", id))
		}
	}
}

// openRooms returns joinable rooms, newest activity first.
func (l *Lobby) openRooms() []protocol.RoomSummary {
	l.sweep()
	rooms := make([]protocol.RoomSummary, 0, len(l.rooms))
	for _, s := range l.rooms {
		if s.GameStatus == protocol.StatusWaiting {
			rooms = append(rooms, s)
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].UpdatedAt > rooms[j].UpdatedAt })
	return rooms
}

func (l *Lobby) listMessage() protocol.ServerMessage {
	rooms := l.openRooms()
	return protocol.ServerMessage{Type: protocol.TypeRoomList, Rooms: rooms}
}

func (l *Lobby) broadcast() {
	if len(l.subs) == 0 {
		return
	}
	msg := l.listMessage()
	for id, ch := range l.subs {
		l.send(id, ch, msg)
	}
}

func (l *Lobby) send(id string, ch chan protocol.ServerMessage, msg protocol.ServerMessage) {
	select {
	case ch <- msg:
	default:
		// Subscriber is slow/full - drop them.
		close(ch)
		delete(l.subs, id)
	}
}
