package room

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"platform-party-server/internal/protocol"
)

// Directory receives room metadata changes. Implementations must not block:
// the room loop fires these and moves on (one-way notification, never a call).
type Directory interface {
	RoomCreated(protocol.RoomSummary)
	RoomUpdated(protocol.RoomSummary)
	RoomClosed(roomID string)
}

type Msg interface{ isRoomMsg() }

// JoinResult tells the transport layer whether the connection was admitted.
// On rejection the outbox receives the typed reject message and is closed.
type JoinResult struct {
	OK     bool
	Reject string
}

type Join struct {
	ConnID string
	Name   string
	Outbox chan protocol.ServerMessage
	Reply  chan JoinResult
}

type Leave struct{ ConnID string }

type SetReady struct {
	ConnID string
	Ready  bool
}

type StartGame struct {
	ConnID  string
	LevelID int
}

type SelectLevel struct {
	ConnID  string
	LevelID int
}

type NextLevel struct{ ConnID string }

type PlayerUpdate struct {
	ConnID     string
	X          float64
	Y          float64
	FlipX      bool
	Anim       string
	VelocityY  *float64
	IsAirborne *bool
}

type GameEvent struct {
	ConnID string
	Event  string
	Data   json.RawMessage
}

// GetState reflects internal state without data races; test-only.
type GetState struct{ Reply chan View }

type Shutdown struct{}

func (Join) isRoomMsg()         {}
func (Leave) isRoomMsg()        {}
func (SetReady) isRoomMsg()     {}
func (StartGame) isRoomMsg()    {}
func (SelectLevel) isRoomMsg()  {}
func (NextLevel) isRoomMsg()    {}
func (PlayerUpdate) isRoomMsg() {}
func (GameEvent) isRoomMsg()    {}
func (GetState) isRoomMsg()     {}
func (Shutdown) isRoomMsg()     {}

type View struct {
	NumPlayers int
	HostConnID string
	InProgress bool
	LevelID    int
	Players    []protocol.PlayerInfo
}

// Room owns the authoritative state of one game session. All mutations
// happen on the loop goroutine; the inbox is the only way in.
type Room struct {
	id   string
	name string

	inbox    chan Msg
	sessions map[string]*PlayerSession
	outboxes map[string]chan protocol.ServerMessage

	hostID     string
	inProgress bool
	levelID    int
	createdAt  time.Time

	dir     Directory
	onEmpty func()
	closed  bool
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRoom(parent context.Context, id, name string, dir Directory, onEmpty func(), log *zap.Logger) *Room {
	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		id:        id,
		name:      name,
		inbox:     make(chan Msg, 64),
		sessions:  make(map[string]*PlayerSession),
		outboxes:  make(map[string]chan protocol.ServerMessage),
		levelID:   1,
		createdAt: time.Now(),
		dir:       dir,
		onEmpty:   onEmpty,
		log:       log.With(zap.String("room", id)),
	}
	r.ctx = ctx
	r.cancel = cancel
	go r.loop()
	return r
}

func (r *Room) Inbox() chan<- Msg { return r.inbox }

func (r *Room) ID() string { return r.id }

// Done is closed once the room has torn down; registries use it to tell a
// live room from a dead entry awaiting removal.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				r.handleJoin(msg)

			case Leave:
				if r.handleLeave(msg.ConnID) {
					return
				}

			case SetReady:
				r.handleSetReady(msg)

			case StartGame:
				r.handleStartGame(msg)

			case SelectLevel:
				r.handleSelectLevel(msg)

			case NextLevel:
				r.handleNextLevel(msg)

			case PlayerUpdate:
				r.handlePlayerUpdate(msg)

			case GameEvent:
				r.handleGameEvent(msg)

			case GetState:
				msg.Reply <- View{
					NumPlayers: len(r.sessions),
					HostConnID: r.hostID,
					InProgress: r.inProgress,
					LevelID:    r.levelID,
					Players:    r.roster(false),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) handleJoin(msg Join) {
	reject := func(kind string) {
		msg.Outbox <- protocol.ServerMessage{Type: kind, RoomID: r.id}
		close(msg.Outbox)
		msg.Reply <- JoinResult{OK: false, Reject: kind}
	}

	if r.inProgress {
		reject(protocol.TypeGameInProgress)
		return
	}
	number, ok := lowestFreeNumber(r.sessions)
	if !ok {
		reject(protocol.TypeRoomFull)
		return
	}

	firstJoin := len(r.sessions) == 0
	name := msg.Name
	if name == "" {
		name = fmt.Sprintf("Player %d", number)
	}
	s := &PlayerSession{ConnID: msg.ConnID, Number: number, Name: name}
	r.sessions[msg.ConnID] = s
	r.outboxes[msg.ConnID] = msg.Outbox
	if firstJoin {
		r.hostID = msg.ConnID
	}

	msg.Outbox <- protocol.ServerMessage{
		Type:         protocol.TypeWelcome,
		PlayerID:     msg.ConnID,
		PlayerNumber: number,
		IsHost:       msg.ConnID == r.hostID,
		RoomID:       r.id,
		LevelID:      r.levelID,
		Players:      r.roster(false),
	}
	msg.Reply <- JoinResult{OK: true}

	joined := r.playerInfo(s, false)
	r.broadcastExcept(msg.ConnID, protocol.ServerMessage{
		Type:   protocol.TypePlayerJoined,
		Player: &joined,
	})

	if firstJoin {
		r.dir.RoomCreated(r.summary())
	} else {
		r.dir.RoomUpdated(r.summary())
	}
	r.log.Info("player joined", zap.String("conn", msg.ConnID), zap.Int("number", number))
}

// handleLeave removes the session and reports true when the room emptied
// and tore itself down.
func (r *Room) handleLeave(connID string) bool {
	s, ok := r.sessions[connID]
	if !ok {
		return false
	}
	r.removeSession(connID)

	if len(r.sessions) == 0 {
		r.teardown()
		return true
	}

	r.broadcast(protocol.ServerMessage{
		Type:         protocol.TypePlayerLeft,
		PlayerID:     connID,
		PlayerNumber: s.Number,
	})

	if connID == r.hostID {
		newHost, ok := nextHost(r.sessions)
		if ok {
			r.hostID = newHost
			r.sendTo(newHost, protocol.ServerMessage{Type: protocol.TypeYouAreHost})
			r.log.Info("host migrated", zap.String("conn", newHost))
		}
	}

	r.dir.RoomUpdated(r.summary())
	return false
}

func (r *Room) handleSetReady(msg SetReady) {
	if r.inProgress {
		return
	}
	s, ok := r.sessions[msg.ConnID]
	if !ok {
		return
	}
	s.Ready = msg.Ready
	r.broadcast(protocol.ServerMessage{
		Type:     protocol.TypePlayerReadyChanged,
		PlayerID: msg.ConnID,
		Ready:    msg.Ready,
	})
	r.dir.RoomUpdated(r.summary())
}

func (r *Room) handleStartGame(msg StartGame) {
	if _, ok := r.sessions[msg.ConnID]; !ok || r.inProgress {
		return
	}
	if msg.ConnID != r.hostID {
		r.sendTo(msg.ConnID, protocol.ServerMessage{
			Type:         protocol.TypeCannotStart,
			Reason:       protocol.ReasonNotHost,
			ReadyCount:   readyCount(r.sessions),
			TotalPlayers: len(r.sessions),
		})
		return
	}
	if !canStart(r.sessions) {
		r.sendTo(msg.ConnID, protocol.ServerMessage{
			Type:         protocol.TypeCannotStart,
			Reason:       protocol.ReasonPlayersNotReady,
			ReadyCount:   readyCount(r.sessions),
			TotalPlayers: len(r.sessions),
		})
		return
	}

	r.inProgress = true
	if msg.LevelID > 0 {
		r.levelID = msg.LevelID
	}
	r.broadcast(protocol.ServerMessage{
		Type:    protocol.TypeGameStart,
		LevelID: r.levelID,
		Players: r.roster(true),
	})
	r.dir.RoomUpdated(r.summary())
	r.log.Info("game started", zap.Int("level", r.levelID), zap.Int("players", len(r.sessions)))
}

func (r *Room) handleSelectLevel(msg SelectLevel) {
	if msg.ConnID != r.hostID || r.inProgress || msg.LevelID <= 0 {
		return
	}
	r.levelID = msg.LevelID
	r.broadcast(protocol.ServerMessage{
		Type:    protocol.TypeLevelSelected,
		LevelID: r.levelID,
	})
}

func (r *Room) handleNextLevel(msg NextLevel) {
	if msg.ConnID != r.hostID || !r.inProgress {
		return
	}
	r.inProgress = false
	for _, s := range r.sessions {
		s.Ready = false
	}
	r.broadcast(protocol.ServerMessage{Type: protocol.TypeReturnToLobby})
	r.dir.RoomUpdated(r.summary())
}

func (r *Room) handlePlayerUpdate(msg PlayerUpdate) {
	s, ok := r.sessions[msg.ConnID]
	if !ok {
		return
	}
	s.X, s.Y, s.FlipX, s.Anim = msg.X, msg.Y, msg.FlipX, msg.Anim
	s.VelocityY, s.IsAirborne = msg.VelocityY, msg.IsAirborne

	r.broadcastExcept(msg.ConnID, protocol.ServerMessage{
		Type:       protocol.TypePlayerUpdate,
		PlayerID:   msg.ConnID,
		X:          msg.X,
		Y:          msg.Y,
		FlipX:      msg.FlipX,
		Anim:       msg.Anim,
		VelocityY:  msg.VelocityY,
		IsAirborne: msg.IsAirborne,
	})
}

func (r *Room) handleGameEvent(msg GameEvent) {
	if _, ok := r.sessions[msg.ConnID]; !ok {
		return
	}
	// Dumb relay: payloads are never interpreted here, clients arbitrate.
	r.broadcastExcept(msg.ConnID, protocol.ServerMessage{
		Type:  protocol.TypeGameEvent,
		Event: msg.Event,
		Data:  msg.Data,
	})
}

func (r *Room) removeSession(connID string) {
	if out, ok := r.outboxes[connID]; ok {
		close(out)
	}
	delete(r.outboxes, connID)
	delete(r.sessions, connID)
}

func (r *Room) teardown() {
	if r.closed {
		return
	}
	r.closed = true
	r.dir.RoomClosed(r.id)
	if r.onEmpty != nil {
		r.onEmpty()
	}
	r.cancel()
	r.log.Info("room empty, torn down")
}

func (r *Room) shutdown() {
	for id := range r.outboxes {
		r.removeSession(id)
	}
	r.teardown()
}

func (r *Room) sendTo(connID string, msg protocol.ServerMessage) {
	out, ok := r.outboxes[connID]
	if !ok {
		return
	}
	select {
	case out <- msg:
	default:
		r.dropSlow(connID)
	}
}

func (r *Room) broadcast(msg protocol.ServerMessage) {
	r.broadcastExcept("", msg)
}

func (r *Room) broadcastExcept(exclude string, msg protocol.ServerMessage) {
	var dropped []string
	for id, out := range r.outboxes {
		if id == exclude {
			continue
		}
		select {
		case out <- msg:
		default:
			dropped = append(dropped, id)
		}
	}
	for _, id := range dropped {
		r.dropSlow(id)
	}
}

// dropSlow evicts a client whose outbox is full so the loop never blocks.
func (r *Room) dropSlow(connID string) {
	r.log.Warn("dropping slow client", zap.String("conn", connID))
	s, ok := r.sessions[connID]
	if !ok {
		return
	}
	r.removeSession(connID)
	if len(r.sessions) == 0 {
		r.teardown()
		return
	}
	for id, out := range r.outboxes {
		if id == connID {
			continue
		}
		select {
		case out <- protocol.ServerMessage{
			Type:         protocol.TypePlayerLeft,
			PlayerID:     connID,
			PlayerNumber: s.Number,
		}:
		default:
		}
	}
	if connID == r.hostID {
		if newHost, ok := nextHost(r.sessions); ok {
			r.hostID = newHost
			r.sendTo(newHost, protocol.ServerMessage{Type: protocol.TypeYouAreHost})
		}
	}
	r.dir.RoomUpdated(r.summary())
}

func (r *Room) playerInfo(s *PlayerSession, spawn bool) protocol.PlayerInfo {
	info := protocol.PlayerInfo{
		ID:     s.ConnID,
		Number: s.Number,
		Name:   s.Name,
		Ready:  s.Ready,
	}
	if spawn {
		info.X, info.Y = spawnPoint(s.Number)
	}
	return info
}

func (r *Room) roster(spawn bool) []protocol.PlayerInfo {
	players := make([]protocol.PlayerInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		players = append(players, r.playerInfo(s, spawn))
	}
	sort.Slice(players, func(i, j int) bool { return players[i].Number < players[j].Number })
	return players
}

func (r *Room) summary() protocol.RoomSummary {
	hostName := ""
	if host, ok := r.sessions[r.hostID]; ok {
		hostName = host.Name
	}
	status := protocol.StatusWaiting
	if r.inProgress {
		status = protocol.StatusPlaying
	}
	return protocol.RoomSummary{
		RoomID:      r.id,
		RoomName:    r.name,
		HostName:    hostName,
		PlayerCount: len(r.sessions),
		MaxPlayers:  MaxPlayers,
		GameStatus:  status,
		CreatedAt:   r.createdAt.UnixMilli(),
		UpdatedAt:   time.Now().UnixMilli(),
	}
}
