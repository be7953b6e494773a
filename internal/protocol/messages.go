package protocol

import "encoding/json"

// Client -> server message types.
const (
	TypePlayerReady  = "PLAYER_READY"
	TypeStartGame    = "START_GAME"
	TypeSelectLevel  = "SELECT_LEVEL"
	TypeNextLevel    = "NEXT_LEVEL"
	TypePlayerUpdate = "PLAYER_UPDATE"
	TypeGameEvent    = "GAME_EVENT"
	TypeListRooms    = "LIST_ROOMS"
)

// Server -> client message types.
const (
	TypeWelcome            = "WELCOME"
	TypePlayerJoined       = "PLAYER_JOINED"
	TypePlayerLeft         = "PLAYER_LEFT"
	TypeYouAreHost         = "YOU_ARE_HOST"
	TypePlayerReadyChanged = "PLAYER_READY_CHANGED"
	TypeCannotStart        = "CANNOT_START"
	TypeGameStart          = "GAME_START"
	TypeLevelSelected      = "LEVEL_SELECTED"
	TypeReturnToLobby      = "RETURN_TO_LOBBY"
	TypeRoomFull           = "ROOM_FULL"
	TypeGameInProgress     = "GAME_IN_PROGRESS"
	TypeRoomList           = "ROOM_LIST"
)

// CANNOT_START reasons.
const (
	ReasonNotHost         = "NOT_HOST"
	ReasonPlayersNotReady = "PLAYERS_NOT_READY"
)

// ClientMessage is the decoded form of every message a client may send over
// a room or lobby socket. The ws layer converts it into a typed room command
// exactly once; handlers never switch on the raw string again.
type ClientMessage struct {
	Type       string          `json:"type"`
	Ready      bool            `json:"ready,omitempty"`
	LevelID    int             `json:"levelId,omitempty"`
	X          float64         `json:"x,omitempty"`
	Y          float64         `json:"y,omitempty"`
	FlipX      bool            `json:"flipX,omitempty"`
	Anim       string          `json:"anim,omitempty"`
	VelocityY  *float64        `json:"velocityY,omitempty"`
	IsAirborne *bool           `json:"isAirborne,omitempty"`
	Event      string          `json:"event,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// PlayerInfo is the roster entry shared by WELCOME, PLAYER_JOINED and
// GAME_START payloads. X/Y carry spawn defaults in GAME_START and are
// omitted elsewhere.
type PlayerInfo struct {
	ID     string  `json:"id"`
	Number int     `json:"number"`
	Name   string  `json:"name"`
	Ready  bool    `json:"ready"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
}

// ServerMessage is the single envelope for everything pushed to clients.
type ServerMessage struct {
	Type         string          `json:"type"`
	PlayerID     string          `json:"playerId,omitempty"`
	PlayerNumber int             `json:"playerNumber,omitempty"`
	IsHost       bool            `json:"isHost,omitempty"`
	RoomID       string          `json:"roomId,omitempty"`
	Player       *PlayerInfo     `json:"player,omitempty"`
	Players      []PlayerInfo    `json:"players,omitempty"`
	Ready        bool            `json:"ready,omitempty"`
	LevelID      int             `json:"levelId,omitempty"`
	Reason       string          `json:"reason,omitempty"`
	ReadyCount   int             `json:"readyCount,omitempty"`
	TotalPlayers int             `json:"totalPlayers,omitempty"`
	X            float64         `json:"x,omitempty"`
	Y            float64         `json:"y,omitempty"`
	FlipX        bool            `json:"flipX,omitempty"`
	Anim         string          `json:"anim,omitempty"`
	VelocityY    *float64        `json:"velocityY,omitempty"`
	IsAirborne   *bool           `json:"isAirborne,omitempty"`
	Event        string          `json:"event,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
	Rooms        []RoomSummary   `json:"rooms,omitempty"`
}
