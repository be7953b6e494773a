package protocol

// Room directory statuses.
const (
	StatusWaiting = "waiting"
	StatusPlaying = "playing"
)

// Server-to-server room registration types (lobby HTTP POST body).
const (
	TypeRoomCreated = "ROOM_CREATED"
	TypeRoomUpdated = "ROOM_UPDATED"
	TypeRoomClosed  = "ROOM_CLOSED"
)

// RoomSummary is the directory entry advertised by the lobby.
// Timestamps are epoch milliseconds.
type RoomSummary struct {
	RoomID      string `json:"roomId"`
	RoomName    string `json:"roomName"`
	HostName    string `json:"hostName"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	GameStatus  string `json:"gameStatus"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

// RoomNotification is the body of POST /rooms/notify. Room is required for
// created/updated, RoomID for closed.
type RoomNotification struct {
	Type   string       `json:"type"`
	Room   *RoomSummary `json:"room,omitempty"`
	RoomID string       `json:"roomId,omitempty"`
}
