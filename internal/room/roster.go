package room

// MaxPlayers is the fixed room capacity.
const MaxPlayers = 4

// PlayerSession is one connected player's state inside a room.
type PlayerSession struct {
	ConnID     string
	Number     int
	Name       string
	Ready      bool
	X          float64
	Y          float64
	FlipX      bool
	Anim       string
	VelocityY  *float64
	IsAirborne *bool
}

// lowestFreeNumber returns the smallest player number in 1..MaxPlayers not
// currently held. ok is false when the room is full.
func lowestFreeNumber(sessions map[string]*PlayerSession) (int, bool) {
	taken := [MaxPlayers + 1]bool{}
	for _, s := range sessions {
		if s.Number >= 1 && s.Number <= MaxPlayers {
			taken[s.Number] = true
		}
	}
	for n := 1; n <= MaxPlayers; n++ {
		if !taken[n] {
			return n, true
		}
	}
	return 0, false
}

// nextHost picks the session with the lowest player number. Host migration
// must be deterministic, so this never depends on map iteration order.
func nextHost(sessions map[string]*PlayerSession) (string, bool) {
	best := ""
	bestNum := MaxPlayers + 1
	for id, s := range sessions {
		if s.Number < bestNum {
			best = id
			bestNum = s.Number
		}
	}
	return best, best != ""
}

// readyCount counts sessions with the ready flag set.
func readyCount(sessions map[string]*PlayerSession) int {
	n := 0
	for _, s := range sessions {
		if s.Ready {
			n++
		}
	}
	return n
}

// canStart is the game-start precondition: solo players may start alone,
// otherwise everyone must be ready.
func canStart(sessions map[string]*PlayerSession) bool {
	if len(sessions) == 0 {
		return false
	}
	return len(sessions) == 1 || readyCount(sessions) == len(sessions)
}

// spawnPoint returns the default spawn position for a player number,
// spread along the level's start platform.
func spawnPoint(number int) (float64, float64) {
	return 64 + 48*float64(number-1), 520
}
