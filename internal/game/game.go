package game

// TrackedMode is the listing mode tag of a real played game.
// Demo boards and reviews carry other tags and are never mirrored.
const TrackedMode = "game"

// BotClass is the ui_class value the remote assigns to automated players.
const BotClass = "bot"

// Player is one side of a game as shown in the remote listing.
type Player struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	UIClass  string `json:"ui_class"`
}

// Players holds both sides of a game.
type Players struct {
	Black Player `json:"black"`
	White Player `json:"white"`
}

// Summary is one entry of a player's paginated game listing.
type Summary struct {
	ID      int64   `json:"id"`
	Mode    string  `json:"mode"`
	Started *string `json:"started"`
	Ended   *string `json:"ended"`
	Players Players `json:"players"`
}

// Record is one ledger row: a game this tool has written to disk.
type Record struct {
	ID         int64   `json:"id"`
	White      string  `json:"white"`
	Black      string  `json:"black"`
	StartedAt  *string `json:"started_at,omitempty"`
	EndedAt    *string `json:"ended_at,omitempty"`
	IsBot      bool    `json:"is_bot"`
	MirroredAt int64   `json:"mirrored_at"`
}
