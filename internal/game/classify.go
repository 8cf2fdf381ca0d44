package game

import (
	"fmt"
	"strings"
)

// IsTracked reports whether the summary is a played game rather than a demo or review.
func IsTracked(s Summary) bool {
	return s.Mode == TrackedMode
}

// IsBotGame reports whether either side is an automated player.
func IsBotGame(s Summary) bool {
	return s.Players.White.UIClass == BotClass || s.Players.Black.UIClass == BotClass
}

// FileName returns the deterministic file name for a game: {id}-{black}-{white}.{ext}.
func FileName(s Summary, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	name := fmt.Sprintf("%d-%s-%s", s.ID, SanitizeName(s.Players.Black.Username), SanitizeName(s.Players.White.Username))
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// ToRecord converts a listing entry to a ledger row stamped with mirroredAt.
func ToRecord(s Summary, mirroredAt int64) Record {
	return Record{
		ID:         s.ID,
		White:      s.Players.White.Username,
		Black:      s.Players.Black.Username,
		StartedAt:  s.Started,
		EndedAt:    s.Ended,
		IsBot:      IsBotGame(s),
		MirroredAt: mirroredAt,
	}
}
