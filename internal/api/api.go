// Package api knows the remote game server's endpoint layout and response
// shapes. Everything else treats the remote as an opaque paginated provider.
package api

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/hpungsan/kifu/internal/game"
)

// Endpoints builds request URLs against a base such as https://online-go.com.
type Endpoints struct {
	BaseURL string
}

// NewEndpoints trims any trailing slash from baseURL.
func NewEndpoints(baseURL string) Endpoints {
	return Endpoints{BaseURL: strings.TrimRight(baseURL, "/")}
}

// PlayerLookup returns the lookup URL for a username (percent-encoded).
func (e Endpoints) PlayerLookup(username string) string {
	return fmt.Sprintf("%s/api/v1/players?username=%s", e.BaseURL, url.QueryEscape(username))
}

// GamesPage returns the listing URL for one page of a player's games, newest first.
func (e Endpoints) GamesPage(playerID int64, page int) string {
	return fmt.Sprintf("%s/api/v1/players/%d/games?ordering=-id&page=%d", e.BaseURL, playerID, page)
}

// GameSGF returns the download URL of a game's record.
func (e Endpoints) GameSGF(gameID int64) string {
	return fmt.Sprintf("%s/api/v1/games/%d/sgf", e.BaseURL, gameID)
}

// PlayerMatch is one candidate returned by the player lookup.
type PlayerMatch struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// PlayerList is the player lookup response.
type PlayerList struct {
	Count   int           `json:"count"`
	Results []PlayerMatch `json:"results"`
}

// GamesPage is one page of a player's game listing.
type GamesPage struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []game.Summary `json:"results"`
}

// DecodePlayerList parses a player lookup response.
func DecodePlayerList(data []byte) (*PlayerList, error) {
	var out PlayerList
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode player list: %w", err)
	}
	return &out, nil
}

// DecodeGamesPage parses a game listing page.
func DecodeGamesPage(data []byte) (*GamesPage, error) {
	var out GamesPage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode games page: %w", err)
	}
	return &out, nil
}

// PickPlayer returns the first candidate whose username equals name exactly,
// falling back to the first candidate. ok is false when there are none.
func (l *PlayerList) PickPlayer(name string) (int64, bool) {
	if l == nil || len(l.Results) == 0 {
		return 0, false
	}
	for _, p := range l.Results {
		if p.Username == name {
			return p.ID, true
		}
	}
	return l.Results[0].ID, true
}
