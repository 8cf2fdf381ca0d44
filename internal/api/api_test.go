package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEndpoints(t *testing.T) {
	e := NewEndpoints("https://online-go.com/")

	require.Equal(t, "https://online-go.com/api/v1/players?username=alice", e.PlayerLookup("alice"))
	require.Equal(t, "https://online-go.com/api/v1/players?username=a+b%26c%2Fd", e.PlayerLookup("a b&c/d"))
	require.Equal(t, "https://online-go.com/api/v1/players/42/games?ordering=-id&page=3", e.GamesPage(42, 3))
	require.Equal(t, "https://online-go.com/api/v1/games/9001/sgf", e.GameSGF(9001))
}

func TestDecodePlayerList(t *testing.T) {
	body := []byte(`{"count":2,"next":null,"results":[{"id":7,"username":"Alice2"},{"id":8,"username":"alice"}]}`)

	list, err := DecodePlayerList(body)
	require.NoError(t, err)
	require.Len(t, list.Results, 2)

	id, ok := list.PickPlayer("alice")
	require.True(t, ok)
	require.Equal(t, int64(8), id, "exact username match wins")

	id, ok = list.PickPlayer("ALICE")
	require.True(t, ok)
	require.Equal(t, int64(7), id, "falls back to first candidate")
}

func TestPickPlayer_Empty(t *testing.T) {
	list, err := DecodePlayerList([]byte(`{"count":0,"results":[]}`))
	require.NoError(t, err)

	_, ok := list.PickPlayer("nobody")
	require.False(t, ok)

	var nilList *PlayerList
	_, ok = nilList.PickPlayer("nobody")
	require.False(t, ok)
}

func TestDecodePlayerList_Invalid(t *testing.T) {
	_, err := DecodePlayerList([]byte(`<html>oops</html>`))
	require.Error(t, err)
}

func TestDecodeGamesPage(t *testing.T) {
	body := []byte(`{
		"count": 2,
		"next": "https://online-go.com/api/v1/players/1/games?page=2",
		"results": [
			{"id": 20, "mode": "game", "started": "2024-05-01T10:00:00Z", "ended": null,
			 "players": {"black": {"id": 1, "username": "alice", "ui_class": ""},
			             "white": {"id": 2, "username": "kata", "ui_class": "bot"}}},
			{"id": 19, "mode": "demo",
			 "players": {"black": {"id": 1, "username": "alice"}, "white": {"id": 1, "username": "alice"}}}
		]
	}`)

	page, err := DecodeGamesPage(body)
	require.NoError(t, err)
	require.NotNil(t, page.Next)
	require.Len(t, page.Results, 2)

	first := page.Results[0]
	require.Equal(t, int64(20), first.ID)
	require.Equal(t, "game", first.Mode)
	require.NotNil(t, first.Started)
	require.Nil(t, first.Ended)
	require.Equal(t, "bot", first.Players.White.UIClass)
	require.Equal(t, "demo", page.Results[1].Mode)
}
