package ops

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/kifu/internal/api"
	"github.com/hpungsan/kifu/internal/config"
	"github.com/hpungsan/kifu/internal/db"
	"github.com/hpungsan/kifu/internal/game"
	"github.com/hpungsan/kifu/internal/transport"
)

// fakeOGS serves the three endpoints the mirror talks to from in-memory data.
// Listing pages past the last one answer 404, as the real server does.
type fakeOGS struct {
	mu      sync.Mutex
	players map[string][]api.PlayerMatch
	pages   map[int64][][]game.Summary
	badSGF  map[int64]bool
	garbled map[string]int
	hits    map[string]int
	server  *httptest.Server
}

func newFakeOGS(t *testing.T) *fakeOGS {
	t.Helper()
	f := &fakeOGS{
		players: make(map[string][]api.PlayerMatch),
		pages:   make(map[int64][][]game.Summary),
		badSGF:  make(map[int64]bool),
		garbled: make(map[string]int),
		hits:    make(map[string]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeOGS) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[2] == "players":
		name := r.URL.Query().Get("username")
		f.hits["players:"+name]++
		if f.garbled[name] > 0 {
			f.garbled[name]--
			fmt.Fprint(w, "<html>maintenance</html>")
			return
		}
		results := f.players[name]
		if results == nil {
			results = []api.PlayerMatch{}
		}
		writeJSON(w, api.PlayerList{Count: len(results), Results: results})

	case len(parts) == 5 && parts[2] == "players" && parts[4] == "games":
		id, _ := strconv.ParseInt(parts[3], 10, 64)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		f.hits[fmt.Sprintf("games:%d:%d", id, page)]++
		pages := f.pages[id]
		if page < 1 || page > len(pages) {
			http.Error(w, `{"detail":"Invalid page."}`, http.StatusNotFound)
			return
		}
		writeJSON(w, api.GamesPage{Count: len(pages[page-1]), Results: pages[page-1]})

	case len(parts) == 5 && parts[2] == "games" && parts[4] == "sgf":
		id, _ := strconv.ParseInt(parts[3], 10, 64)
		f.hits[fmt.Sprintf("sgf:%d", id)]++
		if f.badSGF[id] {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, sgfFor(id))

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func sgfFor(id int64) string {
	return fmt.Sprintf("(;GM[1]FF[4]GN[%d])", id)
}

func (f *fakeOGS) addPlayer(name string, id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players[name] = append(f.players[name], api.PlayerMatch{ID: id, Username: name})
}

// garble makes the next n lookups of name answer 200 with an HTML body.
func (f *fakeOGS) garble(name string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.garbled[name] = n
}

func (f *fakeOGS) setPages(playerID int64, pages ...[]game.Summary) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[playerID] = pages
}

func (f *fakeOGS) hit(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func (f *fakeOGS) totalHits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.hits {
		n += c
	}
	return n
}

func (f *fakeOGS) config() *config.Config {
	cfg := config.DefaultConfig()
	cfg.APIBaseURL = f.server.URL
	return cfg
}

func (f *fakeOGS) endpoints() api.Endpoints {
	return api.NewEndpoints(f.server.URL)
}

// testFetcher is an unpaced single-attempt client so tests never sleep.
func testFetcher() *transport.Client {
	return transport.New(transport.Options{MaxAttempts: 1})
}

func played(id int64, black, white string) game.Summary {
	return game.Summary{
		ID:   id,
		Mode: game.TrackedMode,
		Players: game.Players{
			Black: game.Player{ID: 1, Username: black},
			White: game.Player{ID: 2, Username: white},
		},
	}
}

func openStore(t *testing.T, dir string) *db.Store {
	t.Helper()
	s, err := db.Open(dir, "")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// committedGames counts ledger rows visible to a separate connection.
func committedGames(t *testing.T, path string) int {
	t.Helper()
	conn, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer conn.Close()

	var n int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM games").Scan(&n))
	return n
}

// cancellingFetcher cancels the context instead of performing the call after n fetches.
type cancellingFetcher struct {
	next   Fetcher
	n      int
	calls  int
	cancel context.CancelFunc
}

func (c *cancellingFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	c.calls++
	if c.calls > c.n {
		c.cancel()
		return nil, ctx.Err()
	}
	return c.next.Fetch(ctx, url)
}
