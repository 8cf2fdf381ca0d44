package ops

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/kifu/internal/config"
	"github.com/hpungsan/kifu/internal/game"
)

func seedLedger(t *testing.T, dir string, n int, botEvery int) {
	t.Helper()
	store := openStore(t, dir)
	for i := 1; i <= n; i++ {
		rec := game.Record{ID: int64(i), White: "w", Black: "b", MirroredAt: int64(i), IsBot: botEvery > 0 && i%botEvery == 0}
		require.NoError(t, store.RecordMirrored(rec))
	}
	require.NoError(t, store.Close())
}

func TestListLedger_Pagination(t *testing.T) {
	dir := t.TempDir()
	seedLedger(t, dir, 5, 0)
	cfg := config.DefaultConfig()

	out, err := ListLedger(cfg, LedgerInput{OutputDir: dir, Limit: 2})
	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	require.Equal(t, int64(5), out.Items[0].ID)
	require.Equal(t, int64(4), out.Items[1].ID)
	require.Equal(t, Pagination{Limit: 2, Offset: 0, HasMore: true, Total: 5}, out.Pagination)
	require.Equal(t, "id_desc", out.Sort)

	out, err = ListLedger(cfg, LedgerInput{OutputDir: dir, Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	require.False(t, out.Pagination.HasMore)
}

func TestListLedger_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()

	out, err := ListLedger(cfg, LedgerInput{OutputDir: dir, Limit: 10_000, Offset: -3})
	require.NoError(t, err)
	require.NotNil(t, out.Items)
	require.Empty(t, out.Items)
	require.Equal(t, MaxLedgerLimit, out.Pagination.Limit)
	require.Zero(t, out.Pagination.Offset)

	out, err = ListLedger(cfg, LedgerInput{OutputDir: dir})
	require.NoError(t, err)
	require.Equal(t, DefaultLedgerLimit, out.Pagination.Limit)
}

func TestListLedger_BotFilter(t *testing.T) {
	dir := t.TempDir()
	seedLedger(t, dir, 6, 3)
	cfg := config.DefaultConfig()

	bots := true
	out, err := ListLedger(cfg, LedgerInput{OutputDir: dir, IsBot: &bots})
	require.NoError(t, err)
	require.Equal(t, 2, out.Pagination.Total)
	for _, r := range out.Items {
		require.True(t, r.IsBot)
	}

	humans := false
	out, err = ListLedger(cfg, LedgerInput{OutputDir: dir, IsBot: &humans})
	require.NoError(t, err)
	require.Equal(t, 4, out.Pagination.Total)
}
