package ops

import (
	"context"
	"path/filepath"
	"time"

	"github.com/hpungsan/kifu/internal/api"
	"github.com/hpungsan/kifu/internal/db"
	"github.com/hpungsan/kifu/internal/errors"
	"github.com/hpungsan/kifu/internal/game"
	"github.com/hpungsan/kifu/internal/logging"
)

// Stop reasons reported by Enumerate.
const (
	StopEndOfPages = "end_of_pages"
	StopLimit      = "limit"
	StopNoNewSaves = "no_new_saves"
	StopCancelled  = "cancelled"
)

// EnumerateInput contains parameters for the Enumerate operation.
type EnumerateInput struct {
	PlayerID         int64
	Player           string // for logging only
	OutputDir        string
	Limit            int // negative: unbounded
	StopOnNoNewSaves bool
	Backfill         bool
}

// EnumerateOutput contains the result of the Enumerate operation.
type EnumerateOutput struct {
	Found      int    `json:"found"`
	Saved      int    `json:"saved"`
	Backfilled int    `json:"backfilled"`
	Failed     int    `json:"failed"`
	Pages      int    `json:"pages"`
	StopReason string `json:"stop_reason"`
}

// Enumerator walks a player's game listing newest first and mirrors each game.
type Enumerator struct {
	store        Store
	fetcher      Fetcher
	materializer *Materializer
	endpoints    api.Endpoints
	fileExt      string
	now          func() time.Time
}

// NewEnumerator creates an Enumerator writing files with the given extension.
func NewEnumerator(store Store, fetcher Fetcher, endpoints api.Endpoints, fileExt string) *Enumerator {
	return &Enumerator{
		store:        store,
		fetcher:      fetcher,
		materializer: NewMaterializer(fetcher),
		endpoints:    endpoints,
		fileExt:      fileExt,
		now:          time.Now,
	}
}

// Enumerate pages through the listing until it runs out, the limit is
// reached, or (with StopOnNoNewSaves) a page yields nothing new. The store
// is committed after every page. On cancellation the partial output is
// returned with the context error.
func (e *Enumerator) Enumerate(ctx context.Context, input EnumerateInput) (*EnumerateOutput, error) {
	out := &EnumerateOutput{}
	log := logging.With().Str("player", input.Player).Int64("player_id", input.PlayerID).Logger()

	for page := 1; ; page++ {
		if limitReached(input.Limit, out.Found) {
			out.StopReason = StopLimit
			return out, nil
		}
		if err := ctx.Err(); err != nil {
			out.StopReason = StopCancelled
			return out, err
		}

		body, err := e.fetcher.Fetch(ctx, e.endpoints.GamesPage(input.PlayerID, page))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				out.StopReason = StopCancelled
				return out, ctxErr
			}
			log.Info().Int("page", page).Int("status", errors.StatusOf(err)).Msg("no further pages")
			out.StopReason = StopEndOfPages
			return out, nil
		}

		listing, err := api.DecodeGamesPage(body)
		if err != nil {
			log.Warn().Err(err).Int("page", page).Msg("undecodable listing page")
			out.StopReason = StopEndOfPages
			return out, nil
		}
		if len(listing.Results) == 0 {
			out.StopReason = StopEndOfPages
			return out, nil
		}
		out.Pages++

		fresh := 0
		for _, s := range listing.Results {
			if limitReached(input.Limit, out.Found) {
				break
			}
			if !game.IsTracked(s) {
				continue
			}
			out.Found++

			isNew, err := e.mirrorOne(ctx, input, s, out)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					e.commit(out)
					out.StopReason = StopCancelled
					return out, ctxErr
				}
				return out, err
			}
			if isNew {
				fresh++
			}
		}

		if err := e.store.Commit(); err != nil {
			return out, err
		}
		log.Info().Int("page", page).Int("found", out.Found).Int("saved", out.Saved).Msg("page mirrored")

		if limitReached(input.Limit, out.Found) {
			out.StopReason = StopLimit
			return out, nil
		}
		if input.StopOnNoNewSaves && fresh == 0 {
			out.StopReason = StopNoNewSaves
			return out, nil
		}
	}
}

// mirrorOne materializes a single game and ledgers it. It reports whether the
// game counts as new for the early-stop rule. Download failures are logged and
// absorbed; only store faults and cancellation are returned.
func (e *Enumerator) mirrorOne(ctx context.Context, input EnumerateInput, s game.Summary, out *EnumerateOutput) (bool, error) {
	path := filepath.Join(input.OutputDir, game.FileName(s, e.fileExt))

	saved, err := e.materializer.Materialize(ctx, e.endpoints.GameSGF(s.ID), path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		logging.Warn().Err(err).Int64("game_id", s.ID).Msg("download failed")
		out.Failed++
		return false, nil
	}

	if saved {
		out.Saved++
		if err := e.record(s); err != nil {
			return false, err
		}
		return true, nil
	}

	if !input.Backfill {
		return false, nil
	}
	known, err := e.store.HasMirrored(s.ID)
	if err != nil || known {
		return false, err
	}
	if err := e.record(s); err != nil {
		return false, err
	}
	out.Backfilled++
	return true, nil
}

func (e *Enumerator) record(s game.Summary) error {
	err := e.store.RecordMirrored(game.ToRecord(s, e.now().Unix()))
	if errors.Is(err, db.ErrUniqueConstraint.Code) {
		logging.Debug().Int64("game_id", s.ID).Msg("already ledgered")
		return nil
	}
	return err
}

// commit flushes what has been ledgered so far; used on the way out of a cancelled page.
func (e *Enumerator) commit(out *EnumerateOutput) {
	if err := e.store.Commit(); err != nil {
		logging.Error().Err(err).Int("saved", out.Saved).Msg("committing partial page")
	}
}

func limitReached(limit, found int) bool {
	return limit >= 0 && found >= limit
}
