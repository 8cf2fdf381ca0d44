package ops

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"

	"github.com/hpungsan/kifu/internal/api"
	"github.com/hpungsan/kifu/internal/config"
	"github.com/hpungsan/kifu/internal/db"
	"github.com/hpungsan/kifu/internal/errors"
	"github.com/hpungsan/kifu/internal/logging"
)

// MirrorInput contains parameters for the Mirror operation.
type MirrorInput struct {
	Names            []string
	OutputDir        string // default: cfg.OutputDir
	Limit            int    // negative: unbounded
	StopOnNoNewSaves bool
	Backfill         bool
}

// PlayerResult reports what happened for one requested name.
type PlayerResult struct {
	Name     string        `json:"name"`
	Status   ResolveStatus `json:"status"`
	PlayerID int64         `json:"player_id,omitempty"`
	*EnumerateOutput
	Error string `json:"error,omitempty"`
}

// MirrorOutput contains the result of the Mirror operation.
type MirrorOutput struct {
	RunID      string         `json:"run_id"`
	OutputDir  string         `json:"output_dir"`
	Players    []PlayerResult `json:"players"`
	Found      int            `json:"found"`
	Saved      int            `json:"saved"`
	Backfilled int            `json:"backfilled"`
	Cancelled  bool           `json:"cancelled"`
}

// Mirror resolves each name and mirrors that player's games into the output
// directory. Unknown names and lookup failures are reported per name and do
// not abort the run. Only a store that cannot be opened does.
func Mirror(ctx context.Context, cfg *config.Config, fetcher Fetcher, input MirrorInput) (out *MirrorOutput, err error) {
	names := normalizeNames(input.Names)
	if len(names) == 0 {
		return nil, errors.NewInvalidRequest("at least one name is required")
	}

	outDir := input.OutputDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	store, err := db.Open(outDir, cfg.StoreName)
	if err != nil {
		return nil, err
	}

	out = &MirrorOutput{
		RunID:     ulid.Make().String(),
		OutputDir: outDir,
		Players:   make([]PlayerResult, 0, len(names)),
	}
	log := logging.With().Str("run_id", out.RunID).Logger()

	if err := store.StartRun(out.RunID, names, time.Now().Unix()); err != nil {
		store.Close()
		return nil, err
	}
	defer func() {
		if ferr := store.FinishRun(out.RunID, out.Found, out.Saved, out.Cancelled, time.Now().Unix()); ferr != nil {
			log.Error().Err(ferr).Msg("finishing run")
		}
		if cerr := store.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	endpoints := api.NewEndpoints(cfg.APIBaseURL)
	resolver := NewResolver(store, fetcher, endpoints)
	enumerator := NewEnumerator(store, fetcher, endpoints, cfg.FileExt)

	for _, name := range names {
		if ctxErr := ctx.Err(); ctxErr != nil {
			out.Cancelled = true
			return out, ctxErr
		}

		res := resolver.Resolve(ctx, name)
		result := PlayerResult{Name: name, Status: res.Status, PlayerID: res.ID}

		switch res.Status {
		case NotFound:
			log.Warn().Str("player", name).Msg("player not found")
			out.Players = append(out.Players, result)
			continue
		case TransportError:
			if ctxErr := ctx.Err(); ctxErr != nil {
				out.Cancelled = true
				return out, ctxErr
			}
			log.Warn().Err(res.Err).Str("player", name).Msg("player lookup failed")
			result.Error = res.Err.Error()
			out.Players = append(out.Players, result)
			continue
		}

		log.Info().Str("player", name).Int64("player_id", res.ID).Bool("cached", res.Cached).Msg("mirroring player")
		enum, enumErr := enumerator.Enumerate(ctx, EnumerateInput{
			PlayerID:         res.ID,
			Player:           name,
			OutputDir:        outDir,
			Limit:            input.Limit,
			StopOnNoNewSaves: input.StopOnNoNewSaves,
			Backfill:         input.Backfill,
		})
		result.EnumerateOutput = enum
		out.Found += enum.Found
		out.Saved += enum.Saved
		out.Backfilled += enum.Backfilled

		if enumErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				out.Players = append(out.Players, result)
				out.Cancelled = true
				return out, ctxErr
			}
			log.Error().Err(enumErr).Str("player", name).Msg("mirroring player failed")
			result.Error = enumErr.Error()
		}
		out.Players = append(out.Players, result)
	}

	log.Info().Int("found", out.Found).Int("saved", out.Saved).Msg("mirror complete")
	return out, nil
}

// normalizeNames trims names, drops blanks and removes duplicates keeping first-seen order.
func normalizeNames(names []string) []string {
	return lo.Uniq(lo.FilterMap(names, func(n string, _ int) (string, bool) {
		n = strings.TrimSpace(n)
		return n, n != ""
	}))
}
