package ops

import (
	"github.com/hpungsan/kifu/internal/config"
	"github.com/hpungsan/kifu/internal/db"
	"github.com/hpungsan/kifu/internal/game"
	"github.com/hpungsan/kifu/internal/logging"
)

// LedgerInput contains parameters for the ListLedger operation.
type LedgerInput struct {
	OutputDir string // default: cfg.OutputDir
	Limit     int    // default: 50, max: 500
	Offset    int    // default: 0
	IsBot     *bool  // nil: all games
}

// LedgerOutput contains the result of the ListLedger operation.
type LedgerOutput struct {
	Items      []game.Record `json:"items"`
	Pagination Pagination    `json:"pagination"`
	Sort       string        `json:"sort"`
}

// ListLedger lists mirrored games, newest id first, with pagination.
func ListLedger(cfg *config.Config, input LedgerInput) (*LedgerOutput, error) {
	outDir := input.OutputDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	limit := input.Limit
	if limit <= 0 {
		limit = DefaultLedgerLimit
	}
	if limit > MaxLedgerLimit {
		limit = MaxLedgerLimit
	}
	offset := max(input.Offset, 0)

	store, err := db.Open(outDir, cfg.StoreName)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("closing store")
		}
	}()

	records, total, err := store.ListMirrored(db.LedgerFilter{Limit: limit, Offset: offset, IsBot: input.IsBot})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []game.Record{}
	}

	return &LedgerOutput{
		Items: records,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(records) < total,
			Total:   total,
		},
		Sort: "id_desc",
	}, nil
}
