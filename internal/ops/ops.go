package ops

import (
	"context"

	"github.com/hpungsan/kifu/internal/errors"
	"github.com/hpungsan/kifu/internal/game"
)

// Ledger listing limits
const (
	DefaultLedgerLimit = 50
	MaxLedgerLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Store is the slice of the cache store the mirror operations depend on.
// *db.Store satisfies it; tests may substitute their own.
type Store interface {
	GetCachedResponse(url string) (string, bool, error)
	PutCachedResponse(url, content string) error
	GetResolvedIdentity(name string) (int64, bool, error)
	PutResolvedIdentity(name string, id int64) error
	RecordMirrored(r game.Record) error
	HasMirrored(id int64) (bool, error)
	Commit() error
}

// Fetcher retrieves the body at a URL. transport.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// fetchCached serves url from the response cache, fetching and memoizing it
// on a miss. decode runs on every body; a fetched body is cached only once it
// decodes, so a garbled response is retried on the next run.
func fetchCached(ctx context.Context, store Store, fetcher Fetcher, url string, decode func([]byte) error) (bool, error) {
	if content, ok, err := store.GetCachedResponse(url); err != nil {
		return false, err
	} else if ok {
		if err := decode([]byte(content)); err != nil {
			return false, errors.NewFetchFailed(url, 0, err)
		}
		return true, nil
	}

	body, err := fetcher.Fetch(ctx, url)
	if err != nil {
		return false, err
	}
	if err := decode(body); err != nil {
		return false, errors.NewFetchFailed(url, 0, err)
	}
	if err := store.PutCachedResponse(url, string(body)); err != nil {
		return false, err
	}
	return false, nil
}
