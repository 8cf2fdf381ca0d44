package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/kifu/internal/api"
	"github.com/hpungsan/kifu/internal/config"
	"github.com/hpungsan/kifu/internal/db"
	"github.com/hpungsan/kifu/internal/errors"
	"github.com/hpungsan/kifu/internal/logging"
)

// ResolveStatus is the outcome of resolving a player name.
type ResolveStatus string

const (
	Resolved       ResolveStatus = "resolved"
	NotFound       ResolveStatus = "not_found"
	TransportError ResolveStatus = "transport_error"
)

// Resolution is the explicit result of Resolve. ID is set only when Status is
// Resolved; Err is set only when Status is TransportError.
type Resolution struct {
	Name   string        `json:"name"`
	Status ResolveStatus `json:"status"`
	ID     int64         `json:"id,omitempty"`
	Cached bool          `json:"cached"`
	Err    error         `json:"-"`
}

// Resolver maps player names to remote ids, remembering every answer.
type Resolver struct {
	store     Store
	fetcher   Fetcher
	endpoints api.Endpoints
}

// NewResolver creates a Resolver.
func NewResolver(store Store, fetcher Fetcher, endpoints api.Endpoints) *Resolver {
	return &Resolver{store: store, fetcher: fetcher, endpoints: endpoints}
}

// Resolve looks name up in the identity cache, then in the response cache,
// then on the remote. Store failures are reported as TransportError too:
// either way the name could not be resolved on this run.
func (r *Resolver) Resolve(ctx context.Context, name string) Resolution {
	res := Resolution{Name: name}

	if id, ok, err := r.store.GetResolvedIdentity(name); err != nil {
		return failed(res, err)
	} else if ok {
		res.Status, res.ID, res.Cached = Resolved, id, true
		return res
	}

	url := r.endpoints.PlayerLookup(name)
	var list *api.PlayerList
	cached, err := fetchCached(ctx, r.store, r.fetcher, url, func(body []byte) (err error) {
		list, err = api.DecodePlayerList(body)
		return err
	})
	if err != nil {
		return failed(res, err)
	}

	id, ok := list.PickPlayer(name)
	if !ok {
		res.Status = NotFound
		return res
	}

	if err := r.store.PutResolvedIdentity(name, id); err != nil {
		return failed(res, err)
	}

	res.Status, res.ID, res.Cached = Resolved, id, cached
	return res
}

func failed(res Resolution, err error) Resolution {
	res.Status = TransportError
	res.Err = err
	return res
}

// ResolveInput contains parameters for the ResolveName operation.
type ResolveInput struct {
	Name      string
	OutputDir string // default: cfg.OutputDir
}

// ResolveOutput contains the result of the ResolveName operation.
type ResolveOutput struct {
	Resolution
	Error string `json:"error,omitempty"`
}

// ResolveName resolves a single name against the store in the output directory.
func ResolveName(ctx context.Context, cfg *config.Config, fetcher Fetcher, input ResolveInput) (*ResolveOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	outDir := input.OutputDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	store, err := db.Open(outDir, cfg.StoreName)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("closing store")
		}
	}()

	res := NewResolver(store, fetcher, api.NewEndpoints(cfg.APIBaseURL)).Resolve(ctx, name)
	out := &ResolveOutput{Resolution: res}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	if res.Status == NotFound {
		return out, errors.NewNotFound(name)
	}
	if res.Status == TransportError {
		return out, res.Err
	}
	return out, nil
}
