package ops

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/lo"

	"github.com/hpungsan/kifu/internal/config"
	"github.com/hpungsan/kifu/internal/db"
	"github.com/hpungsan/kifu/internal/errors"
	"github.com/hpungsan/kifu/internal/logging"
)

// StatusInput contains parameters for the Status operation.
type StatusInput struct {
	OutputDir string // default: cfg.OutputDir
}

// StatusOutput compares the ledger with the files in the output directory.
type StatusOutput struct {
	OutputDir     string   `json:"output_dir"`
	Store         string   `json:"store"`
	LedgerRows    int      `json:"ledger_rows"`
	Files         int      `json:"files"`
	Unledgered    []string `json:"unledgered"`
	MissingFiles  []int64  `json:"missing_files"`
	SchemaVersion int      `json:"schema_version"`
}

// Status reports files that have no ledger row (mirrored before the ledger
// existed, or recovered by hand) and ledger rows whose file is gone.
func Status(cfg *config.Config, input StatusInput) (*StatusOutput, error) {
	outDir := input.OutputDir
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	if info, err := os.Stat(outDir); err != nil || !info.IsDir() {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("output directory does not exist: %s", outDir))
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

	ledgered, err := store.MirroredIDs()
	if err != nil {
		return nil, err
	}
	version, err := store.SchemaVersion()
	if err != nil {
		return nil, err
	}

	files, err := doublestar.Glob(os.DirFS(outDir), "*."+cfg.FileExt)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	onDisk := make(map[int64]bool, len(files))
	unledgered := []string{}
	for _, f := range files {
		id, ok := gameIDFromFile(f)
		if !ok {
			continue
		}
		onDisk[id] = true
		if !ledgered[id] {
			unledgered = append(unledgered, f)
		}
	}

	missing := lo.Filter(lo.Keys(ledgered), func(id int64, _ int) bool { return !onDisk[id] })
	slices.Sort(missing)

	return &StatusOutput{
		OutputDir:     outDir,
		Store:         store.Path(),
		LedgerRows:    len(ledgered),
		Files:         len(onDisk),
		Unledgered:    unledgered,
		MissingFiles:  missing,
		SchemaVersion: version,
	}, nil
}

// gameIDFromFile extracts the leading game id from "{id}-{black}-{white}.{ext}".
func gameIDFromFile(name string) (int64, bool) {
	prefix, _, ok := strings.Cut(name, "-")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
