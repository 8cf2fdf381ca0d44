package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/kifu/internal/config"
	"github.com/hpungsan/kifu/internal/errors"
	"github.com/hpungsan/kifu/internal/logging"
	"github.com/hpungsan/kifu/internal/ops"
	"github.com/hpungsan/kifu/internal/transport"
)

// newCLIApp creates the CLI application with all commands.
// globalDir is the ~/.kifu directory; when empty, cfg is used as-is and no
// output-directory config is layered on top.
func newCLIApp(globalDir string, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "kifu",
		Usage:   "Incremental game record mirror",
		Version: Version,
		Commands: []*cli.Command{
			mirrorCmd(globalDir, cfg),
			resolveCmd(globalDir, cfg),
			ledgerCmd(globalDir, cfg),
			statusCmd(globalDir, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func outFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory (default from config)"}
}

// mirrorCmd creates the mirror command.
func mirrorCmd(globalDir string, base *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "mirror",
		Usage:     "Mirror the game records of one or more players",
		ArgsUsage: "NAME...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum games per player; negative for unbounded (default from config)"},
			outFlag(),
			&cli.BoolFlag{Name: "stop-early", Value: true, Usage: "Stop paging once a page yields nothing new"},
			&cli.BoolFlag{Name: "backfill", Usage: "Ledger files that are already on disk"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("at least one player name is required"))
			}

			cfg, outDir, err := commandConfig(globalDir, base, c.String("out"))
			if err != nil {
				return outputError(err)
			}

			limit := cfg.DefaultLimit
			if c.IsSet("limit") {
				limit = c.Int("limit")
			}

			output, err := ops.Mirror(c.Context, cfg, transport.NewFromConfig(cfg), ops.MirrorInput{
				Names:            c.Args().Slice(),
				OutputDir:        outDir,
				Limit:            limit,
				StopOnNoNewSaves: c.Bool("stop-early"),
				Backfill:         c.Bool("backfill"),
			})
			if err != nil {
				if output != nil && output.Cancelled {
					_ = outputJSON(output)
				}
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// resolveCmd creates the resolve command.
func resolveCmd(globalDir string, base *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a player name to its id",
		ArgsUsage: "NAME",
		Flags:     []cli.Flag{outFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one player name is required"))
			}

			cfg, outDir, err := commandConfig(globalDir, base, c.String("out"))
			if err != nil {
				return outputError(err)
			}

			output, err := ops.ResolveName(c.Context, cfg, transport.NewFromConfig(cfg), ops.ResolveInput{
				Name:      c.Args().First(),
				OutputDir: outDir,
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// ledgerCmd creates the ledger command.
func ledgerCmd(globalDir string, base *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "List mirrored games, newest first",
		Flags: []cli.Flag{
			outFlag(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultLedgerLimit, Usage: "Maximum results"},
			&cli.IntFlag{Name: "offset", Usage: "Pagination offset"},
			&cli.BoolFlag{Name: "bots", Usage: "Only bot games (--bots=false for human games only)"},
		},
		Action: func(c *cli.Context) error {
			cfg, outDir, err := commandConfig(globalDir, base, c.String("out"))
			if err != nil {
				return outputError(err)
			}

			input := ops.LedgerInput{
				OutputDir: outDir,
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			}
			if c.IsSet("bots") {
				bots := c.Bool("bots")
				input.IsBot = &bots
			}

			output, err := ops.ListLedger(cfg, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// statusCmd creates the status command.
func statusCmd(globalDir string, base *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Compare the ledger with the files on disk",
		Flags: []cli.Flag{outFlag()},
		Action: func(c *cli.Context) error {
			cfg, outDir, err := commandConfig(globalDir, base, c.String("out"))
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Status(cfg, ops.StatusInput{OutputDir: outDir})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// commandConfig resolves the output directory once, from --out or the global
// config, and layers {outDir}/config.json over the global config. An
// output_dir set inside that file does not move the output directory.
func commandConfig(globalDir string, base *config.Config, flagDir string) (*config.Config, string, error) {
	outDir := flagDir
	if outDir == "" {
		outDir = base.OutputDir
	}
	if globalDir == "" {
		return base, outDir, nil
	}

	cfg, err := config.LoadWithOutput(globalDir, outDir)
	if err != nil {
		return nil, "", errors.NewInvalidRequest(fmt.Sprintf("failed to load config: %v", err))
	}
	config.ApplyEnv(cfg)
	cfg.OutputDir = outDir
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	return cfg, outDir, nil
}

// outputJSON writes JSON output to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var kifuErr *errors.KifuError
	if stderrors.As(err, &kifuErr) {
		msg := kifuErr.Message
		if err != error(kifuErr) {
			msg = err.Error()
		}
		return cli.Exit(fmt.Sprintf("[%s] %s", kifuErr.Code, msg), 1)
	}
	return cli.Exit(err.Error(), 1)
}
