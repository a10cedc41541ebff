package command

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/gridsession-go/internal/cli/output"
	"github.com/yndnr/gridsession-go/internal/grid/remote"
	"github.com/yndnr/gridsession-go/internal/infra/buildinfo"
	"github.com/yndnr/gridsession-go/internal/infra/confloader"
	"github.com/yndnr/gridsession-go/internal/server/config"
	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "gridsession-cli",
		Usage:   "Inspect and manage sessions stored in a gridsession grid",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SessionsCommand(),
			MapCommand(),
			VersionCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "seeds",
			Aliases: []string{"s"},
			Usage:   "Grid node RPC addresses (host:port)",
			EnvVars: []string{"GRIDSESSION_SEEDS"},
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Application config file describing the store maps",
			EnvVars: []string{"GRIDSESSION_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Timeout for connecting and for each command",
			Value: 10 * time.Second,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "Log client activity to stderr",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Seeds   []string
	Config  string
	Output  output.Format
	Timeout time.Duration
	Verbose bool
}

// ParseGlobalFlags extracts and validates global flags.
func ParseGlobalFlags(c *cli.Context) (*GlobalFlags, error) {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return nil, err
	}
	return &GlobalFlags{
		Seeds:   c.StringSlice("seeds"),
		Config:  c.String("config"),
		Output:  format,
		Timeout: c.Duration("timeout"),
		Verbose: c.Bool("verbose"),
	}, nil
}

// storeAction opens a store for the duration of fn.
func storeAction(fn func(ctx context.Context, c *cli.Context, s *sessionstore.Store, flags *GlobalFlags) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		flags, err := ParseGlobalFlags(c)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(c.Context, flags.Timeout)
		defer cancel()

		store, closeFn, err := openStore(ctx, flags, c.App.ErrWriter)
		if err != nil {
			return err
		}
		defer closeFn()
		return fn(ctx, c, store, flags)
	}
}

func openStore(ctx context.Context, flags *GlobalFlags, errw io.Writer) (*sessionstore.Store, func(), error) {
	cfg := config.DefaultDemo()
	if flags.Config != "" {
		loader := confloader.NewLoader(confloader.WithConfigFile(flags.Config))
		if err := loader.Load(cfg); err != nil {
			return nil, nil, err
		}
	}
	if err := config.VerifyStore(&cfg.Store); err != nil {
		return nil, nil, err
	}

	seeds := flags.Seeds
	if len(seeds) == 0 {
		seeds = cfg.Grid.Seeds
	}
	if len(seeds) == 0 {
		return nil, nil, fmt.Errorf("no grid seeds: use --seeds or grid.seeds in --config")
	}

	storeCfg, err := config.ToStoreConfig(cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	log := slog.New(slog.DiscardHandler)
	if flags.Verbose {
		if errw == nil {
			errw = os.Stderr
		}
		log = slog.New(slog.NewTextHandler(errw, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	store, err := sessionstore.New(storeCfg, sessionstore.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	client, err := remote.Dial(ctx, seeds, remote.WithLogger(log), remote.WithRefreshInterval(0))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to grid: %w", err)
	}
	if err := store.Attach(ctx, client); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, func() { _ = client.Close() }, nil
}

// render writes data in the selected format.
func render(c *cli.Context, format output.Format, data any) error {
	return output.NewFormatter(format).Format(c.App.Writer, data)
}

// VersionCommand prints build information.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			flags, err := ParseGlobalFlags(c)
			if err != nil {
				return err
			}
			return render(c, flags.Output, buildinfo.Get())
		},
	}
}
