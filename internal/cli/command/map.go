package command

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/gridsession-go/internal/cli/output"
	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

// MapCommand returns the map command group.
func MapCommand() *cli.Command {
	return &cli.Command{
		Name:  "map",
		Usage: "Inspect the configured session maps",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List configured maps with their index",
				Action: storeAction(mapList),
			},
			{
				Name:      "get",
				Usage:     "Show the value stored under key in the map at index",
				ArgsUsage: "<index> <key>",
				Action:    storeAction(mapGet),
			},
		},
	}
}

func mapList(ctx context.Context, c *cli.Context, s *sessionstore.Store, flags *GlobalFlags) error {
	type mapRow struct {
		Index int    `json:"index" yaml:"index"`
		Name  string `json:"name" yaml:"name"`
		Keyed bool   `json:"keyed" yaml:"keyed"`
		Bean  bool   `json:"bean" yaml:"bean"`
	}
	var rows []mapRow
	for i, m := range s.Config().Maps {
		rows = append(rows, mapRow{Index: i, Name: m.Name, Keyed: m.Key != nil, Bean: m.Bean != nil})
	}
	return render(c, flags.Output, rows)
}

func mapGet(ctx context.Context, c *cli.Context, s *sessionstore.Store, flags *GlobalFlags) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("expected <index> <key>")
	}
	index, err := strconv.Atoi(c.Args().Get(0))
	if err != nil {
		return fmt.Errorf("invalid map index %q", c.Args().Get(0))
	}
	key := c.Args().Get(1)

	var v any
	found, err := s.GetFromMap(ctx, key, index, &v)
	if err != nil {
		return err
	}
	if !found {
		return cli.Exit(fmt.Sprintf("%s not found in map %d", key, index), 1)
	}
	if flags.Output == output.FormatTable {
		if _, ok := v.(map[string]any); !ok {
			_, err := fmt.Fprintln(c.App.Writer, v)
			return err
		}
	}
	return render(c, flags.Output, v)
}
