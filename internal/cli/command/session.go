package command

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/gridsession-go/internal/cli/output"
	"github.com/yndnr/gridsession-go/pkg/sessionstore"
)

// SessionsCommand returns the sessions command group.
func SessionsCommand() *cli.Command {
	return &cli.Command{
		Name:    "sessions",
		Aliases: []string{"sess"},
		Usage:   "Inspect and manage sessions",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Show one session",
				ArgsUsage: "<sid>",
				Action:    storeAction(sessionGet),
			},
			{
				Name:   "list",
				Usage:  "List every session in the primary map",
				Action: storeAction(sessionList),
			},
			{
				Name:   "count",
				Usage:  "Count sessions in the primary map",
				Action: storeAction(sessionCount),
			},
			{
				Name:      "destroy",
				Usage:     "Remove a session from every map keyed by session id",
				ArgsUsage: "<sid>",
				Action:    storeAction(sessionDestroy),
			},
			{
				Name:  "clear",
				Usage: "Remove every entry from every configured map",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Confirm the operation"},
				},
				Action: storeAction(sessionClear),
			},
		},
	}
}

func sidArg(c *cli.Context) (string, error) {
	sid := c.Args().First()
	if sid == "" || c.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one session id")
	}
	return sid, nil
}

func sessionGet(ctx context.Context, c *cli.Context, s *sessionstore.Store, flags *GlobalFlags) error {
	sid, err := sidArg(c)
	if err != nil {
		return err
	}
	sess, err := s.Get(ctx, sid)
	if err != nil {
		return err
	}
	if sess == nil {
		return cli.Exit(fmt.Sprintf("session %s not found", sid), 1)
	}
	if flags.Output != output.FormatTable {
		return render(c, flags.Output, sess)
	}
	return render(c, flags.Output, sessionTable(sess))
}

// sessionTable lists cookie attributes then data fields in key order.
func sessionTable(sess *sessionstore.Session) *output.Table {
	t := &output.Table{Headers: []string{"FIELD", "VALUE"}}
	t.AddRow("cookie.max_age", maxAge(sess))
	if sess.Cookie.Expires != nil {
		t.AddRow("cookie.expires", sess.Cookie.Expires.Format(time.RFC3339))
	}
	keys := make([]string, 0, len(sess.Data))
	for k := range sess.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.AddRow("data."+k, fmt.Sprint(sess.Data[k]))
	}
	return t
}

func maxAge(sess *sessionstore.Session) string {
	if sess.Cookie.MaxAge == nil {
		return "-"
	}
	return (time.Duration(*sess.Cookie.MaxAge) * time.Millisecond).String()
}

func sessionList(ctx context.Context, c *cli.Context, s *sessionstore.Store, flags *GlobalFlags) error {
	sessions, err := s.All(ctx)
	if err != nil {
		return err
	}
	if flags.Output != output.FormatTable {
		return render(c, flags.Output, sessions)
	}

	t := &output.Table{Headers: []string{"#", "MAX_AGE", "FIELDS"}}
	for i, sess := range sessions {
		t.AddRow(strconv.Itoa(i+1), maxAge(sess), strconv.Itoa(len(sess.Data)))
	}
	return render(c, flags.Output, t)
}

func sessionCount(ctx context.Context, c *cli.Context, s *sessionstore.Store, flags *GlobalFlags) error {
	n, err := s.Length(ctx)
	if err != nil {
		return err
	}
	if flags.Output != output.FormatTable {
		return render(c, flags.Output, map[string]int{"count": n})
	}
	_, err = fmt.Fprintln(c.App.Writer, n)
	return err
}

func sessionDestroy(ctx context.Context, c *cli.Context, s *sessionstore.Store, _ *GlobalFlags) error {
	sid, err := sidArg(c)
	if err != nil {
		return err
	}
	if err := s.Destroy(ctx, sid); err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "session %s destroyed\n", sid)
	return err
}

func sessionClear(ctx context.Context, c *cli.Context, s *sessionstore.Store, _ *GlobalFlags) error {
	if !c.Bool("yes") {
		return cli.Exit("refusing to clear every map without --yes", 1)
	}
	if err := s.Clear(ctx); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.App.Writer, "cleared %d map(s)\n", len(s.Config().Maps))
	return err
}
