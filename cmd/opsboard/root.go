package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/miradorstack/opsboard/internal/app"
	"github.com/miradorstack/opsboard/internal/config"
	"github.com/miradorstack/opsboard/internal/utils"
)

// cli carries the state shared by every subcommand. The app is built in the root's
// pre-run hook and closed in its post-run hook.
type cli struct {
	configPath string
	baseURL    string
	jsonOut    bool
	verbose    bool

	app *app.App
	out io.Writer
}

// execute runs the command line in args and always releases the app, even when the
// command failed.
func execute(ctx context.Context, args []string, out io.Writer) error {
	c := &cli{}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, c.close(ctx))
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "opsboard",
		Short:         "Operations console for incidents, deployments, logs and the audit trail",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&c.baseURL, "base-url", "", "Backend URL; empty runs the mock backend in process")
	root.PersistentFlags().BoolVar(&c.jsonOut, "json", false, "Print JSON instead of tables")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Log at debug level")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.incidentsCmd(),
		c.deploymentsCmd(),
		c.logsCmd(),
		c.auditCmd(),
	)
	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.baseURL != "" {
		cfg.Client.BaseURL = c.baseURL
	}
	// Command output goes to stdout; diagnostics stay quiet unless asked for.
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	logger := utils.NewLogger(level, cfg.Logging.JSON)
	slog.SetDefault(logger)

	c.app, err = app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	c.out = cmd.OutOrStdout()
	return nil
}

func (c *cli) close(ctx context.Context) error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close(context.WithoutCancel(ctx))
	c.app = nil
	return err
}

// requireSession fails unless a persisted session was restored.
func (c *cli) requireSession() error {
	if !c.app.Session.Snapshot().Authenticated {
		return fmt.Errorf("not signed in; run opsboard login")
	}
	return nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes rows under header, tab-aligned.
func (c *cli) table(header string, rows func(w io.Writer)) error {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	rows(tw)
	return tw.Flush()
}
