package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/miradorstack/opsboard/internal/deployments"
	"github.com/miradorstack/opsboard/internal/store"
)

func (c *cli) deploymentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "deployments",
		Aliases: []string{"deploy"},
		Short:   "Approve and roll out deployments",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return c.requireSession()
		},
	}
	cmd.AddCommand(
		c.deploymentsListCmd(),
		c.deploymentActionCmd("approve", "Approve a pending deployment (admin only)", (*deployments.Store).Approve),
		c.deploymentActionCmd("start", "Start an approved deployment", (*deployments.Store).Start),
		c.deploymentActionCmd("rollout", "Start an approved deployment and follow it to success", (*deployments.Store).Rollout),
		c.deploymentActionCmd("fail", "Mark a running deployment as failed", (*deployments.Store).Fail),
	)
	return cmd
}

func (c *cli) deploymentsListCmd() *cobra.Command {
	var (
		statuses        []string
		service, search string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deployments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s := c.app.Deployments
			s.UpdateFilters(ctx, func(f *deployments.Filters) {
				f.Status = nil
				for _, v := range statuses {
					f.Status = append(f.Status, deployments.Status(v))
				}
				f.Service = service
				f.Search = search
			})
			if err := s.Load(ctx); err != nil {
				return err
			}
			snap := s.Snapshot()
			if c.jsonOut {
				return c.printJSON(snap.Items)
			}
			err := c.table("ID\tNAME\tSERVICE\tVERSION\tSTATUS\tPROGRESS", func(w io.Writer) {
				for _, d := range snap.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d%%\n", d.ID, d.Name, d.Service, d.Version, d.Status, d.Progress)
				}
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "%d pending, %d running\n", len(s.Pending()), len(s.Running()))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Statuses to include")
	cmd.Flags().StringVar(&service, "service", "", "Service substring")
	cmd.Flags().StringVar(&search, "search", "", "Search name and version")
	return cmd
}

type deploymentAction func(s *deployments.Store, ctx context.Context, id, actor string) (*deployments.Deployment, error)

func (c *cli) deploymentActionCmd(use, short string, action deploymentAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := c.app.Deployments.Load(ctx); err != nil {
				return err
			}
			unsubscribe := c.followProgress(args[0])
			d, err := action(c.app.Deployments, ctx, args[0], c.app.Session.CurrentUser())
			unsubscribe()
			if err != nil {
				return err
			}
			return c.printDeployment(d)
		},
	}
}

// followProgress prints each progress change of id while a rollout runs.
func (c *cli) followProgress(id string) func() {
	if c.jsonOut {
		return func() {}
	}
	last := -1
	return c.app.Deployments.Subscribe(func(st store.State[deployments.Deployment, deployments.Filters]) {
		for _, d := range st.Items {
			if d.ID != id || d.Status != deployments.StatusRunning || d.Progress == last {
				continue
			}
			last = d.Progress
			fmt.Fprintf(c.out, "%s  %3d%%  %s\n", time.Now().Format(time.TimeOnly), d.Progress, runningStep(d))
		}
	})
}

func runningStep(d deployments.Deployment) string {
	for _, st := range d.Steps {
		if st.Status == deployments.StepRunning {
			return st.Title
		}
	}
	return ""
}

func (c *cli) printDeployment(d *deployments.Deployment) error {
	if c.jsonOut {
		return c.printJSON(d)
	}
	fmt.Fprintf(c.out, "%s  %s %s (%s)\nstatus %s, progress %d%%\n", d.ID, d.Name, d.Version, d.Service, d.Status, d.Progress)
	return c.table("STEP\tSTATUS", func(w io.Writer) {
		for _, st := range d.Steps {
			fmt.Fprintf(w, "%s\t%s\n", st.Title, st.Status)
		}
	})
}
