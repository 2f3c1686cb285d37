package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/miradorstack/opsboard/internal/incidents"
	"github.com/miradorstack/opsboard/internal/store"
)

func (c *cli) incidentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "incidents",
		Aliases: []string{"inc"},
		Short:   "List and manage incidents",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			return c.requireSession()
		},
	}
	cmd.AddCommand(
		c.incidentsListCmd(),
		c.incidentShowCmd(),
		c.incidentCreateCmd(),
		c.incidentStatusCmd(),
		c.incidentAssignCmd(),
		c.incidentCommentCmd(),
		c.incidentDeleteCmd(),
	)
	return cmd
}

func (c *cli) incidentsListCmd() *cobra.Command {
	var (
		statuses, severities []string
		service, search      string
		from, to, sortField  string
		asc, reset           bool
		page, pageSize       int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List incidents; filters are remembered between runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s := c.app.Incidents
			s.Hydrate(ctx)
			if reset {
				s.ResetFilters(ctx)
			}

			flags := cmd.Flags()
			if flags.Changed("status") || flags.Changed("severity") || flags.Changed("service") ||
				flags.Changed("search") || flags.Changed("from") || flags.Changed("to") {
				s.UpdateFilters(ctx, func(f *incidents.Filters) {
					if flags.Changed("status") {
						f.Status = nil
						for _, v := range statuses {
							f.Status = append(f.Status, incidents.Status(v))
						}
					}
					if flags.Changed("severity") {
						f.Severity = nil
						for _, v := range severities {
							f.Severity = append(f.Severity, incidents.Severity(v))
						}
					}
					if flags.Changed("service") {
						f.Service = service
					}
					if flags.Changed("search") {
						f.Search = search
					}
					if flags.Changed("from") {
						f.DateFrom = from
					}
					if flags.Changed("to") {
						f.DateTo = to
					}
				})
			}
			if flags.Changed("sort") || flags.Changed("asc") {
				if sortField == "" {
					sortField = s.Snapshot().Sort.Field
				}
				if !incidents.ValidSortField(sortField) {
					return fmt.Errorf("unknown sort field %q", sortField)
				}
				dir := store.Desc
				if asc {
					dir = store.Asc
				}
				s.ChangeSort(ctx, store.Sort{Field: sortField, Direction: dir})
			}
			if pageSize > 0 {
				s.ChangePageSize(pageSize)
			}
			if page > 1 {
				s.ChangePage(page)
			}

			if err := s.Load(ctx); err != nil {
				return err
			}
			snap := s.Snapshot()
			if c.jsonOut {
				return c.printJSON(store.Page[incidents.Incident]{
					Items:    snap.Items,
					Total:    snap.Pagination.Total,
					Page:     snap.Pagination.Page,
					PageSize: snap.Pagination.PageSize,
				})
			}
			err := c.table("ID\tSEVERITY\tSTATUS\tSLA\tSERVICE\tASSIGNEE\tTITLE", func(w io.Writer) {
				for _, inc := range snap.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						inc.ID, inc.Severity, inc.Status, inc.SLAStatus, inc.Service, dash(inc.AssignedTo), inc.Title)
				}
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "page %d of %d, %d incidents", snap.Pagination.Page, s.TotalPages(), snap.Pagination.Total)
			if s.HasActiveFilters() {
				fmt.Fprint(c.out, " (filtered)")
			}
			fmt.Fprintln(c.out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&statuses, "status", nil, "Statuses to include")
	f.StringSliceVar(&severities, "severity", nil, "Severities to include")
	f.StringVar(&service, "service", "", "Service substring")
	f.StringVar(&search, "search", "", "Search title and description")
	f.StringVar(&from, "from", "", "Created on or after (RFC3339 or YYYY-MM-DD)")
	f.StringVar(&to, "to", "", "Created on or before (RFC3339 or YYYY-MM-DD)")
	f.StringVar(&sortField, "sort", "", "Sort by createdAt, updatedAt, severity, status or service")
	f.BoolVar(&asc, "asc", false, "Sort ascending")
	f.BoolVar(&reset, "reset", false, "Forget remembered filters and sort")
	f.IntVar(&page, "page", 1, "Page number")
	f.IntVar(&pageSize, "page-size", 0, "Page size")
	return cmd
}

func (c *cli) incidentShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one incident with its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inc, err := c.app.Incidents.LoadOne(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printIncident(inc)
		},
	}
}

func (c *cli) incidentCreateCmd() *cobra.Command {
	var (
		p   incidents.CreatePayload
		sev string
		sla time.Duration
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new incident",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p.Severity = incidents.Severity(sev)
			if sla > 0 {
				due := time.Now().Add(sla)
				p.SLADueAt = &due
			}
			inc, err := c.app.Incidents.Create(cmd.Context(), p)
			if err != nil {
				return err
			}
			return c.printIncident(inc)
		},
	}
	f := cmd.Flags()
	f.StringVar(&p.Title, "title", "", "Title")
	f.StringVar(&p.Description, "description", "", "Description")
	f.StringVar(&sev, "severity", string(incidents.SeverityMedium), "critical, high, medium or low")
	f.StringVar(&p.Service, "service", "", "Owning service")
	f.StringSliceVar(&p.AffectedSystems, "affected", nil, "Affected systems")
	f.StringSliceVar(&p.Tags, "tag", nil, "Tags")
	f.StringVar(&p.AssignedTo, "assign", "", "Assignee")
	f.DurationVar(&sla, "sla", 0, "SLA window from now")
	return cmd
}

func (c *cli) incidentStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move an incident along its lifecycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			// The transition check needs the current status.
			if _, err := c.app.Incidents.LoadOne(ctx, args[0]); err != nil {
				return err
			}
			inc, err := c.app.Incidents.ChangeStatus(ctx, args[0], incidents.Status(args[1]))
			if err != nil {
				return err
			}
			return c.printIncident(inc)
		},
	}
}

func (c *cli) incidentAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign <id> <user>",
		Short: "Assign an incident",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inc, err := c.app.Incidents.Assign(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return c.printIncident(inc)
		},
	}
}

func (c *cli) incidentCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <id> <message...>",
		Short: "Add a comment to the timeline",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inc, err := c.app.Incidents.AddComment(cmd.Context(), args[0],
				strings.Join(args[1:], " "), c.app.Session.CurrentUser())
			if err != nil {
				return err
			}
			return c.printIncident(inc)
		},
	}
}

func (c *cli) incidentDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Incidents.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func (c *cli) printIncident(inc *incidents.Incident) error {
	if c.jsonOut {
		return c.printJSON(inc)
	}
	fmt.Fprintf(c.out, "%s  %s\n", inc.ID, inc.Title)
	fmt.Fprintf(c.out, "severity %s, status %s, sla %s, service %s, assignee %s\n",
		inc.Severity, inc.Status, inc.SLAStatus, inc.Service, dash(inc.AssignedTo))
	if inc.SLADueAt != nil {
		fmt.Fprintf(c.out, "sla due %s\n", inc.SLADueAt.Format(time.RFC3339))
	}
	if inc.Description != "" {
		fmt.Fprintf(c.out, "\n%s\n", inc.Description)
	}
	if len(inc.Timeline) == 0 {
		return nil
	}
	fmt.Fprintln(c.out)
	return c.table("WHEN\tTYPE\tACTOR\tMESSAGE", func(w io.Writer) {
		for _, ev := range inc.Timeline {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ev.At.Format(time.RFC3339), ev.Type, dash(ev.Actor), ev.Message)
		}
	})
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
