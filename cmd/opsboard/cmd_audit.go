package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/miradorstack/opsboard/internal/audit"
)

func (c *cli) auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the local audit trail",
	}
	cmd.AddCommand(c.auditListCmd())
	return cmd
}

func (c *cli) auditListCmd() *cobra.Command {
	var (
		f              audit.Filters
		page, pageSize int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded actions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s := c.app.Audit
			s.UpdateFilters(ctx, func(dst *audit.Filters) { *dst = f })
			if pageSize > 0 {
				s.ChangePageSize(pageSize)
			}
			s.ChangePage(page)
			if err := s.Load(ctx); err != nil {
				return err
			}
			entries := s.PageItems()
			if c.jsonOut {
				return c.printJSON(entries)
			}
			err := c.table("WHEN\tUSER\tACTION\tRESOURCE", func(w io.Writer) {
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.User, e.Action, e.Resource)
				}
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "page %d of %d, %d matching\n", s.Snapshot().Pagination.Page, s.TotalPages(), len(s.Visible()))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.User, "user", "", "User substring")
	flags.StringVar(&f.Action, "action", "", "Action substring")
	flags.StringVar(&f.Resource, "resource", "", "Resource substring")
	flags.StringVar(&f.DateFrom, "from", "", "On or after (RFC3339 or YYYY-MM-DD)")
	flags.StringVar(&f.DateTo, "to", "", "On or before (RFC3339 or YYYY-MM-DD)")
	flags.IntVar(&page, "page", 1, "Page number")
	flags.IntVar(&pageSize, "page-size", 0, "Page size")
	return cmd
}
