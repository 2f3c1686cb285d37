package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/miradorstack/opsboard/internal/logs"
	"github.com/miradorstack/opsboard/internal/store"
)

func (c *cli) logsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Follow the log stream",
	}
	cmd.AddCommand(c.logsTailCmd())
	return cmd
}

func (c *cli) logsTailCmd() *cobra.Command {
	var (
		levels          []string
		service, search string
		duration        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print streamed entries until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s := c.app.Logs
			err := s.UpdateFilters(ctx, func(f *logs.Filters) {
				if cmd.Flags().Changed("level") {
					f.Levels = nil
					for _, l := range levels {
						f.Levels = append(f.Levels, logs.Level(l))
					}
				}
				f.Service = service
				f.Search = search
			})
			if err != nil {
				return err
			}

			var (
				mu   sync.Mutex
				seen = make(map[string]struct{})
			)
			unsubscribe := s.Subscribe(func(st store.State[logs.Entry, logs.Filters]) {
				mu.Lock()
				defer mu.Unlock()
				var fresh []logs.Entry
				for _, e := range st.Items {
					if _, ok := seen[e.ID]; ok {
						continue
					}
					seen[e.ID] = struct{}{}
					fresh = append(fresh, e)
				}
				// Items are newest first.
				slices.Reverse(fresh)
				for _, e := range fresh {
					if logs.Match(e, st.Filters) {
						c.printLogEntry(e)
					}
				}
			})
			defer unsubscribe()

			if err := s.Start(ctx); err != nil {
				return err
			}
			defer s.Stop()

			var timeout <-chan time.Time
			if duration > 0 {
				timer := time.NewTimer(duration)
				defer timer.Stop()
				timeout = timer.C
			}
			select {
			case <-ctx.Done():
			case <-timeout:
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&levels, "level", nil, "Levels to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&service, "service", "", "Service substring")
	cmd.Flags().StringVar(&search, "search", "", "Search messages")
	cmd.Flags().DurationVar(&duration, "for", 0, "Stop after this long; 0 follows until interrupted")
	return cmd
}

func (c *cli) printLogEntry(e logs.Entry) {
	if c.jsonOut {
		_ = json.NewEncoder(c.out).Encode(logs.ToDTO(e))
		return
	}
	line := fmt.Sprintf("%s %-5s %-12s %s", e.Timestamp.Format(time.TimeOnly), e.Level, e.Service, e.Message)
	if len(e.Context) > 0 {
		if ctx, err := json.Marshal(e.Context); err == nil {
			line += " " + string(ctx)
		}
	}
	fmt.Fprintln(c.out, line)
}
