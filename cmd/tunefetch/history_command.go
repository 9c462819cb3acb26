package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tunefetch/internal/history"
	"tunefetch/internal/queue"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var itemID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []history.Entry
			if id := strings.TrimSpace(itemID); id != "" {
				entries, err = store.ForItem(cmd.Context(), id)
			} else {
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(entries, time.Now()))
			if itemID != "" {
				for _, entry := range entries {
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderStepsTable(entry))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().StringVar(&itemID, "item", "", "Show every run of one item, with its steps")
	cmd.AddCommand(newHistoryClearCommand(ctx))
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded run",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			removed, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s)\n", removed)
			return nil
		},
	}
}

func openHistory(ctx *commandContext) (*history.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

func renderHistoryTable(entries []history.Entry, now time.Time) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		finished := "-"
		if !entry.FinishedAt.IsZero() {
			finished = humanize.RelTime(entry.FinishedAt, now, "ago", "from now")
		}
		result := entry.FinalPath
		if entry.Status == queue.StatusFailed {
			result = entry.ErrorMessage
		}
		rows = append(rows, []string{
			shortID(entry.ItemID),
			finished,
			string(entry.Status),
			sourceLabel(entry),
			entry.Elapsed().Round(time.Second).String(),
			result,
		})
	}
	return renderTable(historyColumns, rows)
}

func renderStepsTable(entry history.Entry) string {
	rows := make([][]string, 0, len(entry.Steps))
	for i, step := range entry.Steps {
		took := "-"
		if !step.StartedAt.IsZero() && !step.FinishedAt.IsZero() {
			took = step.FinishedAt.Sub(step.StartedAt).Round(100 * time.Millisecond).String()
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			step.Name,
			string(step.Status),
			took,
			step.Summary,
		})
	}
	return renderTable(stepColumns, rows)
}

func sourceLabel(entry history.Entry) string {
	if entry.Kind == queue.SourceLocal {
		return filepath.Base(entry.Source)
	}
	return entry.Source
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
