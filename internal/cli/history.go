package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/hdlelab/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Last     int
}

// HistoryEntry is one recorded run.
type HistoryEntry struct {
	RunID       string        `json:"run_id"`
	Kind        string        `json:"kind"`
	Toplevels   []string      `json:"toplevels"`
	StartedAt   time.Time     `json:"started_at"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Modules     int           `json:"modules"`
	Diagnostics int           `json:"diagnostics"`
	Canceled    bool          `json:"canceled"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded build and rebuild runs",
		Long: `List the runs recorded in a database, oldest first.

Each entry shows how many modules the run created and how many
diagnostics it reported.

Examples:
  hdlelab history --db build.db
  hdlelab history --db build.db --last 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().IntVar(&opts.Last, "last", 0, "show only the most recent N runs")
	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	builds, err := st.Builds(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read builds", err)
	}
	entries := historyEntries(builds, opts.Last)

	if opts.Format == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: entries})
	}
	return outputHistoryText(cmd, entries)
}

// historyEntries orders builds by start time and keeps the last n
// (all when n <= 0).
func historyEntries(builds []store.Build, n int) []HistoryEntry {
	sort.SliceStable(builds, func(i, j int) bool {
		return builds[i].StartedAt.Before(builds[j].StartedAt)
	})
	if n > 0 && len(builds) > n {
		builds = builds[len(builds)-n:]
	}

	entries := make([]HistoryEntry, 0, len(builds))
	for _, b := range builds {
		entries = append(entries, HistoryEntry{
			RunID:       b.RunID,
			Kind:        b.Kind,
			Toplevels:   b.Toplevels,
			StartedAt:   b.StartedAt,
			Elapsed:     b.FinishedAt.Sub(b.StartedAt),
			Modules:     b.Modules,
			Diagnostics: b.Diagnostics,
			Canceled:    b.Canceled,
		})
	}
	return entries
}

func outputHistoryText(cmd *cobra.Command, entries []HistoryEntry) error {
	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, e := range entries {
		status := ""
		if e.Canceled {
			status = " (canceled)"
		}
		fmt.Fprintf(w, "%s  %-7s %s  %d modules, %d diagnostics, %s%s\n",
			truncateID(e.RunID), e.Kind, strings.Join(e.Toplevels, ","),
			e.Modules, e.Diagnostics, e.Elapsed.Round(time.Millisecond), status)
	}
	return nil
}

// truncateID shortens an ID for display (first 8 chars).
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
