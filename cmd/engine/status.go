package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/poll"
	"visahunt-engine/internal/store"
)

func newStatusCmd(f *rootFlags) *cobra.Command {
	var (
		status string
		runs   int
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show tracked jobs and recent runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter domain.Status
			if status != "" {
				s, err := domain.ParseStatus(status)
				if err != nil {
					return err
				}
				filter = s
			}

			cfg, log, err := f.loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			js, err := openStore(cmd.Context(), cfg, log, false)
			if err != nil {
				return err
			}
			defer js.Close()

			recs := js.All()
			if filter != "" {
				recs = js.RecordsFor(filter)
			}
			out := cmd.OutOrStdout()
			renderRecords(out, recs)

			if runs > 0 {
				rr, err := js.Runs(cmd.Context(), runs)
				if err != nil {
					return err
				}
				renderRuns(out, rr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show records in this status (not_applied, applied, failed)")
	cmd.Flags().IntVar(&runs, "runs", 5, "how many recent runs to list, 0 to hide")
	return cmd
}

func renderRecords(w io.Writer, recs []domain.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Title", "Source", "Country", "Status", "Attempts", "Last error", "Link"})
	for _, r := range recs {
		t.AppendRow(table.Row{
			r.Posting.Title,
			r.Posting.SourceID,
			r.Posting.Country,
			r.Application.Status.Label(),
			r.Application.Attempts,
			r.Application.LastError,
			r.Posting.Link,
		})
	}
	t.AppendFooter(table.Row{"Total", len(recs)})
	t.Render()
}

func renderRuns(w io.Writer, runs []store.RunRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Recent runs")
	t.AppendHeader(table.Row{"Run", "Started", "Duration", "New", "Applied", "Failed tasks", "Result"})
	for _, r := range runs {
		var s poll.Summary
		result := "ok"
		if err := json.Unmarshal(r.Summary, &s); err != nil {
			result = "unreadable summary"
		} else if s.Stopped {
			result = "stopped"
		} else if !s.OK() {
			result = fmt.Sprintf("%d errors", len(s.Errors))
		}
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			s.New,
			s.Applied,
			s.TasksFailed,
			result,
		})
	}
	t.Render()
}
