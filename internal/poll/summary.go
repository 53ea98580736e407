package poll

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"visahunt-engine/internal/domain"
)

type TaskFailure struct {
	Source  string `json:"source"`
	Keyword string `json:"keyword"`
	Country string `json:"country"`
	Kind    string `json:"kind"`
	Status  int    `json:"status,omitempty"`
	Message string `json:"message"`
}

// Summary is the account of one run. It is persisted with the run record
// and returned by the HTTP API.
type Summary struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	DryRun     bool          `json:"dry_run"`
	Stopped    bool          `json:"stopped"`

	TasksPlanned     int `json:"tasks_planned"`
	TasksAttempted   int `json:"tasks_attempted"`
	TasksFailed      int `json:"tasks_failed"`
	TasksSkipped     int `json:"tasks_skipped"`
	ExtractionErrors int `json:"extraction_errors"`

	CandidatesSeen int `json:"candidates_seen"`
	Rejected       int `json:"rejected"`
	Ineligible     int `json:"ineligible"`

	PostingsFound int `json:"postings_found"`
	Deduped       int `json:"deduped"`
	New           int `json:"new"`
	Known         int `json:"known"`

	OutreachSkipped string `json:"outreach_skipped,omitempty"`
	Applied         int    `json:"applied"`
	ApplyFailed     int    `json:"apply_failed"`
	ApplyPending    int    `json:"apply_pending"`

	Failures []TaskFailure `json:"failures,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
}

func (s *Summary) addFailure(t domain.FetchTask, f *domain.FetchFailure) {
	s.Failures = append(s.Failures, TaskFailure{
		Source:  t.SourceID,
		Keyword: t.Keyword,
		Country: t.Country,
		Kind:    f.Kind.String(),
		Status:  f.Status,
		Message: f.Message,
	})
}

func (s *Summary) addError(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

// OK is true when nothing outside individual tasks went wrong.
func (s Summary) OK() bool { return len(s.Errors) == 0 }

// Render draws the summary as plain-text tables.
func (s Summary) Render() string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run " + s.RunID)
	t.AppendHeader(table.Row{"Stage", "Count"})
	t.AppendRows([]table.Row{
		{"Tasks planned", s.TasksPlanned},
		{"Tasks attempted", s.TasksAttempted},
		{"Tasks failed", s.TasksFailed},
		{"Tasks skipped", s.TasksSkipped},
		{"Extraction errors", s.ExtractionErrors},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Candidates seen", s.CandidatesSeen},
		{"Rejected (malformed)", s.Rejected},
		{"Ineligible", s.Ineligible},
		{"Postings found", s.PostingsFound},
		{"Deduplicated", s.Deduped},
		{"New", s.New},
		{"Already known", s.Known},
	})
	t.AppendSeparator()
	if s.OutreachSkipped != "" {
		t.AppendRow(table.Row{"Outreach", "skipped: " + s.OutreachSkipped})
	} else {
		t.AppendRows([]table.Row{
			{"Applied", s.Applied},
			{"Apply failed", s.ApplyFailed},
			{"Apply pending", s.ApplyPending},
		})
	}
	t.AppendFooter(table.Row{"Duration", s.Duration.Round(time.Millisecond).String()})

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")

	if len(s.Failures) > 0 {
		ft := table.NewWriter()
		ft.SetStyle(table.StyleLight)
		ft.SetTitle("Failed tasks")
		ft.AppendHeader(table.Row{"Source", "Keyword", "Country", "Kind", "Status", "Message"})
		for _, f := range s.Failures {
			status := ""
			if f.Status > 0 {
				status = fmt.Sprint(f.Status)
			}
			ft.AppendRow(table.Row{f.Source, f.Keyword, f.Country, f.Kind, status, f.Message})
		}
		b.WriteString(ft.Render())
		b.WriteString("\n")
	}
	for _, e := range s.Errors {
		b.WriteString("error: " + e + "\n")
	}
	return b.String()
}
