package domain

import (
	"net/http"
	"time"
)

// FetchTask is one cell of the keyword x country x source cross-product.
type FetchTask struct {
	Keyword  string
	Country  string
	SourceID string
}

// RequestSpec is what an adapter wants fetched for a task.
type RequestSpec struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte // sent as-is; nil for GET
}

type RawResponse struct {
	Task      FetchTask
	URL       string
	Status    int
	Body      []byte
	FetchedAt time.Time
	Truncated bool // Body was cut at the fetcher's size limit
}

// Signal is an optional structured field some sources expose directly.
type Signal int

const (
	SignalUnknown Signal = iota
	SignalYes
	SignalNo
)

type Seniority int

const (
	SeniorityUnknown Seniority = iota
	SeniorityEntry
	SeniorityAssociate
	SeniorityMid
	SenioritySenior
)

type CandidatePosting struct {
	Title    string
	SourceID string
	Country  string
	Link     string
	Snippet  string

	Sponsorship Signal
	Seniority   Seniority
}

type JobPosting struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	SourceID  string    `json:"source"`
	Country   string    `json:"country"`
	Link      string    `json:"link"`
	FirstSeen time.Time `json:"first_seen"`
}

type ApplicationRecord struct {
	JobID         string     `json:"job_id"`
	Status        Status     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
}

// Record pairs a posting with its application state.
type Record struct {
	Posting     JobPosting        `json:"posting"`
	Application ApplicationRecord `json:"application"`
}
