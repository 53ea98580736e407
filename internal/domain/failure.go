package domain

import "fmt"

type FailureKind int

const (
	FailureTimeout FailureKind = iota + 1
	FailureConnection
	FailureHTTP
)

func (k FailureKind) String() string {
	switch k {
	case FailureTimeout:
		return "timeout"
	case FailureConnection:
		return "connection_error"
	case FailureHTTP:
		return "http_error"
	}
	return "unknown"
}

// FetchFailure is the typed outcome of a fetch that produced no usable response.
type FetchFailure struct {
	Task    FetchTask
	Kind    FailureKind
	Status  int // set for FailureHTTP
	Message string
}

func (f *FetchFailure) Error() string {
	if f.Kind == FailureHTTP {
		return fmt.Sprintf("%s %s/%s/%s: status %d", f.Kind, f.Task.SourceID, f.Task.Keyword, f.Task.Country, f.Status)
	}
	return fmt.Sprintf("%s %s/%s/%s: %s", f.Kind, f.Task.SourceID, f.Task.Keyword, f.Task.Country, f.Message)
}

// Retryable is true for transport-level failures only. HTTP errors are final.
func (f *FetchFailure) Retryable() bool {
	return f.Kind == FailureTimeout || f.Kind == FailureConnection
}
