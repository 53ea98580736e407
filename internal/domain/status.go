package domain

import "fmt"

type Status string

const (
	StatusNotApplied Status = "not_applied"
	StatusApplied    Status = "applied"
	StatusFailed     Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotApplied, StatusApplied, StatusFailed:
		return true
	}
	return false
}

// Label is the human form used in exports and the spreadsheet mirror.
func (s Status) Label() string {
	switch s {
	case StatusNotApplied:
		return "Not Applied"
	case StatusApplied:
		return "Applied"
	case StatusFailed:
		return "Failed"
	}
	return string(s)
}

func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// CanTransition reports whether from -> to is a legal application transition.
// Applied is terminal.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusNotApplied, StatusFailed:
		return to == StatusApplied || to == StatusFailed
	}
	return false
}
