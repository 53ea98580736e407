package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrMalformedCandidate = errors.New("malformed candidate")
)

type TransitionError struct {
	JobID    string
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("job %s: %s -> %s: %v", e.JobID, e.From, e.To, ErrInvalidTransition)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// Validate rejects candidates that cannot become postings.
func (c CandidatePosting) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: empty title", ErrMalformedCandidate)
	}
	link := strings.TrimSpace(c.Link)
	if link == "" {
		return fmt.Errorf("%w: empty link", ErrMalformedCandidate)
	}
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedCandidate, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: link %q is not absolute http(s)", ErrMalformedCandidate, link)
	}
	return nil
}
