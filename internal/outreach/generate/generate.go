// Package generate produces application text for a posting.
package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrGeneration = errors.New("content generation failed")

type Generator interface {
	Generate(ctx context.Context, title, description, resume string) (string, error)
}

const (
	ProviderTemplate  = "template"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider string
	Model    string
	BaseURL  string
	APIKey   string
}

func New(s Settings) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case "", ProviderTemplate:
		return NewTemplate()
	case ProviderOpenAI:
		return NewOpenAI(s.APIKey, s.Model, s.BaseURL), nil
	case ProviderAnthropic:
		return NewAnthropic(s.APIKey, s.Model, s.BaseURL), nil
	}
	return nil, fmt.Errorf("unknown generator provider %q", s.Provider)
}

func prompt(title, description, resume string) string {
	return fmt.Sprintf(
		"Generate a tailored cover letter for the following job:\nJob Title: %s\nJob Description: %s\nBased on the candidate resume:\n%s\n",
		title, description, resume)
}

func fail(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGeneration, fmt.Sprintf(format, args...))
}
