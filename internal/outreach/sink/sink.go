// Package sink delivers generated applications.
package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrSend = errors.New("send failed")

type Sink interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

const (
	ProviderLog       = "log"
	ProviderSMTP      = "smtp"
	ProviderIMAPDraft = "imap_draft"
	ProviderTelegram  = "telegram"
)

func sendErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSend, fmt.Sprintf(format, args...))
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
