package sink

import (
	"fmt"

	"visahunt-engine/internal/logger"
)

// Settings selects and configures a provider. Password doubles as the
// bot token for telegram.
type Settings struct {
	Provider string
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Mailbox  string
	ChatID   int64
	Insecure bool
}

func New(s Settings, log logger.Logger) (Sink, error) {
	switch normalizeProvider(s.Provider) {
	case "", ProviderLog:
		return NewLog(log), nil
	case ProviderSMTP:
		return &SMTP{
			Host:     s.Host,
			Port:     s.Port,
			Username: s.Username,
			Password: s.Password,
			From:     s.From,
			Insecure: s.Insecure,
			Log:      log.With(logger.Component("smtp")),
		}, nil
	case ProviderIMAPDraft:
		return &IMAPDraft{Host: s.Host, Port: s.Port, Username: s.Username, Password: s.Password, From: s.From, Mailbox: s.Mailbox}, nil
	case ProviderTelegram:
		return NewTelegram(s.Password, s.ChatID)
	}
	return nil, fmt.Errorf("unknown sink provider %q", s.Provider)
}
