package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"visahunt-engine/internal/logger"
)

// SMTP submits mail over implicit TLS (port 465) or STARTTLS (anything else).
// Insecure speaks plain SMTP, for a relay on localhost.
type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Insecure bool

	TLSConfig *tls.Config
	Log       logger.Logger
}

func (s *SMTP) addr() string { return net.JoinHostPort(s.Host, strconv.Itoa(s.Port)) }

func (s *SMTP) dial() (*smtp.Client, error) {
	if s.Insecure {
		return smtp.Dial(s.addr())
	}
	tlsCfg := s.TLSConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: s.Host}
	}
	if s.Port == 465 {
		return smtp.DialTLS(s.addr(), tlsCfg)
	}
	return smtp.DialStartTLS(s.addr(), tlsCfg)
}

func (s *SMTP) Send(ctx context.Context, recipient, subject, body string) error {
	from := s.From
	if from == "" {
		from = s.Username
	}

	msg, err := ComposeMessage(from, recipient, subject, body, time.Now())
	if err != nil {
		return sendErr("compose: %v", err)
	}

	c, err := s.dial()
	if err != nil {
		return sendErr("dial %s: %v", s.addr(), err)
	}
	defer c.Close()

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if s.Username != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.Username, s.Password)); err != nil {
			return sendErr("auth: %v", err)
		}
	}
	if err := c.SendMail(from, []string{recipient}, bytes.NewReader(msg)); err != nil {
		return sendErr("send to %s: %v", recipient, err)
	}
	// the server accepted the message; a failed QUIT does not undo that
	if err := c.Quit(); err != nil && s.Log != nil {
		s.Log.Warn("smtp quit", logger.String("host", s.Host), logger.Error(err))
	}
	return nil
}
