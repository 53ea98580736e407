package sink

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// IMAPDraft stores each application as a draft for manual review instead
// of sending it.
type IMAPDraft struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Mailbox  string

	TLSConfig *tls.Config
}

func (d *IMAPDraft) Send(ctx context.Context, recipient, subject, body string) error {
	if d.Username == "" || d.Password == "" {
		return sendErr("imap username/password is required")
	}
	mailbox := d.Mailbox
	if mailbox == "" {
		mailbox = "Drafts"
	}
	from := d.From
	if from == "" {
		from = d.Username
	}

	msg, err := ComposeMessage(from, recipient, subject, body, time.Now())
	if err != nil {
		return sendErr("compose: %v", err)
	}

	tlsCfg := d.TLSConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: d.Host}
	}
	c, err := imapclient.DialTLS(net.JoinHostPort(d.Host, strconv.Itoa(d.Port)), &imapclient.Options{TLSConfig: tlsCfg})
	if err != nil {
		return sendErr("imap dial: %v", err)
	}
	defer c.Close()

	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if err := c.Login(d.Username, d.Password).Wait(); err != nil {
		return sendErr("imap login: %v", err)
	}

	cmd := c.Append(mailbox, int64(len(msg)), &imap.AppendOptions{
		Flags: []imap.Flag{imap.FlagDraft},
		Time:  time.Now(),
	})
	if _, err := cmd.Write(msg); err != nil {
		return sendErr("imap append write: %v", err)
	}
	if err := cmd.Close(); err != nil {
		return sendErr("imap append close: %v", err)
	}
	if _, err := cmd.Wait(); err != nil {
		return sendErr("imap append: %v", err)
	}

	_ = c.Logout().Wait()
	return nil
}
