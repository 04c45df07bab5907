package mail

import (
	"bytes"
	"fmt"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/jhillyerd/enmime"
)

// send delivers one message over a fresh SMTP session. The session is
// closed on completion or error; there is no pooling and no retry.
func (a *Adapter) send(recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients")
	}

	builder := enmime.Builder().
		From("", a.opts.SelfAddress).
		Subject(subject).
		Text([]byte(body))
	for _, r := range recipients {
		builder = builder.To("", r)
	}

	part, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build message: %w", err)
	}

	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	var c *smtp.Client
	if a.opts.DisableTLS {
		c, err = smtp.Dial(a.opts.SMTPAddr)
	} else {
		c, err = smtp.DialStartTLS(a.opts.SMTPAddr, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to dial SMTP server: %w", err)
	}
	defer func() {
		_ = c.Close()
	}()

	// Authenticate when the server offers it; the in-memory test server
	// advertises PLAIN without TLS.
	if ok, _ := c.Extension("AUTH"); ok {
		auth := sasl.NewPlainClient("", a.opts.Username, a.opts.Password)
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := c.SendMail(a.opts.SelfAddress, recipients, &buf); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return c.Quit()
}
