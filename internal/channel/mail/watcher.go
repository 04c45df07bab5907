package mail

import (
	"context"
	"time"

	idle "github.com/emersion/go-imap-idle"
	imapclient "github.com/emersion/go-imap/client"
)

// watchRetrySleep is the backoff after a connection or IDLE error.
const watchRetrySleep = 10 * time.Second

// WatchMailbox runs an IMAP IDLE loop against INBOX and invokes onUpdate
// whenever the server reports mailbox growth. Connections are
// re-established with a backoff after errors. Blocks until ctx is
// canceled.
func (a *Adapter) WatchMailbox(ctx context.Context, onUpdate func()) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := a.runIdle(ctx, onUpdate); err != nil {
			a.log.Warnw("mailbox watch interrupted",
				"provider", a.opts.Provider, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(watchRetrySleep):
		}
	}
}

func (a *Adapter) runIdle(ctx context.Context, onUpdate func()) error {
	c, err := connect(a.opts.IMAPAddr, !a.opts.DisableTLS)
	if err != nil {
		return err
	}
	defer func() {
		_ = c.Logout()
	}()

	if err := c.Login(a.opts.Username, a.opts.Password); err != nil {
		return err
	}

	if _, err := c.Select("INBOX", false); err != nil {
		return err
	}

	updates := make(chan imapclient.Update, 10)
	c.Updates = updates

	idleClient := idle.NewClient(c)
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		// Falls back to NOOP polling when the server lacks IDLE.
		done <- idleClient.IdleWithFallback(stop, 5*time.Second)
	}()

	for {
		select {
		case <-ctx.Done():
			close(stop)
			<-done
			return nil
		case err := <-done:
			return err
		case update := <-updates:
			if isMailboxGrowth(update) {
				onUpdate()
			}
		}
	}
}

// isMailboxGrowth reports whether an unsolicited update indicates new
// messages in the selected mailbox.
func isMailboxGrowth(update imapclient.Update) bool {
	mboxUpdate, ok := update.(*imapclient.MailboxUpdate)
	return ok && mboxUpdate.Mailbox != nil && mboxUpdate.Mailbox.Messages > 0
}
