// Package mail implements the remote mail channel adapter over IMAP
// (fetch) and SMTP (send). Fetched messages are normalized into the
// canonical shape; thread recipients are cached during fetch so replies
// can resolve their destination later.
package mail

import (
	"context"
	"fmt"
	"sync"

	"github.com/emersion/go-imap"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unisonhq/unison-comms/internal/models"
)

// fetchWindow bounds a fetch to the most recent unread messages.
const fetchWindow = 5

// Options configures the adapter. Username and Password are required;
// everything else has Gmail defaults.
type Options struct {
	// Provider is reported in results for provenance. Defaults to "gmail".
	Provider string
	// Username is the mailbox account, also used as the self address for
	// sends unless SelfAddress overrides it.
	Username string
	// Password is the app-scoped secret for both IMAP and SMTP sessions.
	Password string
	// IMAPAddr is the host:port of the IMAP server.
	IMAPAddr string
	// SMTPAddr is the host:port of the SMTP submission server.
	SMTPAddr string
	// SelfAddress is the mailbox's own address, the recipient of last
	// resort for replies.
	SelfAddress string
	// DisableTLS switches both transports to plain TCP. Tests only.
	DisableTLS bool
}

// Adapter is the remote mail channel adapter. One transport session is
// opened per call and closed on completion.
type Adapter struct {
	opts Options
	log  *zap.SugaredLogger

	mu               sync.Mutex
	threadRecipients map[string][]string
}

// New validates the options and constructs the adapter. No connection is
// attempted here; missing credentials are the only construction error.
func New(opts Options, log *zap.SugaredLogger) (*Adapter, error) {
	if opts.Username == "" || opts.Password == "" {
		return nil, fmt.Errorf("mail: username and app password are required")
	}

	if opts.Provider == "" {
		opts.Provider = "gmail"
	}
	if opts.IMAPAddr == "" {
		opts.IMAPAddr = "imap.gmail.com:993"
	}
	if opts.SMTPAddr == "" {
		opts.SMTPAddr = "smtp.gmail.com:587"
	}
	if opts.SelfAddress == "" {
		opts.SelfAddress = opts.Username
	}

	return &Adapter{
		opts:             opts,
		log:              log,
		threadRecipients: make(map[string][]string),
	}, nil
}

// Provider returns the configured provider name.
func (a *Adapter) Provider() string {
	return a.opts.Provider
}

// FetchMessages retrieves the most recent unread messages from INBOX and
// normalizes them. Any transport or auth error yields an empty result:
// the read path is fail-open, and callers cannot distinguish "no unread
// mail" from "fetch failed". The error is logged here so operators can.
func (a *Adapter) FetchMessages(_ context.Context, channelName string) []models.NormalizedMessage {
	messages, err := a.fetchUnseen(channelName)
	if err != nil {
		a.log.Warnw("mail fetch failed, returning empty result",
			"provider", a.opts.Provider, "error", err)
		return []models.NormalizedMessage{}
	}
	return messages
}

func (a *Adapter) fetchUnseen(channelName string) ([]models.NormalizedMessage, error) {
	c, err := connect(a.opts.IMAPAddr, !a.opts.DisableTLS)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = c.Logout()
	}()

	if err := c.Login(a.opts.Username, a.opts.Password); err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search unseen messages: %w", err)
	}

	if len(uids) > fetchWindow {
		uids = uids[len(uids)-fetchWindow:]
	}
	if len(uids) == 0 {
		return []models.NormalizedMessage{}, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	// Peek so fetching does not mark messages as seen.
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	imapMessages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqSet, items, imapMessages)
	}()

	var result []models.NormalizedMessage
	for msg := range imapMessages {
		normalized := a.normalize(msg, section, channelName)
		result = append(result, normalized)
		a.cacheThreadRecipients(normalized)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return result, nil
}

// cacheThreadRecipients records the participant addresses of a fetched
// message so a later reply to the same thread can resolve recipients.
func (a *Adapter) cacheThreadRecipients(msg models.NormalizedMessage) {
	var addresses []string
	for _, p := range msg.Participants {
		if p.Address != "" {
			addresses = append(addresses, p.Address)
		}
	}
	if len(addresses) == 0 {
		return
	}

	a.mu.Lock()
	a.threadRecipients[msg.ThreadID] = addresses
	a.mu.Unlock()
}

// resolveRecipients picks reply recipients: the explicit argument first,
// then the cached thread participants, then the mailbox's own address.
func (a *Adapter) resolveRecipients(threadID string, explicit []string) []string {
	var cleaned []string
	for _, r := range explicit {
		if r != "" {
			cleaned = append(cleaned, r)
		}
	}
	if len(cleaned) > 0 {
		return cleaned
	}

	a.mu.Lock()
	cached := a.threadRecipients[threadID]
	a.mu.Unlock()
	if len(cached) > 0 {
		return cached
	}

	return []string{a.opts.SelfAddress}
}

// SendReply sends a reply over a fresh SMTP session. Transport failures
// are reported in the result, never raised.
func (a *Adapter) SendReply(_ context.Context, _, threadID, messageID, body string, recipients []string) models.ReplyResult {
	to := a.resolveRecipients(threadID, recipients)
	subject := "Re: " + threadID

	if err := a.send(to, subject, body); err != nil {
		a.log.Warnw("mail reply failed",
			"provider", a.opts.Provider, "thread_id", threadID, "error", err)
		return models.ReplyResult{
			Status:   models.StatusFailed,
			ThreadID: threadID,
			Error:    err.Error(),
			Provider: a.opts.Provider,
		}
	}

	return models.ReplyResult{
		Status:    models.StatusSent,
		MessageID: "email-reply-" + uuid.NewString(),
		ThreadID:  threadID,
		Provider:  a.opts.Provider,
	}
}

// SendCompose sends a new message over a fresh SMTP session. A transport
// failure reports status failed; the message is not pretended sent.
func (a *Adapter) SendCompose(_ context.Context, _, channelName string, recipients []string, subject, body string) models.ComposeResult {
	tags := []string{models.TagComms, channelName, models.ClassifyPriority(subject)}

	if err := a.send(recipients, subject, body); err != nil {
		a.log.Warnw("mail compose failed",
			"provider", a.opts.Provider, "subject", subject, "error", err)
		return models.ComposeResult{
			Status:   models.StatusFailed,
			Tags:     tags,
			Error:    err.Error(),
			Provider: a.opts.Provider,
		}
	}

	msgID := "email-compose-" + uuid.NewString()
	return models.ComposeResult{
		Status:    models.StatusSent,
		MessageID: msgID,
		ThreadID:  msgID,
		Tags:      tags,
		Provider:  a.opts.Provider,
	}
}
