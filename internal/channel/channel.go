package channel

import (
	"context"

	"github.com/unisonhq/unison-comms/internal/models"
)

// Well-known channel names. The channel set is open; these are the two
// the gateway ships providers for.
const (
	Email  = "email"
	Unison = "unison"
)

// Adapter is the capability set every provider implements. All three
// operations are safe to call repeatedly.
//
// FetchMessages never returns an error: read-path transport failures are
// logged by the provider and surface as an empty result. Write-path
// failures are visible only through the result's Status and Error
// fields, so callers must check Status rather than relying on absence
// of error signaling.
type Adapter interface {
	// FetchMessages returns all stored or freshly fetched messages for
	// the given channel name.
	FetchMessages(ctx context.Context, channelName string) []models.NormalizedMessage

	// SendReply sends a reply into an existing thread. When recipients
	// is empty the provider resolves them from its thread cache, falling
	// back to the mailbox's own address.
	SendReply(ctx context.Context, personID, threadID, messageID, body string, recipients []string) models.ReplyResult

	// SendCompose sends a new message and reports the tags assigned to it.
	SendCompose(ctx context.Context, personID, channelName string, recipients []string, subject, body string) models.ComposeResult
}
