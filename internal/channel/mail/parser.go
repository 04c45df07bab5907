package mail

import (
	"fmt"
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message/charset"
	"github.com/jhillyerd/enmime"

	"github.com/unisonhq/unison-comms/internal/models"
)

// wordDecoder decodes RFC 2047 encoded-word headers in the envelope
// fallback path, with go-message's charset table behind it.
var wordDecoder = &mime.WordDecoder{CharsetReader: charset.Reader}

// normalize converts a fetched IMAP message into the canonical shape.
// The full body is parsed when the fetch returned one; otherwise the
// IMAP envelope alone supplies headers and the body stays empty.
func (a *Adapter) normalize(msg *imap.Message, section *imap.BodySectionName, channelName string) models.NormalizedMessage {
	if body := msg.GetBody(section); body != nil {
		if normalized, err := normalizeRaw(body, msg.Uid, channelName, a.opts.Provider); err == nil {
			return normalized
		}
	}
	return normalizeEnvelope(msg, channelName, a.opts.Provider)
}

// normalizeRaw normalizes a raw RFC 822 message. Header decoding,
// address parsing, and body extraction are all best-effort: a missing or
// undecodable piece yields an empty field, never an error. The only
// error is a message enmime cannot read at all.
func normalizeRaw(r io.Reader, uid uint32, channelName, provider string) (models.NormalizedMessage, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return models.NormalizedMessage{}, fmt.Errorf("failed to parse message: %w", err)
	}

	// enmime walks multipart messages depth-first and returns the first
	// text/plain part, decoded with its declared charset.
	body := env.Text

	participants := headerParticipants(env, "From", models.RoleFrom, true)
	participants = append(participants, headerParticipants(env, "To", models.RoleTo, false)...)

	messageID := strings.TrimSpace(env.GetHeader("Message-Id"))
	threadID := firstNonEmpty(
		strings.TrimSpace(env.GetHeader("Thread-Index")),
		firstReference(env.GetHeader("References")),
		messageID,
	)
	if threadID == "" {
		// Degenerate single-message thread keyed by the transport UID.
		threadID = fmt.Sprintf("imap-%d", uid)
	}
	if messageID == "" {
		messageID = fmt.Sprintf("imap-%d", uid)
	}

	subject := strings.TrimSpace(env.GetHeader("Subject"))

	return models.NormalizedMessage{
		Channel:      channelName,
		Participants: participants,
		Subject:      subject,
		Body:         body,
		ThreadID:     threadID,
		MessageID:    messageID,
		ContextTags:  []string{models.TagComms, channelName, models.ClassifyPriority(subject)},
		Metadata: map[string]string{
			"source":   provider,
			"imap_uid": strconv.FormatUint(uint64(uid), 10),
		},
	}, nil
}

// normalizeEnvelope builds a message from IMAP envelope data alone, for
// messages whose body could not be fetched or parsed.
func normalizeEnvelope(msg *imap.Message, channelName, provider string) models.NormalizedMessage {
	subject := ""
	messageID := ""
	var participants []models.Participant

	if msg.Envelope != nil {
		subject = decodeWord(msg.Envelope.Subject)
		messageID = msg.Envelope.MessageId

		if len(msg.Envelope.From) > 0 {
			participants = append(participants, models.Participant{
				Address: formatAddress(msg.Envelope.From[0]),
				Role:    models.RoleFrom,
			})
		} else {
			participants = append(participants, models.Participant{Role: models.RoleFrom})
		}
		for _, addr := range msg.Envelope.To {
			participants = append(participants, models.Participant{
				Address: formatAddress(addr),
				Role:    models.RoleTo,
			})
		}
	} else {
		participants = append(participants, models.Participant{Role: models.RoleFrom})
	}

	threadID := messageID
	if threadID == "" {
		threadID = fmt.Sprintf("imap-%d", msg.Uid)
	}
	if messageID == "" {
		messageID = fmt.Sprintf("imap-%d", msg.Uid)
	}

	return models.NormalizedMessage{
		Channel:      channelName,
		Participants: participants,
		Subject:      subject,
		ThreadID:     threadID,
		MessageID:    messageID,
		ContextTags:  []string{models.TagComms, channelName, models.ClassifyPriority(subject)},
		Metadata: map[string]string{
			"source":   provider,
			"imap_uid": strconv.FormatUint(uint64(msg.Uid), 10),
		},
	}
}

// headerParticipants extracts participants from an address header.
// A malformed header still yields one entry with an empty address so the
// participant list reflects the message structure; alwaysOne forces an
// entry even when the header is absent (the From slot).
func headerParticipants(env *enmime.Envelope, key, role string, alwaysOne bool) []models.Participant {
	if strings.TrimSpace(env.GetHeader(key)) == "" {
		if alwaysOne {
			return []models.Participant{{Role: role}}
		}
		return nil
	}

	list, err := env.AddressList(key)
	if err != nil || len(list) == 0 {
		return []models.Participant{{Role: role}}
	}

	participants := make([]models.Participant, 0, len(list))
	for _, addr := range list {
		participants = append(participants, models.Participant{Address: addr.Address, Role: role})
	}
	return participants
}

// formatAddress renders an IMAP envelope address as a bare address, or
// empty when the envelope slot cannot be resolved.
func formatAddress(address *imap.Address) string {
	if address == nil || (address.MailboxName == "" && address.HostName == "") {
		return ""
	}
	return fmt.Sprintf("%s@%s", address.MailboxName, address.HostName)
}

// decodeWord decodes an RFC 2047 encoded header value, returning the
// input unchanged when it is not encoded or cannot be decoded.
func decodeWord(value string) string {
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// firstReference returns the first message id in a References header,
// which is the thread root.
func firstReference(references string) string {
	fields := strings.Fields(references)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
