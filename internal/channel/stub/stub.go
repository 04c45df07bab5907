// Package stub provides an in-memory provider used when no remote mail
// provider is configured or its construction fails. It keeps everything
// on-device and still produces normalized messages.
package stub

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/unisonhq/unison-comms/internal/models"
)

// ProviderName identifies this provider in results.
const ProviderName = "stub"

// emailChannel is the channel the seed messages live on.
const emailChannel = "email"

// Adapter is a seeded in-memory channel adapter.
type Adapter struct {
	mu       sync.Mutex
	messages []models.NormalizedMessage
}

// New creates a stub adapter seeded with two email messages.
func New() *Adapter {
	return &Adapter{messages: seedMessages()}
}

func seedMessages() []models.NormalizedMessage {
	return []models.NormalizedMessage{
		{
			Channel: emailChannel,
			Participants: []models.Participant{
				{Address: "alice@example.com", Role: models.RoleFrom},
				{Address: "you@example.com", Role: models.RoleTo},
			},
			Subject:     "Urgent: design review",
			Body:        "Can you review the design by tomorrow?",
			ThreadID:    "thread-1",
			MessageID:   "msg-1",
			ContextTags: []string{models.TagComms, emailChannel, models.PriorityP0, "project:unisonos"},
			Metadata:    map[string]string{"source": ProviderName},
		},
		{
			Channel: emailChannel,
			Participants: []models.Participant{
				{Address: "team@example.com", Role: models.RoleFrom},
				{Address: "you@example.com", Role: models.RoleTo},
			},
			Subject:     "Weekly update",
			Body:        "Highlights and blockers for this week.",
			ThreadID:    "thread-2",
			MessageID:   "msg-2",
			ContextTags: []string{models.TagComms, emailChannel, models.PriorityP2},
			Metadata:    map[string]string{"source": ProviderName},
		},
	}
}

// FetchMessages returns the stored messages for the given channel.
func (a *Adapter) FetchMessages(_ context.Context, channelName string) []models.NormalizedMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := make([]models.NormalizedMessage, 0, len(a.messages))
	for _, m := range a.messages {
		if m.Channel == channelName {
			result = append(result, m)
		}
	}
	return result
}

// SendReply appends a reply artifact for traceability and reports it sent.
func (a *Adapter) SendReply(_ context.Context, personID, threadID, messageID, body string, _ []string) models.ReplyResult {
	replyID := "reply-" + uuid.NewString()

	a.mu.Lock()
	a.messages = append(a.messages, models.NormalizedMessage{
		Channel: emailChannel,
		Participants: []models.Participant{
			{Address: fmt.Sprintf("%s@example.com", personID), Role: models.RoleFrom},
		},
		Subject:     "Re: " + threadID,
		Body:        body,
		ThreadID:    threadID,
		MessageID:   replyID,
		ContextTags: []string{models.TagComms, emailChannel, "sent"},
		Metadata:    map[string]string{"in_reply_to": messageID},
	})
	a.mu.Unlock()

	return models.ReplyResult{
		Status:    models.StatusSent,
		MessageID: replyID,
		ThreadID:  threadID,
		Provider:  ProviderName,
	}
}

// SendCompose appends a new message, classifying its subject for tags.
func (a *Adapter) SendCompose(_ context.Context, personID, channelName string, recipients []string, subject, body string) models.ComposeResult {
	msgID := "composed-" + uuid.NewString()
	tags := []string{models.TagComms, channelName, models.ClassifyPriority(subject)}

	participants := make([]models.Participant, 0, len(recipients))
	for _, r := range recipients {
		participants = append(participants, models.Participant{Address: r, Role: models.RoleTo})
	}

	a.mu.Lock()
	a.messages = append(a.messages, models.NormalizedMessage{
		Channel:      channelName,
		Participants: participants,
		Subject:      subject,
		Body:         body,
		ThreadID:     msgID,
		MessageID:    msgID,
		ContextTags:  tags,
		Metadata:     map[string]string{"sender": fmt.Sprintf("%s@example.com", personID)},
	})
	a.mu.Unlock()

	return models.ComposeResult{
		Status:    models.StatusSent,
		MessageID: msgID,
		ThreadID:  msgID,
		Tags:      tags,
		Provider:  ProviderName,
	}
}
