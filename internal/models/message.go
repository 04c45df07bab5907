package models

// Participant roles within a message.
const (
	RoleFrom = "from"
	RoleTo   = "to"
)

// Result statuses for reply and compose operations.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// TagComms is present on every normalized message, regardless of channel.
const TagComms = "comms"

// Participant is one party of a message. Address may be empty when the
// provider could not resolve it; callers must tolerate that.
type Participant struct {
	Address string `json:"address"`
	Role    string `json:"role"`
}

// NormalizedMessage is the canonical cross-provider message representation.
// Instances are immutable once created and stored in append order per adapter.
type NormalizedMessage struct {
	Channel      string            `json:"channel"`
	Participants []Participant     `json:"participants"`
	Subject      string            `json:"subject"`
	Body         string            `json:"body"`
	ThreadID     string            `json:"thread_id"`
	MessageID    string            `json:"message_id"`
	ContextTags  []string          `json:"context_tags"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// HasTag reports whether the message carries the given context tag.
func (m NormalizedMessage) HasTag(tag string) bool {
	for _, t := range m.ContextTags {
		if t == tag {
			return true
		}
	}
	return false
}

// ReplyResult is the outcome of a SendReply call.
type ReplyResult struct {
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	ThreadID  string `json:"thread_id"`
	Error     string `json:"error,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

// ComposeResult is the outcome of a SendCompose call.
type ComposeResult struct {
	Status    string   `json:"status"`
	MessageID string   `json:"message_id"`
	ThreadID  string   `json:"thread_id"`
	Tags      []string `json:"tags,omitempty"`
	Error     string   `json:"error,omitempty"`
	Provider  string   `json:"provider,omitempty"`
}
