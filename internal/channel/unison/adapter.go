// Package unison implements the local encrypted peer-messaging store as a
// channel adapter. The in-process message list is the source of truth; the
// full sequence is re-encoded and persisted after every mutation.
package unison

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unisonhq/unison-comms/internal/crypto"
	"github.com/unisonhq/unison-comms/internal/models"
	"github.com/unisonhq/unison-comms/internal/store"
)

// ProviderName identifies this provider in results.
const ProviderName = "unison"

// DefaultStorePath returns the store location used when none is configured.
func DefaultStorePath() string {
	return filepath.Join(os.TempDir(), "unison-comms", "unison_store.json")
}

// Adapter is the channel adapter over the encrypted on-disk store.
//
// The mutex guards the whole append-and-persist cycle so concurrent
// callers cannot lose updates on the read-modify-persist race.
type Adapter struct {
	mu       sync.Mutex
	messages []models.NormalizedMessage
	file     *store.File
	log      *zap.SugaredLogger
}

// New constructs the adapter. keyBase64 is an optional URL-safe base64
// encoded 32-byte key. A configured but malformed key means "no key":
// the store runs in plaintext mode, so the same malformed value reads
// back its own writes across restarts. Only a truly absent key selects
// a fresh random key for the process lifetime, which means that store
// will not be readable after a restart unless a key is supplied
// externally. The existing store file, if any, is loaded into memory; a
// missing or undecodable file yields an empty sequence.
func New(path, keyBase64 string, log *zap.SugaredLogger) *Adapter {
	if path == "" {
		path = DefaultStorePath()
	}

	var key []byte
	if keyBase64 != "" {
		parsed, err := crypto.ParseKey(keyBase64)
		if err != nil {
			log.Warnw("unison store key is not a valid URL-safe base64 key, storing plaintext", "error", err)
		} else {
			key = parsed
		}
	} else {
		generated, err := crypto.GenerateKey()
		if err != nil {
			// crypto/rand failing means the process is in far worse
			// trouble than an unreadable cache; run unencrypted.
			log.Errorw("failed to generate unison store key, storing plaintext", "error", err)
		} else {
			log.Warnw("no unison store key configured, generated an ephemeral key; the store will not survive a restart", "path", path)
			key = generated
		}
	}

	var encryptor *crypto.Encryptor
	if key != nil {
		var err error
		encryptor, err = crypto.NewEncryptor(key)
		if err != nil {
			log.Errorw("failed to create unison store encryptor, storing plaintext", "error", err)
			encryptor = nil
		}
	}

	file := store.NewFile(path, store.NewCodec(encryptor))
	messages := file.Load()
	log.Infow("unison store loaded", "path", path, "messages", len(messages))

	return &Adapter{
		messages: messages,
		file:     file,
		log:      log,
	}
}

// FetchMessages returns the in-memory sequence filtered by channel. It
// never touches disk.
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

// SendReply appends a reply to the store and persists the sequence.
func (a *Adapter) SendReply(_ context.Context, personID, threadID, messageID, body string, recipients []string) models.ReplyResult {
	replyID := "unison-reply-" + uuid.NewString()

	msg := models.NormalizedMessage{
		Channel:      ProviderName,
		Participants: participants(personID, recipients),
		Subject:      "Re: " + threadID,
		Body:         body,
		ThreadID:     threadID,
		MessageID:    replyID,
		ContextTags:  []string{models.TagComms, ProviderName, "sent"},
		Metadata:     map[string]string{"in_reply_to": messageID, "sender": personID},
	}

	a.appendAndPersist(msg)

	return models.ReplyResult{
		Status:    models.StatusSent,
		MessageID: replyID,
		ThreadID:  threadID,
		Provider:  ProviderName,
	}
}

// SendCompose appends a new message to the store and persists the sequence.
func (a *Adapter) SendCompose(_ context.Context, personID, channelName string, recipients []string, subject, body string) models.ComposeResult {
	msgID := "unison-compose-" + uuid.NewString()
	tags := []string{models.TagComms, channelName, models.ClassifyPriority(subject)}

	msg := models.NormalizedMessage{
		Channel:      channelName,
		Participants: participants(personID, recipients),
		Subject:      subject,
		Body:         body,
		ThreadID:     msgID,
		MessageID:    msgID,
		ContextTags:  tags,
		Metadata:     map[string]string{"sender": personID},
	}

	a.appendAndPersist(msg)

	return models.ComposeResult{
		Status:    models.StatusSent,
		MessageID: msgID,
		ThreadID:  msgID,
		Tags:      tags,
		Provider:  ProviderName,
	}
}

// Len returns the current length of the message sequence. Used by change
// watchers as their watermark source.
func (a *Adapter) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.messages)
}

// Slice returns a copy of the message sequence in [from, to). Bounds are
// clamped to the current length.
func (a *Adapter) Slice(from, to int) []models.NormalizedMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	if from < 0 {
		from = 0
	}
	if to > len(a.messages) {
		to = len(a.messages)
	}
	if from >= to {
		return []models.NormalizedMessage{}
	}

	result := make([]models.NormalizedMessage, to-from)
	copy(result, a.messages[from:to])
	return result
}

func (a *Adapter) appendAndPersist(msg models.NormalizedMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.messages = append(a.messages, msg)
	if err := a.file.Save(a.messages); err != nil {
		// Best-effort durability: in-memory state stays authoritative
		// for the process lifetime.
		a.log.Warnw("failed to persist unison store", "path", a.file.Path(), "error", err)
	}
}

func participants(personID string, recipients []string) []models.Participant {
	result := make([]models.Participant, 0, len(recipients)+1)
	result = append(result, models.Participant{Address: personID, Role: models.RoleFrom})
	for _, r := range recipients {
		result = append(result, models.Participant{Address: r, Role: models.RoleTo})
	}
	return result
}
