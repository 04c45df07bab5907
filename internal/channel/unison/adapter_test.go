package unison

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unisonhq/unison-comms/internal/crypto"
	"github.com/unisonhq/unison-comms/internal/models"
)

func testKey(t *testing.T) string {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return crypto.EncodeKey(key)
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestComposeAndFetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unison_store.json")
	a := New(path, testKey(t), testLogger())
	ctx := context.Background()

	result := a.SendCompose(ctx, "u1", "unison", []string{"u2"}, "Hello", "Hi there")
	assert.Equal(t, models.StatusSent, result.Status)
	assert.Equal(t, ProviderName, result.Provider)
	assert.Equal(t, result.MessageID, result.ThreadID)
	assert.Contains(t, result.Tags, models.TagComms)
	assert.Contains(t, result.Tags, "unison")
	assert.Contains(t, result.Tags, models.PriorityP2)

	msgs := a.FetchMessages(ctx, "unison")
	require.Len(t, msgs, 1)
	msg := msgs[0]
	assert.Equal(t, result.MessageID, msg.MessageID)
	assert.True(t, msg.HasTag(models.TagComms))
	assert.True(t, msg.HasTag("unison"))
	assert.True(t, msg.HasTag(models.PriorityP2))
	assert.Equal(t, []models.Participant{
		{Address: "u1", Role: models.RoleFrom},
		{Address: "u2", Role: models.RoleTo},
	}, msg.Participants)

	// Idempotent fetch.
	assert.Equal(t, msgs, a.FetchMessages(ctx, "unison"))
}

func TestPersistenceAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unison_store.json")
	key := testKey(t)
	ctx := context.Background()

	a := New(path, key, testLogger())
	result := a.SendCompose(ctx, "u1", "unison", []string{"u2"}, "Test", "Hello")
	require.Equal(t, models.StatusSent, result.Status)
	require.FileExists(t, path)

	// A fresh adapter against the same path and key sees the message.
	b := New(path, key, testLogger())
	msgs := b.FetchMessages(ctx, "unison")
	require.Len(t, msgs, 1)
	assert.Equal(t, "Test", msgs[0].Subject)
	assert.Equal(t, result.MessageID, msgs[0].MessageID)
}

func TestGeneratedKeyDoesNotSurviveRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unison_store.json")
	ctx := context.Background()

	a := New(path, "", testLogger())
	a.SendCompose(ctx, "u1", "unison", []string{"u2"}, "Ephemeral", "body")
	require.FileExists(t, path)

	// A second instance generates a different key, so the stored
	// document fails soft into an empty sequence.
	b := New(path, "", testLogger())
	assert.Empty(t, b.FetchMessages(ctx, "unison"))
}

func TestMalformedKeySelectsPlaintextMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unison_store.json")
	ctx := context.Background()

	// The fake key from the original deployment configs: valid base64,
	// wrong length. Construction must not fail.
	const badKey = "ZmFrZS1mZXJuZXQta2V5LTEyMw=="

	a := New(path, badKey, testLogger())
	result := a.SendCompose(ctx, "u1", "unison", []string{"u2"}, "Test", "Hello")
	assert.Equal(t, models.StatusSent, result.Status)
	require.FileExists(t, path)

	// A malformed key means plaintext mode, not a per-process random
	// key, so a fresh instance with the same value reads the store back.
	b := New(path, badKey, testLogger())
	msgs := b.FetchMessages(ctx, "unison")
	require.Len(t, msgs, 1)
	assert.Equal(t, result.MessageID, msgs[0].MessageID)
	assert.Equal(t, "Test", msgs[0].Subject)

	// Plaintext really is plaintext at rest.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Test")
}

func TestStoreIsEncryptedAtRest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unison_store.json")
	a := New(path, testKey(t), testLogger())
	a.SendCompose(context.Background(), "u1", "unison", []string{"u2"}, "Sensitive subject", "secret body")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Sensitive subject")
	assert.NotContains(t, string(raw), "secret body")
}

func TestCorruptStoreYieldsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unison_store.json")
	require.NoError(t, os.WriteFile(path, []byte("!!corrupt!!"), 0o600))

	a := New(path, testKey(t), testLogger())
	assert.Empty(t, a.FetchMessages(context.Background(), "unison"))
}

func TestReplyAppendsWithThreadAndSender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unison_store.json")
	a := New(path, testKey(t), testLogger())
	ctx := context.Background()

	compose := a.SendCompose(ctx, "u1", "unison", []string{"u2"}, "Hello", "Hi there")
	reply := a.SendReply(ctx, "u2", compose.ThreadID, compose.MessageID, "hi back", []string{"u1"})

	assert.Equal(t, models.StatusSent, reply.Status)
	assert.Equal(t, compose.ThreadID, reply.ThreadID)

	msgs := a.FetchMessages(ctx, "unison")
	require.Len(t, msgs, 2)
	last := msgs[1]
	assert.Equal(t, reply.MessageID, last.MessageID)
	assert.Equal(t, "Re: "+compose.ThreadID, last.Subject)
	assert.Equal(t, compose.MessageID, last.Metadata["in_reply_to"])
	assert.Equal(t, "u2", last.Metadata["sender"])
	assert.Equal(t, []models.Participant{
		{Address: "u2", Role: models.RoleFrom},
		{Address: "u1", Role: models.RoleTo},
	}, last.Participants)
}

func TestLenAndSlice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unison_store.json")
	a := New(path, testKey(t), testLogger())
	ctx := context.Background()

	assert.Equal(t, 0, a.Len())

	for _, subject := range []string{"one", "two", "three"} {
		a.SendCompose(ctx, "u1", "unison", []string{"u2"}, subject, "")
	}

	assert.Equal(t, 3, a.Len())

	slice := a.Slice(1, 3)
	require.Len(t, slice, 2)
	assert.Equal(t, "two", slice[0].Subject)
	assert.Equal(t, "three", slice[1].Subject)

	// Bounds are clamped.
	assert.Empty(t, a.Slice(3, 3))
	assert.Len(t, a.Slice(-5, 99), 3)
}
