package store

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisonhq/unison-comms/internal/crypto"
	"github.com/unisonhq/unison-comms/internal/models"
)

func testEncryptor(t *testing.T) *crypto.Encryptor {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	enc, err := crypto.NewEncryptor(key)
	require.NoError(t, err)
	return enc
}

func sampleMessages() []models.NormalizedMessage {
	return []models.NormalizedMessage{
		{
			Channel: "unison",
			Participants: []models.Participant{
				{Address: "u1", Role: models.RoleFrom},
				{Address: "u2", Role: models.RoleTo},
			},
			Subject:     "Hello",
			Body:        "Hi there",
			ThreadID:    "t-1",
			MessageID:   "m-1",
			ContextTags: []string{models.TagComms, "unison", models.PriorityP2},
			Metadata:    map[string]string{"sender": "u1"},
		},
		{
			Channel:     "unison",
			Subject:     "",
			Body:        "",
			ThreadID:    "t-2",
			MessageID:   "m-2",
			ContextTags: []string{models.TagComms, "unison"},
		},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	t.Run("without key", func(t *testing.T) {
		codec := NewCodec(nil)
		text, err := codec.Encode(sampleMessages())
		require.NoError(t, err)

		// Plaintext mode stores readable JSON.
		assert.True(t, strings.HasPrefix(text, "["))
		assert.Contains(t, text, `"message_id":"m-1"`)

		assert.Equal(t, sampleMessages(), codec.Decode(text))
	})

	t.Run("with key", func(t *testing.T) {
		codec := NewCodec(testEncryptor(t))
		text, err := codec.Encode(sampleMessages())
		require.NoError(t, err)

		// Ciphertext mode must not leak the document.
		assert.NotContains(t, text, "m-1")

		assert.Equal(t, sampleMessages(), codec.Decode(text))
	})

	t.Run("empty document", func(t *testing.T) {
		codec := NewCodec(nil)
		text, err := codec.Encode(nil)
		require.NoError(t, err)
		assert.Empty(t, codec.Decode(text))
	})
}

func TestCodecDecodeFailsSoft(t *testing.T) {
	enc := testEncryptor(t)

	tests := []struct {
		name  string
		codec *Codec
		text  string
	}{
		{"empty input without key", NewCodec(nil), ""},
		{"empty input with key", NewCodec(enc), ""},
		{"garbage JSON without key", NewCodec(nil), "{not json"},
		{"garbage base64 with key", NewCodec(enc), "!!!not-base64!!!"},
		{"valid base64 garbage ciphertext", NewCodec(enc), "YWJjZGVmZ2hpamtsbW5vcHFyc3R1dnd4eXo="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := tt.codec.Decode(tt.text)
			assert.NotNil(t, msgs)
			assert.Empty(t, msgs)
		})
	}

	t.Run("wrong key", func(t *testing.T) {
		text, err := NewCodec(enc).Encode(sampleMessages())
		require.NoError(t, err)

		other := NewCodec(testEncryptor(t))
		assert.Empty(t, other.Decode(text))
	})

	t.Run("mode mismatch", func(t *testing.T) {
		// A plaintext document read with a key decrypts to nothing
		// instead of erroring; the format is not self-describing.
		text, err := NewCodec(nil).Encode(sampleMessages())
		require.NoError(t, err)
		assert.Empty(t, NewCodec(enc).Decode(text))
	})
}

func TestFileLoadSave(t *testing.T) {
	t.Run("round trip through disk", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "unison_store.json")
		file := NewFile(path, NewCodec(testEncryptor(t)))

		require.NoError(t, file.Save(sampleMessages()))

		// A fresh File against the same path and codec sees the data.
		assert.Equal(t, sampleMessages(), file.Load())
	})

	t.Run("missing file yields empty", func(t *testing.T) {
		file := NewFile(filepath.Join(t.TempDir(), "absent.json"), NewCodec(nil))
		msgs := file.Load()
		assert.NotNil(t, msgs)
		assert.Empty(t, msgs)
	})

	t.Run("creates parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "dir", "store.json")
		file := NewFile(path, NewCodec(nil))
		require.NoError(t, file.Save(sampleMessages()))
		assert.Len(t, file.Load(), 2)
	})
}
