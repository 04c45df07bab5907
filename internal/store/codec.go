package store

import (
	"encoding/base64"
	"encoding/json"

	"github.com/unisonhq/unison-comms/internal/crypto"
	"github.com/unisonhq/unison-comms/internal/models"
)

// Codec serializes a message document for at-rest storage. With an
// encryptor configured, the JSON document is encrypted with AES-GCM and
// the ciphertext rendered as URL-safe base64; without one, the document
// is stored as plain JSON. The format is not self-describing: the mode
// is selected entirely by key presence at write time.
type Codec struct {
	encryptor *crypto.Encryptor
}

// NewCodec creates a Codec. A nil encryptor selects plaintext mode.
func NewCodec(encryptor *crypto.Encryptor) *Codec {
	return &Codec{encryptor: encryptor}
}

// Encode serializes the message sequence to its stored text form.
func (c *Codec) Encode(messages []models.NormalizedMessage) (string, error) {
	if messages == nil {
		messages = []models.NormalizedMessage{}
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}

	if c.encryptor == nil {
		return string(data), nil
	}

	ciphertext, err := c.encryptor.Encrypt(data)
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decode parses stored text back into a message sequence. Any base64,
// decryption, or JSON failure yields an empty document rather than an
// error: the store is a local cache and availability wins over
// integrity here. Callers that care log when a non-empty input decodes
// to nothing.
func (c *Codec) Decode(text string) []models.NormalizedMessage {
	if text == "" {
		return []models.NormalizedMessage{}
	}

	data := []byte(text)
	if c.encryptor != nil {
		ciphertext, err := base64.URLEncoding.DecodeString(text)
		if err != nil {
			return []models.NormalizedMessage{}
		}
		data, err = c.encryptor.Decrypt(ciphertext)
		if err != nil {
			return []models.NormalizedMessage{}
		}
	}

	var messages []models.NormalizedMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return []models.NormalizedMessage{}
	}
	if messages == nil {
		messages = []models.NormalizedMessage{}
	}

	return messages
}
