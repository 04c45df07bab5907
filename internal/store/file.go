package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/unisonhq/unison-comms/internal/models"
)

// File persists an encoded message document at a fixed path. One File is
// exclusively owned by one adapter instance; concurrent processes sharing
// the path are unsupported.
type File struct {
	path  string
	codec *Codec
}

// NewFile creates a File for the given path and codec.
func NewFile(path string, codec *Codec) *File {
	return &File{path: path, codec: codec}
}

// Path returns the backing file path.
func (f *File) Path() string {
	return f.path
}

// Load reads and decodes the stored document. A missing file or any
// decode failure yields an empty sequence, never an error.
func (f *File) Load() []models.NormalizedMessage {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return []models.NormalizedMessage{}
	}
	return f.codec.Decode(string(data))
}

// Save encodes the full message sequence and rewrites the file.
func (f *File) Save(messages []models.NormalizedMessage) error {
	text, err := f.codec.Encode(messages)
	if err != nil {
		return fmt.Errorf("failed to encode store document: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	if err := os.WriteFile(f.path, []byte(text), 0o600); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}

	return nil
}
