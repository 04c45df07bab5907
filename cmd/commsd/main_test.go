package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unisonhq/unison-comms/internal/config"
	"github.com/unisonhq/unison-comms/internal/crypto"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()

	names := make(map[string]bool)
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
	}
	assert.True(t, names["serve"], "expected serve subcommand")
	assert.True(t, names["keygen"], "expected keygen subcommand")
}

func TestKeygenPrintsUsableKey(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"keygen"})

	require.NoError(t, root.Execute())

	encoded := strings.TrimSpace(out.String())
	require.NotEmpty(t, encoded)

	key, err := crypto.ParseKey(encoded)
	require.NoError(t, err)
	assert.Len(t, key, crypto.KeySize)
}

func TestGuardBind(t *testing.T) {
	tests := []struct {
		name      string
		host      string
		allow     bool
		shouldErr bool
	}{
		{"loopback allowed", "127.0.0.1", false, false},
		{"localhost allowed", "localhost", false, false},
		{"ipv6 loopback allowed", "::1", false, false},
		{"non-loopback refused", "0.0.0.0", false, true},
		{"non-loopback with override", "0.0.0.0", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Host: tt.host, Port: "8080", AllowNonLocal: tt.allow}
			err := guardBind(cfg)
			if tt.shouldErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "COMMS_UNSAFE_ALLOW_NONLOCAL")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildLogger(t *testing.T) {
	for _, environment := range []string{"development", "production"} {
		log, err := buildLogger(environment)
		require.NoError(t, err)
		require.NotNil(t, log)
	}
}
