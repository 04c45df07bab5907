// Package testutil provides in-memory IMAP and SMTP servers so transport
// code is exercised against real protocol sessions in tests.
package testutil

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
)

// TestIMAPServer is an in-memory IMAP server. The memory backend creates
// a default user with username "username" and password "password" whose
// INBOX holds one already-seen sample message.
type TestIMAPServer struct {
	Server  *server.Server
	Address string
	Backend *memory.Backend
	cleanup func()
}

// NewTestIMAPServer starts an in-memory IMAP server on a random port.
func NewTestIMAPServer(t *testing.T) *TestIMAPServer {
	t.Helper()

	be := memory.New()

	s := server.New(be)
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	addr := listener.Addr().String()

	go func() {
		if err := s.Serve(listener); err != nil {
			t.Logf("IMAP server error: %v", err)
		}
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	return &TestIMAPServer{
		Server:  s,
		Address: addr,
		Backend: be,
		cleanup: func() {
			_ = s.Close()
		},
	}
}

// Close shuts down the test IMAP server.
func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Username returns the default test username.
func (s *TestIMAPServer) Username() string {
	return "username"
}

// Password returns the default test password.
func (s *TestIMAPServer) Password() string {
	return "password"
}

// Connect creates a logged-in IMAP client connection to the test server.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	client, err := imapclient.Dial(s.Address)
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}

	if err := client.Login(s.Username(), s.Password()); err != nil {
		_ = client.Logout()
		t.Fatalf("Failed to login: %v", err)
	}

	return client, func() {
		_ = client.Logout()
	}
}

// AppendMessage appends a raw RFC 822 message to the given folder.
// When seen is false the message stays unread and is returned by unseen
// searches.
func (s *TestIMAPServer) AppendMessage(t *testing.T, folderName, raw string, seen bool) {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	var flags []string
	if seen {
		flags = []string{imap.SeenFlag}
	}

	if err := client.Append(folderName, flags, time.Now(), strings.NewReader(raw)); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}
}

// PlainMessage builds a minimal single-part RFC 822 message for tests.
func PlainMessage(messageID, from, to, subject, body string) string {
	var b strings.Builder
	if messageID != "" {
		b.WriteString("Message-Id: " + messageID + "\r\n")
	}
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body + "\r\n")
	return b.String()
}
