package mail

import (
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap/client"
)

// dialTimeout bounds the initial IMAP connection attempt.
const dialTimeout = 5 * time.Second

// connect dials the IMAP server. useTLS is true in production; tests run
// against a plain TCP in-memory server.
func connect(addr string, useTLS bool) (*client.Client, error) {
	dialer := &net.Dialer{Timeout: dialTimeout}

	if useTLS {
		c, err := client.DialWithDialerTLS(dialer, addr, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to dial with TLS: %w", err)
		}
		return c, nil
	}

	c, err := client.DialWithDialer(dialer, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial: %w", err)
	}
	return c, nil
}
