package imap

import (
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/emersion/go-imap/client"

	"github.com/mailquill/backend/internal/models"
)

// dialTimeout bounds the TCP/TLS handshake with the mail server.
const dialTimeout = 5 * time.Second

// tlsPort is the conventional IMAPS port. Connections to it are made over
// TLS with the configured host as the verified server name; any other port
// uses a plain connection (test servers, localhost relays).
const tlsPort = 993

// ConnectionError reports that a mailbox session could not be established or
// authenticated. Dial failures, TLS negotiation failures and rejected logins
// all surface as this one kind; the wrapped message carries the detail.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not establish mailbox session: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Session is one authenticated IMAP connection. It is owned exclusively by
// the in-flight query; sessions are not shareable across concurrent searches
// because the selected folder is per-connection state.
type Session struct {
	client    *client.Client
	closeOnce sync.Once
}

// Connect opens and authenticates a session for the given account.
// On authentication failure the transport is torn down before returning.
func Connect(creds models.Credentials) (*Session, error) {
	addr := fmt.Sprintf("%s:%d", creds.Host, creds.Port)
	dialer := &net.Dialer{
		Timeout: dialTimeout,
	}

	var c *client.Client
	var err error
	if creds.Port == tlsPort {
		c, err = client.DialWithDialerTLS(dialer, addr, &tls.Config{
			ServerName: creds.Host,
			MinVersion: tls.VersionTLS12,
		})
	} else {
		c, err = client.DialWithDialer(dialer, addr)
	}
	if err != nil {
		return nil, &ConnectionError{Err: fmt.Errorf("failed to dial %s: %w", addr, err)}
	}

	if err := c.Login(creds.Username, creds.Password); err != nil {
		// The transport is open at this point; make sure it does not leak.
		_ = c.Logout()
		return nil, &ConnectionError{Err: fmt.Errorf("failed to authenticate: %w", err)}
	}

	return &Session{client: c}, nil
}

// Close tears the session down. Safe to call more than once; only the first
// call touches the transport. A graceful LOGOUT is attempted first and the
// connection is terminated outright if that fails.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if err := s.client.Logout(); err != nil {
			_ = s.client.Terminate()
		}
	})
}

// Client returns the underlying IMAP client for command execution.
func (s *Session) Client() *client.Client {
	return s.client
}
