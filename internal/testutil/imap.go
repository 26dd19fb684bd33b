package testutil

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	"github.com/emersion/go-imap/server"
)

// TestIMAPServer is an in-memory IMAP server for retrieval tests.
type TestIMAPServer struct {
	Server   *server.Server
	Address  string
	Backend  *memory.Backend
	cleanup  func()
	username string
	password string
}

// Message describes a fixture message to append.
type Message struct {
	MessageID string
	Subject   string
	From      string
	To        string
	Body      string
	Date      time.Time
	Seen      bool
}

// NewTestIMAPServer starts an IMAP server with an in-memory backend on a
// random port. The memory backend provides a default user with username
// "username" and password "password".
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

	// Give the server time to start accepting.
	time.Sleep(100 * time.Millisecond)

	srv := &TestIMAPServer{
		Server:   s,
		Address:  addr,
		Backend:  be,
		cleanup:  func() { _ = s.Close() },
		username: "username",
		password: "password",
	}
	t.Cleanup(srv.Close)

	return srv
}

// Close shuts down the test IMAP server.
func (s *TestIMAPServer) Close() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// Username returns the default test username.
func (s *TestIMAPServer) Username() string {
	return s.username
}

// Password returns the default test password.
func (s *TestIMAPServer) Password() string {
	return s.password
}

// Host returns the host part of the server address.
func (s *TestIMAPServer) Host(t *testing.T) string {
	t.Helper()

	host, _, err := net.SplitHostPort(s.Address)
	if err != nil {
		t.Fatalf("Failed to split address %q: %v", s.Address, err)
	}
	return host
}

// Port returns the port the server listens on.
func (s *TestIMAPServer) Port(t *testing.T) int {
	t.Helper()

	_, portStr, err := net.SplitHostPort(s.Address)
	if err != nil {
		t.Fatalf("Failed to split address %q: %v", s.Address, err)
	}
	var port int
	if _, err := fmt.Sscanf(portStr, "%d", &port); err != nil {
		t.Fatalf("Failed to parse port %q: %v", portStr, err)
	}
	return port
}

// Connect opens an authenticated client connection to the test server.
func (s *TestIMAPServer) Connect(t *testing.T) (*imapclient.Client, func()) {
	t.Helper()

	client, err := imapclient.Dial(s.Address)
	if err != nil {
		t.Fatalf("Failed to connect to test server: %v", err)
	}

	if err := client.Login(s.username, s.password); err != nil {
		_ = client.Logout()
		t.Fatalf("Failed to login: %v", err)
	}

	return client, func() { _ = client.Logout() }
}

// CreateFolder creates a folder for the default user if it does not exist.
func (s *TestIMAPServer) CreateFolder(t *testing.T, name string) {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if err := client.Create(name); err != nil {
		// Already existing is fine for fixtures.
		if _, selectErr := client.Select(name, true); selectErr != nil {
			t.Fatalf("Failed to create folder %q: %v", name, err)
		}
	}
}

// AddMessage appends a fixture message to the folder and returns its UID.
func (s *TestIMAPServer) AddMessage(t *testing.T, folderName string, msg Message) uint32 {
	t.Helper()

	client, cleanup := s.Connect(t)
	defer cleanup()

	if _, err := client.Select(folderName, false); err != nil {
		t.Fatalf("Failed to select folder: %v", err)
	}

	if msg.Date.IsZero() {
		msg.Date = time.Now()
	}
	if msg.Body == "" {
		msg.Body = "Test message body."
	}
	if msg.MessageID == "" {
		msg.MessageID = fmt.Sprintf("<%d@test.local>", time.Now().UnixNano())
	}

	raw := fmt.Sprintf(`Message-ID: %s
Date: %s
From: %s
To: %s
Subject: %s
Content-Type: text/plain; charset=utf-8

%s
`, msg.MessageID, msg.Date.Format(time.RFC1123Z), msg.From, msg.To, msg.Subject, msg.Body)

	var flags []string
	if msg.Seen {
		flags = append(flags, imap.SeenFlag)
	}

	if err := client.Append(folderName, flags, msg.Date, strings.NewReader(raw)); err != nil {
		t.Fatalf("Failed to append message: %v", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Add("Message-ID", msg.MessageID)
	uids, err := client.UidSearch(criteria)
	if err != nil {
		t.Fatalf("Failed to search for message: %v", err)
	}
	if len(uids) == 0 {
		t.Fatalf("Message not found after append")
	}

	return uids[0]
}
