package mail

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/emersion/go-imap"
	id "github.com/emersion/go-imap-id"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/charset"
	"github.com/sirupsen/logrus"
)

func init() {
	// Providers still emit legacy charsets in envelope headers
	imap.CharsetReader = charset.Reader
}

var (
	// ErrConnectionFailed indicates the IMAP connection or login failed
	ErrConnectionFailed = errors.New("mailbox connection failed")
)

const (
	// connectTimeout is deliberately longer than the dialer default:
	// some providers (Gmail in particular) are slow to complete auth.
	connectTimeout = 30 * time.Second
	commandTimeout = 60 * time.Second
)

// Session is an authenticated connection to a remote mailbox, scoped to a
// single request. Callers must Close it on every exit path; the remote end
// caps concurrent connections.
type Session struct {
	client   *client.Client
	provider ProviderConfig
	email    string
	logger   *logrus.Logger
}

// Open dials the provider's IMAP endpoint over TLS and authenticates.
// The returned session holds a live connection until Close is called.
func Open(provider ProviderConfig, email, password string) (*Session, error) {
	addr := fmt.Sprintf("%s:%d", provider.IMAPHost, provider.IMAPPort)

	dialer := &net.Dialer{Timeout: connectTimeout}
	tlsConfig := &tls.Config{ServerName: provider.IMAPHost}
	conn, err := tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	c, err := client.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	c.Timeout = commandTimeout

	// Some servers require client identification before login
	if ok, _ := c.Support("ID"); ok {
		idClient := id.NewClient(c)
		if _, err := idClient.ID(id.ID{
			id.FieldName:    "Hora Mail",
			id.FieldVersion: "1.0.0",
			id.FieldVendor:  "Hora",
		}); err != nil {
			logrus.WithError(err).Debug("IMAP ID command rejected")
		}
	}

	if err := c.Login(email, password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("%w: login failed: %v", ErrConnectionFailed, err)
	}

	s := &Session{
		client:   c,
		provider: provider,
		email:    email,
		logger:   logrus.StandardLogger(),
	}
	s.logger.WithFields(logrus.Fields{
		"provider": provider.Name,
		"account":  email,
	}).Debug("mailbox session opened")

	return s, nil
}

// Close logs out of the mailbox. Safe to call on every exit path.
func (s *Session) Close() {
	if s == nil || s.client == nil {
		return
	}
	if err := s.client.Logout(); err != nil {
		s.logger.WithError(err).Debug("logout failed")
	}
	s.client = nil
}

// Provider returns the provider configuration the session was opened with
func (s *Session) Provider() ProviderConfig {
	return s.provider
}

// Email returns the account address the session is authenticated as
func (s *Session) Email() string {
	return s.email
}

// selectFolder selects a mailbox for subsequent operations
func (s *Session) selectFolder(path string, readOnly bool) (*imap.MailboxStatus, error) {
	return s.client.Select(path, readOnly)
}

// selectWithInboxFallback selects the requested folder and silently falls
// back to INBOX when the folder cannot be opened. Folder-name mismatches
// across providers and locales are common enough that a degraded response
// beats a hard failure. Returns the folder actually selected.
func (s *Session) selectWithInboxFallback(path string, readOnly bool) (*imap.MailboxStatus, string, error) {
	mbox, err := s.selectFolder(path, readOnly)
	if err == nil {
		return mbox, path, nil
	}
	if path == DefaultFolder {
		return nil, "", fmt.Errorf("%w: select %s: %v", ErrConnectionFailed, path, err)
	}

	s.logger.WithFields(logrus.Fields{
		"folder": path,
		"error":  err.Error(),
	}).Warn("folder open failed, falling back to INBOX")

	mbox, err = s.selectFolder(DefaultFolder, readOnly)
	if err != nil {
		return nil, "", fmt.Errorf("%w: select %s: %v", ErrConnectionFailed, DefaultFolder, err)
	}
	return mbox, DefaultFolder, nil
}
