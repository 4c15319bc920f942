package mail

import (
	"bytes"
	cryptoRand "crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/jaytaylor/html2text"
	"github.com/jhillyerd/enmime"
)

var (
	// ErrSendFailed indicates the SMTP dispatch failed
	ErrSendFailed = errors.New("send failed")
	// ErrInvalidMessage indicates a malformed outbound message
	ErrInvalidMessage = errors.New("invalid message")
)

// OutgoingAttachment is one attachment of an outbound message
type OutgoingAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// OutgoingMessage is an outbound message ready for dispatch
type OutgoingMessage struct {
	FromName    string
	FromEmail   string
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	HTMLBody    string
	InReplyTo   string // message id of the message being replied to
	Attachments []OutgoingAttachment
}

// loginAuth implements smtp.Auth for servers that only accept LOGIN
type loginAuth struct {
	username, password string
}

func newLoginAuth(username, password string) smtp.Auth {
	return &loginAuth{username, password}
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "LOGIN", []byte{}, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		switch strings.ToLower(strings.TrimSpace(string(fromServer))) {
		case "username:":
			return []byte(a.username), nil
		case "password:":
			return []byte(a.password), nil
		default:
			decoded, err := base64.StdEncoding.DecodeString(string(fromServer))
			if err == nil {
				switch strings.ToLower(strings.TrimSpace(string(decoded))) {
				case "username:", "username":
					return []byte(a.username), nil
				case "password:", "password":
					return []byte(a.password), nil
				}
			}
			return nil, fmt.Errorf("unexpected server challenge: %s", fromServer)
		}
	}
	return nil, nil
}

// Send builds the MIME content and dispatches it through the provider's
// SMTP endpoint. Returns the generated Message-ID.
func Send(provider ProviderConfig, password string, msg *OutgoingMessage) (string, error) {
	if len(msg.To) == 0 {
		return "", fmt.Errorf("%w: at least one recipient is required", ErrInvalidMessage)
	}
	if msg.Subject == "" {
		return "", fmt.Errorf("%w: subject is required", ErrInvalidMessage)
	}
	if msg.HTMLBody == "" {
		return "", fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}

	messageID := generateMessageID(msg.FromEmail)
	content := buildMessageContent(msg, messageID)

	if err := sendViaSMTP(provider, msg, password, content); err != nil {
		return "", err
	}
	return messageID, nil
}

// derivePlainText strips markup from the HTML body so clients that cannot
// render HTML still get a readable part.
func derivePlainText(htmlBody string) string {
	text, err := html2text.FromString(htmlBody, html2text.Options{TextOnly: true})
	if err != nil {
		return htmlBody
	}
	return text
}

// buildMessageContent assembles the raw RFC 5322 message
func buildMessageContent(msg *OutgoingMessage, messageID string) string {
	var buf bytes.Buffer

	if msg.FromName != "" {
		buf.WriteString(fmt.Sprintf("From: %s <%s>\r\n", msg.FromName, msg.FromEmail))
	} else {
		buf.WriteString(fmt.Sprintf("From: %s\r\n", msg.FromEmail))
	}
	buf.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ", ")))
	if len(msg.Cc) > 0 {
		buf.WriteString(fmt.Sprintf("Cc: %s\r\n", strings.Join(msg.Cc, ", ")))
	}
	buf.WriteString(fmt.Sprintf("Subject: =?UTF-8?B?%s?=\r\n", base64.StdEncoding.EncodeToString([]byte(msg.Subject))))
	buf.WriteString(fmt.Sprintf("Message-ID: %s\r\n", messageID))
	if msg.InReplyTo != "" {
		// Only the last message id is carried, not the full ancestor
		// chain; existing clients group on it regardless.
		buf.WriteString(fmt.Sprintf("In-Reply-To: %s\r\n", msg.InReplyTo))
		buf.WriteString(fmt.Sprintf("References: %s\r\n", msg.InReplyTo))
	}
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	buf.WriteString("MIME-Version: 1.0\r\n")

	plainBody := derivePlainText(msg.HTMLBody)

	if len(msg.Attachments) > 0 {
		mixedBoundary := generateBoundary()
		buf.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n", mixedBoundary))
		buf.WriteString("\r\n")

		buf.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
		writeAlternative(&buf, plainBody, msg.HTMLBody)

		for _, att := range msg.Attachments {
			buf.WriteString(fmt.Sprintf("--%s\r\n", mixedBoundary))
			contentType := att.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			encodedFilename := fmt.Sprintf("=?UTF-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(att.Filename)))
			buf.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", contentType, encodedFilename))
			buf.WriteString("Content-Transfer-Encoding: base64\r\n")
			buf.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n", encodedFilename))
			buf.WriteString("\r\n")
			buf.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(att.Content)))
			buf.WriteString("\r\n")
		}

		buf.WriteString(fmt.Sprintf("--%s--\r\n", mixedBoundary))
	} else {
		writeAlternative(&buf, plainBody, msg.HTMLBody)
	}

	return buf.String()
}

// writeAlternative writes a multipart/alternative body with plain and HTML
// renditions, each base64 encoded.
func writeAlternative(buf *bytes.Buffer, plainBody, htmlBody string) {
	boundary := generateBoundary()
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(wrapBase64(base64.StdEncoding.EncodeToString([]byte(plainBody))))
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(wrapBase64(base64.StdEncoding.EncodeToString([]byte(htmlBody))))
	buf.WriteString("\r\n")

	buf.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
}

// sendViaSMTP dispatches the raw message through the provider's SMTP
// endpoint, over SMTPS or STARTTLS depending on the security mode.
func sendViaSMTP(provider ProviderConfig, msg *OutgoingMessage, password, content string) error {
	addr := fmt.Sprintf("%s:%d", provider.SMTPHost, provider.SMTPPort)

	var recipients []string
	recipients = append(recipients, msg.To...)
	recipients = append(recipients, msg.Cc...)
	recipients = append(recipients, msg.Bcc...)

	var c *smtp.Client
	if provider.SMTPSecurity == SMTPSecuritySSL {
		tlsConfig := &tls.Config{ServerName: provider.SMTPHost}
		conn, err := tls.DialWithDialer(&net.Dialer{Timeout: connectTimeout}, "tcp", addr, tlsConfig)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}

		c, err = smtp.NewClient(conn, provider.SMTPHost)
		if err != nil {
			conn.Close()
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
	} else {
		var err error
		c, err = smtp.Dial(addr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		if ok, _ := c.Extension("STARTTLS"); ok {
			tlsConfig := &tls.Config{ServerName: provider.SMTPHost}
			if err := c.StartTLS(tlsConfig); err != nil {
				c.Close()
				return fmt.Errorf("%w: starttls: %v", ErrSendFailed, err)
			}
		}
	}
	defer c.Close()

	// PLAIN first, LOGIN as fallback for servers that reject PLAIN
	auth := smtp.PlainAuth("", msg.FromEmail, password, provider.SMTPHost)
	if err := c.Auth(auth); err != nil {
		auth = newLoginAuth(msg.FromEmail, password)
		if err2 := c.Auth(auth); err2 != nil {
			return fmt.Errorf("%w: authentication failed (tried PLAIN and LOGIN): %v", ErrSendFailed, err)
		}
	}

	if err := c.Mail(msg.FromEmail); err != nil {
		return fmt.Errorf("%w: MAIL FROM: %v", ErrSendFailed, err)
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("%w: RCPT TO %s: %v", ErrSendFailed, rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("%w: DATA: %v", ErrSendFailed, err)
	}
	if _, err := w.Write([]byte(content)); err != nil {
		return fmt.Errorf("%w: write: %v", ErrSendFailed, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrSendFailed, err)
	}

	// The message is accepted at this point; some servers misbehave on
	// QUIT, so its error is ignored.
	c.Quit()
	return nil
}

// ForwardContent is the synthesized body and attachments for forwarding a
// fetched message.
type ForwardContent struct {
	Subject     string
	HTMLBody    string
	Attachments []OutgoingAttachment
}

// BuildForward parses the raw original message and synthesizes the quoted
// forward block, carrying the original attachments over unchanged.
func BuildForward(raw []byte, note string) (*ForwardContent, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: parse original: %v", ErrInvalidMessage, err)
	}

	subject := env.GetHeader("Subject")
	if !strings.HasPrefix(strings.ToLower(subject), "fwd:") {
		subject = "Fwd: " + subject
	}

	origBody := env.HTML
	if origBody == "" {
		origBody = "<pre>" + html.EscapeString(env.Text) + "</pre>"
	}

	var body bytes.Buffer
	if note != "" {
		body.WriteString("<div>" + note + "</div><br>")
	}
	body.WriteString("<div>---------- Forwarded message ---------</div>")
	body.WriteString("<div>From: " + html.EscapeString(env.GetHeader("From")) + "</div>")
	body.WriteString("<div>Date: " + html.EscapeString(env.GetHeader("Date")) + "</div>")
	body.WriteString("<div>Subject: " + html.EscapeString(env.GetHeader("Subject")) + "</div>")
	body.WriteString("<div>To: " + html.EscapeString(env.GetHeader("To")) + "</div>")
	body.WriteString("<br>")
	body.WriteString(origBody)

	var attachments []OutgoingAttachment
	for _, part := range env.Attachments {
		attachments = append(attachments, OutgoingAttachment{
			Filename:    part.FileName,
			ContentType: part.ContentType,
			Content:     part.Content,
		})
	}

	return &ForwardContent{
		Subject:     subject,
		HTMLBody:    body.String(),
		Attachments: attachments,
	}, nil
}

// generateMessageID generates a unique message id under the sender's domain
func generateMessageID(email string) string {
	timestamp := time.Now().UnixNano()
	domain := "localhost"
	parts := strings.Split(email, "@")
	if len(parts) == 2 {
		domain = parts[1]
	}
	return fmt.Sprintf("<%d.%s@%s>", timestamp, randomString(8), domain)
}

// generateBoundary generates a MIME boundary
func generateBoundary() string {
	return fmt.Sprintf("----=_Part_%d_%s", time.Now().UnixNano(), randomString(16))
}

// wrapBase64 wraps base64 content to 76 characters per line
func wrapBase64(content string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, content)

	const lineLength = 76
	var result strings.Builder
	for i := 0; i < len(cleaned); i += lineLength {
		end := i + lineLength
		if end > len(cleaned) {
			end = len(cleaned)
		}
		result.WriteString(cleaned[i:end])
		if end < len(cleaned) {
			result.WriteString("\r\n")
		}
	}
	return result.String()
}

// randomString generates a random alphanumeric string
func randomString(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	randBytes := make([]byte, n)
	if _, err := io.ReadFull(cryptoRand.Reader, randBytes); err != nil {
		b := make([]byte, n)
		for i := range b {
			b[i] = letters[(time.Now().UnixNano()+int64(i))%int64(len(letters))]
		}
		return string(b)
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[int(randBytes[i])%len(letters)]
	}
	return string(b)
}
