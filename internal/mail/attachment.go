package mail

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/sirupsen/logrus"
)

var (
	// ErrAttachmentNotFound indicates every extraction strategy exhausted
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrBadPartID indicates the part id is not a dotted numeric path
	ErrBadPartID = errors.New("invalid part id")
)

// AttachmentContent is the extracted binary of one attachment
type AttachmentContent struct {
	Filename    string
	ContentType string
	Data        []byte
}

// extractStrategy is one way of pulling an attachment out of a message.
// Strategies are tried in order; they are alternative methods, not retries.
type extractStrategy func(s *Session, uid uint32, partID, filename string) (*AttachmentContent, error)

var extractStrategies = []extractStrategy{
	(*Session).extractTargetedPart,
	(*Session).extractFromFullMessage,
}

// FetchAttachment extracts one attachment from a message. The targeted
// part fetch is tried first; any failure falls through to a full-message
// parse, which is slower but survives providers where part addressing is
// unreliable.
func (s *Session) FetchAttachment(folderPath string, uid uint32, partID, filename string) (*AttachmentContent, error) {
	if _, _, err := s.selectWithInboxFallback(folderPath, true); err != nil {
		return nil, err
	}

	for _, strategy := range extractStrategies {
		content, err := strategy(s, uid, partID, filename)
		if err == nil {
			return content, nil
		}
		s.logger.WithFields(logrus.Fields{
			"uid":     uid,
			"part_id": partID,
			"error":   err.Error(),
		}).Debug("attachment extraction strategy failed")
	}

	return nil, ErrAttachmentNotFound
}

// extractTargetedPart fetches only the named body part and decodes it as
// line-stripped base64.
func (s *Session) extractTargetedPart(uid uint32, partID, filename string) (*AttachmentContent, error) {
	path, err := parsePartPath(partID)
	if err != nil {
		return nil, err
	}

	section := &imap.BodySectionName{
		BodyPartName: imap.BodyPartName{Path: path},
		Peek:         true,
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var raw []byte
	for msg := range messages {
		if msg == nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		content, err := io.ReadAll(body)
		if err == nil && len(content) > 0 {
			raw = content
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("part fetch failed: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("part %s has no body", partID)
	}

	data, err := decodeBase64Part(raw)
	if err != nil {
		return nil, err
	}

	return &AttachmentContent{
		Filename:    filename,
		ContentType: contentTypeForFilename(filename),
		Data:        data,
	}, nil
}

// extractFromFullMessage fetches the entire raw message, parses it with a
// tolerant MIME parser and matches the attachment by filename.
func (s *Session) extractFromFullMessage(uid uint32, partID, filename string) (*AttachmentContent, error) {
	raw, err := s.fetchRawSelected(uid)
	if err != nil {
		return nil, err
	}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}

	for _, part := range allBinaryParts(env) {
		if part.FileName == filename {
			contentType := part.ContentType
			if contentType == "" {
				contentType = contentTypeForFilename(filename)
			}
			return &AttachmentContent{
				Filename:    filename,
				ContentType: contentType,
				Data:        part.Content,
			}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrAttachmentNotFound, filename)
}

// fetchRawSelected fetches the full raw message from the selected folder
func (s *Session) fetchRawSelected(uid uint32) ([]byte, error) {
	section := &imap.BodySectionName{Peek: true}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var raw []byte
	for msg := range messages {
		if msg == nil {
			continue
		}
		for _, literal := range msg.Body {
			content, err := io.ReadAll(literal)
			if err == nil && len(content) > 0 {
				raw = content
			}
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("raw fetch failed: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrMessageNotFound
	}
	return raw, nil
}

// FetchRawMessage fetches the full raw message from a folder, with the
// usual INBOX fallback on folder-open failure.
func (s *Session) FetchRawMessage(folderPath string, uid uint32) ([]byte, error) {
	if _, _, err := s.selectWithInboxFallback(folderPath, true); err != nil {
		return nil, err
	}
	return s.fetchRawSelected(uid)
}

// parsePartPath parses a dotted part id like "2.1" into its numeric path
func parsePartPath(partID string) ([]int, error) {
	if strings.TrimSpace(partID) == "" {
		return nil, ErrBadPartID
	}
	segments := strings.Split(partID, ".")
	path := make([]int, len(segments))
	for i, seg := range segments {
		n, err := strconv.Atoi(seg)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %q", ErrBadPartID, partID)
		}
		path[i] = n
	}
	return path, nil
}

// decodeBase64Part strips line breaks and whitespace from a transfer-encoded
// body and decodes it as base64.
func decodeBase64Part(raw []byte) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, string(raw))

	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("base64 decode failed: %w", err)
	}
	return data, nil
}

// contentTypeForFilename guesses a content type from a filename extension
func contentTypeForFilename(filename string) string {
	if ext := filepath.Ext(filename); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	return "application/octet-stream"
}

// allBinaryParts returns the parsed attachment-like parts of an envelope:
// declared attachments first, then inlines and any remaining binary parts.
func allBinaryParts(env *enmime.Envelope) []*enmime.Part {
	parts := make([]*enmime.Part, 0, len(env.Attachments)+len(env.Inlines)+len(env.OtherParts))
	parts = append(parts, env.Attachments...)
	parts = append(parts, env.Inlines...)
	parts = append(parts, env.OtherParts...)
	return parts
}
