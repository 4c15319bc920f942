package mail

import (
	"bytes"
	"encoding/base64"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jhillyerd/enmime"
)

func TestParsePartPath(t *testing.T) {
	tests := []struct {
		partID  string
		want    []int
		wantErr bool
	}{
		{"1", []int{1}, false},
		{"2.1", []int{2, 1}, false},
		{"1.3.2", []int{1, 3, 2}, false},
		{"", nil, true},
		{"  ", nil, true},
		{"0", nil, true},
		{"-1", nil, true},
		{"2.x", nil, true},
		{"2..1", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.partID, func(t *testing.T) {
			got, err := parsePartPath(tt.partID)
			if tt.wantErr {
				if !errors.Is(err, ErrBadPartID) {
					t.Errorf("parsePartPath(%q) err = %v, want ErrBadPartID", tt.partID, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePartPath(%q) unexpected error: %v", tt.partID, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parsePartPath(%q) = %v, want %v", tt.partID, got, tt.want)
			}
		})
	}
}

func TestDecodeBase64Part(t *testing.T) {
	payload := []byte("attachment payload bytes \x00\x01\x02")
	encoded := base64.StdEncoding.EncodeToString(payload)

	t.Run("plain encoding", func(t *testing.T) {
		got, err := decodeBase64Part([]byte(encoded))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Error("decoded bytes differ from payload")
		}
	})

	t.Run("line wrapped encoding", func(t *testing.T) {
		// Servers return transfer-encoded bodies wrapped at 76 columns
		wrapped := wrapBase64(encoded)
		if !strings.Contains(wrapped, "\r\n") && len(encoded) > 76 {
			t.Fatal("test fixture should contain line breaks")
		}
		got, err := decodeBase64Part([]byte(wrapped))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Error("decoded bytes differ from payload")
		}
	})

	t.Run("whitespace noise tolerated", func(t *testing.T) {
		noisy := " " + strings.ReplaceAll(encoded, "=", "=\n") + "\t"
		got, err := decodeBase64Part([]byte(noisy))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Error("decoded bytes differ from payload")
		}
	})

	t.Run("invalid content rejected", func(t *testing.T) {
		if _, err := decodeBase64Part([]byte("not!base64%%")); err == nil {
			t.Error("expected decode error")
		}
	})
}

func TestContentTypeForFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"report.pdf", "application/pdf"},
		{"noextension", "application/octet-stream"},
		{"archive.unknownext", "application/octet-stream"},
	}
	for _, tt := range tests {
		got := contentTypeForFilename(tt.filename)
		// mime.TypeByExtension may append parameters (charset) per platform
		if !strings.HasPrefix(got, tt.want) {
			t.Errorf("contentTypeForFilename(%q) = %q, want prefix %q", tt.filename, got, tt.want)
		}
	}
}

// rawMessageWithAttachment builds a multipart/mixed message carrying one
// base64 attachment, the way providers hand them back on a full fetch.
func rawMessageWithAttachment(filename string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("From: Budi Santoso <budi@example.com>\r\n")
	buf.WriteString("To: hr@example.com\r\n")
	buf.WriteString("Subject: Leave request\r\n")
	buf.WriteString("Date: Mon, 11 Aug 2025 09:30:00 +0700\r\n")
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: multipart/mixed; boundary=\"frontier\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString("--frontier\r\n")
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString("<p>Attached is my leave form.</p>\r\n")
	buf.WriteString("--frontier\r\n")
	buf.WriteString("Content-Type: application/pdf; name=\"" + filename + "\"\r\n")
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	buf.WriteString("Content-Disposition: attachment; filename=\"" + filename + "\"\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(wrapBase64(base64.StdEncoding.EncodeToString(payload)))
	buf.WriteString("\r\n")
	buf.WriteString("--frontier--\r\n")
	return buf.Bytes()
}

func TestFullMessageAttachmentMatch(t *testing.T) {
	payload := []byte{0x25, 0x50, 0x44, 0x46, 0x2d, 0x31, 0x2e, 0x34, 0x00, 0xff}
	raw := rawMessageWithAttachment("cuti.pdf", payload)

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	var found *enmime.Part
	for _, part := range allBinaryParts(env) {
		if part.FileName == "cuti.pdf" {
			found = part
			break
		}
	}
	if found == nil {
		t.Fatal("attachment not found among parsed parts")
	}
	if !bytes.Equal(found.Content, payload) {
		t.Error("parsed attachment bytes differ from original payload")
	}
	if !strings.HasPrefix(found.ContentType, "application/pdf") {
		t.Errorf("unexpected content type %q", found.ContentType)
	}
}
