package mail

import (
	"strings"

	"github.com/emersion/go-imap"
)

// DefaultFolder is used when no folder is given
const DefaultFolder = "INBOX"

// gmailFolders maps logical keywords (English and Indonesian synonyms) to
// Gmail mailbox paths. Gmail localizes its special folders, so both locales
// need to land on the same path.
var gmailFolders = map[string]string{
	"inbox":          "INBOX",
	"kotak masuk":    "INBOX",
	"sent":           "[Gmail]/Surat Terkirim",
	"sent mail":      "[Gmail]/Surat Terkirim",
	"terkirim":       "[Gmail]/Surat Terkirim",
	"surat terkirim": "[Gmail]/Surat Terkirim",
	"pesan terkirim": "[Gmail]/Surat Terkirim",
	"draft":          "[Gmail]/Draf",
	"drafts":         "[Gmail]/Draf",
	"draf":           "[Gmail]/Draf",
	"spam":           "[Gmail]/Spam",
	"junk":           "[Gmail]/Spam",
	"trash":          "[Gmail]/Tong Sampah",
	"sampah":         "[Gmail]/Tong Sampah",
	"tong sampah":    "[Gmail]/Tong Sampah",
	"starred":        "[Gmail]/Berbintang",
	"berbintang":     "[Gmail]/Berbintang",
	"all":            "[Gmail]/Semua Email",
	"all mail":       "[Gmail]/Semua Email",
	"semua":          "[Gmail]/Semua Email",
	"semua email":    "[Gmail]/Semua Email",
	"important":      "[Gmail]/Penting",
	"penting":        "[Gmail]/Penting",
}

// genericFolders is the smaller table used for non-Gmail providers
var genericFolders = map[string]string{
	"inbox":       "INBOX",
	"kotak masuk": "INBOX",
	"sent":        "Sent Items",
	"terkirim":    "Sent Items",
	"draft":       "Drafts",
	"drafts":      "Drafts",
	"draf":        "Drafts",
	"spam":        "Junk",
	"junk":        "Junk",
	"trash":       "Trash",
	"sampah":      "Trash",
	"tong sampah": "Trash",
}

// ResolveFolder maps a logical folder keyword to the provider-specific
// mailbox path. Inputs that already look like a literal path (contain "/"
// or "[") pass through unchanged so callers can address custom folders
// directly. Unmatched keywords also pass through unchanged.
func ResolveFolder(provider, logical string) string {
	if logical == "" {
		return DefaultFolder
	}
	if strings.ContainsAny(logical, "/[") {
		return logical
	}

	key := strings.ToLower(strings.TrimSpace(logical))
	table := genericFolders
	if strings.EqualFold(provider, "gmail") {
		table = gmailFolders
	}
	if path, ok := table[key]; ok {
		return path
	}
	return logical
}

// SentFolderCandidates returns the ordered list of known sent-folder paths
// probed during thread reconstruction.
func SentFolderCandidates(provider string) []string {
	if strings.EqualFold(provider, "gmail") {
		return []string{"[Gmail]/Surat Terkirim", "[Gmail]/Sent Mail", "Sent"}
	}
	return []string{"Sent Items", "Sent", "Sent Messages"}
}

// Folder is one entry of the flattened folder tree
type Folder struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Delimiter string `json:"delimiter"`
}

// ListFolders returns the account's folder tree flattened into path entries
func (s *Session) ListFolders() ([]Folder, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.client.List("", "*", mailboxes)
	}()

	var folders []Folder
	for m := range mailboxes {
		name := m.Name
		if idx := strings.LastIndex(m.Name, m.Delimiter); m.Delimiter != "" && idx >= 0 {
			name = m.Name[idx+len(m.Delimiter):]
		}
		folders = append(folders, Folder{
			Name:      name,
			Path:      m.Name,
			Delimiter: m.Delimiter,
		})
	}

	if err := <-done; err != nil {
		return nil, err
	}

	return folders, nil
}
