package mail

import (
	"fmt"
	"sort"
	"time"

	"github.com/emersion/go-imap"
)

// PageSize is the fixed number of message summaries per page
const PageSize = 15

// MessageSummary is the header-only view of one message in a folder listing
type MessageSummary struct {
	UID     uint32 `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	Date    string `json:"date"`
	Seen    bool   `json:"read"`
	Starred bool   `json:"starred"`
}

// Page is one page of a folder listing
type Page struct {
	Folder   string           `json:"folder"`
	Total    uint32           `json:"totalInBox"`
	Messages []MessageSummary `json:"data"`
}

// pageWindow computes the sequence-number range covered by a 1-based page
// over a folder with the given total. ok is false when the page lies beyond
// the available range.
func pageWindow(total uint32, page int) (start, end uint32, ok bool) {
	if page < 1 || total == 0 {
		return 0, 0, false
	}
	endSigned := int64(total) - int64(page-1)*PageSize
	if endSigned < 1 {
		return 0, 0, false
	}
	end = uint32(endSigned)
	startSigned := endSigned - (PageSize - 1)
	if startSigned < 1 {
		startSigned = 1
	}
	start = uint32(startSigned)
	return start, end, true
}

// ListMessages fetches one header-only page of the folder, newest first.
// A page beyond the available range yields an empty page, not an error.
func (s *Session) ListMessages(folderPath string, page int) (*Page, error) {
	mbox, selected, err := s.selectWithInboxFallback(folderPath, true)
	if err != nil {
		return nil, err
	}

	result := &Page{
		Folder:   selected,
		Total:    mbox.Messages,
		Messages: []MessageSummary{},
	}

	start, end, ok := pageWindow(mbox.Messages, page)
	if !ok {
		return result, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddRange(start, end)

	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, imap.FetchFlags}
	messages := make(chan *imap.Message, PageSize)
	done := make(chan error, 1)

	go func() {
		done <- s.client.Fetch(seqSet, items, messages)
	}()

	type seqSummary struct {
		seq     uint32
		summary MessageSummary
	}
	var fetched []seqSummary

	for msg := range messages {
		if msg == nil || msg.Envelope == nil {
			continue
		}
		fetched = append(fetched, seqSummary{
			seq: msg.SeqNum,
			summary: MessageSummary{
				UID:     msg.Uid,
				Subject: msg.Envelope.Subject,
				From:    formatAddressList(msg.Envelope.From),
				Date:    formatDate(msg.Envelope.Date),
				Seen:    hasFlag(msg.Flags, imap.SeenFlag),
				Starred: hasFlag(msg.Flags, imap.FlaggedFlag),
			},
		})
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	// Newest first, independent of the order the server streamed them in
	sort.Slice(fetched, func(i, j int) bool {
		return fetched[i].seq > fetched[j].seq
	})

	for _, f := range fetched {
		result.Messages = append(result.Messages, f.summary)
	}

	return result, nil
}

// formatAddress formats an IMAP address as a display string
func formatAddress(addr *imap.Address) string {
	if addr == nil {
		return ""
	}
	if addr.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", addr.PersonalName, addr.MailboxName, addr.HostName)
	}
	return fmt.Sprintf("%s@%s", addr.MailboxName, addr.HostName)
}

func formatAddressList(addrs []*imap.Address) string {
	if len(addrs) == 0 {
		return ""
	}
	return formatAddress(addrs[0])
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC1123Z)
}

func hasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
