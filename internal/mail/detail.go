package mail

import (
	"errors"
	"fmt"
	"mime"
	"sort"
	"strconv"
	"strings"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/responses"
	"github.com/sirupsen/logrus"
)

var (
	// ErrMessageNotFound indicates the UID is absent from the selected folder
	ErrMessageNotFound = errors.New("message not found")
)

// gmailThreadItem is the Gmail extension fetch item carrying the thread id
const gmailThreadItem = imap.FetchItem("X-GM-THRID")

// Attachment describes one attachment part discovered in a message's
// structure tree. Identity is (message UID, part id); nothing is persisted.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        uint32 `json:"size"`
	PartID      string `json:"partId"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	PreviewURL  string `json:"previewUrl,omitempty"`
}

// ThreadReply is one message of a reconstructed conversation
type ThreadReply struct {
	UID     uint32 `json:"id"`
	Folder  string `json:"folder"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Current bool   `json:"isCurrent"`

	date int64
}

// MessageDetail is the full view of one message
type MessageDetail struct {
	UID         uint32        `json:"id"`
	Subject     string        `json:"subject"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	Date        string        `json:"date"`
	Seen        bool          `json:"read"`
	Starred     bool          `json:"starred"`
	Attachments []Attachment  `json:"attachments"`
	Replies     []ThreadReply `json:"replies"`
}

// FetchDetail fetches one message by UID, discovers its attachments and
// reconstructs its reply thread. The message is marked read as a side
// effect. Returns the folder actually selected (INBOX on fallback).
func (s *Session) FetchDetail(folderPath string, uid uint32) (*MessageDetail, string, error) {
	_, selected, err := s.selectWithInboxFallback(folderPath, false)
	if err != nil {
		return nil, "", err
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, imap.FetchFlags, imap.FetchBodyStructure}
	threading := strings.EqualFold(s.provider.Name, "gmail")
	if threading {
		items = append(items, gmailThreadItem)
	}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)

	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		if m != nil {
			msg = m
		}
	}
	if err := <-done; err != nil {
		return nil, "", fmt.Errorf("fetch failed: %w", err)
	}
	if msg == nil || msg.Envelope == nil {
		return nil, "", ErrMessageNotFound
	}

	detail := &MessageDetail{
		UID:         msg.Uid,
		Subject:     msg.Envelope.Subject,
		From:        formatAddressList(msg.Envelope.From),
		To:          joinAddresses(msg.Envelope.To),
		Date:        formatDate(msg.Envelope.Date),
		Seen:        true, // marked below
		Starred:     hasFlag(msg.Flags, imap.FlaggedFlag),
		Attachments: []Attachment{},
	}

	if msg.BodyStructure != nil {
		detail.Attachments = collectAttachments(msg.BodyStructure)
	}

	threadID := ""
	if threading {
		threadID = threadIDFromItems(msg.Items)
	}
	detail.Replies = s.reconstructThread(selected, msg, threadID)

	// Mark read as a side effect of fetching the detail
	if err := s.storeFlag(selected, uid, imap.SeenFlag, true); err != nil {
		s.logger.WithError(err).Debug("failed to mark message read")
	}

	return detail, selected, nil
}

// collectAttachments walks the message structure tree and returns the parts
// that render as attachments, each with its dotted part path so it can be
// refetched individually later.
func collectAttachments(bs *imap.BodyStructure) []Attachment {
	attachments := []Attachment{}
	walkStructure(bs, nil, &attachments)
	return attachments
}

// walkStructure recurses over the structure tree. A node is either a leaf
// part or a composite holding sibling parts; composites recurse, leaves are
// classified.
func walkStructure(bs *imap.BodyStructure, path []int, out *[]Attachment) {
	if bs == nil {
		return
	}

	if len(bs.Parts) > 0 {
		for i, part := range bs.Parts {
			childPath := append(append([]int{}, path...), i+1)
			walkStructure(part, childPath, out)
		}
		return
	}

	if !isAttachmentPart(bs) {
		return
	}

	partID := partPathString(path)
	*out = append(*out, Attachment{
		Filename:    attachmentFilename(bs, partID),
		ContentType: strings.ToLower(bs.MIMEType + "/" + bs.MIMESubType),
		Size:        bs.Size,
		PartID:      partID,
	})
}

// isAttachmentPart reports whether a leaf part renders as an attachment:
// explicit attachment disposition, or a binary content category.
func isAttachmentPart(bs *imap.BodyStructure) bool {
	if strings.EqualFold(bs.Disposition, "attachment") {
		return true
	}
	mediaType := strings.ToLower(bs.MIMEType)
	switch mediaType {
	case "image", "application", "video", "audio":
		return true
	}
	return false
}

// partPathString renders a structure position as a dotted part id ("2.1").
// A message whose root is a single part addresses it as part 1.
func partPathString(path []int) string {
	if len(path) == 0 {
		return "1"
	}
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ".")
}

// attachmentFilename resolves the display filename of an attachment part,
// decoding MIME-encoded words where present.
func attachmentFilename(bs *imap.BodyStructure, partID string) string {
	name := bs.DispositionParams["filename"]
	if name == "" {
		name = bs.Params["name"]
	}
	if name != "" {
		dec := new(mime.WordDecoder)
		if decoded, err := dec.DecodeHeader(name); err == nil {
			name = decoded
		}
		return name
	}
	return "attachment-" + partID + extensionForType(strings.ToLower(bs.MIMEType), strings.ToLower(bs.MIMESubType))
}

func extensionForType(mediaType, subType string) string {
	switch {
	case mediaType == "image":
		return "." + subType
	case mediaType == "application" && subType == "pdf":
		return ".pdf"
	default:
		return ".bin"
	}
}

// threadIDFromItems extracts the Gmail thread id from the raw fetch items
func threadIDFromItems(items map[imap.FetchItem]interface{}) string {
	v, ok := items[gmailThreadItem]
	if !ok || v == nil {
		return ""
	}
	id := strings.TrimSpace(fmt.Sprint(v))
	if id == "" || strings.EqualFold(id, "NIL") {
		return ""
	}
	return id
}

// reconstructThread assembles the conversation around the fetched message.
// Without a thread id the list degenerates to the message itself. With one,
// the current folder is searched first, then known sent-folder paths are
// probed best-effort; probe failures are swallowed, partial results are
// acceptable.
func (s *Session) reconstructThread(currentFolder string, msg *imap.Message, threadID string) []ThreadReply {
	self := ThreadReply{
		UID:     msg.Uid,
		Folder:  currentFolder,
		From:    formatAddressList(msg.Envelope.From),
		Subject: msg.Envelope.Subject,
		Date:    formatDate(msg.Envelope.Date),
		Current: true,
		date:    msg.Envelope.Date.Unix(),
	}

	if threadID == "" {
		return []ThreadReply{self}
	}

	replies := s.searchThreadReplies(currentFolder, threadID, msg.Uid)
	found := false
	for i := range replies {
		if replies[i].UID == msg.Uid {
			replies[i].Current = true
			found = true
		}
	}
	if !found {
		replies = append(replies, self)
	}

	for _, sent := range SentFolderCandidates(s.provider.Name) {
		if sent == currentFolder {
			continue
		}
		if _, err := s.selectFolder(sent, true); err != nil {
			continue
		}
		replies = append(replies, s.searchThreadRepliesSelected(sent, threadID, 0)...)
		break
	}

	sort.SliceStable(replies, func(i, j int) bool {
		return replies[i].date < replies[j].date
	})

	return replies
}

// searchThreadReplies searches the given (already selected) folder for
// messages sharing the thread id. currentUID marks which reply is the one
// being viewed.
func (s *Session) searchThreadReplies(folder, threadID string, currentUID uint32) []ThreadReply {
	return s.searchThreadRepliesSelected(folder, threadID, currentUID)
}

func (s *Session) searchThreadRepliesSelected(folder, threadID string, currentUID uint32) []ThreadReply {
	uids, err := s.uidSearchThread(threadID)
	if err != nil || len(uids) == 0 {
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"folder": folder,
				"error":  err.Error(),
			}).Debug("thread search failed")
		}
		return nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope}
	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- s.client.UidFetch(seqSet, items, messages)
	}()

	var replies []ThreadReply
	for m := range messages {
		if m == nil || m.Envelope == nil {
			continue
		}
		replies = append(replies, ThreadReply{
			UID:     m.Uid,
			Folder:  folder,
			From:    formatAddressList(m.Envelope.From),
			Subject: m.Envelope.Subject,
			Date:    formatDate(m.Envelope.Date),
			Current: currentUID != 0 && m.Uid == currentUID,
			date:    m.Envelope.Date.Unix(),
		})
	}
	if err := <-done; err != nil {
		s.logger.WithError(err).Debug("thread fetch failed")
	}

	return replies
}

// uidSearchThread issues a raw UID SEARCH with the Gmail thread-id
// extension key, which the generic search criteria cannot express.
func (s *Session) uidSearchThread(threadID string) ([]uint32, error) {
	cmd := &imap.Command{
		Name:      "UID SEARCH",
		Arguments: []interface{}{imap.RawString("X-GM-THRID"), imap.RawString(threadID)},
	}
	res := new(responses.Search)
	if _, err := s.client.Execute(cmd, res); err != nil {
		return nil, err
	}
	return res.Ids, nil
}

func joinAddresses(addrs []*imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		parts = append(parts, formatAddress(a))
	}
	return strings.Join(parts, ", ")
}
