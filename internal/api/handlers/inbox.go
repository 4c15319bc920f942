package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Doni354/HORA-APIs-sub000/internal/api/middleware"
	"github.com/Doni354/HORA-APIs-sub000/internal/mail"
	"github.com/Doni354/HORA-APIs-sub000/internal/services"
)

// InboxHandler handles mailbox browsing, composing and flag requests.
// Every handler that opens a mailbox session closes it on all exit paths.
type InboxHandler struct {
	accountService *services.AccountService
	logService     *services.LogService
	publicBaseURL  string
}

// NewInboxHandler creates a new InboxHandler instance
func NewInboxHandler(accountService *services.AccountService, logService *services.LogService, publicBaseURL string) *InboxHandler {
	return &InboxHandler{
		accountService: accountService,
		logService:     logService,
		publicBaseURL:  publicBaseURL,
	}
}

// sessionParams are the query parameters shared by the mailbox read routes
type sessionParams struct {
	userID uint
	email  string
	folder string
	uid    uint32
}

func (h *InboxHandler) readParams(c *gin.Context, needUID bool) (*sessionParams, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		respondAuthRequired(c)
		return nil, false
	}

	email := c.Query("emailAccount")
	if email == "" {
		respondJSONError(c, http.StatusBadRequest, "VALIDATION_ERROR", "emailAccount is required")
		return nil, false
	}

	params := &sessionParams{
		userID: userID,
		email:  email,
		folder: c.Query("folder"),
	}

	if needUID {
		uid, err := strconv.ParseUint(c.Query("uid"), 10, 32)
		if err != nil || uid == 0 {
			respondJSONError(c, http.StatusBadRequest, "VALIDATION_ERROR", "uid must be a positive integer")
			return nil, false
		}
		params.uid = uint32(uid)
	}

	return params, true
}

// ListFolders returns the flattened folder tree of a linked account
// GET /api/inbox/folders
func (h *InboxHandler) ListFolders(c *gin.Context) {
	params, ok := h.readParams(c, false)
	if !ok {
		return
	}

	session, _, err := h.accountService.OpenSession(params.userID, params.email)
	if err != nil {
		respondMailError(c, err)
		return
	}
	defer session.Close()

	folders, err := session.ListFolders()
	if err != nil {
		respondMailError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    folders,
	})
}

// ListMessages returns one header-only page of a folder, newest first
// GET /api/inbox/messages
func (h *InboxHandler) ListMessages(c *gin.Context) {
	params, ok := h.readParams(c, false)
	if !ok {
		return
	}

	page := 1
	if p := c.Query("page"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil || parsed < 1 {
			respondJSONError(c, http.StatusBadRequest, "VALIDATION_ERROR", "page must be a positive integer")
			return
		}
		page = parsed
	}

	session, account, err := h.accountService.OpenSession(params.userID, params.email)
	if err != nil {
		respondMailError(c, err)
		return
	}
	defer session.Close()

	folderPath := mail.ResolveFolder(account.Provider, params.folder)
	result, err := session.ListMessages(folderPath, page)
	if err != nil {
		respondMailError(c, err)
		return
	}
	if result.Folder != folderPath {
		h.logService.LogFolderFallback(params.userID, account.Email, folderPath)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"provider":   account.Provider,
		"folder":     result.Folder,
		"page":       page,
		"totalInBox": result.Total,
		"data":       result.Messages,
	})
}

// MessageDetail returns the full view of one message, including attachment
// links and the reconstructed reply thread. Fetching marks the message read.
// GET /api/inbox/message-detail
func (h *InboxHandler) MessageDetail(c *gin.Context) {
	params, ok := h.readParams(c, true)
	if !ok {
		return
	}

	session, account, err := h.accountService.OpenSession(params.userID, params.email)
	if err != nil {
		respondMailError(c, err)
		return
	}
	defer session.Close()

	folderPath := mail.ResolveFolder(account.Provider, params.folder)
	detail, selected, err := session.FetchDetail(folderPath, params.uid)
	if err != nil {
		respondMailError(c, err)
		return
	}
	if selected != folderPath {
		h.logService.LogFolderFallback(params.userID, account.Email, folderPath)
	}

	for i := range detail.Attachments {
		att := &detail.Attachments[i]
		att.DownloadURL = h.attachmentURL(params, selected, att, "")
		att.PreviewURL = h.attachmentURL(params, selected, att, "preview")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    detail,
	})
}

// attachmentURL builds the public fetch URL for one attachment. The route
// is unauthenticated, so the owning user id travels in the query string.
func (h *InboxHandler) attachmentURL(params *sessionParams, folder string, att *mail.Attachment, mode string) string {
	values := url.Values{}
	values.Set("emailAccount", params.email)
	values.Set("folder", folder)
	values.Set("uid", strconv.FormatUint(uint64(params.uid), 10))
	values.Set("partId", att.PartID)
	values.Set("filename", att.Filename)
	values.Set("userId", strconv.FormatUint(uint64(params.userID), 10))
	if mode != "" {
		values.Set("mode", mode)
	}
	return h.publicBaseURL + "/api/inbox/attachment?" + values.Encode()
}

// Attachment streams one attachment's raw bytes. This route carries no
// authentication: links are embedded in webviews and mail clients that
// cannot attach headers, so possession of the full URL is the only gate.
// GET /api/inbox/attachment
func (h *InboxHandler) Attachment(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("userId"), 10, 32)
	if err != nil || userID == 0 {
		respondJSONError(c, http.StatusBadRequest, "VALIDATION_ERROR", "userId must be a positive integer")
		return
	}

	email := c.Query("emailAccount")
	partID := c.Query("partId")
	filename := c.Query("filename")
	if email == "" || partID == "" || filename == "" {
		respondJSONError(c, http.StatusBadRequest, "VALIDATION_ERROR", "emailAccount, partId and filename are required")
		return
	}

	uid, err := strconv.ParseUint(c.Query("uid"), 10, 32)
	if err != nil || uid == 0 {
		respondJSONError(c, http.StatusBadRequest, "VALIDATION_ERROR", "uid must be a positive integer")
		return
	}

	session, account, err := h.accountService.OpenSession(uint(userID), email)
	if err != nil {
		respondMailError(c, err)
		return
	}
	defer session.Close()

	folderPath := mail.ResolveFolder(account.Provider, c.Query("folder"))
	content, err := session.FetchAttachment(folderPath, uint32(uid), partID, filename)
	if err != nil {
		respondMailError(c, err)
		return
	}

	disposition := "attachment"
	if c.Query("mode") == "preview" {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`%s; filename="%s"`, disposition, content.Filename))
	c.Data(http.StatusOK, content.ContentType, content.Data)
}

// MessageBody returns the sanitized HTML rendition of a message body,
// ready for embedding in a constrained webview.
// GET /api/inbox/message-body
func (h *InboxHandler) MessageBody(c *gin.Context) {
	params, ok := h.readParams(c, true)
	if !ok {
		return
	}

	session, account, err := h.accountService.OpenSession(params.userID, params.email)
	if err != nil {
		respondMailError(c, err)
		return
	}
	defer session.Close()

	folderPath := mail.ResolveFolder(account.Provider, params.folder)
	doc, err := session.FetchBodyHTML(folderPath, params.uid)
	if err != nil {
		respondMailError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

// SendAttachment is one attachment of an outbound send request
type SendAttachment struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType"`
	Content     string `json:"content" binding:"required"` // base64
}

// SendRequest represents the send request body
type SendRequest struct {
	EmailAccount     string           `json:"emailAccount" binding:"required"`
	To               []string         `json:"to" binding:"required,min=1"`
	Cc               []string         `json:"cc"`
	Bcc              []string         `json:"bcc"`
	Subject          string           `json:"subject" binding:"required"`
	Body             string           `json:"body" binding:"required"`
	ReplyToMessageID string           `json:"replyToMessageId"`
	Attachments      []SendAttachment `json:"attachments"`
}

// Send dispatches a new message or reply through the account's SMTP endpoint
// POST /api/inbox/send
func (h *InboxHandler) Send(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		respondAuthRequired(c)
		return
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	account, err := h.accountService.Get(userID, req.EmailAccount)
	if err != nil {
		respondMailError(c, err)
		return
	}
	password, err := h.accountService.Credential(account)
	if err != nil {
		respondMailError(c, err)
		return
	}
	provider, err := h.accountService.ProviderFor(account)
	if err != nil {
		respondMailError(c, err)
		return
	}

	outgoing := &mail.OutgoingMessage{
		FromEmail: account.Email,
		To:        req.To,
		Cc:        req.Cc,
		Bcc:       req.Bcc,
		Subject:   req.Subject,
		HTMLBody:  req.Body,
		InReplyTo: req.ReplyToMessageID,
	}
	for _, att := range req.Attachments {
		data, err := base64.StdEncoding.DecodeString(att.Content)
		if err != nil {
			respondJSONError(c, http.StatusBadRequest, "VALIDATION_ERROR", "attachment content must be base64: "+att.Filename)
			return
		}
		outgoing.Attachments = append(outgoing.Attachments, mail.OutgoingAttachment{
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Content:     data,
		})
	}

	messageID, err := mail.Send(provider, password, outgoing)
	h.logService.LogMailSend(userID, account.Email, joinRecipients(req.To), req.Subject, err)
	if err != nil {
		respondMailError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"messageId": messageID},
	})
}

// ForwardRequest represents the forward request body
type ForwardRequest struct {
	EmailAccount string   `json:"emailAccount" binding:"required"`
	Folder       string   `json:"folder"`
	UID          uint32   `json:"uid" binding:"required"`
	To           []string `json:"to" binding:"required,min=1"`
	Cc           []string `json:"cc"`
	Note         string   `json:"note"`
}

// Forward refetches the original message, synthesizes the quoted forward
// block and sends it with the original attachments carried over unchanged.
// POST /api/inbox/forward
func (h *InboxHandler) Forward(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		respondAuthRequired(c)
		return
	}

	var req ForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	session, account, err := h.accountService.OpenSession(userID, req.EmailAccount)
	if err != nil {
		respondMailError(c, err)
		return
	}

	folderPath := mail.ResolveFolder(account.Provider, req.Folder)
	raw, err := session.FetchRawMessage(folderPath, req.UID)
	session.Close()
	if err != nil {
		respondMailError(c, err)
		return
	}

	forward, err := mail.BuildForward(raw, req.Note)
	if err != nil {
		respondMailError(c, err)
		return
	}

	password, err := h.accountService.Credential(account)
	if err != nil {
		respondMailError(c, err)
		return
	}
	provider, err := h.accountService.ProviderFor(account)
	if err != nil {
		respondMailError(c, err)
		return
	}

	outgoing := &mail.OutgoingMessage{
		FromEmail:   account.Email,
		To:          req.To,
		Cc:          req.Cc,
		Subject:     forward.Subject,
		HTMLBody:    forward.HTMLBody,
		Attachments: forward.Attachments,
	}

	messageID, err := mail.Send(provider, password, outgoing)
	h.logService.LogMailSend(userID, account.Email, joinRecipients(req.To), forward.Subject, err)
	if err != nil {
		respondMailError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"messageId": messageID},
	})
}

// FlagRequest represents the star and mark-read request bodies
type FlagRequest struct {
	EmailAccount string `json:"emailAccount" binding:"required"`
	Folder       string `json:"folder"`
	UID          uint32 `json:"uid" binding:"required"`
	Value        *bool  `json:"value"`
}

func (h *InboxHandler) setFlag(c *gin.Context, flagName string) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		respondAuthRequired(c)
		return
	}

	var req FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	present := true
	if req.Value != nil {
		present = *req.Value
	}

	session, account, err := h.accountService.OpenSession(userID, req.EmailAccount)
	if err != nil {
		respondMailError(c, err)
		return
	}
	defer session.Close()

	folderPath := mail.ResolveFolder(account.Provider, req.Folder)
	if err := session.SetFlag(folderPath, req.UID, flagName, present); err != nil {
		respondMailError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Star sets or clears the starred flag on a message
// POST /api/inbox/star
func (h *InboxHandler) Star(c *gin.Context) {
	h.setFlag(c, "flagged")
}

// MarkRead sets or clears the read flag on a message
// POST /api/inbox/mark-read
func (h *InboxHandler) MarkRead(c *gin.Context) {
	h.setFlag(c, "seen")
}

func joinRecipients(to []string) string {
	if len(to) == 0 {
		return ""
	}
	out := to[0]
	for _, t := range to[1:] {
		out += ", " + t
	}
	return out
}
