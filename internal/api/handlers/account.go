package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Doni354/HORA-APIs-sub000/internal/api/middleware"
	"github.com/Doni354/HORA-APIs-sub000/internal/database/models"
	"github.com/Doni354/HORA-APIs-sub000/internal/mail"
	"github.com/Doni354/HORA-APIs-sub000/internal/services"
)

// AccountHandler handles mail account linking requests
type AccountHandler struct {
	accountService *services.AccountService
	logService     *services.LogService
}

// NewAccountHandler creates a new AccountHandler instance
func NewAccountHandler(accountService *services.AccountService, logService *services.LogService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logService:     logService,
	}
}

// AddAccountRequest represents the add-account request body
type AddAccountRequest struct {
	Provider     string `json:"provider" binding:"required"`
	EmailAddress string `json:"emailAddress" binding:"required,email"`
	Password     string `json:"password" binding:"required"`
	AuthType     string `json:"authType"`
}

// AccountResponse is the public view of a linked mail account
type AccountResponse struct {
	Email       string `json:"email"`
	Provider    string `json:"provider"`
	AuthType    string `json:"authType"`
	Active      bool   `json:"active"`
	ConnectedAt int64  `json:"connectedAt,omitempty"`
}

func toAccountResponse(account *models.MailAccount) AccountResponse {
	resp := AccountResponse{
		Email:    account.Email,
		Provider: account.Provider,
		AuthType: account.AuthType,
		Active:   account.Active,
	}
	if account.ConnectedAt != nil {
		resp.ConnectedAt = account.ConnectedAt.Unix()
	}
	return resp
}

// AddAccount links a mail account after a live connection trial
// POST /api/inbox/add-account
func (h *AccountHandler) AddAccount(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		respondAuthRequired(c)
		return
	}

	var req AddAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	account, err := h.accountService.LinkAccount(services.LinkAccountInput{
		UserID:   userID,
		Email:    req.EmailAddress,
		Provider: req.Provider,
		Password: req.Password,
		AuthType: req.AuthType,
	})
	if err != nil {
		switch {
		case errors.Is(err, mail.ErrUnsupportedProvider):
			respondJSONError(c, http.StatusBadRequest, "UNSUPPORTED_PROVIDER", "Unsupported mail provider: "+req.Provider)
		case errors.Is(err, mail.ErrConnectionFailed):
			// Trial login failed: wrong credential or provider rejected us
			respondJSONError(c, http.StatusUnauthorized, "AUTH_FAILED", err.Error())
		case errors.Is(err, services.ErrInvalidAccountData):
			respondJSONError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		default:
			respondMailError(c, err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toAccountResponse(account),
	})
}

// ListAccounts returns the caller's linked mail accounts
// GET /api/inbox/accounts
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		respondAuthRequired(c)
		return
	}

	accounts, err := h.accountService.ListAccounts(userID)
	if err != nil {
		respondMailError(c, err)
		return
	}

	responses := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		responses = append(responses, toAccountResponse(&accounts[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    responses,
	})
}

// RemoveAccount unlinks a mail account and discards its credential
// DELETE /api/inbox/accounts
func (h *AccountHandler) RemoveAccount(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		respondAuthRequired(c)
		return
	}

	email := c.Query("emailAccount")
	if email == "" {
		respondJSONError(c, http.StatusBadRequest, "VALIDATION_ERROR", "emailAccount is required")
		return
	}

	if err := h.accountService.UnlinkAccount(userID, email); err != nil {
		respondMailError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
