package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Doni354/HORA-APIs-sub000/internal/mail"
	"github.com/Doni354/HORA-APIs-sub000/internal/services"
)

// respondJSONError writes the standard error envelope
func respondJSONError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request body",
			"details": err.Error(),
		},
	})
}

func respondAuthRequired(c *gin.Context) {
	respondJSONError(c, http.StatusUnauthorized, "AUTH_FAILED", "User not authenticated")
}

// respondMailError maps service and mailbox errors to the response envelope.
// Validation and not-found errors map to 4xx; transport and unexpected
// errors return 500 with the underlying message echoed, which is acceptable
// for an internal API and saves a round trip to the logs.
func respondMailError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAccountNotFound):
		respondJSONError(c, http.StatusNotFound, "ACCOUNT_NOT_FOUND", "Mail account not linked")
	case errors.Is(err, mail.ErrUnsupportedProvider):
		respondJSONError(c, http.StatusBadRequest, "UNSUPPORTED_PROVIDER", err.Error())
	case errors.Is(err, mail.ErrMessageNotFound):
		respondJSONError(c, http.StatusNotFound, "MESSAGE_NOT_FOUND", "Message not found")
	case errors.Is(err, mail.ErrAttachmentNotFound):
		respondJSONError(c, http.StatusNotFound, "ATTACHMENT_NOT_FOUND", "Attachment not found")
	case errors.Is(err, mail.ErrUnknownFlag),
		errors.Is(err, mail.ErrBadPartID),
		errors.Is(err, mail.ErrInvalidMessage):
		respondJSONError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, services.ErrDecryptionFailed),
		errors.Is(err, services.ErrEmptyCredential):
		respondJSONError(c, http.StatusInternalServerError, "DECRYPTION_FAILED", err.Error())
	case errors.Is(err, mail.ErrConnectionFailed),
		errors.Is(err, mail.ErrSendFailed):
		respondJSONError(c, http.StatusInternalServerError, "TRANSPORT_ERROR", err.Error())
	default:
		respondJSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
