package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Doni354/HORA-APIs-sub000/internal/api/middleware"
	"github.com/Doni354/HORA-APIs-sub000/internal/services"
)

// UserHandler handles user related requests
type UserHandler struct {
	userService *services.UserService
	logService  *services.LogService
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(userService *services.UserService, logService *services.LogService) *UserHandler {
	return &UserHandler{
		userService: userService,
		logService:  logService,
	}
}

// ChangePasswordRequest represents the request to change password
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// GetProfile returns the current user's profile
// GET /api/user/profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		respondAuthRequired(c)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		respondJSONError(c, http.StatusNotFound, "NOT_FOUND", "User not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    ToProfileResponse(user),
	})
}

// ChangePassword changes the current user's password
// PUT /api/user/password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		respondAuthRequired(c)
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	err := h.userService.ChangePassword(userID, req.OldPassword, req.NewPassword)
	if err != nil {
		h.logService.LogPasswordChange(userID, false, err)

		switch err {
		case services.ErrInvalidCredentials:
			respondJSONError(c, http.StatusUnauthorized, "AUTH_FAILED", "Current password is incorrect")
		case services.ErrPasswordTooShort:
			respondJSONError(c, http.StatusBadRequest, "VALIDATION_ERROR", "New password must be at least 6 characters")
		default:
			respondJSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to change password")
		}
		return
	}

	h.logService.LogPasswordChange(userID, true, nil)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password changed successfully",
	})
}

// ActivityLog returns the caller's recent activity log entries
// GET /api/user/activity
func (h *UserHandler) ActivityLog(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		respondAuthRequired(c)
		return
	}

	logs, err := h.logService.GetRecentLogs(userID, 50)
	if err != nil {
		respondJSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load activity log")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    logs,
	})
}
