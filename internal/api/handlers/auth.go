package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Doni354/HORA-APIs-sub000/internal/api/middleware"
	"github.com/Doni354/HORA-APIs-sub000/internal/database/models"
	"github.com/Doni354/HORA-APIs-sub000/internal/services"
)

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

// AuthHandler handles authentication related requests
type AuthHandler struct {
	userService *services.UserService
	jwtManager  *middleware.JWTManager
	logService  *services.LogService
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(userService *services.UserService, jwtManager *middleware.JWTManager, logService *services.LogService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		jwtManager:  jwtManager,
		logService:  logService,
	}
}

// Login handles user login requests
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	user, err := h.userService.VerifyPassword(req.Username, req.Password)
	if err != nil {
		h.logService.LogLogin(0, req.Username, c.ClientIP(), false, err)
		respondJSONError(c, http.StatusUnauthorized, "AUTH_FAILED", "Invalid username or password")
		return
	}

	token, expiresAt, err := h.jwtManager.GenerateToken(user.ID, user.Username)
	if err != nil {
		respondJSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate token")
		return
	}

	h.logService.LogLogin(user.ID, req.Username, c.ClientIP(), true, nil)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
		},
	})
}

// RefreshToken handles token refresh requests
// POST /api/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		respondAuthRequired(c)
		return
	}

	username, _ := middleware.GetUsernameFromContext(c)

	token, expiresAt, err := h.jwtManager.GenerateToken(userID, username)
	if err != nil {
		respondJSONError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
		},
	})
}

// GetCurrentUser returns the current authenticated user info
// GET /api/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
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

// UserProfileResponse represents the user profile response
type UserProfileResponse struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	CreatedAt int64  `json:"created_at"`
}

// ToProfileResponse converts a User model to UserProfileResponse
func ToProfileResponse(user *models.User) UserProfileResponse {
	return UserProfileResponse{
		ID:        user.ID,
		Username:  user.Username,
		Nickname:  user.Nickname,
		CreatedAt: user.CreatedAt.Unix(),
	}
}
