package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MarcoPoloResearchLab/cloudvault/internal/auth"
	"github.com/MarcoPoloResearchLab/cloudvault/internal/users"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetPasswordPayload struct {
	NewPassword string `json:"newPassword"`
}

type tokenResponsePayload struct {
	Token string `json:"token"`
}

func (h *httpHandler) handleRegister(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Email == "" || request.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	_, err := h.users.Register(c.Request.Context(), request.Email, request.Password)
	switch {
	case errors.Is(err, users.ErrEmailTaken):
		c.JSON(http.StatusBadRequest, gin.H{"message": "User already exists"})
		return
	case errors.Is(err, users.ErrMissingEmail), errors.Is(err, users.ErrMissingPassword):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	case err != nil:
		h.respondServiceError(c, "registration failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Registered successfully"})
}

func (h *httpHandler) handleLogin(c *gin.Context) {
	var request credentialsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email and password are required"})
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), request.Email, request.Password)
	if errors.Is(err, users.ErrInvalidCredentials) || errors.Is(err, users.ErrMissingEmail) || errors.Is(err, users.ErrMissingPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
		return
	}
	if err != nil {
		h.respondServiceError(c, "login failed", err)
		return
	}

	token, _, err := h.tokens.IssueToken(c.Request.Context(), auth.Identity{UserID: user.ID, Email: user.Email})
	if err != nil {
		h.logger.Error("failed to issue token", zap.Error(err), zap.String("user_id", user.ID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.activity.Record(c.Request.Context(), user.ID, fmt.Sprintf("User %s logged in", user.Email))

	c.JSON(http.StatusOK, tokenResponsePayload{Token: token})
}

func (h *httpHandler) handleResetPassword(c *gin.Context) {
	userID := c.GetString(userIDContextKey)

	var request resetPasswordPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "New password is required"})
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), userID, request.NewPassword); err != nil {
		h.respondServiceError(c, "password reset failed", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated successfully"})
}

func (h *httpHandler) handleDeleteAccount(c *gin.Context) {
	userID := c.GetString(userIDContextKey)
	if err := h.accounts.Delete(c.Request.Context(), userID); err != nil {
		h.respondServiceError(c, "account deletion failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}
