package handlers

import (
	"net/http"
	"pharmacist/internal/auth"
	"pharmacist/internal/models"
	"pharmacist/internal/services"

	"github.com/gin-gonic/gin"
)

// ListChatSessions returns the user's sessions, most recently active first
func ListChatSessions(c *gin.Context) {
	sessions, err := deps.Chat.ListSessions(auth.CurrentUserID(c))
	if err != nil {
		handleServiceError(c, err, "Failed to list sessions")
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func CreateChatSession(c *gin.Context) {
	var req models.CreateSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
			return
		}
	}

	session, err := deps.Chat.CreateSession(auth.CurrentUserID(c), req.Title)
	if err != nil {
		handleServiceError(c, err, "Failed to create session")
		return
	}
	c.JSON(http.StatusCreated, session)
}

func DeleteChatSession(c *gin.Context) {
	sessionID, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := deps.Chat.DeleteSession(c.Request.Context(), auth.CurrentUserID(c), sessionID); err != nil {
		handleServiceError(c, err, "Failed to delete session")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListChatMessages returns a session's messages oldest first
func ListChatMessages(c *gin.Context) {
	sessionID, ok := idParam(c, "id")
	if !ok {
		return
	}

	messages, err := deps.Chat.ListMessages(auth.CurrentUserID(c), sessionID)
	if err != nil {
		handleServiceError(c, err, "Failed to list messages")
		return
	}
	c.JSON(http.StatusOK, messages)
}

// SendChatMessage accepts multipart {content, uploaded_image} and returns both sides of the exchange
func SendChatMessage(c *gin.Context) {
	sessionID, ok := idParam(c, "id")
	if !ok {
		return
	}

	content := c.PostForm("content")

	var image *services.ImageUpload
	header, err := c.FormFile("uploaded_image")
	switch {
	case err == nil:
		if err := services.ValidateImageFile(header); err != nil {
			handleServiceError(c, err, "Invalid image")
			return
		}
		file, err := header.Open()
		if err != nil {
			handleError(c, http.StatusBadRequest, "Failed to read image", err)
			return
		}
		defer file.Close()
		image = &services.ImageUpload{Reader: file, Filename: header.Filename}
	case err != http.ErrMissingFile && err != http.ErrNotMultipart:
		handleError(c, http.StatusBadRequest, "Invalid upload: "+err.Error(), err)
		return
	}

	userMessage, aiMessage, err := deps.Chat.SendMessage(c.Request.Context(), auth.CurrentUserID(c), sessionID, content, image)
	if err != nil {
		handleServiceError(c, err, "Failed to send message")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_message": userMessage,
		"ai_message":   aiMessage,
	})
}
