package handlers

import (
	"net/http"
	"pharmacist/internal/auth"
	"pharmacist/internal/database"
	"pharmacist/internal/models"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetCurrentUser returns the currently authenticated user
func GetCurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, auth.CurrentUser(c))
}

// UpdateCurrentUser changes the profile fields of the authenticated user. An empty email removes it.
func UpdateCurrentUser(c *gin.Context) {
	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
		return
	}

	user := auth.CurrentUser(c)
	db := database.GetDB()
	updates := map[string]interface{}{}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
		updates["first_name"] = user.FirstName
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
		updates["last_name"] = user.LastName
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			user.Email = nil
			updates["email"] = nil
		} else {
			var taken int64
			if err := db.Unscoped().Model(&models.User{}).
				Where("email = ? AND id <> ?", email, user.ID).
				Count(&taken).Error; err != nil {
				handleError(c, http.StatusInternalServerError, "Failed to update profile", err)
				return
			}
			if taken > 0 {
				c.JSON(http.StatusConflict, gin.H{"error": "this email is already in use", "field": "email"})
				return
			}
			user.Email = &email
			updates["email"] = email
		}
	}

	if len(updates) > 0 {
		if err := db.Model(user).Updates(updates).Error; err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to update profile", err)
			return
		}
	}

	c.JSON(http.StatusOK, user)
}
