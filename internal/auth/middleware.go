package auth

import (
	"errors"
	"net/http"
	"pharmacist/internal/database"
	"pharmacist/internal/models"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	ContextUserID = "user_id"
	ContextUser   = "user"
)

// AuthMiddleware validates the bearer access token and loads the user
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := ValidateToken(strings.TrimSpace(tokenString), AccessToken)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, ErrExpiredToken) {
				msg = "token expired, please log in again"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		var user models.User
		if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
			return
		}

		if err := CheckVersion(claims, &user); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has been revoked, please log in again"})
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUser, &user)
		c.Next()
	}
}

// CurrentUserID returns the authenticated user's id, 0 when unauthenticated
func CurrentUserID(c *gin.Context) uint {
	return c.GetUint(ContextUserID)
}

// CurrentUser returns the user loaded by AuthMiddleware
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextUser); ok {
		if user, ok := v.(*models.User); ok {
			return user
		}
	}
	return nil
}
