package handlers

import (
	"net/http"
	"pharmacist/internal/auth"
	"pharmacist/internal/models"

	"github.com/gin-gonic/gin"
)

// VAPIDPublicKey returns the key browsers need for PushManager.subscribe
func VAPIDPublicKey(c *gin.Context) {
	key, err := deps.Notifications.PublicKey()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "web push is not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "vapid_public_key": key})
}

func SubscribePush(c *gin.Context) {
	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid subscription: "+err.Error(), err)
		return
	}

	sub, err := deps.Notifications.Subscribe(auth.CurrentUserID(c), req.SubscriptionInfo, c.Request.UserAgent())
	if err != nil {
		handleServiceError(c, err, "Failed to save subscription")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "subscription": sub})
}

func UnsubscribePush(c *gin.Context) {
	var req models.UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
		return
	}

	if err := deps.Notifications.Unsubscribe(auth.CurrentUserID(c), req.Endpoint); err != nil {
		handleServiceError(c, err, "Failed to remove subscription")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// TestNotification pushes a sample notification if the user has push enabled
func TestNotification(c *gin.Context) {
	sendTestNotification(c, false)
}

// ForceTestNotification pushes a sample notification regardless of settings
func ForceTestNotification(c *gin.Context) {
	sendTestNotification(c, true)
}

func sendTestNotification(c *gin.Context, force bool) {
	sent, err := deps.Notifications.SendTest(c.Request.Context(), auth.CurrentUserID(c), force)
	if err != nil {
		handleServiceError(c, err, "Failed to send notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": sent > 0, "sent": sent})
}

func GetNotificationSettings(c *gin.Context) {
	settings, err := deps.Notifications.Settings(auth.CurrentUserID(c))
	if err != nil {
		handleServiceError(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

func UpdateNotificationSettings(c *gin.Context) {
	var req models.NotificationSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
		return
	}

	settings, err := deps.Notifications.UpdateSettings(auth.CurrentUserID(c), req)
	if err != nil {
		handleServiceError(c, err, "Failed to save settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}
