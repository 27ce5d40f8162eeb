package handlers

import (
	"net/http"
	"pharmacist/internal/auth"
	"pharmacist/internal/models"
	"pharmacist/internal/services"

	"github.com/gin-gonic/gin"
)

// reminderPath resolves the :id and :rid path parameters
func reminderPath(c *gin.Context) (medicationID, reminderID uint, ok bool) {
	if medicationID, ok = idParam(c, "id"); !ok {
		return
	}
	reminderID, ok = idParam(c, "rid")
	return
}

func ListReminders(c *gin.Context) {
	medicationID, ok := idParam(c, "id")
	if !ok {
		return
	}

	reminders, err := deps.Reminders.ListReminders(auth.CurrentUserID(c), medicationID)
	if err != nil {
		handleServiceError(c, err, "Failed to list reminders")
		return
	}
	c.JSON(http.StatusOK, reminders)
}

func CreateReminder(c *gin.Context) {
	medicationID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req models.ReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
		return
	}

	reminder, err := deps.Reminders.CreateReminder(auth.CurrentUserID(c), medicationID, req)
	if err != nil {
		handleServiceError(c, err, "Failed to create reminder")
		return
	}
	c.JSON(http.StatusCreated, reminder)
}

func GetReminder(c *gin.Context) {
	medicationID, reminderID, ok := reminderPath(c)
	if !ok {
		return
	}

	reminder, err := deps.Reminders.GetReminder(auth.CurrentUserID(c), medicationID, reminderID)
	if err != nil {
		handleServiceError(c, err, "Failed to load reminder")
		return
	}
	c.JSON(http.StatusOK, reminder)
}

// ReplaceReminder handles PUT; omitted fields fall back to their defaults
func ReplaceReminder(c *gin.Context) {
	updateReminder(c, false)
}

// PatchReminder handles PATCH; omitted fields are left unchanged
func PatchReminder(c *gin.Context) {
	updateReminder(c, true)
}

func updateReminder(c *gin.Context, partial bool) {
	medicationID, reminderID, ok := reminderPath(c)
	if !ok {
		return
	}

	var req models.ReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
		return
	}

	reminder, err := deps.Reminders.UpdateReminder(auth.CurrentUserID(c), medicationID, reminderID, req, partial)
	if err != nil {
		handleServiceError(c, err, "Failed to update reminder")
		return
	}
	c.JSON(http.StatusOK, reminder)
}

func DeleteReminder(c *gin.Context) {
	medicationID, reminderID, ok := reminderPath(c)
	if !ok {
		return
	}

	if err := deps.Reminders.DeleteReminder(auth.CurrentUserID(c), medicationID, reminderID); err != nil {
		handleServiceError(c, err, "Failed to delete reminder")
		return
	}
	c.Status(http.StatusNoContent)
}

// GenerateLogs creates pending logs for the next {days} days (default from config)
func GenerateLogs(c *gin.Context) {
	medicationID, reminderID, ok := reminderPath(c)
	if !ok {
		return
	}

	var req models.GenerateLogsRequest
	// an empty body means the default window
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
			return
		}
	}

	days := deps.Config.Reminder.DefaultDays
	if req.Days != nil {
		days = *req.Days
		if days < 1 {
			handleServiceError(c, &services.ValidationError{Field: "days", Message: "days must be at least 1"}, "Invalid input")
			return
		}
	}

	created, err := deps.Reminders.GenerateLogs(auth.CurrentUserID(c), medicationID, reminderID, days)
	if err != nil {
		handleServiceError(c, err, "Failed to generate logs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created, "days": days})
}
