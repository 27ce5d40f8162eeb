package handlers

import (
	"net/http"
	"pharmacist/internal/auth"
	"pharmacist/internal/models"

	"github.com/gin-gonic/gin"
)

// ListReminderLogs supports ?status= and ?sort=scheduled_time|-scheduled_time
func ListReminderLogs(c *gin.Context) {
	medicationID, reminderID, ok := reminderPath(c)
	if !ok {
		return
	}

	logs, err := deps.Reminders.ListLogs(auth.CurrentUserID(c), medicationID, reminderID, c.Query("status"), c.Query("sort"))
	if err != nil {
		handleServiceError(c, err, "Failed to list logs")
		return
	}
	c.JSON(http.StatusOK, logs)
}

func GetReminderLog(c *gin.Context) {
	medicationID, reminderID, ok := reminderPath(c)
	if !ok {
		return
	}
	logID, ok := idParam(c, "lid")
	if !ok {
		return
	}

	log, err := deps.Reminders.GetLog(auth.CurrentUserID(c), medicationID, reminderID, logID)
	if err != nil {
		handleServiceError(c, err, "Failed to load log")
		return
	}
	c.JSON(http.StatusOK, log)
}

// UpdateReminderLog changes status and/or notes; the server sets taken_time
func UpdateReminderLog(c *gin.Context) {
	medicationID, reminderID, ok := reminderPath(c)
	if !ok {
		return
	}
	logID, ok := idParam(c, "lid")
	if !ok {
		return
	}

	var req models.UpdateLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
		return
	}

	log, err := deps.Reminders.UpdateLog(auth.CurrentUserID(c), medicationID, reminderID, logID, req)
	if err != nil {
		handleServiceError(c, err, "Failed to update log")
		return
	}
	c.JSON(http.StatusOK, log)
}

// MarkDoseTaken is the "taken" action of a dose notification
func MarkDoseTaken(c *gin.Context) {
	medicationID, ok := idParam(c, "id")
	if !ok {
		return
	}

	log, err := deps.Reminders.MarkDoseTaken(auth.CurrentUserID(c), medicationID)
	if err != nil {
		handleServiceError(c, err, "Failed to update dose")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "log": log})
}

// RemindLater is the "remind later" action of a dose notification
func RemindLater(c *gin.Context) {
	medicationID, ok := idParam(c, "id")
	if !ok {
		return
	}

	log, err := deps.Reminders.SnoozeDose(auth.CurrentUserID(c), medicationID)
	if err != nil {
		handleServiceError(c, err, "Failed to snooze dose")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "log": log, "snoozed_until": log.SnoozedUntil})
}

// TodayDoses lists every dose of the user scheduled today
func TodayDoses(c *gin.Context) {
	doses, err := deps.Reminders.Today(auth.CurrentUserID(c))
	if err != nil {
		handleServiceError(c, err, "Failed to list doses")
		return
	}
	c.JSON(http.StatusOK, doses)
}

// UpcomingDoses lists pending doses in the next ?hours= (default 24)
func UpcomingDoses(c *gin.Context) {
	hours, ok := intQuery(c, "hours", 24)
	if !ok {
		return
	}

	doses, err := deps.Reminders.Upcoming(auth.CurrentUserID(c), hours)
	if err != nil {
		handleServiceError(c, err, "Failed to list doses")
		return
	}
	c.JSON(http.StatusOK, doses)
}
