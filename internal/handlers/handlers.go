package handlers

import (
	"errors"
	"log"
	"net/http"
	"pharmacist/internal/config"
	"pharmacist/internal/models"
	"pharmacist/internal/reports"
	"pharmacist/internal/services"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Dependencies are the services the handlers call. Optional integrations
// (pharmacies, reports) may be nil when not configured.
type Dependencies struct {
	Config        *config.Config
	Medications   *services.MedicationService
	Reminders     *services.ReminderService
	Chat          *services.ChatService
	Notifications *services.NotificationService
	Pharmacies    services.PharmacyFinder
	Reports       *reports.Reporter
}

var deps Dependencies

// Init installs the services used by every handler
func Init(d Dependencies) {
	deps = d
}

// handleError provides a consistent way to handle and log errors
func handleError(c *gin.Context, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		log.Printf("Error: %s: %v", message, err)
	}
	c.JSON(status, gin.H{"error": message})
}

// handleServiceError maps service errors to HTTP responses; fallback is the message for unexpected failures
func handleServiceError(c *gin.Context, err error, fallback string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, services.ErrNotFound), errors.Is(err, reports.ErrMedicationNotFound):
		handleError(c, http.StatusNotFound, "Not found", err)
	case errors.Is(err, services.ErrNothingDue):
		handleError(c, http.StatusNotFound, "No dose is due for this medication", err)
	case errors.Is(err, models.ErrInvalidTransition):
		handleError(c, http.StatusConflict, "A taken dose cannot be skipped and a skipped dose cannot be taken; reset it to pending first", err)
	case errors.Is(err, services.ErrAlreadyExists):
		handleError(c, http.StatusConflict, "Already exists", err)
	case errors.Is(err, services.ErrAssistantUnavailable):
		handleError(c, http.StatusBadGateway, "The assistant is not available right now, please try again", err)
	case errors.Is(err, services.ErrDisabled):
		handleError(c, http.StatusServiceUnavailable, "This feature is not configured", err)
	case errors.Is(err, reports.ErrDays):
		handleError(c, http.StatusBadRequest, err.Error(), err)
	default:
		handleError(c, http.StatusInternalServerError, fallback, err)
	}
}

// idParam parses a positive numeric path parameter, answering 404 when it is not one
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		handleError(c, http.StatusNotFound, "Not found", err)
		return 0, false
	}
	return uint(id), true
}

// intQuery parses an optional integer query parameter, answering 400 when it is malformed
func intQuery(c *gin.Context, name string, fallback int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer", "field": name})
		return 0, false
	}
	return n, true
}

// HealthHandler is a simple health check endpoint
func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
