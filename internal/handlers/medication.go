package handlers

import (
	"net/http"
	"pharmacist/internal/auth"
	"pharmacist/internal/models"

	"github.com/gin-gonic/gin"
)

// ListMedications returns the user's medications, filtered by ?search=
func ListMedications(c *gin.Context) {
	medications, err := deps.Medications.List(auth.CurrentUserID(c), c.Query("search"))
	if err != nil {
		handleServiceError(c, err, "Failed to list medications")
		return
	}
	c.JSON(http.StatusOK, medications)
}

func CreateMedication(c *gin.Context) {
	var req models.MedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
		return
	}

	medication, err := deps.Medications.Create(auth.CurrentUserID(c), req)
	if err != nil {
		handleServiceError(c, err, "Failed to create medication")
		return
	}
	c.JSON(http.StatusCreated, medication)
}

// GetMedication returns one medication with its reminders
func GetMedication(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	medication, err := deps.Medications.Get(auth.CurrentUserID(c), id)
	if err != nil {
		handleServiceError(c, err, "Failed to load medication")
		return
	}
	c.JSON(http.StatusOK, medication)
}

// ReplaceMedication handles PUT
func ReplaceMedication(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req models.MedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
		return
	}

	medication, err := deps.Medications.Replace(auth.CurrentUserID(c), id, req)
	if err != nil {
		handleServiceError(c, err, "Failed to update medication")
		return
	}
	c.JSON(http.StatusOK, medication)
}

// PatchMedication handles PATCH
func PatchMedication(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req models.MedicationPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input: "+err.Error(), err)
		return
	}

	medication, err := deps.Medications.Patch(auth.CurrentUserID(c), id, req)
	if err != nil {
		handleServiceError(c, err, "Failed to update medication")
		return
	}
	c.JSON(http.StatusOK, medication)
}

// DeleteMedication removes the medication together with its reminders and logs
func DeleteMedication(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := deps.Medications.Delete(auth.CurrentUserID(c), id); err != nil {
		handleServiceError(c, err, "Failed to delete medication")
		return
	}
	c.Status(http.StatusNoContent)
}

// MedicationAdherence reports taken and skipped doses over ?days= (default 30)
func MedicationAdherence(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	days, ok := intQuery(c, "days", 0)
	if !ok {
		return
	}

	if deps.Reports == nil {
		handleError(c, http.StatusServiceUnavailable, "Reports are not available", nil)
		return
	}

	report, err := deps.Reports.Adherence(c.Request.Context(), auth.CurrentUserID(c), id, days)
	if err != nil {
		handleServiceError(c, err, "Failed to compute adherence")
		return
	}
	c.JSON(http.StatusOK, report)
}
