package handlers

import (
	"net/http"
	"pharmacist/internal/models"

	"github.com/gin-gonic/gin"
)

// NearbyPharmacies lists pharmacies around ?lat=&lng= within ?radius= meters
func NearbyPharmacies(c *gin.Context) {
	if deps.Pharmacies == nil {
		handleError(c, http.StatusServiceUnavailable, "Pharmacy search is not configured", nil)
		return
	}

	var query models.NearbyPharmaciesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		handleError(c, http.StatusBadRequest, "lat and lng are required; radius must be between 100 and 10000", err)
		return
	}

	pharmacies, err := deps.Pharmacies.NearbyPharmacies(c.Request.Context(), query.Latitude, query.Longitude, query.Radius)
	if err != nil {
		handleError(c, http.StatusBadGateway, "Failed to search pharmacies", err)
		return
	}
	c.JSON(http.StatusOK, pharmacies)
}

// PharmacyDetails returns address, phone and opening state of a place
func PharmacyDetails(c *gin.Context) {
	if deps.Pharmacies == nil {
		handleError(c, http.StatusServiceUnavailable, "Pharmacy search is not configured", nil)
		return
	}

	placeID := c.Param("place_id")
	if placeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "place_id parameter is required"})
		return
	}

	pharmacy, err := deps.Pharmacies.PharmacyDetails(c.Request.Context(), placeID)
	if err != nil {
		handleError(c, http.StatusBadGateway, "Failed to load pharmacy", err)
		return
	}
	c.JSON(http.StatusOK, pharmacy)
}
