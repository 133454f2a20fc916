package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hershield/internal/services"
	"hershield/internal/utils"
)

type LocationHandler struct {
	locationService services.LocationService
}

func NewLocationHandler(locationService services.LocationService) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
	}
}

// GetCurrentLocation returns a fresh single-shot position fix
func (h *LocationHandler) GetCurrentLocation(c *gin.Context) {
	pos, err := h.locationService.Current(c.Request.Context())
	if err != nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "LOCATION_UNAVAILABLE", "Failed to acquire location: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Current location", pos)
}

// GetLastKnownLocation returns the most recent cached position
func (h *LocationHandler) GetLastKnownLocation(c *gin.Context) {
	pos := h.locationService.Latest()
	if pos == nil {
		utils.NotFoundResponse(c, "Last known location")
		return
	}

	utils.SuccessResponse(c, "Last known location", pos)
}
