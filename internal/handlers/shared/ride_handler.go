package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hershield/internal/services"
	"hershield/internal/utils"
)

type RideHandler struct {
	emergencyService services.EmergencyService
}

func NewRideHandler(emergencyService services.EmergencyService) *RideHandler {
	return &RideHandler{
		emergencyService: emergencyService,
	}
}

// StartRide begins ride monitoring
func (h *RideHandler) StartRide(c *gin.Context) {
	var request services.StartRideRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	ride, err := h.emergencyService.StartRide(c.Request.Context(), &request)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidVehicle):
			utils.BadRequestResponse(c, "Invalid vehicle number")
		case errors.Is(err, services.ErrInvalidPhone):
			utils.BadRequestResponse(c, "Invalid contact phone number")
		case errors.Is(err, services.ErrRideActive):
			utils.ConflictResponse(c, "A ride is already being monitored")
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "RIDE_START_FAILED", "Failed to start ride monitoring: "+err.Error())
		}
		return
	}

	utils.CreatedResponse(c, "Ride monitoring started", ride)
}

// StopRide ends ride monitoring
func (h *RideHandler) StopRide(c *gin.Context) {
	ride, err := h.emergencyService.StopRide(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoActiveRide) {
			utils.NotFoundResponse(c, "Active ride")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "RIDE_STOP_FAILED", "Failed to stop ride monitoring: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Ride monitoring stopped", ride)
}

// GetActiveRide returns the ride currently being monitored
func (h *RideHandler) GetActiveRide(c *gin.Context) {
	ride, err := h.emergencyService.ActiveRide(c.Request.Context())
	if err != nil || ride == nil {
		utils.NotFoundResponse(c, "Active ride")
		return
	}

	utils.SuccessResponse(c, "Active ride", ride)
}

// GetRideHistory lists past ride sessions
func (h *RideHandler) GetRideHistory(c *gin.Context) {
	rides, err := h.emergencyService.RideHistory(c.Request.Context(), 50)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "RIDE_HISTORY_FAILED", "Failed to load ride history: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Ride history", rides)
}
