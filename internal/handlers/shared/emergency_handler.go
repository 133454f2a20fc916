package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hershield/internal/services"
	"hershield/internal/utils"
)

type EmergencyHandler struct {
	emergencyService services.EmergencyService
	alertService     services.AlertService
}

func NewEmergencyHandler(emergencyService services.EmergencyService, alertService services.AlertService) *EmergencyHandler {
	return &EmergencyHandler{
		emergencyService: emergencyService,
		alertService:     alertService,
	}
}

// TriggerSOS dials the hotline, notifies contacts and starts live sharing
func (h *EmergencyHandler) TriggerSOS(c *gin.Context) {
	if err := h.emergencyService.TriggerSOS(c.Request.Context()); err != nil {
		if errors.Is(err, services.ErrSOSActive) {
			utils.ConflictResponse(c, "An SOS broadcast is already active")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "SOS_TRIGGER_FAILED", "Failed to trigger SOS: "+err.Error())
		return
	}

	utils.CreatedResponse(c, "SOS triggered", gin.H{"active": true})
}

// StopSOS ends the active SOS broadcast
func (h *EmergencyHandler) StopSOS(c *gin.Context) {
	if err := h.emergencyService.StopSOS(c.Request.Context()); err != nil {
		if errors.Is(err, services.ErrSOSNotActive) {
			utils.NotFoundResponse(c, "SOS broadcast")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "SOS_STOP_FAILED", "Failed to stop SOS: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "SOS stopped", nil)
}

// GetSOSStatus reports whether an SOS broadcast is active
func (h *EmergencyHandler) GetSOSStatus(c *gin.Context) {
	utils.SuccessResponse(c, "SOS status", gin.H{
		"active":  h.emergencyService.SOSActive(),
		"pending": h.emergencyService.PendingCheck(),
	})
}

// StartVoiceWatch enables voice keyword detection
func (h *EmergencyHandler) StartVoiceWatch(c *gin.Context) {
	if err := h.emergencyService.StartVoiceWatch(c.Request.Context()); err != nil {
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "VOICE_WATCH_UNAVAILABLE", "Voice detection inactive: "+err.Error())
		return
	}
	utils.SuccessResponse(c, "Voice detection started", h.emergencyService.VoiceStatus())
}

// StopVoiceWatch disables voice keyword detection
func (h *EmergencyHandler) StopVoiceWatch(c *gin.Context) {
	h.emergencyService.StopVoiceWatch()
	utils.SuccessResponse(c, "Voice detection stopped", nil)
}

// GetVoiceStatus reports the keyword spotter state
func (h *EmergencyHandler) GetVoiceStatus(c *gin.Context) {
	utils.SuccessResponse(c, "Voice detection status", h.emergencyService.VoiceStatus())
}

// ConfirmSafety answers the pending safety check positively
func (h *EmergencyHandler) ConfirmSafety(c *gin.Context) {
	check, err := h.emergencyService.ConfirmSafety(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoCheckPending) {
			utils.NotFoundResponse(c, "Pending safety check")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "SAFETY_CONFIRM_FAILED", "Failed to confirm safety: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Safety confirmed", check)
}

// CancelSafety dismisses the pending safety check
func (h *EmergencyHandler) CancelSafety(c *gin.Context) {
	check, err := h.emergencyService.CancelSafety(c.Request.Context())
	if err != nil {
		if errors.Is(err, services.ErrNoCheckPending) {
			utils.NotFoundResponse(c, "Pending safety check")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "SAFETY_CANCEL_FAILED", "Failed to cancel safety check: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Safety check cancelled", check)
}

// GetAlertHistory lists past escalations
func (h *EmergencyHandler) GetAlertHistory(c *gin.Context) {
	records, err := h.alertService.History(c.Request.Context(), 50)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "ALERT_HISTORY_FAILED", "Failed to load alert history: "+err.Error())
		return
	}

	utils.SuccessResponse(c, "Alert history", records)
}
