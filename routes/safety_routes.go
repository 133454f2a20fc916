package routes

import (
	"github.com/gin-gonic/gin"

	shared "hershield/internal/handlers/shared"
	"hershield/pkg/websocket"
)

// SetupSafetyRoutes sets up routes for the escalation engine
func SetupSafetyRoutes(
	r *gin.RouterGroup,
	emergencyHandler *shared.EmergencyHandler,
	rideHandler *shared.RideHandler,
	contactHandler *shared.ContactHandler,
	locationHandler *shared.LocationHandler,
) {
	sos := r.Group("/sos")
	{
		sos.POST("/", emergencyHandler.TriggerSOS)
		sos.DELETE("/", emergencyHandler.StopSOS)
		sos.GET("/status", emergencyHandler.GetSOSStatus)
	}

	voice := r.Group("/voice")
	{
		voice.POST("/start", emergencyHandler.StartVoiceWatch)
		voice.POST("/stop", emergencyHandler.StopVoiceWatch)
		voice.GET("/status", emergencyHandler.GetVoiceStatus)
	}

	safety := r.Group("/safety-checks")
	{
		safety.POST("/confirm", emergencyHandler.ConfirmSafety)
		safety.POST("/cancel", emergencyHandler.CancelSafety)
	}

	rides := r.Group("/rides")
	{
		rides.POST("/", rideHandler.StartRide)
		rides.PUT("/stop", rideHandler.StopRide)
		rides.GET("/active", rideHandler.GetActiveRide)
		rides.GET("/history", rideHandler.GetRideHistory)
	}

	contacts := r.Group("/contacts")
	{
		contacts.POST("/", contactHandler.CreateContact)
		contacts.GET("/", contactHandler.ListContacts)
		contacts.GET("/:id", contactHandler.GetContact)
		contacts.DELETE("/:id", contactHandler.DeleteContact)
	}

	location := r.Group("/location")
	{
		location.GET("/current", locationHandler.GetCurrentLocation)
		location.GET("/last", locationHandler.GetLastKnownLocation)
	}

	alerts := r.Group("/alerts")
	{
		alerts.GET("/", emergencyHandler.GetAlertHistory)
	}
}

// SetupWebSocketRoutes exposes the live location/status stream
func SetupWebSocketRoutes(r *gin.Engine, wsHandler *websocket.Handler) {
	r.GET("/ws/live", wsHandler.HandleWebSocket)
}
