package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"farm-alert-service/internal/logging"
)

func NewRouter(h *Handler, logger *logging.Logger, basePath string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	api := r.Group(basePath)
	{
		// Device and operator endpoints
		api.POST("/readings", h.IngestReading)
		api.POST("/weather/sweep", h.RunWeatherSweep)

		farmer := api.Group("", FarmerIdentity())

		// Alert history
		farmer.GET("/alerts", h.GetAlerts)

		// Preferences and thresholds
		farmer.GET("/preferences", h.GetPreferences)
		farmer.PUT("/preferences", h.UpdatePreferences)
		farmer.GET("/thresholds/:sensor_type", h.GetThresholds)
		farmer.PUT("/thresholds/:sensor_type", h.UpdateThresholds)

		// Notifications
		farmer.GET("/notifications", h.ListNotifications)
		farmer.GET("/notifications/unread-count", h.UnreadCount)
		farmer.GET("/notifications/ws", h.NotificationSocket)
		farmer.PATCH("/notifications/read-all", h.MarkAllRead)
		farmer.PATCH("/notifications/:id/read", h.MarkRead)
		farmer.DELETE("/notifications/:id", h.DeleteNotification)
		farmer.DELETE("/notifications", h.ClearNotifications)
	}

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}
