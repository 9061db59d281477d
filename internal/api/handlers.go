package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"farm-alert-service/internal/inbox"
	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
	"farm-alert-service/internal/sensor"
	"farm-alert-service/internal/weather"
)

type ReadingIngester interface {
	Ingest(ctx context.Context, req sensor.IngestRequest) (sensor.IngestResult, error)
}

type WeatherSweeper interface {
	Sweep(ctx context.Context) (models.SweepSummary, error)
}

type AlertHistory interface {
	GetAlertRecordsByFarmer(ctx context.Context, farmerID int64, limit, offset int) ([]models.AlertRecord, int, error)
}

type PreferenceStore interface {
	GetAlertPreference(ctx context.Context, farmerID int64) (models.AlertPreference, error)
	UpsertAlertPreference(ctx context.Context, p models.AlertPreference) (models.AlertPreference, error)
}

type ThresholdService interface {
	Profile(ctx context.Context, farmerID int64, sensorType models.SensorType) (models.ThresholdProfile, error)
	SetOverride(ctx context.Context, o models.ThresholdOverride) (models.ThresholdProfile, error)
}

type NotificationInbox interface {
	List(ctx context.Context, farmerID int64, opts models.ListOptions) ([]models.Notification, error)
	UnreadCount(ctx context.Context, farmerID int64) (int, error)
	MarkRead(ctx context.Context, farmerID int64, id string) error
	MarkAllRead(ctx context.Context, farmerID int64) error
	Remove(ctx context.Context, farmerID int64, id string) error
	Clear(ctx context.Context, farmerID int64) error
}

type ConnectionHub interface {
	Add(farmerID int64, conn inbox.Conn) error
	Remove(farmerID int64, conn inbox.Conn)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Services are the operations the HTTP layer exposes.
type Services struct {
	Readings    ReadingIngester
	Sweeper     WeatherSweeper
	History     AlertHistory
	Preferences PreferenceStore
	Thresholds  ThresholdService
	Inbox       NotificationInbox
	Hub         ConnectionHub
	DB          Pinger
}

type Handler struct {
	svc      Services
	logger   *logging.Logger
	upgrader websocket.Upgrader
}

func NewHandler(svc Services, logger *logging.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) fail(c *gin.Context, what string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, weather.ErrSweepRunning):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.logger.Errorf("%s: %v", what, err)
		c.JSON(status, gin.H{"error": what})
		return
	}
	h.logger.Warnf("%s: %v", what, err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) IngestReading(c *gin.Context) {
	var req sensor.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for reading: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	res, err := h.svc.Readings.Ingest(c.Request.Context(), req)
	if err != nil {
		h.fail(c, "Failed to ingest reading", err)
		return
	}

	h.logger.Infof("Stored reading %d for farm %d: %s", res.ReadingID, req.FarmID, res.Status)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) RunWeatherSweep(c *gin.Context) {
	summary, err := h.svc.Sweeper.Sweep(c.Request.Context())
	if err != nil {
		h.fail(c, "Weather sweep failed", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *Handler) GetAlerts(c *gin.Context) {
	limit, err := queryInt(c, "limit", 20)
	if err != nil || limit <= 0 || limit > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 100"})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be non-negative"})
		return
	}

	id := farmerID(c)
	records, total, err := h.svc.History.GetAlertRecordsByFarmer(c.Request.Context(), id, limit, offset)
	if err != nil {
		h.fail(c, "Failed to get alerts", err)
		return
	}
	if records == nil {
		records = []models.AlertRecord{}
	}

	h.logger.Infof("Retrieved %d alerts for farmer %d", len(records), id)
	c.JSON(http.StatusOK, gin.H{"alerts": records, "total": total, "limit": limit, "offset": offset})
}

func (h *Handler) GetPreferences(c *gin.Context) {
	id := farmerID(c)
	pref, err := h.svc.Preferences.GetAlertPreference(c.Request.Context(), id)
	if errors.Is(err, models.ErrNotFound) {
		pref, err = models.DefaultAlertPreference(id), nil
	}
	if err != nil {
		h.fail(c, "Failed to get preferences", err)
		return
	}
	c.JSON(http.StatusOK, pref)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	var pref models.AlertPreference
	if err := c.ShouldBindJSON(&pref); err != nil {
		h.logger.Errorf("Invalid request body for preferences: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	pref.FarmerID = farmerID(c)
	if err := pref.Validate(); err != nil {
		h.fail(c, "Invalid preferences", err)
		return
	}

	saved, err := h.svc.Preferences.UpsertAlertPreference(c.Request.Context(), pref)
	if err != nil {
		h.fail(c, "Failed to save preferences", err)
		return
	}
	h.logger.Infof("Updated alert preferences for farmer %d", saved.FarmerID)
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) GetThresholds(c *gin.Context) {
	st := models.SensorType(c.Param("sensor_type"))
	profile, err := h.svc.Thresholds.Profile(c.Request.Context(), farmerID(c), st)
	if err != nil {
		h.fail(c, "Failed to get thresholds", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type thresholdRequest struct {
	CriticalMin *float64 `json:"critical_min"`
	CriticalMax *float64 `json:"critical_max"`
	AdvisoryMin *float64 `json:"advisory_min"`
	AdvisoryMax *float64 `json:"advisory_max"`
}

func (h *Handler) UpdateThresholds(c *gin.Context) {
	var req thresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request body for thresholds: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	profile, err := h.svc.Thresholds.SetOverride(c.Request.Context(), models.ThresholdOverride{
		FarmerID:    farmerID(c),
		SensorType:  models.SensorType(c.Param("sensor_type")),
		CriticalMin: req.CriticalMin,
		CriticalMax: req.CriticalMax,
		AdvisoryMin: req.AdvisoryMin,
		AdvisoryMax: req.AdvisoryMax,
	})
	if err != nil {
		h.fail(c, "Failed to save thresholds", err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *Handler) ListNotifications(c *gin.Context) {
	limit, err := queryInt(c, "limit", 0)
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be non-negative"})
		return
	}
	opts := models.ListOptions{
		UnreadOnly: c.Query("unread_only") == "true",
		Limit:      limit,
	}

	items, err := h.svc.Inbox.List(c.Request.Context(), farmerID(c), opts)
	if err != nil {
		h.fail(c, "Failed to list notifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	count, err := h.svc.Inbox.UnreadCount(c.Request.Context(), farmerID(c))
	if err != nil {
		h.fail(c, "Failed to count notifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *Handler) MarkRead(c *gin.Context) {
	if err := h.svc.Inbox.MarkRead(c.Request.Context(), farmerID(c), c.Param("id")); err != nil {
		h.fail(c, "Failed to mark notification read", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c *gin.Context) {
	if err := h.svc.Inbox.MarkAllRead(c.Request.Context(), farmerID(c)); err != nil {
		h.fail(c, "Failed to mark notifications read", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) DeleteNotification(c *gin.Context) {
	if err := h.svc.Inbox.Remove(c.Request.Context(), farmerID(c), c.Param("id")); err != nil {
		h.fail(c, "Failed to delete notification", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ClearNotifications(c *gin.Context) {
	if err := h.svc.Inbox.Clear(c.Request.Context(), farmerID(c)); err != nil {
		h.fail(c, "Failed to clear notifications", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// NotificationSocket upgrades to a websocket that receives every new inbox entry.
func (h *Handler) NotificationSocket(c *gin.Context) {
	id := farmerID(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed for farmer %d: %v", id, err)
		return
	}

	if err := h.svc.Hub.Add(id, conn); err != nil {
		msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error())
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		_ = conn.Close()
		return
	}
	defer func() {
		h.svc.Hub.Remove(id, conn)
		_ = conn.Close()
	}()

	// Drain client frames until the connection closes.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.svc.DB.Ping(c.Request.Context()); err != nil {
		h.logger.Errorf("Health check failed: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
