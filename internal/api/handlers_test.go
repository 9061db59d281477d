package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm-alert-service/internal/inbox"
	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
	"farm-alert-service/internal/sensor"
	"farm-alert-service/internal/weather"
)

type fakeIngester struct {
	got    sensor.IngestRequest
	result sensor.IngestResult
	err    error
}

func (f *fakeIngester) Ingest(_ context.Context, req sensor.IngestRequest) (sensor.IngestResult, error) {
	f.got = req
	return f.result, f.err
}

type fakeSweeper struct {
	summary models.SweepSummary
	err     error
}

func (f *fakeSweeper) Sweep(context.Context) (models.SweepSummary, error) {
	return f.summary, f.err
}

type fakeHistory struct {
	records       []models.AlertRecord
	total         int
	limit, offset int
}

func (f *fakeHistory) GetAlertRecordsByFarmer(_ context.Context, _ int64, limit, offset int) ([]models.AlertRecord, int, error) {
	f.limit, f.offset = limit, offset
	return f.records, f.total, nil
}

type fakePreferences struct {
	stored map[int64]models.AlertPreference
}

func (f *fakePreferences) GetAlertPreference(_ context.Context, farmerID int64) (models.AlertPreference, error) {
	p, ok := f.stored[farmerID]
	if !ok {
		return models.AlertPreference{}, fmt.Errorf("preference for farmer %d: %w", farmerID, models.ErrNotFound)
	}
	return p, nil
}

func (f *fakePreferences) UpsertAlertPreference(_ context.Context, p models.AlertPreference) (models.AlertPreference, error) {
	f.stored[p.FarmerID] = p
	return p, nil
}

type fakeThresholds struct {
	override models.ThresholdOverride
}

func (f *fakeThresholds) Profile(_ context.Context, farmerID int64, st models.SensorType) (models.ThresholdProfile, error) {
	if !st.Valid() {
		return models.ThresholdProfile{}, fmt.Errorf("%w: unknown sensor_type %q", models.ErrValidation, st)
	}
	return models.ThresholdProfile{FarmerID: farmerID, SensorType: st}, nil
}

func (f *fakeThresholds) SetOverride(_ context.Context, o models.ThresholdOverride) (models.ThresholdProfile, error) {
	f.override = o
	return models.ThresholdProfile{
		FarmerID:   o.FarmerID,
		SensorType: o.SensorType,
		Critical:   models.Bounds{Min: o.CriticalMin, Max: o.CriticalMax},
		Override:   true,
	}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fixture struct {
	ingester    *fakeIngester
	sweeper     *fakeSweeper
	history     *fakeHistory
	preferences *fakePreferences
	thresholds  *fakeThresholds
	inbox       *inbox.Inbox
	hub         *inbox.Hub
	router      *gin.Engine
}

func newFixture(t *testing.T, pingErr error) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewNop()
	hub := inbox.NewHub(logger)
	f := &fixture{
		ingester:    &fakeIngester{},
		sweeper:     &fakeSweeper{},
		history:     &fakeHistory{},
		preferences: &fakePreferences{stored: map[int64]models.AlertPreference{}},
		thresholds:  &fakeThresholds{},
		hub:         hub,
		inbox:       inbox.New(inbox.NewMemoryStore(inbox.DefaultCapacity), hub, nil, logger),
	}
	h := NewHandler(Services{
		Readings:    f.ingester,
		Sweeper:     f.sweeper,
		History:     f.history,
		Preferences: f.preferences,
		Thresholds:  f.thresholds,
		Inbox:       f.inbox,
		Hub:         hub,
		DB:          fakePinger{err: pingErr},
	}, logger)
	f.router = NewRouter(h, logger, "/api/v0")
	return f
}

func (f *fixture) do(method, path, body string, farmerID int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if farmerID > 0 {
		req.Header.Set(farmerHeader, fmt.Sprint(farmerID))
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestIngestReading_Created(t *testing.T) {
	f := newFixture(t, nil)
	f.ingester.result = sensor.IngestResult{ReadingID: 11, Status: models.StatusCritical, AlertRaised: true}

	w := f.do(http.MethodPost, "/api/v0/readings", `{"farm_id":3,"sensor_type":"temperature","value":2.5}`, 0)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(3), f.ingester.got.FarmID)
	assert.Equal(t, models.SensorType("temperature"), f.ingester.got.SensorType)
	require.NotNil(t, f.ingester.got.Value)
	assert.Equal(t, 2.5, *f.ingester.got.Value)

	var res sensor.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, int64(11), res.ReadingID)
	assert.True(t, res.AlertRaised)
}

func TestIngestReading_MissingValue(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodPost, "/api/v0/readings", `{"farm_id":3,"sensor_type":"temperature"}`, 0)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIngestReading_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: unknown sensor_type", models.ErrValidation), http.StatusBadRequest},
		{"unknown farm", fmt.Errorf("farm 3: %w", models.ErrNotFound), http.StatusNotFound},
		{"store failure", fmt.Errorf("insert reading: %w", models.ErrPersistence), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.ingester.err = tt.err
			w := f.do(http.MethodPost, "/api/v0/readings", `{"farm_id":3,"sensor_type":"wind","value":1}`, 0)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRunWeatherSweep(t *testing.T) {
	f := newFixture(t, nil)
	f.sweeper.summary = models.SweepSummary{FarmsTotal: 2, FarmsProcessed: 2, AlertsRaised: 1}

	w := f.do(http.MethodPost, "/api/v0/weather/sweep", "", 0)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.SweepSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 2, got.FarmsProcessed)
	assert.Equal(t, 1, got.AlertsRaised)

	f.sweeper.err = weather.ErrSweepRunning
	w = f.do(http.MethodPost, "/api/v0/weather/sweep", "", 0)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFarmerRoutesRequireIdentity(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodGet, "/api/v0/alerts", "", 0)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v0/notifications", nil)
	req.Header.Set(farmerHeader, "abc")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetAlerts_Pagination(t *testing.T) {
	f := newFixture(t, nil)
	f.history.records = []models.AlertRecord{{ID: 5, FarmID: 3}}
	f.history.total = 7

	w := f.do(http.MethodGet, "/api/v0/alerts?limit=1&offset=4", "", 9)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.history.limit)
	assert.Equal(t, 4, f.history.offset)

	var body struct {
		Alerts []models.AlertRecord `json:"alerts"`
		Total  int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 7, body.Total)
	require.Len(t, body.Alerts, 1)

	w = f.do(http.MethodGet, "/api/v0/alerts?limit=500", "", 9)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodGet, "/api/v0/alerts", "", 9)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 20, f.history.limit)
	assert.Equal(t, 0, f.history.offset)
}

func TestPreferences_DefaultsThenUpdate(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/api/v0/preferences", "", 4)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.AlertPreference
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.DefaultAlertPreference(4).TemperatureHigh, got.TemperatureHigh)
	assert.True(t, got.SMSEnabled)

	body := `{"farmer_id":99,"temperature_high":30,"temperature_low":2,"rainfall_high":20,"wind_high":30,` +
		`"humidity_high":85,"humidity_low":25,"sms_enabled":false,"email_enabled":true,"in_app_enabled":true}`
	w = f.do(http.MethodPut, "/api/v0/preferences", body, 4)
	require.Equal(t, http.StatusOK, w.Code)

	saved, ok := f.preferences.stored[4]
	require.True(t, ok)
	assert.Equal(t, int64(4), saved.FarmerID)
	assert.False(t, saved.SMSEnabled)
	assert.NotContains(t, f.preferences.stored, int64(99))
}

func TestPreferences_RejectsInvertedRange(t *testing.T) {
	f := newFixture(t, nil)
	body := `{"temperature_high":5,"temperature_low":10,"humidity_high":80,"humidity_low":20}`
	w := f.do(http.MethodPut, "/api/v0/preferences", body, 4)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.preferences.stored)
}

func TestThresholds(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/api/v0/thresholds/soil_ph", "", 2)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/api/v0/thresholds/radiation", "", 2)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/api/v0/thresholds/soil_moisture", `{"critical_min":15,"critical_max":85}`, 2)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), f.thresholds.override.FarmerID)
	assert.Equal(t, models.SensorType("soil_moisture"), f.thresholds.override.SensorType)
	require.NotNil(t, f.thresholds.override.CriticalMin)
	assert.Equal(t, 15.0, *f.thresholds.override.CriticalMin)
	assert.Nil(t, f.thresholds.override.AdvisoryMin)
}

func TestNotifications_Lifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first, err := f.inbox.Push(ctx, models.Notification{FarmerID: 6, Title: "first"})
	require.NoError(t, err)
	_, err = f.inbox.Push(ctx, models.Notification{FarmerID: 6, Title: "second"})
	require.NoError(t, err)
	_, err = f.inbox.Push(ctx, models.Notification{FarmerID: 8, Title: "other farmer"})
	require.NoError(t, err)

	w := f.do(http.MethodGet, "/api/v0/notifications", "", 6)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, "second", list.Notifications[0].Title)

	w = f.do(http.MethodPatch, "/api/v0/notifications/"+first.ID+"/read", "", 6)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodGet, "/api/v0/notifications/unread-count", "", 6)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread_count":1}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/v0/notifications?unread_only=true", "", 6)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "second", list.Notifications[0].Title)

	w = f.do(http.MethodPatch, "/api/v0/notifications/read-all", "", 6)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodDelete, "/api/v0/notifications/"+first.ID, "", 6)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodDelete, "/api/v0/notifications/"+first.ID, "", 6)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodDelete, "/api/v0/notifications", "", 6)
	require.Equal(t, http.StatusNoContent, w.Code)

	count, err := f.inbox.UnreadCount(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotificationSocket_ReceivesPush(t *testing.T) {
	f := newFixture(t, nil)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v0/notifications/ws"
	header := http.Header{}
	header.Set(farmerHeader, "12")
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.Count(12) == 1 }, time.Second, 10*time.Millisecond)

	_, err = f.inbox.Push(context.Background(), models.Notification{FarmerID: 12, Title: "Frost warning"})
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type         string              `json:"type"`
		Notification models.Notification `json:"notification"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, "Frost warning", msg.Notification.Title)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return f.hub.Count(12) == 0 }, time.Second, 10*time.Millisecond)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodGet, "/health", "", 0)
	assert.Equal(t, http.StatusOK, w.Code)

	f = newFixture(t, errors.New("connection refused"))
	w = f.do(http.MethodGet, "/health", "", 0)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
