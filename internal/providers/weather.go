package providers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"farm-alert-service/internal/config"
	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
)

type owmCurrent struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"` // m/s with units=metric
	} `json:"wind"`
	Rain map[string]float64 `json:"rain"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

type owmPlace struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Weather is an OpenWeatherMap client for current conditions and geocoding.
type Weather struct {
	http   *resty.Client
	apiKey string
	logger *logging.Logger
}

func NewWeather(cfg config.Config, logger *logging.Logger) *Weather {
	if cfg.Weather.APIKey == "" {
		logger.Warnf("Weather provider not configured: WEATHER_API_KEY is empty")
	}
	client := resty.New().
		SetBaseURL(cfg.Weather.BaseURL).
		SetTimeout(cfg.Weather.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")

	return &Weather{http: client, apiKey: cfg.Weather.APIKey, logger: logger}
}

// CurrentWeather returns conditions at a point in metric units, wind in km/h.
func (w *Weather) CurrentWeather(ctx context.Context, c models.Coordinates) (models.Weather, error) {
	if w.apiKey == "" {
		return models.Weather{}, models.ErrProviderMisconfigured
	}

	var out owmCurrent
	resp, err := w.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"lat":   strconv.FormatFloat(c.Lat, 'f', -1, 64),
			"lon":   strconv.FormatFloat(c.Lon, 'f', -1, 64),
			"units": "metric",
			"appid": w.apiKey,
		}).
		SetResult(&out).
		Get("/data/2.5/weather")
	if err != nil {
		return models.Weather{}, fmt.Errorf("%w: weather request failed: %v", models.ErrProviderUnavailable, err)
	}
	if resp.IsError() {
		return models.Weather{}, fmt.Errorf("%w: weather API returned status %d", models.ErrProviderUnavailable, resp.StatusCode())
	}

	weather := models.Weather{
		Temperature: out.Main.Temp,
		Humidity:    out.Main.Humidity,
		WindSpeed:   out.Wind.Speed * 3.6,
		Rainfall:    out.Rain["1h"],
	}
	if len(out.Weather) > 0 {
		weather.Description = out.Weather[0].Description
	}
	return weather, nil
}

// Geocode resolves a place name. A name with no match is an error.
func (w *Weather) Geocode(ctx context.Context, location string) (models.Coordinates, error) {
	if w.apiKey == "" {
		return models.Coordinates{}, models.ErrProviderMisconfigured
	}
	if location == "" {
		return models.Coordinates{}, fmt.Errorf("%w: empty location", models.ErrValidation)
	}

	var places []owmPlace
	resp, err := w.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     location,
			"limit": "1",
			"appid": w.apiKey,
		}).
		SetResult(&places).
		Get("/geo/1.0/direct")
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: geocoding request failed: %v", models.ErrProviderUnavailable, err)
	}
	if resp.IsError() {
		return models.Coordinates{}, fmt.Errorf("%w: geocoding API returned status %d", models.ErrProviderUnavailable, resp.StatusCode())
	}
	if len(places) == 0 {
		return models.Coordinates{}, fmt.Errorf("location %q could not be geocoded: %w", location, models.ErrNotFound)
	}
	w.logger.Debugf("Geocoded %q to %.4f,%.4f", location, places[0].Lat, places[0].Lon)
	return models.Coordinates{Lat: places[0].Lat, Lon: places[0].Lon}, nil
}
