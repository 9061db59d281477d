package weather

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
	"farm-alert-service/internal/observability"
)

// ErrSweepRunning is returned when a sweep is requested while another is in progress.
var ErrSweepRunning = errors.New("weather sweep already running")

type FarmSource interface {
	ListActiveFarms(ctx context.Context) ([]models.Farm, error)
}

type PreferenceSource interface {
	GetAlertPreference(ctx context.Context, farmerID int64) (models.AlertPreference, error)
}

type Provider interface {
	CurrentWeather(ctx context.Context, c models.Coordinates) (models.Weather, error)
	Geocode(ctx context.Context, location string) (models.Coordinates, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev models.AlertEvent) (models.AlertRecord, error)
}

// Dependencies wires a Sweeper.
type Dependencies struct {
	Farms       FarmSource
	Preferences PreferenceSource
	Provider    Provider
	Dispatcher  Dispatcher
	FarmDelay   time.Duration
	Metrics     *observability.Metrics
	Clock       clockwork.Clock
	Logger      *logging.Logger
}

// Sweeper runs the weather rules over every active farm.
type Sweeper struct {
	deps    Dependencies
	limiter *rate.Limiter
	running sync.Mutex
}

func NewSweeper(deps Dependencies) *Sweeper {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	limit := rate.Inf
	if deps.FarmDelay > 0 {
		limit = rate.Every(deps.FarmDelay)
	}
	return &Sweeper{deps: deps, limiter: rate.NewLimiter(limit, 1)}
}

type tally struct {
	mu     sync.Mutex
	raised int
	failed int
}

func (t *tally) add(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.failed++
		return
	}
	t.raised++
}

// Sweep visits active farms one at a time, pacing weather calls by FarmDelay. A farm
// whose location or weather cannot be resolved is skipped and recorded; only failing
// to list farms aborts the sweep. Alerts for one farm are dispatched concurrently
// while the next farm is fetched.
func (s *Sweeper) Sweep(ctx context.Context) (models.SweepSummary, error) {
	if !s.running.TryLock() {
		return models.SweepSummary{}, ErrSweepRunning
	}
	defer s.running.Unlock()

	start := s.deps.Clock.Now()
	var summary models.SweepSummary

	farms, err := s.deps.Farms.ListActiveFarms(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list active farms: %w", err)
	}
	summary.FarmsTotal = len(farms)
	s.deps.Logger.Infof("Weather sweep started for %d farms", len(farms))

	var wg sync.WaitGroup
	var alerts tally
	for _, farm := range farms {
		if err := s.limiter.Wait(ctx); err != nil {
			wg.Wait()
			s.finish(&summary, &alerts, start)
			return summary, fmt.Errorf("weather sweep interrupted: %w", err)
		}

		firings, err := s.evaluateFarm(ctx, farm)
		if err != nil {
			s.deps.Logger.Warnf("Skipping farm %d in weather sweep: %v", farm.ID, err)
			summary.FarmsSkipped++
			summary.Failures = append(summary.Failures, models.FarmFailure{FarmID: farm.ID, Reason: err.Error()})
			s.observeFarm("skipped")
			continue
		}
		summary.FarmsProcessed++
		s.observeFarm("processed")

		for _, f := range firings {
			wg.Add(1)
			go func(farm models.Farm, f Firing) {
				defer wg.Done()
				alerts.add(s.dispatch(ctx, farm, f))
			}(farm, f)
		}
	}
	wg.Wait()

	s.finish(&summary, &alerts, start)
	s.deps.Logger.Infof("Weather sweep finished: %d processed, %d skipped, %d alerts raised, %d alerts failed",
		summary.FarmsProcessed, summary.FarmsSkipped, summary.AlertsRaised, summary.AlertsFailed)
	return summary, nil
}

func (s *Sweeper) finish(summary *models.SweepSummary, alerts *tally, start time.Time) {
	alerts.mu.Lock()
	summary.AlertsRaised = alerts.raised
	summary.AlertsFailed = alerts.failed
	alerts.mu.Unlock()
	if s.deps.Metrics != nil {
		s.deps.Metrics.SweepDuration.Observe(s.deps.Clock.Since(start).Seconds())
	}
}

func (s *Sweeper) observeFarm(result string) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.SweepFarms.WithLabelValues(result).Inc()
	}
}

func (s *Sweeper) evaluateFarm(ctx context.Context, farm models.Farm) ([]Firing, error) {
	coords, err := s.coordinates(ctx, farm)
	if err != nil {
		return nil, err
	}
	current, err := s.deps.Provider.CurrentWeather(ctx, coords)
	if err != nil {
		return nil, fmt.Errorf("weather fetch failed: %w", err)
	}

	pref, err := s.deps.Preferences.GetAlertPreference(ctx, farm.FarmerID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.deps.Logger.Warnf("Failed to load alert preference for farmer %d, using defaults: %v", farm.FarmerID, err)
		}
		pref = models.DefaultAlertPreference(farm.FarmerID)
	}
	return EvaluateRules(pref, current), nil
}

func (s *Sweeper) coordinates(ctx context.Context, farm models.Farm) (models.Coordinates, error) {
	if farm.Latitude != nil && farm.Longitude != nil {
		return models.Coordinates{Lat: *farm.Latitude, Lon: *farm.Longitude}, nil
	}
	c, err := s.deps.Provider.Geocode(ctx, farm.Location)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("geocoding %q failed: %w", farm.Location, err)
	}
	return c, nil
}

func (s *Sweeper) dispatch(ctx context.Context, farm models.Farm, f Firing) error {
	_, err := s.deps.Dispatcher.Dispatch(ctx, models.AlertEvent{
		Source:         models.SourceWeather,
		FarmID:         farm.ID,
		FarmerID:       farm.FarmerID,
		SensorType:     f.Metric,
		Value:          f.Value,
		Unit:           f.Metric.DefaultUnit(),
		ThresholdValue: f.Threshold,
		Severity:       f.Severity,
		Rule:           f.Rule,
	})
	if err != nil {
		s.deps.Logger.Errorf("Weather alert %s for farm %d failed: %v", f.Rule, farm.ID, err)
	}
	return err
}
