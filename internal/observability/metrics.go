package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "farm_alert"

// Metrics holds the Prometheus collectors for the alerting pipeline.
type Metrics struct {
	ReadingsIngested *prometheus.CounterVec // labels: sensor_type, status
	TransportEvents  *prometheus.CounterVec // labels: transport={kafka,mqtt}, outcome={ingested,rejected,failed}

	// Dispatch metrics.
	ChannelOutcomes  *prometheus.CounterVec // labels: channel, outcome
	AlertsRecorded   *prometheus.CounterVec // labels: source
	DispatchDuration prometheus.Histogram

	// Weather sweep metrics.
	SweepFarms    *prometheus.CounterVec // labels: result={processed,skipped}
	SweepDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ReadingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_ingested_total",
			Help:      "Sensor readings stored, by sensor type and classification.",
		}, []string{"sensor_type", "status"}),
		TransportEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_messages_total",
			Help:      "Readings received over Kafka or MQTT, by outcome.",
		}, []string{"transport", "outcome"}),
		ChannelOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "channel_outcomes_total",
			Help:      "Alert channel results by channel and outcome.",
		}, []string{"channel", "outcome"}),
		AlertsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alert_records_total",
			Help:      "Alert records written, by trigger source.",
		}, []string{"source"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time from dispatch start until the alert record is written.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		SweepFarms: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_farms_total",
			Help:      "Farms visited by the weather sweep, by result.",
		}, []string{"result"}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Duration of a full weather sweep.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
	}

	prometheus.MustRegister(
		m.ReadingsIngested,
		m.TransportEvents,
		m.ChannelOutcomes,
		m.AlertsRecorded,
		m.DispatchDuration,
		m.SweepFarms,
		m.SweepDuration,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as many as they need.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ReadingsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "readings_ingested_total"}, []string{"sensor_type", "status"}),
		TransportEvents:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "transport_messages_total"}, []string{"transport", "outcome"}),
		ChannelOutcomes:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "channel_outcomes_total"}, []string{"channel", "outcome"}),
		AlertsRecorded:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "alert_records_total"}, []string{"source"}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "dispatch_duration_seconds"}),
		SweepFarms:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "sweep_farms_total"}, []string{"result"}),
		SweepDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "sweep_duration_seconds"}),
	}
}
