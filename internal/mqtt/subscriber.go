package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"farm-alert-service/internal/config"
	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
	"farm-alert-service/internal/observability"
	"farm-alert-service/internal/sensor"
)

const (
	queueSize  = 256
	numWorkers = 4
)

type Ingester interface {
	Ingest(ctx context.Context, req sensor.IngestRequest) (sensor.IngestResult, error)
}

// Subscriber ingests readings that field devices publish on farms/{farmId}/sensors/{sensorType}.
type Subscriber struct {
	client   pahomqtt.Client
	topic    string
	ingester Ingester
	metrics  *observability.Metrics
	logger   *logging.Logger

	queue  chan delivery
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

type delivery struct {
	topic   string
	payload []byte
}

func NewSubscriber(cfg config.Config, ingester Ingester, metrics *observability.Metrics, logger *logging.Logger) *Subscriber {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID)
	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
	}
	if cfg.MQTT.Password != "" {
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetOrderMatters(false)

	return &Subscriber{
		client:   pahomqtt.NewClient(opts),
		topic:    cfg.MQTT.Topic,
		ingester: ingester,
		metrics:  metrics,
		logger:   logger,
		queue:    make(chan delivery, queueSize),
	}
}

// Start connects and subscribes. The paho callback only queues messages; a small
// worker pool ingests them with ctx until Stop is called.
func (s *Subscriber) Start(ctx context.Context) error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	s.startWorkers(ctx, numWorkers)
	token := s.client.Subscribe(s.topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		s.enqueue(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		s.client.Disconnect(250)
		s.stopWorkers()
		return fmt.Errorf("failed to subscribe to topic %s: %w", s.topic, token.Error())
	}
	s.logger.Infof("MQTT subscriber listening on %s", s.topic)
	return nil
}

func (s *Subscriber) Stop() {
	s.client.Disconnect(250)
	s.stopWorkers()
	s.logger.Infof("MQTT subscriber stopped")
}

func (s *Subscriber) startWorkers(ctx context.Context, n int) {
	wctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for i := 0; i < n; i++ {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-wctx.Done():
					return
				case d := <-s.queue:
					s.handle(wctx, d.topic, d.payload)
				}
			}
		}()
	}
}

// stopWorkers cancels in-flight ingests and waits for the workers. Queued messages are dropped.
func (s *Subscriber) stopWorkers() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// enqueue hands a message to the workers without blocking the paho router. A full
// queue drops the message.
func (s *Subscriber) enqueue(topic string, payload []byte) bool {
	select {
	case s.queue <- delivery{topic: topic, payload: payload}:
		return true
	default:
		s.logger.Warnf("MQTT ingest queue full, dropping message on %s", topic)
		s.observe("dropped")
		return false
	}
}

func (s *Subscriber) handle(ctx context.Context, topic string, payload []byte) {
	req, err := parseMessage(topic, payload)
	if err != nil {
		s.logger.Warnf("Skipping MQTT message on %s: %v", topic, err)
		s.observe("rejected")
		return
	}

	res, err := s.ingester.Ingest(ctx, req)
	switch {
	case err == nil:
		s.logger.Debugf("Ingested reading %d from %s: %s", res.ReadingID, topic, res.Status)
		s.observe("ingested")
	case errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrNotFound):
		s.logger.Warnf("Rejected MQTT reading on %s: %v", topic, err)
		s.observe("rejected")
	default:
		s.logger.Errorf("Failed to ingest MQTT reading on %s: %v", topic, err)
		s.observe("failed")
	}
}

func (s *Subscriber) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.TransportEvents.WithLabelValues("mqtt", outcome).Inc()
	}
}

type payloadBody struct {
	Value *float64 `json:"value"`
	Unit  string   `json:"unit"`
	Note  string   `json:"note"`
}

// parseMessage reads farm and sensor type from the topic and the value from the payload,
// which is either a JSON object or a bare number.
func parseMessage(topic string, payload []byte) (sensor.IngestRequest, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "farms" || parts[2] != "sensors" {
		return sensor.IngestRequest{}, fmt.Errorf("%w: unexpected topic %q", models.ErrValidation, topic)
	}
	farmID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return sensor.IngestRequest{}, fmt.Errorf("%w: bad farm id in topic %q", models.ErrValidation, topic)
	}

	req := sensor.IngestRequest{FarmID: farmID, SensorType: models.SensorType(parts[3])}

	raw := strings.TrimSpace(string(payload))
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		req.Value = &v
	} else {
		var body payloadBody
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			return sensor.IngestRequest{}, fmt.Errorf("%w: malformed payload: %v", models.ErrValidation, err)
		}
		req.Value = body.Value
		req.Unit = body.Unit
		req.Note = body.Note
	}

	if err := req.Validate(); err != nil {
		return sensor.IngestRequest{}, err
	}
	return req, nil
}
