package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"farm-alert-service/internal/config"
	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
	"farm-alert-service/internal/observability"
	"farm-alert-service/internal/sensor"
)

// Ingester accepts one sensor reading.
type Ingester interface {
	Ingest(ctx context.Context, req sensor.IngestRequest) (sensor.IngestResult, error)
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer feeds sensor readings from a Kafka topic into the ingest pipeline.
type Consumer struct {
	reader   messageReader
	ingester Ingester
	metrics  *observability.Metrics
	logger   *logging.Logger
}

func NewConsumer(cfg config.Config, ingester Ingester, metrics *observability.Metrics, logger *logging.Logger) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  []string{cfg.Kafka.Broker},
		GroupID:  cfg.Kafka.GroupID,
		Topic:    cfg.Kafka.ReadingsTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: r, ingester: ingester, metrics: metrics, logger: logger}
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Infof("Kafka consumer started")
		for {
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					c.logger.Infof("Kafka consumer stopped")
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
				continue
			}

			c.handle(ctx, msg)
			if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				c.logger.Errorf("Commit offset %d failed: %v", msg.Offset, err)
			}
		}
	}()
}

func (c *Consumer) handle(ctx context.Context, msg kafkago.Message) {
	req, err := decodeReading(msg.Value)
	if err != nil {
		c.logger.Warnf("Skipping Kafka message at offset %d: %v", msg.Offset, err)
		c.observe("rejected")
		return
	}

	res, err := c.ingester.Ingest(ctx, req)
	switch {
	case err == nil:
		c.logger.Debugf("Ingested reading %d from Kafka: %s", res.ReadingID, res.Status)
		c.observe("ingested")
	case errors.Is(err, models.ErrValidation) || errors.Is(err, models.ErrNotFound):
		c.logger.Warnf("Rejected Kafka reading for farm %d: %v", req.FarmID, err)
		c.observe("rejected")
	default:
		c.logger.Errorf("Failed to ingest Kafka reading for farm %d: %v", req.FarmID, err)
		c.observe("failed")
	}
}

func (c *Consumer) observe(outcome string) {
	if c.metrics != nil {
		c.metrics.TransportEvents.WithLabelValues("kafka", outcome).Inc()
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func decodeReading(data []byte) (sensor.IngestRequest, error) {
	var req sensor.IngestRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return sensor.IngestRequest{}, fmt.Errorf("%w: malformed reading: %v", models.ErrValidation, err)
	}
	if err := req.Validate(); err != nil {
		return sensor.IngestRequest{}, err
	}
	return req, nil
}
