package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"farm-alert-service/internal/config"
	"farm-alert-service/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher streams written alert records to the audit topic.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(cfg config.Config) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Kafka.Broker),
		Topic:        cfg.Kafka.AlertsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		WriteTimeout: 5 * time.Second,
	}
	return &Publisher{writer: w}
}

// PublishAlert writes rec keyed by farm so a farm's alerts stay ordered.
func (p *Publisher) PublishAlert(ctx context.Context, rec models.AlertRecord) error {
	msg, err := alertMessage(rec)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func alertMessage(rec models.AlertRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(rec.FarmID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(rec.Source)},
			{Key: "severity", Value: []byte(rec.Severity)},
			{Key: "created_at", Value: []byte(rec.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
