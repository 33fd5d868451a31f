// Package kafka publishes operator alarms to the ops alerting topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"tgsync/internal/domain"
)

// AlarmProducer sends alarm events to Kafka using a synchronous producer.
// Alarms are rare and must not be dropped silently, so the producer waits
// for acknowledgement from all in-sync replicas.
type AlarmProducer struct {
	producer sarama.SyncProducer
	topic    string
	logger   zerolog.Logger
}

// AlarmProducerConfig holds configuration for the alarm producer.
type AlarmProducerConfig struct {
	Brokers []string
	Topic   string
	Logger  zerolog.Logger
}

// NewAlarmProducer creates a Kafka producer for alarm events.
func NewAlarmProducer(cfg AlarmProducerConfig) (*AlarmProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers specified")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1 // Required for idempotent producer
	config.Producer.Compression = sarama.CompressionSnappy
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logger := cfg.Logger.With().Str("component", "alarm_producer").Logger()
	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("alarm producer initialized")

	return &AlarmProducer{
		producer: producer,
		topic:    cfg.Topic,
		logger:   logger,
	}, nil
}

// SendAlarm publishes one alarm event.
func (p *AlarmProducer) SendAlarm(ctx context.Context, alarm domain.Alarm) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(alarm)
	if err != nil {
		return fmt.Errorf("failed to marshal alarm: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(alarm.Task),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send alarm: %w", err)
	}

	p.logger.Debug().
		Str("task", alarm.Task).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("alarm published")

	return nil
}

// Close shuts down the underlying producer.
func (p *AlarmProducer) Close() error {
	return p.producer.Close()
}

var _ domain.AlarmSender = (*AlarmProducer)(nil)
