// Package kafka carries query events between the chat path and the history
// indexer.
package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"

	"datatalk-backend/config"
	"datatalk-backend/internal/model"
)

type QueryProducer interface {
	Publish(ctx context.Context, events ...model.QueryEvent) error
	Close() error
}

type kafkaQueryProducer struct {
	writer messageWriter
	topic  string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewQueryProducer returns an asynchronous producer, or a no-op one when
// Kafka is disabled.
func NewQueryProducer(lc fx.Lifecycle, cfg *config.Config) (QueryProducer, error) {
	if !cfg.Kafka.Enabled {
		log.Info().Msg("Kafka disabled, query events will not be published")
		return noopProducer{}, nil
	}
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.QueryTopic == "" {
		log.Error().Msg("Kafka brokers or query topic is not configured.")
		return nil, errors.New("kafka configuration missing")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.QueryTopic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.Kafka.BatchSize,
		BatchTimeout: cfg.Kafka.MaxBatchWait,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.Error().Err(err).Int("message_count", len(messages)).Msg("Async Kafka write failed")
			}
		},
	}
	p := &kafkaQueryProducer{writer: writer, topic: cfg.Kafka.QueryTopic}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Kafka producer")
			return p.Close()
		},
	})
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.QueryTopic).Msg("Kafka producer initialized")
	return p, nil
}

// Publish keys messages by session so one session's events stay ordered
// within a partition.
func (p *kafkaQueryProducer) Publish(ctx context.Context, events ...model.QueryEvent) error {
	if len(events) == 0 {
		return nil
	}
	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to marshal query event for Kafka")
			continue
		}
		messages = append(messages, kafka.Message{Key: []byte(event.SessionID), Value: value})
	}
	if len(messages) == 0 {
		log.Warn().Msg("No valid messages to produce.")
		return nil
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		log.Error().Err(err).Int("message_count", len(messages)).Msg("Failed to write messages to Kafka")
		return err
	}
	log.Debug().Int("message_count", len(messages)).Str("topic", p.topic).Msg("Produced query events to Kafka")
	return nil
}

func (p *kafkaQueryProducer) Close() error {
	return p.writer.Close()
}

type noopProducer struct{}

func (noopProducer) Publish(context.Context, ...model.QueryEvent) error { return nil }
func (noopProducer) Close() error                                       { return nil }
