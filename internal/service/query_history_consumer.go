package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"

	"datatalk-backend/config"
	"datatalk-backend/internal/elasticsearch"
	"datatalk-backend/internal/kafka"
	"datatalk-backend/internal/model"
)

const retryPause = time.Second

type QueryHistoryConsumerService interface {
	Run(ctx context.Context, wg *sync.WaitGroup)
}

type queryHistoryConsumerService struct {
	consumer    kafka.QueryConsumer
	queryStore  elasticsearch.QueryStore
	batchSize   int           // How many Kafka messages to process at once
	maxWaitTime time.Duration // Max time to wait for batchSize messages
}

func NewQueryHistoryConsumerService(consumer kafka.QueryConsumer, queryStore elasticsearch.QueryStore, cfg *config.Config) QueryHistoryConsumerService {
	batchSize := cfg.Kafka.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	maxWait := cfg.Kafka.MaxBatchWait
	if maxWait <= 0 {
		maxWait = 5 * time.Second
	}
	return &queryHistoryConsumerService{
		consumer:    consumer,
		queryStore:  queryStore,
		batchSize:   batchSize,
		maxWaitTime: maxWait,
	}
}

func (s *queryHistoryConsumerService) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	log.Info().Msg("Starting query history consumer loop...")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Query history consumer loop stopping due to context cancellation.")
			return
		default:
		}

		if err := s.processBatch(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info().Msg("Context cancelled during batch processing.")
				return
			}
			log.Error().Err(err).Msg("Error processing consumer batch")
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryPause):
			}
		}
	}
}

// processBatch collects up to batchSize messages or whatever arrived within
// maxWaitTime, indexes the decodable ones and commits all of them. Nothing is
// committed when indexing fails, so the batch is redelivered.
func (s *queryHistoryConsumerService) processBatch(ctx context.Context) error {
	events := make([]model.QueryEvent, 0, s.batchSize)
	messages := make([]kafkaGo.Message, 0, s.batchSize)

	batchCtx, cancel := context.WithTimeout(ctx, s.maxWaitTime)
	defer cancel()

	for len(messages) < s.batchSize {
		event, msg, err := s.consumer.FetchMessage(batchCtx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				log.Debug().Int("batch_size", len(messages)).Msg("Max wait time reached for batch")
				break
			}
			if msg.Topic != "" {
				log.Warn().Int64("offset", msg.Offset).Msg("Skipping undecodable query event")
				messages = append(messages, msg)
				continue
			}
			return fmt.Errorf("failed to fetch kafka message: %w", err)
		}
		events = append(events, *event)
		messages = append(messages, msg)
	}

	if len(messages) == 0 {
		return nil
	}

	if err := s.queryStore.StoreQueries(ctx, events); err != nil {
		return fmt.Errorf("failed storing query events: %w", err)
	}
	if err := s.consumer.CommitMessages(ctx, messages...); err != nil {
		return fmt.Errorf("failed committing kafka messages: %w", err)
	}
	log.Info().Int("events", len(events)).Int("messages", len(messages)).Msg("Indexed and committed query history batch")
	return nil
}
