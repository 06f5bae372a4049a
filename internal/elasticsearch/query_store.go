package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"datatalk-backend/config"
	"datatalk-backend/internal/model"
)

const connectMaxElapsed = 90 * time.Second

type QueryStore interface {
	StoreQueries(ctx context.Context, events []model.QueryEvent) error
	Close(ctx context.Context) error
}

type elasticQueryStore struct {
	bulkIndexer     esutil.BulkIndexer
	indexPrefix     string
	countSuccessful uint64
	countFailed     uint64
	now             func() time.Time
}

// NewQueryStore connects to the cluster and starts a bulk indexer that writes
// query events into daily indices named "<prefix>-YYYY-MM-DD".
func NewQueryStore(lc fx.Lifecycle, cfg *config.Config) (QueryStore, error) {
	esCfg, err := clientConfig(cfg)
	if err != nil {
		return nil, err
	}
	esClient, err := connect(context.Background(), esCfg, connectMaxElapsed)
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to Elasticsearch after multiple retries")
		return nil, err
	}

	store := &elasticQueryStore{
		indexPrefix: cfg.Elasticsearch.QueryIndex,
		now:         time.Now,
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        esClient,
		Index:         store.indexName(),
		NumWorkers:    cfg.Elasticsearch.BulkWorkers,
		FlushBytes:    cfg.Elasticsearch.FlushBytes,
		FlushInterval: cfg.Elasticsearch.FlushInterval,
		OnError: func(ctx context.Context, err error) {
			log.Error().Err(err).Msg("BulkIndexer error")
		},
		OnFlushStart: func(ctx context.Context) context.Context {
			log.Debug().Msg("BulkIndexer flush starting")
			return ctx
		},
		OnFlushEnd: func(ctx context.Context) {
			log.Debug().Msg("BulkIndexer flush ended")
		},
	})
	if err != nil {
		log.Error().Err(err).Msg("Error creating the BulkIndexer")
		return nil, fmt.Errorf("create bulk indexer: %w", err)
	}
	store.bulkIndexer = bi
	log.Info().Str("index_prefix", store.indexPrefix).Msg("Elasticsearch query BulkIndexer initialized")

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Closing Elasticsearch BulkIndexer...")
			return store.Close(ctx)
		},
	})
	return store, nil
}

// StoreQueries queues events for indexing. Documents use the event ID so a
// redelivered Kafka message overwrites instead of duplicating.
func (s *elasticQueryStore) StoreQueries(ctx context.Context, events []model.QueryEvent) error {
	if len(events) == 0 {
		return nil
	}
	failedBefore := atomic.LoadUint64(&s.countFailed)

	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("Failed to marshal query event for Elasticsearch")
			atomic.AddUint64(&s.countFailed, 1)
			continue
		}
		err = s.bulkIndexer.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			Index:      s.indexName(),
			DocumentID: event.ID,
			Body:       bytes.NewReader(data),
			OnSuccess: func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem) {
				atomic.AddUint64(&s.countSuccessful, 1)
			},
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				atomic.AddUint64(&s.countFailed, 1)
				if err != nil {
					log.Error().Err(err).Str("document_id", item.DocumentID).Msg("Bulk index item failed")
					return
				}
				log.Error().Str("document_id", item.DocumentID).Str("type", res.Error.Type).Str("reason", res.Error.Reason).Msg("Bulk index item rejected")
			},
		})
		if err != nil {
			log.Error().Err(err).Msg("Failed to add item to BulkIndexer")
			atomic.AddUint64(&s.countFailed, 1)
		}
	}
	log.Debug().Int("count", len(events)).Msg("Added query events to Elasticsearch BulkIndexer queue")

	if atomic.LoadUint64(&s.countFailed) > failedBefore {
		return errors.New("one or more query events failed during bulk indexing attempt")
	}
	return nil
}

func (s *elasticQueryStore) Close(ctx context.Context) error {
	err := s.bulkIndexer.Close(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error closing BulkIndexer")
	}

	stats := s.bulkIndexer.Stats()
	log.Info().
		Uint64("indexed", stats.NumIndexed).
		Uint64("added", stats.NumAdded).
		Uint64("flushed", stats.NumFlushed).
		Uint64("failed", stats.NumFailed).
		Uint64("callback_successful", atomic.LoadUint64(&s.countSuccessful)).
		Uint64("callback_failed", atomic.LoadUint64(&s.countFailed)).
		Msg("Elasticsearch BulkIndexer final stats")
	return err
}

func (s *elasticQueryStore) indexName() string {
	return dailyIndex(s.indexPrefix, s.now())
}

func dailyIndex(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%s", prefix, t.UTC().Format("2006-01-02"))
}
