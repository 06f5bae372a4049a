package elasticsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/typedapi/core/search"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/rs/zerolog/log"

	"datatalk-backend/config"
	"datatalk-backend/internal/intent"
	"datatalk-backend/internal/model"
)

type querySearcher struct {
	esTypedClient *elasticsearch.TypedClient
	indexPrefix   string
}

func NewQuerySearcher(cfg *config.Config) (intent.QuerySearcher, error) {
	esCfg, err := clientConfig(cfg)
	if err != nil {
		return nil, err
	}
	typedClient, err := elasticsearch.NewTypedClient(esCfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create typed Elasticsearch client")
		return nil, err
	}
	return &querySearcher{
		esTypedClient: typedClient,
		indexPrefix:   cfg.Elasticsearch.QueryIndex,
	}, nil
}

// SearchQueries returns up to limit distinct past questions of the session,
// best match first.
func (s *querySearcher) SearchQueries(ctx context.Context, sessionID, text string, limit int) ([]string, error) {
	if limit <= 0 || strings.TrimSpace(text) == "" {
		return nil, nil
	}
	res, err := s.esTypedClient.Search().
		Index(s.indexPrefix + "-*").
		Request(buildSearchRequest(sessionID, text, limit)).
		Do(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error executing query history search")
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}

	seen := make(map[string]bool)
	out := make([]string, 0, limit)
	for _, hit := range res.Hits.Hits {
		if hit.Source_ == nil {
			continue
		}
		var event model.QueryEvent
		if err := json.Unmarshal(hit.Source_, &event); err != nil {
			log.Error().Err(err).Msg("Error unmarshalling query history hit")
			continue
		}
		key := strings.ToLower(strings.TrimSpace(event.Question))
		if key == "" || seen[key] || strings.EqualFold(strings.TrimSpace(text), event.Question) {
			continue
		}
		seen[key] = true
		out = append(out, event.Question)
		if len(out) == limit {
			break
		}
	}
	log.Debug().Str("session_id", sessionID).Int("returned", len(out)).Msg("Query history search successful")
	return out, nil
}

func buildSearchRequest(sessionID, text string, limit int) *search.Request {
	// Over-fetch so duplicates of the same question do not starve the result.
	size := limit * 3
	return &search.Request{
		Query: &types.Query{
			Bool: &types.BoolQuery{
				Filter: []types.Query{
					{Term: map[string]types.TermQuery{"session_id.keyword": {Value: sessionID}}},
				},
				Must: []types.Query{
					{Match: map[string]types.MatchQuery{"question": {Query: text}}},
				},
			},
		},
		Size: &size,
	}
}
