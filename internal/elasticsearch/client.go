// Package elasticsearch indexes answered questions and searches them back as
// conversational context.
package elasticsearch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog/log"

	"datatalk-backend/config"
)

func newTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConnsPerHost:   10,
		ResponseHeaderTimeout: 10 * time.Second,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
	}
}

func clientConfig(cfg *config.Config) (elasticsearch.Config, error) {
	if len(cfg.Elasticsearch.Addresses) == 0 {
		return elasticsearch.Config{}, errors.New("elasticsearch addresses are not configured")
	}
	return elasticsearch.Config{
		Addresses: cfg.Elasticsearch.Addresses,
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		Transport: newTransport(),
	}, nil
}

// connect creates a client and waits, with exponential backoff, until the
// cluster answers an Info call.
func connect(ctx context.Context, esCfg elasticsearch.Config, maxElapsed time.Duration) (*elasticsearch.Client, error) {
	var esClient *elasticsearch.Client
	operation := func() error {
		client, err := elasticsearch.NewClient(esCfg)
		if err != nil {
			log.Warn().Err(err).Msg("Attempt failed: error creating the Elasticsearch client")
			return backoff.Permanent(err)
		}
		res, err := client.Info(client.Info.WithContext(ctx))
		if err != nil {
			log.Warn().Err(err).Msg("Attempt failed: Elasticsearch Info() call")
			return err
		}
		defer res.Body.Close()
		if res.IsError() {
			err := fmt.Errorf("elasticsearch Info() returned error status: %s", res.Status())
			log.Warn().Err(err).Msg("Attempt failed: Elasticsearch ping returned error status")
			return err
		}
		esClient = client
		return nil
	}

	connectBackoff := backoff.NewExponentialBackOff()
	connectBackoff.InitialInterval = 2 * time.Second
	connectBackoff.MaxInterval = 15 * time.Second
	connectBackoff.MaxElapsedTime = maxElapsed

	log.Info().Strs("addresses", esCfg.Addresses).Msg("Attempting to connect to Elasticsearch with retries...")
	if err := backoff.Retry(operation, backoff.WithContext(connectBackoff, ctx)); err != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", err)
	}
	log.Info().Msg("Elasticsearch client initialized and connection verified")
	return esClient, nil
}
