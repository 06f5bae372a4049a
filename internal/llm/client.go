// Package llm wraps the text-generation model used by the intent classifier and
// the handlers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"datatalk-backend/config"
	"datatalk-backend/internal/model"
)

var (
	ErrEmptyResponse = errors.New("llm returned an empty response")
	ErrNotConfigured = errors.New("llm api key is not configured")
)

// Request is one generation call. History is sent before Prompt as prior turns.
type Request struct {
	System  string
	History []model.ChatMessage
	Prompt  string
	JSON    bool
}

type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req Request) (string, error)

func (f ClientFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

type geminiClient struct {
	client      *genai.Client
	model       string
	timeout     time.Duration
	maxRetries  int
	temperature float32
}

// NewGeminiClient builds a Gemini-backed client. Without an API key it returns
// a client whose every call fails with ErrNotConfigured, so callers fall back
// to their deterministic paths instead of the service refusing to start.
func NewGeminiClient(cfg *config.Config) (Client, error) {
	if cfg.LLM.APIKey == "" {
		log.Warn().Msg("API_KEY not set, language model calls are disabled")
		return ClientFunc(func(context.Context, Request) (string, error) {
			return "", ErrNotConfigured
		}), nil
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.LLM.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	timeout := cfg.LLM.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	log.Info().Str("model", cfg.LLM.Model).Msg("Gemini client initialized")
	return &geminiClient{
		client:      client,
		model:       cfg.LLM.Model,
		timeout:     timeout,
		maxRetries:  cfg.LLM.MaxRetries,
		temperature: cfg.LLM.Temperature,
	}, nil
}

func (c *geminiClient) Generate(ctx context.Context, req Request) (string, error) {
	contents := buildContents(req)
	genCfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if req.System != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		genCfg.ResponseMIMEType = "application/json"
	}

	var text string
	attempt := 0
	operation := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.Models.GenerateContent(callCtx, c.model, contents, genCfg)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			log.Warn().Err(err).Int("attempt", attempt).Msg("Gemini generate attempt failed")
			return err
		}
		text = strings.TrimSpace(resp.Text())
		if text == "" {
			log.Warn().Int("attempt", attempt).Msg("Gemini returned no text")
			return ErrEmptyResponse
		}
		return nil
	}

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 500 * time.Millisecond
	retry.MaxInterval = 5 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(retry, uint64(c.maxRetries)), ctx)

	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	log.Debug().Int("attempts", attempt).Int("chars", len(text)).Msg("Gemini generate succeeded")
	return text, nil
}

func buildContents(req Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if turn.Role == model.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))
	return contents
}
