package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"datatalk-backend/internal/dto"
	"datatalk-backend/internal/kafka"
	"datatalk-backend/internal/model"
	"datatalk-backend/internal/orchestrator"
	"datatalk-backend/internal/store"
)

type ChatService interface {
	Chat(ctx context.Context, req dto.ChatRequest) (*dto.ChatResponse, error)
	History(ctx context.Context, sessionID string, since time.Time) (*dto.HistoryResponse, error)
}

type chatService struct {
	sessions     store.SessionStore
	orchestrator *orchestrator.Orchestrator
	producer     kafka.QueryProducer
	now          func() time.Time
}

func NewChatService(sessions store.SessionStore, orch *orchestrator.Orchestrator, producer kafka.QueryProducer) ChatService {
	return &chatService{
		sessions:     sessions,
		orchestrator: orch,
		producer:     producer,
		now:          time.Now,
	}
}

// Chat answers one message within a session and records both turns. Only a
// missing session, a storage failure or cancellation produce an error.
func (s *chatService) Chat(ctx context.Context, req dto.ChatRequest) (*dto.ChatResponse, error) {
	log.Info().Str("session_id", req.SessionID).Str("message", req.Message).Msg("Processing chat message")

	session, err := s.sessions.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}

	asked := s.now()
	resp, err := s.orchestrator.Process(ctx, orchestrator.Request{
		Question:  req.Message,
		Table:     session.Table,
		Summary:   session.Summary,
		History:   session.History,
		SessionID: session.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("process message: %w", err)
	}

	err = s.sessions.AppendMessages(ctx, session.ID,
		model.ChatMessage{Role: model.RoleUser, Content: req.Message, CreatedAt: asked},
		model.ChatMessage{Role: model.RoleAssistant, Content: resp.Answer, CreatedAt: s.now()},
	)
	if err != nil {
		return nil, fmt.Errorf("record chat turn: %w", err)
	}

	event := model.QueryEvent{
		ID:            uuid.NewString(),
		SessionID:     session.ID,
		Question:      strings.TrimSpace(req.Message),
		ChartCount:    len(resp.Charts),
		Clarification: resp.RequiresClarification,
		Timestamp:     asked.UTC(),
	}
	if err := s.producer.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("Failed to publish query event")
	}

	charts := resp.Charts
	if charts == nil {
		charts = []*model.ChartSpec{}
	}
	insights := resp.Insights
	if insights == nil {
		insights = []model.Insight{}
	}
	return &dto.ChatResponse{
		SessionID:             session.ID,
		Answer:                resp.Answer,
		Charts:                charts,
		Insights:              insights,
		RequiresClarification: resp.RequiresClarification,
		ErrorCode:             resp.Error,
	}, nil
}

// History returns the session's messages created at or after since. A zero
// since returns everything.
func (s *chatService) History(ctx context.Context, sessionID string, since time.Time) (*dto.HistoryResponse, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	messages := make([]model.ChatMessage, 0, len(session.History))
	for _, m := range session.History {
		if !since.IsZero() && m.CreatedAt.Before(since) {
			continue
		}
		messages = append(messages, m)
	}
	return &dto.HistoryResponse{SessionID: session.ID, Messages: messages}, nil
}
