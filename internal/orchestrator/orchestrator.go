// Package orchestrator drives one question through reference resolution,
// intent classification, context retrieval, handler dispatch, error recovery
// and chart post-processing.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"datatalk-backend/internal/chart"
	"datatalk-backend/internal/handler"
	"datatalk-backend/internal/intent"
	"datatalk-backend/internal/model"
)

// ClarificationThreshold is the confidence below which a non-conversational
// intent is answered with a clarification request instead of a dispatch.
const ClarificationThreshold = 0.5

const fallbackConfidence = 0.5

// ErrorCodeAnalysisFailed replaces a handler's own error text in responses;
// the text itself is only logged.
const ErrorCodeAnalysisFailed = "analysis_failed"

type Request struct {
	Question  string
	Table     model.Table
	Summary   model.DataSummary
	History   []model.ChatMessage
	SessionID string
}

type Orchestrator struct {
	registry   *Registry
	classifier intent.Classifier
	resolver   intent.ReferenceResolver
	retriever  intent.Retriever
	recovery   []recoveryStep
}

// New builds an orchestrator. resolver and retriever may be nil, in which
// case questions are used verbatim and handlers get an empty context.
func New(registry *Registry, classifier intent.Classifier, resolver intent.ReferenceResolver, retriever intent.Retriever) *Orchestrator {
	o := &Orchestrator{
		registry:   registry,
		classifier: classifier,
		resolver:   resolver,
		retriever:  retriever,
	}
	o.recovery = []recoveryStep{
		{name: "retry", run: o.retryWithAlternate},
		{name: "clarify", run: o.clarifyLowConfidence},
		{name: "graceful", run: o.gracefulFallback},
	}
	return o
}

// Process answers one question. Every failure short of context cancellation
// is converted into a user-facing response.
func (o *Orchestrator) Process(ctx context.Context, req Request) (*handler.Response, error) {
	logger := log.With().Str("session_id", req.SessionID).Logger()

	question := o.resolveReferences(ctx, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	analysis, err := o.classifier.ClassifyIntent(ctx, question, req.History, req.Summary)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn().Err(err).Msg("Intent classification failed, treating as custom request")
		analysis = model.AnalysisIntent{Type: model.IntentCustom, Confidence: fallbackConfidence, CustomRequest: question}
	}
	if analysis.OriginalQuestion == "" {
		analysis.OriginalQuestion = req.Question
	}
	logger.Debug().Str("intent", string(analysis.Type)).Float64("confidence", analysis.Confidence).Msg("Intent classified")

	if needsClarification(analysis) {
		return o.clarification(req.Summary), nil
	}

	retrieved := o.retrieve(ctx, question, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hctx := &handler.Context{
		Question:  question,
		Intent:    analysis,
		Table:     req.Table,
		Summary:   req.Summary,
		Retrieved: retrieved,
		History:   req.History,
		SessionID: req.SessionID,
	}

	h := o.registry.Find(analysis)
	if h == nil {
		custom := analysis
		custom.Type = model.IntentCustom
		if custom.CustomRequest == "" {
			custom.CustomRequest = question
		}
		if h = o.registry.Find(custom); h == nil {
			logger.Warn().Str("intent", string(analysis.Type)).Msg("No handler registered for intent")
			return o.noHandler(req.Summary), nil
		}
		hctx.Intent = custom
	}

	resp, err := safeHandle(ctx, h, hctx)
	if err == nil && resp != nil && resp.Error != "" {
		logger.Info().Str("handler", h.Name()).Str("reason", resp.Error).Msg("Handler reported an error")
		return o.friendlyError(resp.Error, req.Summary), nil
	}
	if err == nil && !answered(resp) {
		err = fmt.Errorf("handler %s returned an empty answer", h.Name())
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn().Err(err).Str("handler", h.Name()).Msg("Handler failed, starting recovery")
		return o.runRecovery(ctx, &recoveryState{failed: h, hctx: hctx, cause: err})
	}

	return o.finish(ctx, req.Table, resp)
}

func (o *Orchestrator) resolveReferences(ctx context.Context, req Request) string {
	if o.resolver == nil {
		return req.Question
	}
	resolved, err := o.resolver.ResolveContextReferences(ctx, req.Question, req.History)
	if err != nil || strings.TrimSpace(resolved) == "" {
		if err != nil {
			log.Debug().Err(err).Msg("Reference resolution failed, using original question")
		}
		return req.Question
	}
	return resolved
}

func (o *Orchestrator) retrieve(ctx context.Context, question string, req Request) model.RetrievedContext {
	if o.retriever == nil {
		return model.RetrievedContext{}
	}
	retrieved, err := o.retriever.RetrieveContext(ctx, question, req.Table, req.Summary, req.History, req.SessionID)
	if err != nil {
		log.Warn().Err(err).Msg("Context retrieval failed, continuing without context")
		return model.RetrievedContext{}
	}
	return retrieved
}

// finish fills chart series. Only cancellation can make it fail.
func (o *Orchestrator) finish(ctx context.Context, table model.Table, resp *handler.Response) (*handler.Response, error) {
	if len(resp.Charts) == 0 {
		return resp, nil
	}
	charts, err := chart.ProcessAll(ctx, table, resp.Charts)
	if err != nil {
		return nil, err
	}
	resp.Charts = charts
	return resp, nil
}

func needsClarification(analysis model.AnalysisIntent) bool {
	if analysis.Type == model.IntentConversational {
		return false
	}
	return analysis.RequiresClarification || analysis.Confidence < ClarificationThreshold
}

func answered(resp *handler.Response) bool {
	return resp != nil && strings.TrimSpace(resp.Answer) != ""
}

// safeHandle runs h and turns a panic into an error.
func safeHandle(ctx context.Context, h handler.Handler, hctx *handler.Context) (resp *handler.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp, err = nil, fmt.Errorf("handler %s panicked: %v", h.Name(), r)
		}
	}()
	return h.Handle(ctx, hctx)
}

func (o *Orchestrator) clarification(summary model.DataSummary) *handler.Response {
	return &handler.Response{
		Answer:                "I'm not sure what you'd like to know. Could you rephrase or be more specific? For example:" + formatSuggestions(Suggestions(summary)),
		RequiresClarification: true,
	}
}

func (o *Orchestrator) noHandler(summary model.DataSummary) *handler.Response {
	return &handler.Response{
		Answer: "I can't answer that kind of question yet. Here are some things you can ask:" + formatSuggestions(Suggestions(summary)),
	}
}

func (o *Orchestrator) friendlyError(reason string, summary model.DataSummary) *handler.Response {
	log.Warn().Str("reason", reason).Msg("Answering handler error with suggestions")
	return &handler.Response{
		Answer: "I couldn't complete that analysis with this dataset. You could try:" + formatSuggestions(Suggestions(summary)),
		Error:  ErrorCodeAnalysisFailed,
	}
}
