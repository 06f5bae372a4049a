package orchestrator

import (
	"context"

	"github.com/rs/zerolog/log"

	"datatalk-backend/internal/handler"
	"datatalk-backend/internal/model"
)

type recoveryState struct {
	failed handler.Handler
	hctx   *handler.Context
	cause  error
}

// recoveryStep returns a response when it managed to produce one. Steps run in
// registration order and the first response wins.
type recoveryStep struct {
	name string
	run  func(ctx context.Context, st *recoveryState) (*handler.Response, error)
}

func (o *Orchestrator) runRecovery(ctx context.Context, st *recoveryState) (*handler.Response, error) {
	for _, step := range o.recovery {
		resp, err := step.run(ctx, st)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			log.Debug().Err(st.cause).Str("step", step.name).Str("failed_handler", st.failed.Name()).Msg("Recovered from handler failure")
			return resp, nil
		}
	}
	return o.apology(st.hctx.Summary), nil
}

// retryWithAlternate gives the next matching handler one attempt.
func (o *Orchestrator) retryWithAlternate(ctx context.Context, st *recoveryState) (*handler.Response, error) {
	alt := o.registry.FindExcept(st.hctx.Intent, st.failed)
	if alt == nil {
		return nil, nil
	}
	resp, err := safeHandle(ctx, alt, st.hctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		log.Warn().Err(err).Str("handler", alt.Name()).Msg("Alternate handler failed")
		return nil, nil
	}
	if resp != nil && resp.Error != "" {
		return o.friendlyError(resp.Error, st.hctx.Summary), nil
	}
	if !answered(resp) {
		return nil, nil
	}
	return o.finish(ctx, st.hctx.Table, resp)
}

func (o *Orchestrator) clarifyLowConfidence(_ context.Context, st *recoveryState) (*handler.Response, error) {
	if st.hctx.Intent.Type == model.IntentConversational || st.hctx.Intent.Confidence >= ClarificationThreshold {
		return nil, nil
	}
	return o.clarification(st.hctx.Summary), nil
}

func (o *Orchestrator) gracefulFallback(_ context.Context, st *recoveryState) (*handler.Response, error) {
	if st.hctx.Intent.Type == model.IntentConversational {
		return &handler.Response{Answer: scriptedReply(st.hctx.Question)}, nil
	}
	return o.apology(st.hctx.Summary), nil
}

func (o *Orchestrator) apology(summary model.DataSummary) *handler.Response {
	return &handler.Response{
		Answer: "Sorry, I ran into a problem answering that. You could try one of these:" + formatSuggestions(Suggestions(summary)),
	}
}
