package orchestrator

import (
	"datatalk-backend/internal/handler"
	"datatalk-backend/internal/model"
)

// Registry is the ordered handler list. It is built once at startup and never
// mutated afterwards, so concurrent dispatch needs no locking.
type Registry struct {
	handlers []handler.Handler
}

func NewRegistry(handlers ...handler.Handler) *Registry {
	list := make([]handler.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			list = append(list, h)
		}
	}
	return &Registry{handlers: list}
}

// Find returns the first handler, in registration order, that accepts intent.
func (r *Registry) Find(intent model.AnalysisIntent) handler.Handler {
	return r.FindExcept(intent, nil)
}

// FindExcept is Find skipping the given handler.
func (r *Registry) FindExcept(intent model.AnalysisIntent, skip handler.Handler) handler.Handler {
	for _, h := range r.handlers {
		if h == skip {
			continue
		}
		if h.CanHandle(intent) {
			return h
		}
	}
	return nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for _, h := range r.handlers {
		names = append(names, h.Name())
	}
	return names
}
