// internal/orchestrator/handler.go
package orchestrator

import (
	"context"
	"fmt"

	"finlife-navigator/internal/models"
)

// Handler is a specialist the orchestrator dispatches to. Process never
// fails; degraded collaborators show up in the returned text.
type Handler interface {
	Name() string
	Process(ctx context.Context, req models.HandlerRequest) models.HandlerResult
}

// HandlerTable maps every intent to its handler. It is read-only once built.
type HandlerTable struct {
	handlers map[models.Intent]Handler
}

// NewHandlerTable requires a handler for each intent in models.AllIntents.
func NewHandlerTable(handlers map[models.Intent]Handler) (*HandlerTable, error) {
	table := &HandlerTable{handlers: make(map[models.Intent]Handler, len(models.AllIntents))}
	for _, intent := range models.AllIntents {
		h, ok := handlers[intent]
		if !ok || h == nil {
			return nil, fmt.Errorf("no handler registered for intent %s", intent)
		}
		table.handlers[intent] = h
	}
	for intent := range handlers {
		if !intent.IsValid() {
			return nil, fmt.Errorf("handler registered for unknown intent %q", intent)
		}
	}
	return table, nil
}

func (t *HandlerTable) Lookup(intent models.Intent) Handler {
	if h, ok := t.handlers[intent]; ok {
		return h
	}
	return t.handlers[models.IntentGeneral]
}
