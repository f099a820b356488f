// Package router selects the handler for a message by id range.
package router

import (
	"context"

	"sravz-backend/internal/handlers"
	"sravz-backend/internal/models"
	"sravz-backend/pkg/apperrors"
)

// route is one closed id range bound to a handler. Ranges are closed on both
// ends so minor-version ids like 1.005 land with their base handler.
type route struct {
	low, high float64
	handler   handlers.Handler
}

// Router dispatches messages to handlers by id.
type Router struct {
	routes []route
}

// New registers the three handler families on their id ranges.
func New(deps handlers.Deps) *Router {
	return &Router{
		routes: []route{
			{1.0, 1.009, handlers.NewLeveragedFunds(deps)},
			{2.0, 2.009, handlers.NewLlmQuery(deps)},
			{3.0, 3.009, handlers.NewEarningsPlot(deps)},
		},
	}
}

// Process runs the matching handler. Handler errors pass through untouched;
// an id outside every range fails with UnknownRequestKind.
func (r *Router) Process(ctx context.Context, msg *models.Message) error {
	for _, rt := range r.routes {
		if msg.ID >= rt.low && msg.ID <= rt.high {
			return rt.handler.Handle(ctx, msg)
		}
	}
	return apperrors.New(apperrors.UnknownRequestKind, "Message ID not implemented")
}
