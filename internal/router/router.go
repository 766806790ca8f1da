package router

import (
	"context"
	"fmt"

	"answer-assistant/internal/models"
	"answer-assistant/internal/provider"
	"answer-assistant/internal/translator"
)

// Router dispatches relayed requests to the upstream serving the model.
type Router struct {
	registry *provider.Registry
}

// New constructs a router backed by the provided registry.
func New(registry *provider.Registry) *Router {
	return &Router{
		registry: registry,
	}
}

// Forward resolves the requested model, rewrites it to the canonical ID and
// sends the request upstream. The upstream response body is returned as is.
func (r *Router) Forward(ctx context.Context, req translator.ChatCompletionRequest) ([]byte, models.Model, error) {
	modelInfo, upstream, err := r.registry.LookupModel(req.Model)
	if err != nil {
		return nil, models.Model{}, err
	}

	body, err := req.Encode(modelInfo.ID)
	if err != nil {
		return nil, models.Model{}, err
	}

	resp, err := upstream.Send(ctx, body)
	if err != nil {
		return nil, models.Model{}, fmt.Errorf("upstream %s chat request: %w", upstream.Name(), err)
	}
	return resp, modelInfo, nil
}
