package provider

import (
	"errors"
	"fmt"
	"sync"

	"answer-assistant/internal/models"
)

type modelEntry struct {
	model     models.Model
	transport Transport
}

// Registry maintains a mapping of model IDs and aliases to upstream transports.
type Registry struct {
	mu     sync.RWMutex
	models map[string]modelEntry
	byName map[string]Transport
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]modelEntry),
		byName: make(map[string]Transport),
	}
}

// Register adds the transport and the models it serves, wiring optional aliases.
func (r *Registry) Register(t Transport, modelIDs []string, aliases map[string]string) error {
	if t == nil {
		return errors.New("transport must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[t.Name()]; exists {
		return fmt.Errorf("upstream %q already registered", t.Name())
	}
	r.byName[t.Name()] = t

	for _, id := range modelIDs {
		if _, exists := r.models[id]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateModel, id)
		}

		r.models[id] = modelEntry{
			model:     models.Model{ID: id, Provider: t.Name()},
			transport: t,
		}
	}

	for alias, target := range aliases {
		if _, exists := r.models[alias]; exists {
			return fmt.Errorf("alias %q conflicts with existing model", alias)
		}

		targetEntry, ok := r.models[target]
		if !ok {
			return fmt.Errorf("alias %q references unknown model %q", alias, target)
		}

		r.models[alias] = targetEntry
	}

	return nil
}

// LookupModel returns the canonical model and the transport serving it.
func (r *Registry) LookupModel(modelID string) (models.Model, Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.models[modelID]
	if !ok {
		return models.Model{}, nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return entry.model, entry.transport, nil
}
