package providers

import (
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/bnema/limitwatch/internal/domain"
	"github.com/bnema/limitwatch/internal/ports"
)

// Registry maps provider kinds to their units. Registration happens during
// wiring; lookups run concurrently during fetches.
type Registry struct {
	mu    sync.RWMutex
	units map[domain.ProviderKind]ports.ProviderUnit
}

func NewRegistry() *Registry {
	return &Registry{units: make(map[domain.ProviderKind]ports.ProviderUnit)}
}

// DefaultRegistry wires every supported provider against the given client.
// A nil client falls back to http.DefaultClient per request.
func DefaultRegistry(client *http.Client) *Registry {
	registry := NewRegistry()
	registry.MustRegister(NewOpenAIUnit(client))
	registry.MustRegister(NewOpenRouterUnit(client))
	registry.MustRegister(NewChutesUnit(client))
	registry.MustRegister(NewGoogleUnit(client))
	registry.MustRegister(NewGitHubCopilotUnit(client))
	return registry
}

// Register adds a unit, replacing any previous one for the same kind.
func (r *Registry) Register(unit ports.ProviderUnit) error {
	if unit == nil {
		return fmt.Errorf("%w: nil provider unit", domain.ErrInvalidInput)
	}
	kind := unit.Kind()
	if !kind.Valid() {
		return fmt.Errorf("%w: provider unit has unknown kind %q", domain.ErrInvalidInput, kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.units[kind] = unit

	return nil
}

// MustRegister is Register for static wiring, where a failure is a bug.
func (r *Registry) MustRegister(unit ports.ProviderUnit) {
	if err := r.Register(unit); err != nil {
		panic(err)
	}
}

func (r *Registry) Unit(kind domain.ProviderKind) (ports.ProviderUnit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	unit, ok := r.units[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no provider unit for %q", domain.ErrInvalidInput, kind)
	}

	return unit, nil
}

// Kinds lists the registered provider kinds in stable order.
func (r *Registry) Kinds() []domain.ProviderKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]domain.ProviderKind, 0, len(r.units))
	for kind := range r.units {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)

	return kinds
}

var _ ports.UnitRegistry = (*Registry)(nil)
