// Package rates converts amounts between currencies through interchangeable
// exchange-rate providers selected by a stable identifier.
package rates

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// Provider is a single exchange-rate source. Rate returns the unit rate
// from one currency to another.
type Provider interface {
	ID() string
	DisplayName() string
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// ProviderInfo is the (id, label) pair shown in selection UIs.
type ProviderInfo struct {
	ID          string
	DisplayName string
}

// Registry holds providers in registration order. The first registered
// provider is the default, and unknown ids fall back to it.
type Registry struct {
	providers []Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.providers = append(r.providers, p)
}

// Lookup resolves a provider by id. An unknown id resolves to the first
// registered provider; only an empty registry fails.
func (r *Registry) Lookup(ctx context.Context, id string) (Provider, error) {
	if len(r.providers) == 0 {
		return nil, core.ErrProviderNotFound
	}
	for _, p := range r.providers {
		if p.ID() == id {
			return p, nil
		}
	}
	slog.WarnContext(ctx, "Unknown rate provider, falling back to default",
		"requested", id, "fallback", r.providers[0].ID())
	return r.providers[0], nil
}

// Providers lists (id, label) pairs in registration order.
func (r *Registry) Providers() []ProviderInfo {
	infos := make([]ProviderInfo, len(r.providers))
	for i, p := range r.providers {
		infos[i] = ProviderInfo{ID: p.ID(), DisplayName: p.DisplayName()}
	}
	return infos
}

// Default returns the first registered provider.
func (r *Registry) Default() (Provider, error) {
	if len(r.providers) == 0 {
		return nil, fmt.Errorf("registry default: %w", core.ErrProviderNotFound)
	}
	return r.providers[0], nil
}
