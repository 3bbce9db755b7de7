package rates

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

const (
	rateCacheTTL     = 5 * time.Minute
	rateCacheCleanup = 10 * time.Minute
)

// Converter multiplies amounts by provider unit rates. Rates are cached for
// a short window per provider and currency pair so repeated conversions do
// not hammer the public APIs.
type Converter struct {
	registry *Registry
	cache    *gocache.Cache
}

func NewConverter(registry *Registry) *Converter {
	return &Converter{
		registry: registry,
		cache:    gocache.New(rateCacheTTL, rateCacheCleanup),
	}
}

// Convert resolves the provider (falling back to the default for unknown
// ids), fetches the unit rate and returns rate * amount. Same-currency
// conversions short-circuit to rate 1 without consulting any provider.
func (c *Converter) Convert(ctx context.Context, providerID, from, to string, amount decimal.Decimal) (decimal.Decimal, error) {
	if strings.EqualFold(from, to) {
		return amount, nil
	}

	provider, err := c.registry.Lookup(ctx, providerID)
	if err != nil {
		return decimal.Zero, err
	}

	rate, err := c.lookupRate(ctx, provider, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("provider %s: %w", provider.ID(), err)
	}

	return amount.Mul(rate), nil
}

func (c *Converter) lookupRate(ctx context.Context, provider Provider, from, to string) (decimal.Decimal, error) {
	key := cacheKey(provider.ID(), from, to)
	if cached, ok := c.cache.Get(key); ok {
		return cached.(decimal.Decimal), nil
	}

	rate, err := provider.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	c.cache.SetDefault(key, rate)
	slog.DebugContext(ctx, "Fetched exchange rate",
		"provider", provider.ID(), "from", from, "to", to, "rate", rate.String())
	return rate, nil
}

// Providers exposes the registry listing for selection UIs.
func (c *Converter) Providers() []ProviderInfo {
	return c.registry.Providers()
}

func cacheKey(providerID, from, to string) string {
	return providerID + "/" + strings.ToUpper(from) + "/" + strings.ToUpper(to)
}
