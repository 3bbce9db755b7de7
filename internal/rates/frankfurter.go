package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"fintrack/internal/core"
)

const frankfurterBaseURL = "https://api.frankfurter.dev/v1"

// Frankfurter fetches rates from the free frankfurter.dev API
// (GET /latest?base=X&symbols=Y).
type Frankfurter struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

type frankfurterLatestResponse struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

func NewFrankfurter(client *http.Client, baseURL string, limiter *rate.Limiter) *Frankfurter {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = frankfurterBaseURL
	}
	if limiter == nil {
		limiter = defaultLimiter()
	}
	return &Frankfurter{client: client, baseURL: baseURL, limiter: limiter}
}

func (f *Frankfurter) ID() string          { return "frankfurter" }
func (f *Frankfurter) DisplayName() string { return "Frankfurter.dev" }

func (f *Frankfurter) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if err := f.limiter.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/latest?base=%s&symbols=%s",
		f.baseURL, url.QueryEscape(from), url.QueryEscape(to))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch latest rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("frankfurter returned status %d", resp.StatusCode)
	}

	var payload frankfurterLatestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("decode response: %w", err)
	}

	value, ok := payload.Rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("rate for %s: %w", to, core.ErrNoRate)
	}
	return decimal.NewFromFloat(value), nil
}
