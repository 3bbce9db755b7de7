package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"fintrack/internal/core"
)

const exchangeRateHostBaseURL = "https://api.exchangerate.host"

// ExchangeRateHost fetches rates from exchangerate.host by converting a
// unit amount (GET /convert?from=X&to=Y&amount=1).
type ExchangeRateHost struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

type exchangeRateHostConvertResponse struct {
	Success bool    `json:"success"`
	Result  float64 `json:"result"`
}

func NewExchangeRateHost(client *http.Client, baseURL string, limiter *rate.Limiter) *ExchangeRateHost {
	if client == nil {
		client = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = exchangeRateHostBaseURL
	}
	if limiter == nil {
		limiter = defaultLimiter()
	}
	return &ExchangeRateHost{client: client, baseURL: baseURL, limiter: limiter}
}

func (e *ExchangeRateHost) ID() string          { return "exchange_rate_host" }
func (e *ExchangeRateHost) DisplayName() string { return "ExchangeRate.host" }

func (e *ExchangeRateHost) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if err := e.limiter.Wait(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/convert?from=%s&to=%s&amount=1",
		e.baseURL, url.QueryEscape(from), url.QueryEscape(to))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch conversion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("exchangerate.host returned status %d", resp.StatusCode)
	}

	var payload exchangeRateHostConvertResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("decode response: %w", err)
	}

	if !payload.Success {
		return decimal.Zero, fmt.Errorf("exchangerate.host reported failure")
	}
	if payload.Result == 0 {
		return decimal.Zero, fmt.Errorf("rate for %s: %w", to, core.ErrNoRate)
	}
	return decimal.NewFromFloat(payload.Result), nil
}

// defaultLimiter paces calls to the public APIs: small steady rate with a
// short burst, shared policy across providers.
func defaultLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(200*time.Millisecond), 5)
}
