package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Opulux135/driven-backend/internal/poi"
)

// GasProvider fetches per-country fuel prices. The feed is queried by
// country name and returns a flat sequence of price records.
type GasProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewGasProvider(client *http.Client, baseURL string) *GasProvider {
	return &GasProvider{
		name:    "gas",
		baseURL: baseURL,
		httpCfg: newHTTPConfig(client),
		circuit: newCircuitBreaker("gas"),
	}
}

func (p *GasProvider) Name() string { return p.name }

func (p *GasProvider) Category() poi.Category { return poi.CategoryGas }

func (p *GasProvider) Fetch(ctx context.Context, q poi.Query) poi.ProviderResult {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("country", q.CountryName)

		u := fmt.Sprintf("%s/gas/prices?%s", p.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		authorize(req, q.SessionToken)
		return req, nil
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return result(p.name, poi.CategoryGas, nil, time.Time{}, err)
	}

	payload, fetchedAt, err := decodeEnvelope(resp, p.name)
	return result(p.name, poi.CategoryGas, payload, fetchedAt, err)
}
