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

// ParkingProvider fetches city parking availability. The all-cities endpoint
// takes no query parameters; the payload is a city-keyed location mapping.
type ParkingProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewParkingProvider(client *http.Client, baseURL string) *ParkingProvider {
	return &ParkingProvider{
		name:    "parking",
		baseURL: baseURL,
		httpCfg: newHTTPConfig(client),
		circuit: newCircuitBreaker("parking"),
	}
}

func (p *ParkingProvider) Name() string { return p.name }

func (p *ParkingProvider) Category() poi.Category { return poi.CategoryParking }

func (p *ParkingProvider) Fetch(ctx context.Context, q poi.Query) poi.ProviderResult {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, p.baseURL+"/parking/all", nil)
		if err != nil {
			return nil, err
		}
		authorize(req, q.SessionToken)
		return req, nil
	}

	payload, fetchedAt, err := p.fetch(ctx, buildRequest)
	return result(p.name, poi.CategoryParking, payload, fetchedAt, err)
}

// FetchCity fetches the single-city endpoint, whose payload is a flat record
// sequence instead of the city mapping.
func (p *ParkingProvider) FetchCity(ctx context.Context, city, sessionToken string) poi.ProviderResult {
	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s/parking/%s", p.baseURL, url.PathEscape(city))
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		authorize(req, sessionToken)
		return req, nil
	}

	payload, fetchedAt, err := p.fetch(ctx, buildRequest)
	return result(p.name, poi.CategoryParking, payload, fetchedAt, err)
}

func (p *ParkingProvider) fetch(ctx context.Context, buildRequest func() (*http.Request, error)) ([]byte, time.Time, error) {
	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, time.Time{}, err
	}
	return decodeEnvelope(resp, p.name)
}
