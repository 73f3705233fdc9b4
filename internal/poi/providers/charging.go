package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Opulux135/driven-backend/internal/geo"
	"github.com/Opulux135/driven-backend/internal/poi"
)

// ChargingProvider fetches EV charging stations. Queries carry country_code,
// plus a bounded lat/lng/radius only when the location came from a device.
type ChargingProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewChargingProvider(client *http.Client, baseURL string) *ChargingProvider {
	return &ChargingProvider{
		name:    "charging",
		baseURL: baseURL,
		httpCfg: newHTTPConfig(client),
		circuit: newCircuitBreaker("charging"),
	}
}

func (p *ChargingProvider) Name() string { return p.name }

func (p *ChargingProvider) Category() poi.Category { return poi.CategoryCharging }

func (p *ChargingProvider) Fetch(ctx context.Context, q poi.Query) poi.ProviderResult {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("country_code", q.CountryCode)

		if q.Location.Source == geo.SourceDevice {
			values.Set("lat", strconv.FormatFloat(q.Location.Latitude, 'f', -1, 64))
			values.Set("lng", strconv.FormatFloat(q.Location.Longitude, 'f', -1, 64))
			radius := q.RadiusKm
			if radius <= 0 {
				radius = 50
			}
			values.Set("radius", strconv.Itoa(radius))
		}

		u := fmt.Sprintf("%s/charging/stations?%s", p.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		authorize(req, q.SessionToken)
		return req, nil
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return result(p.name, poi.CategoryCharging, nil, time.Time{}, err)
	}

	payload, fetchedAt, err := decodeEnvelope(resp, p.name)
	return result(p.name, poi.CategoryCharging, payload, fetchedAt, err)
}
