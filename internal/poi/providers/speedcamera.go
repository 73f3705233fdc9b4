package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Opulux135/driven-backend/internal/poi"
)

// SpeedCameraProvider fetches speed camera locations near the resolved
// query position.
type SpeedCameraProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewSpeedCameraProvider(client *http.Client, baseURL string) *SpeedCameraProvider {
	return &SpeedCameraProvider{
		name:    "speed-cameras",
		baseURL: baseURL,
		httpCfg: newHTTPConfig(client),
		circuit: newCircuitBreaker("speed-cameras"),
	}
}

func (p *SpeedCameraProvider) Name() string { return p.name }

func (p *SpeedCameraProvider) Category() poi.Category { return poi.CategorySpeedCamera }

func (p *SpeedCameraProvider) Fetch(ctx context.Context, q poi.Query) poi.ProviderResult {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("country", q.CountryName)
		values.Set("lat", strconv.FormatFloat(q.Location.Latitude, 'f', -1, 64))
		values.Set("lng", strconv.FormatFloat(q.Location.Longitude, 'f', -1, 64))

		u := fmt.Sprintf("%s/speed-cameras?%s", p.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		authorize(req, q.SessionToken)
		return req, nil
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return result(p.name, poi.CategorySpeedCamera, nil, time.Time{}, err)
	}

	payload, fetchedAt, err := decodeEnvelope(resp, p.name)
	return result(p.name, poi.CategorySpeedCamera, payload, fetchedAt, err)
}
