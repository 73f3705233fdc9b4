package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Opulux135/driven-backend/internal/poi"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// newHTTPConfig applies the shared retry policy all providers use.
func newHTTPConfig(client *http.Client) HTTPClientConfig {
	return HTTPClientConfig{
		Client: client,
		Backoff: BackoffConfig{
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
}

// newCircuitBreaker builds the per-provider breaker with shared settings.
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// doRequest executes the HTTP request with retries, exponential backoff, and
// a circuit breaker. Rate limiting and 5xx responses are retried; the
// circuit opening propagates immediately.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, errServerError
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
			}

			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if attempt >= cfg.Backoff.MaxRetries {
			return nil, lastErr
		}

		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

// envelope is the shared upstream response shape.
type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	Error     string          `json:"error"`
}

// decodeEnvelope reads and validates the upstream envelope. A decodable body
// whose success flag is false is a provider failure, never a partial
// success.
func decodeEnvelope(resp *http.Response, provider string) (json.RawMessage, time.Time, error) {
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, time.Time{}, fmt.Errorf("decoding %s response: %w", provider, err)
	}

	if !env.Success {
		return nil, time.Time{}, &poi.ProviderFailureError{Provider: provider, Message: env.Error}
	}

	fetchedAt := time.Now().UTC()
	if env.Timestamp > 0 {
		fetchedAt = time.Unix(env.Timestamp, 0).UTC()
	}
	return env.Data, fetchedAt, nil
}

// authorize forwards the opaque session token on authenticated calls.
func authorize(req *http.Request, sessionToken string) {
	if sessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+sessionToken)
	}
}

// result packs a settled fetch attempt into a ProviderResult.
func result(name string, cat poi.Category, payload json.RawMessage, fetchedAt time.Time, err error) poi.ProviderResult {
	if err != nil {
		return poi.ProviderResult{
			Provider:  name,
			Category:  cat,
			Succeeded: false,
			Err:       err,
			FetchedAt: time.Now().UTC(),
		}
	}
	return poi.ProviderResult{
		Provider:  name,
		Category:  cat,
		Succeeded: true,
		Payload:   payload,
		FetchedAt: fetchedAt,
	}
}
