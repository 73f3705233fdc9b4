package geo

import (
	"context"
	"log"
	"time"
)

// Source tells callers where a resolved location came from. Device-sourced
// locations justify bounded-radius provider queries; country defaults do not.
type Source string

const (
	SourceDevice         Source = "device"
	SourceCountryDefault Source = "country_default"
)

// LocationContext is the resolved query location for one aggregation cycle.
type LocationContext struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Source      Source  `json:"source"`
	CountryCode string  `json:"countryCode"`
}

// DeviceLocator yields a one-shot device-reported position. Implementations
// should honor context cancellation but the resolver bounds the wait anyway.
type DeviceLocator interface {
	Locate(ctx context.Context) (lat, lng float64, err error)
}

// StaticLocator reports a fixed position, e.g. coordinates the client sent
// along with the request.
type StaticLocator struct {
	Lat, Lng float64
}

func (s StaticLocator) Locate(ctx context.Context) (float64, float64, error) {
	return s.Lat, s.Lng, nil
}

// Resolver determines the query coordinate for an aggregation cycle.
type Resolver struct {
	registry *Registry
	wait     time.Duration
}

// NewResolver creates a Resolver. wait bounds how long a device position
// request may take before the country centroid is used instead.
func NewResolver(registry *Registry, wait time.Duration) *Resolver {
	if wait <= 0 {
		wait = 3 * time.Second
	}
	return &Resolver{registry: registry, wait: wait}
}

// Resolve returns the location to query for: the device-reported position if
// locator delivers one within the bounded wait, else the country centroid.
// Resolve never fails; a timeout is the expected fallback path, not an error.
func (r *Resolver) Resolve(ctx context.Context, countryCode string, locator DeviceLocator) LocationContext {
	if locator != nil {
		wctx, cancel := context.WithTimeout(ctx, r.wait)
		defer cancel()

		type position struct {
			lat, lng float64
			err      error
		}
		ch := make(chan position, 1)
		go func() {
			lat, lng, err := locator.Locate(wctx)
			ch <- position{lat, lng, err}
		}()

		select {
		case p := <-ch:
			if p.err == nil {
				return LocationContext{
					Latitude:    p.lat,
					Longitude:   p.lng,
					Source:      SourceDevice,
					CountryCode: countryCode,
				}
			}
			log.Printf("geo: device location unavailable: %v", p.err)
		case <-wctx.Done():
			log.Printf("geo: device location wait expired for %s", countryCode)
		}
	}

	c := r.registry.Centroid(countryCode)
	return LocationContext{
		Latitude:    c.Lat(),
		Longitude:   c.Lon(),
		Source:      SourceCountryDefault,
		CountryCode: countryCode,
	}
}
