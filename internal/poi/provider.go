package poi

import (
	"context"

	"github.com/Opulux135/driven-backend/internal/geo"
)

// Query carries everything a provider needs for one fetch. The session token
// is opaque and forwarded verbatim on authenticated upstream calls.
type Query struct {
	CountryCode  string
	CountryName  string
	Location     geo.LocationContext
	RadiusKm     int
	SessionToken string
}

// Provider abstracts one point-of-interest data source. Fetch always returns
// a ProviderResult; failures are carried in the result, not panicked or
// short-circuited.
type Provider interface {
	Name() string
	Category() Category
	Fetch(ctx context.Context, q Query) ProviderResult
}

// Store is the contract the snapshot store must satisfy. Only the
// orchestrator's publish step writes to it.
type Store interface {
	SaveSnapshot(countryCode string, snapshot *AggregationSnapshot)
}
