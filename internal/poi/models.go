package poi

import (
	"fmt"
	"time"

	"github.com/Opulux135/driven-backend/internal/geo"
)

// Category identifies one of the point-of-interest data sources.
type Category string

const (
	CategoryParking     Category = "parking"
	CategoryGas         Category = "gas"
	CategoryCharging    Category = "charging"
	CategorySpeedCamera Category = "speed_cameras"
)

// AllCategories returns every category in the fixed presentation order.
func AllCategories() []Category {
	return []Category{CategoryParking, CategoryGas, CategoryCharging, CategorySpeedCamera}
}

// ParseCategory maps a query-string value to a Category.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryParking, CategoryGas, CategoryCharging, CategorySpeedCamera:
		return Category(s), true
	}
	return "", false
}

// Tier is the small closed set of presentation statuses derived from raw
// provider data. Color mapping is left to the rendering layer.
type Tier string

const (
	// Parking availability.
	TierAvailable Tier = "available"
	TierLimited   Tier = "limited"
	TierFull      Tier = "full"

	// Gas price bands.
	TierLow      Tier = "low"
	TierModerate Tier = "moderate"
	TierHigh     Tier = "high"

	// Charging station status.
	TierOperational  Tier = "operational"
	TierInUse        Tier = "in_use"
	TierOutOfService Tier = "out_of_service"

	// TierUnknown covers non-numeric or unrecognized raw values.
	TierUnknown Tier = "unknown"

	// TierNone marks categories that carry no status data (speed cameras).
	TierNone Tier = "none"
)

// PointOfInterest is the normalized representation of any discoverable item.
// Coordinates are always (longitude, latitude); the (0,0) sentinel marks
// unresolved positions, which spatial projections exclude.
type PointOfInterest struct {
	ID          string          `json:"id"`
	Category    Category        `json:"category"`
	Name        string          `json:"name"`
	Coordinates geo.Coordinates `json:"coordinates"`
	CountryCode string          `json:"countryCode"`
	RawStatus   string          `json:"rawStatus,omitempty"`
	Tier        Tier            `json:"tier"`
	Attributes  map[string]any  `json:"attributes,omitempty"`
}

// HasCoordinates reports whether the point has a resolved position.
func (p PointOfInterest) HasCoordinates() bool {
	return !p.Coordinates.IsZero()
}

// ProviderResult is the outcome of a single fetch attempt. It is created
// once, never mutated, and consumed exactly once by normalization.
type ProviderResult struct {
	Provider  string
	Category  Category
	Succeeded bool
	Payload   []byte
	Err       error
	FetchedAt time.Time
}

// ErrorKind classifies category-level failures carried in a snapshot.
type ErrorKind string

const (
	ErrorKindTransport ErrorKind = "transport"
	ErrorKindProvider  ErrorKind = "provider"
)

// CategoryError is a category-level failure surfaced to callers as data.
type CategoryError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *CategoryError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// ProviderFailureError means transport succeeded but the upstream envelope
// reported failure. It is a provider failure, never a partial success.
type ProviderFailureError struct {
	Provider string
	Message  string
}

func (e *ProviderFailureError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider %s reported failure", e.Provider)
	}
	return fmt.Sprintf("provider %s: %s", e.Provider, e.Message)
}

// AggregationSnapshot is the immutable result of one aggregation cycle.
// A new cycle always produces a new snapshot; snapshots are never merged.
type AggregationSnapshot struct {
	CycleID     string                      `json:"cycleId"`
	Location    geo.LocationContext         `json:"location"`
	PerCategory map[Category][]PointOfInterest `json:"perCategory"`
	Errors      map[Category]*CategoryError `json:"errors,omitempty"`
	FetchedAt   time.Time                   `json:"fetchedAt"`

	cycle uint64
}

// Points returns the snapshot's points for one category. Failed categories
// yield an empty, non-nil slice.
func (s *AggregationSnapshot) Points(cat Category) []PointOfInterest {
	return s.PerCategory[cat]
}
