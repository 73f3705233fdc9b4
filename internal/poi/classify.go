package poi

import (
	"github.com/Opulux135/driven-backend/internal/common"
)

// Thresholds hold the product-chosen classification constants. They are
// user-visible behavior; change them only deliberately.
type Thresholds struct {
	// Parking free/total ratios, compared with strict >.
	ParkingAvailableRatio float64
	ParkingLimitedRatio   float64

	// Gas price bands per fuel type, in the provider's native currency unit.
	// Low is inclusive <=, High is inclusive >=.
	GasolineLow  float64
	GasolineHigh float64
	DieselLow    float64
	DieselHigh   float64
}

// DefaultThresholds returns the original product constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ParkingAvailableRatio: 0.20,
		ParkingLimitedRatio:   0.05,
		GasolineLow:           1.4,
		GasolineHigh:          1.7,
		DieselLow:             1.3,
		DieselHigh:            1.6,
	}
}

// Classifier derives presentation tiers from raw provider fields. It is pure
// and deterministic: identical input always yields the identical tier.
type Classifier struct {
	t Thresholds
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(t Thresholds) *Classifier {
	return &Classifier{t: t}
}

// Classify returns the tier for a normalized point. Gas points carry two
// prices; the point tier reflects gasoline and the diesel tier is recorded
// under the "diesel_tier" attribute.
func (c *Classifier) Classify(p PointOfInterest) Tier {
	switch p.Category {
	case CategoryParking:
		return c.classifyParking(p)
	case CategoryGas:
		return c.classifyGas(p)
	case CategoryCharging:
		return c.classifyCharging(p.RawStatus)
	case CategorySpeedCamera:
		return TierNone
	}
	return TierUnknown
}

func (c *Classifier) classifyParking(p PointOfInterest) Tier {
	free, okFree := asFloat(p.Attributes["free_spots"])
	total, okTotal := asFloat(p.Attributes["total_spots"])
	if !okFree || !okTotal || total == 0 {
		return TierUnknown
	}

	ratio := free / total
	switch {
	case ratio > c.t.ParkingAvailableRatio:
		return TierAvailable
	case ratio > c.t.ParkingLimitedRatio:
		return TierLimited
	default:
		return TierFull
	}
}

// Annotate stamps the point's tier and, for gas points, records the diesel
// band under the "diesel_tier" attribute.
func (c *Classifier) Annotate(p *PointOfInterest) {
	p.Tier = c.Classify(*p)
	if p.Category == CategoryGas && p.Attributes != nil {
		if diesel, ok := asFloat(p.Attributes["diesel"]); ok {
			p.Attributes["diesel_tier"] = string(c.PriceTier("diesel", diesel))
		}
	}
}

func (c *Classifier) classifyGas(p PointOfInterest) Tier {
	gasoline, ok := asFloat(p.Attributes["gasoline"])
	if !ok {
		return TierUnknown
	}
	return c.PriceTier("gasoline", gasoline)
}

// PriceTier bands a single fuel price. Unknown fuel types use the gasoline
// thresholds, matching the upstream presentation rules.
func (c *Classifier) PriceTier(fuel string, price float64) Tier {
	low, high := c.t.GasolineLow, c.t.GasolineHigh
	if fuel == "diesel" {
		low, high = c.t.DieselLow, c.t.DieselHigh
	}

	switch {
	case price <= low:
		return TierLow
	case price >= high:
		return TierHigh
	default:
		return TierModerate
	}
}

// classifyCharging maps the provider's status string onto the closed tier
// set. Unrecognized strings map to unknown, never passing through raw.
func (c *Classifier) classifyCharging(status string) Tier {
	switch {
	case status == "":
		return TierUnknown
	case common.ContainsFold(status, "out of service"):
		return TierOutOfService
	case common.ContainsFold(status, "in use"):
		return TierInUse
	case common.ContainsFold(status, "operational", "available"):
		return TierOperational
	default:
		return TierUnknown
	}
}
