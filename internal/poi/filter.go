package poi

// Project returns the visible subset of a snapshot: the enabled categories
// concatenated in the fixed order parking, gas, charging, speed cameras.
// Points without resolved coordinates stay out of the spatial projection.
// Pure function; an empty enabled set yields an empty sequence.
func Project(snapshot *AggregationSnapshot, enabled map[Category]bool) []PointOfInterest {
	points := make([]PointOfInterest, 0)
	if snapshot == nil {
		return points
	}

	for _, cat := range AllCategories() {
		if !enabled[cat] {
			continue
		}
		for _, p := range snapshot.PerCategory[cat] {
			if !p.HasCoordinates() {
				continue
			}
			points = append(points, p)
		}
	}
	return points
}

// EnabledSet builds the enabled-category set from a list, defaulting to all
// categories when the list is nil.
func EnabledSet(cats []Category) map[Category]bool {
	enabled := make(map[Category]bool, len(cats))
	if cats == nil {
		for _, c := range AllCategories() {
			enabled[c] = true
		}
		return enabled
	}
	for _, c := range cats {
		enabled[c] = true
	}
	return enabled
}
