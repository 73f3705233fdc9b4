package geo

import (
	"log"
	"sync"

	"github.com/kelvins/geocoder"
)

// Coordinates are stored as [longitude, latitude] everywhere in this service.
type Coordinates [2]float64

// Lon returns the longitude component.
func (c Coordinates) Lon() float64 { return c[0] }

// Lat returns the latitude component.
func (c Coordinates) Lat() float64 { return c[1] }

// IsZero reports whether the coordinates are the (0,0) sentinel.
func (c Coordinates) IsZero() bool { return c[0] == 0 && c[1] == 0 }

// DefaultCentroid is the fallback map center (Berlin).
var DefaultCentroid = Coordinates{13.4050, 52.5200}

// countryCodes maps supported country names to ISO 3166-1 alpha-2 codes.
var countryCodes = map[string]string{
	"Germany":        "DE",
	"France":         "FR",
	"Italy":          "IT",
	"Spain":          "ES",
	"Netherlands":    "NL",
	"Belgium":        "BE",
	"Switzerland":    "CH",
	"Austria":        "AT",
	"Denmark":        "DK",
	"Sweden":         "SE",
	"Norway":         "NO",
	"Finland":        "FI",
	"Poland":         "PL",
	"Czech Republic": "CZ",
	"Hungary":        "HU",
	"Portugal":       "PT",
	"Greece":         "GR",
}

// countryCentroids maps country codes to a representative centroid
// (capital city), used when no device position is available.
var countryCentroids = map[string]Coordinates{
	"DE": {13.4050, 52.5200},
	"FR": {2.3522, 48.8566},
	"IT": {12.4964, 41.9028},
	"ES": {-3.7038, 40.4168},
	"NL": {4.9041, 52.3676},
	"BE": {4.3517, 50.8503},
	"CH": {7.4474, 46.9480},
	"AT": {16.3738, 48.2082},
	"DK": {12.5683, 55.6761},
	"SE": {18.0686, 59.3293},
	"NO": {10.7522, 59.9139},
	"FI": {24.9384, 60.1699},
	"PL": {21.0122, 52.2297},
	"CZ": {14.4378, 50.0755},
	"HU": {19.0402, 47.4979},
	"PT": {-9.1393, 38.7223},
	"GR": {23.7275, 37.9838},
}

// cityCentroids covers the cities the parking feed reports without explicit
// coordinates.
var cityCentroids = map[string]Coordinates{
	"Basel":    {7.5886, 47.5596},
	"Zurich":   {8.5417, 47.3769},
	"Freiburg": {7.8421, 47.9990},
	"Hamburg":  {9.9937, 53.5511},
	"Dresden":  {13.7373, 51.0504},
	"Berlin":   {13.4050, 52.5200},
	"Munich":   {11.5820, 48.1351},
}

// Registry resolves country names, codes and fallback centroids.
// With a Google API key configured it geocodes countries missing from the
// static tables; otherwise unknown countries resolve to DefaultCentroid.
type Registry struct {
	geocoderKey string

	mu     sync.Mutex
	geoHit map[string]Coordinates // geocoder results, cached per country name
}

// NewRegistry creates a Registry. geocoderAPIKey may be empty, in which case
// geocoding is disabled and only the static tables are consulted.
func NewRegistry(geocoderAPIKey string) *Registry {
	if geocoderAPIKey != "" {
		geocoder.ApiKey = geocoderAPIKey
	}
	return &Registry{
		geocoderKey: geocoderAPIKey,
		geoHit:      make(map[string]Coordinates),
	}
}

// CountryCode maps a country name to its ISO code, defaulting to DE.
func (r *Registry) CountryCode(name string) string {
	if code, ok := countryCodes[name]; ok {
		return code
	}
	return "DE"
}

// CountryName maps an ISO code back to the country name used by the gas and
// speed-camera feeds. Falls back to the code itself.
func (r *Registry) CountryName(code string) string {
	for name, c := range countryCodes {
		if c == code {
			return name
		}
	}
	return code
}

// KnownCountries lists the country names the registry covers.
func (r *Registry) KnownCountries() []string {
	names := make([]string, 0, len(countryCodes))
	for name := range countryCodes {
		names = append(names, name)
	}
	return names
}

// Centroid returns the fallback centroid for a country code. It never fails:
// unknown codes are geocoded when possible, else DefaultCentroid is used.
func (r *Registry) Centroid(countryCode string) Coordinates {
	if c, ok := countryCentroids[countryCode]; ok {
		return c
	}
	if r.geocoderKey != "" {
		if c, ok := r.geocodeCountry(r.CountryName(countryCode)); ok {
			return c
		}
	}
	return DefaultCentroid
}

// CityCentroid returns the centroid for a parking city, if known.
func CityCentroid(city string) (Coordinates, bool) {
	c, ok := cityCentroids[city]
	return c, ok
}

func (r *Registry) geocodeCountry(name string) (Coordinates, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.geoHit[name]; ok {
		return c, true
	}

	loc, err := geocoder.Geocoding(geocoder.Address{Country: name})
	if err != nil {
		log.Printf("geo: geocoding %q failed: %v", name, err)
		return Coordinates{}, false
	}

	c := Coordinates{loc.Longitude, loc.Latitude}
	r.geoHit[name] = c
	return c, true
}
