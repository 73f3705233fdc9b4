package poi

import (
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"

	"github.com/Opulux135/driven-backend/internal/geo"
)

// Normalize maps a provider's raw payload into the common point model.
// It is total for well-formed success payloads: malformed entries are logged
// and skipped individually, never failing the whole category.
func Normalize(cat Category, payload []byte, countryCode string) []PointOfInterest {
	switch cat {
	case CategoryParking:
		return normalizeParking(payload, countryCode)
	case CategoryGas:
		return normalizeGas(payload, countryCode)
	case CategoryCharging:
		return normalizeCharging(payload, countryCode)
	case CategorySpeedCamera:
		return normalizeSpeedCameras(payload, countryCode)
	}
	return []PointOfInterest{}
}

// NormalizeParkingCity normalizes the single-city parking payload shape
// (a flat record sequence) by wrapping it into the all-cities mapping.
func NormalizeParkingCity(city string, payload []byte, countryCode string) []PointOfInterest {
	wrapped := map[string]json.RawMessage{city: payload}
	raw, err := json.Marshal(wrapped)
	if err != nil {
		return []PointOfInterest{}
	}
	return normalizeParking(raw, countryCode)
}

type parkingRecord struct {
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	FreeSpots   any       `json:"free_spots"`
	TotalSpots  any       `json:"total_spots"`
	Status      string    `json:"status"`
	Coordinates []float64 `json:"coordinates"`
}

func normalizeParking(payload []byte, countryCode string) []PointOfInterest {
	var byCity map[string][]json.RawMessage
	if err := json.Unmarshal(payload, &byCity); err != nil {
		log.Printf("normalize: parking payload is not a city mapping: %v", err)
		return []PointOfInterest{}
	}

	cities := make([]string, 0, len(byCity))
	for city := range byCity {
		cities = append(cities, city)
	}
	sort.Strings(cities)

	points := make([]PointOfInterest, 0)
	for _, city := range cities {
		for i, raw := range byCity[city] {
			var rec parkingRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				log.Printf("normalize: skipping parking record %d in %s: %v", i, city, err)
				continue
			}
			if rec.Name == "" {
				log.Printf("normalize: skipping unnamed parking record %d in %s", i, city)
				continue
			}

			coords := coordsFromSlice(rec.Coordinates)
			if coords.IsZero() {
				if c, ok := geo.CityCentroid(city); ok {
					coords = c
				}
			}

			points = append(points, PointOfInterest{
				ID:          fmt.Sprintf("parking:%s:%s", city, rec.Name),
				Category:    CategoryParking,
				Name:        rec.Name,
				Coordinates: coords,
				CountryCode: countryCode,
				RawStatus:   rec.Status,
				Attributes: map[string]any{
					"city":        city,
					"address":     rec.Address,
					"free_spots":  rec.FreeSpots,
					"total_spots": rec.TotalSpots,
				},
			})
		}
	}
	return points
}

type gasRecord struct {
	Country  string `json:"country"`
	Currency string `json:"currency"`
	Gasoline any    `json:"gasoline"`
	Diesel   any    `json:"diesel"`
}

func normalizeGas(payload []byte, countryCode string) []PointOfInterest {
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err != nil {
		log.Printf("normalize: gas payload is not a sequence: %v", err)
		return []PointOfInterest{}
	}

	points := make([]PointOfInterest, 0, len(records))
	for i, raw := range records {
		var rec gasRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			log.Printf("normalize: skipping gas record %d: %v", i, err)
			continue
		}
		if rec.Country == "" {
			log.Printf("normalize: skipping gas record %d without country", i)
			continue
		}

		attrs := map[string]any{
			"country":  rec.Country,
			"currency": rec.Currency,
			"gasoline": rec.Gasoline,
			"diesel":   rec.Diesel,
		}
		// Raw prices stay available for classification; the display form is
		// a fixed-precision decimal.
		if v, ok := asFloat(rec.Gasoline); ok {
			attrs["gasoline_display"] = strconv.FormatFloat(v, 'f', 3, 64)
		}
		if v, ok := asFloat(rec.Diesel); ok {
			attrs["diesel_display"] = strconv.FormatFloat(v, 'f', 3, 64)
		}

		points = append(points, PointOfInterest{
			ID:          "gas:" + rec.Country,
			Category:    CategoryGas,
			Name:        rec.Country,
			CountryCode: countryCode,
			Attributes:  attrs,
		})
	}
	return points
}

type chargingRecord struct {
	ID          any       `json:"id"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Town        string    `json:"town"`
	Country     string    `json:"country"`
	Status      string    `json:"status"`
	Operator    string    `json:"operator"`
	Connections any       `json:"connections"`
	Coordinates []float64 `json:"coordinates"`
}

func normalizeCharging(payload []byte, countryCode string) []PointOfInterest {
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err != nil {
		log.Printf("normalize: charging payload is not a sequence: %v", err)
		return []PointOfInterest{}
	}

	points := make([]PointOfInterest, 0, len(records))
	for i, raw := range records {
		var rec chargingRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			log.Printf("normalize: skipping charging record %d: %v", i, err)
			continue
		}
		if rec.Name == "" {
			log.Printf("normalize: skipping unnamed charging record %d", i)
			continue
		}

		id := stringID(rec.ID)
		if id == "" {
			id = "charging:" + rec.Name
		}

		points = append(points, PointOfInterest{
			ID:          id,
			Category:    CategoryCharging,
			Name:        rec.Name,
			Coordinates: validCoords(rec.Coordinates),
			CountryCode: countryCode,
			RawStatus:   rec.Status,
			Attributes: map[string]any{
				"address":     rec.Address,
				"town":        rec.Town,
				"country":     rec.Country,
				"operator":    rec.Operator,
				"connections": rec.Connections,
			},
		})
	}
	return points
}

func normalizeSpeedCameras(payload []byte, countryCode string) []PointOfInterest {
	var records []map[string]any
	if err := json.Unmarshal(payload, &records); err != nil {
		log.Printf("normalize: speed camera payload is not a sequence: %v", err)
		return []PointOfInterest{}
	}

	points := make([]PointOfInterest, 0, len(records))
	for i, rec := range records {
		name, _ := rec["name"].(string)
		if name == "" {
			name = fmt.Sprintf("Speed camera %d", i+1)
		}

		id := stringID(rec["id"])
		if id == "" {
			id = fmt.Sprintf("camera:%d", i)
		}

		var coords geo.Coordinates
		if cs, ok := rec["coordinates"].([]any); ok && len(cs) == 2 {
			lon, okLon := asFloat(cs[0])
			lat, okLat := asFloat(cs[1])
			if okLon && okLat {
				coords = validCoords([]float64{lon, lat})
			}
		}

		// Pass all remaining fields through unchanged.
		attrs := make(map[string]any, len(rec))
		for k, v := range rec {
			if k == "id" || k == "name" || k == "coordinates" {
				continue
			}
			attrs[k] = v
		}

		points = append(points, PointOfInterest{
			ID:          id,
			Category:    CategorySpeedCamera,
			Name:        name,
			Coordinates: coords,
			CountryCode: countryCode,
			Tier:        TierNone,
			Attributes:  attrs,
		})
	}
	return points
}

func coordsFromSlice(cs []float64) geo.Coordinates {
	if len(cs) != 2 {
		return geo.Coordinates{}
	}
	return validCoords(cs)
}

// validCoords accepts only finite, non-sentinel (lon, lat) pairs.
func validCoords(cs []float64) geo.Coordinates {
	if len(cs) != 2 {
		return geo.Coordinates{}
	}
	lon, lat := cs[0], cs[1]
	if math.IsNaN(lon) || math.IsInf(lon, 0) || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return geo.Coordinates{}
	}
	return geo.Coordinates{lon, lat}
}

// asFloat coerces the loosely-typed numeric fields upstream feeds produce.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func stringID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case json.Number:
		return id.String()
	}
	return ""
}
