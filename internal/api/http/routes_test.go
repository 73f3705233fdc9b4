package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/Opulux135/driven-backend/internal/geo"
	"github.com/Opulux135/driven-backend/internal/poi"
	"github.com/Opulux135/driven-backend/internal/poi/providers"
	"github.com/Opulux135/driven-backend/internal/store"
)

func testDeps(upstreamURL string) Deps {
	client := &http.Client{Timeout: 5 * time.Second}

	registry := geo.NewRegistry("")
	resolver := geo.NewResolver(registry, 100*time.Millisecond)
	classifier := poi.NewClassifier(poi.DefaultThresholds())
	memStore := store.NewMemoryStore(10, time.Hour)

	parking := providers.NewParkingProvider(client, upstreamURL)
	provs := []poi.Provider{
		parking,
		providers.NewGasProvider(client, upstreamURL),
		providers.NewChargingProvider(client, upstreamURL),
		providers.NewSpeedCameraProvider(client, upstreamURL),
	}
	byCategory := make(map[poi.Category]poi.Provider, len(provs))
	for _, p := range provs {
		byCategory[p.Category()] = p
	}

	return Deps{
		Orchestrator: poi.NewOrchestrator(provs, classifier, memStore, 2*time.Second),
		Store:        memStore,
		Resolver:     resolver,
		Registry:     registry,
		Classifier:   classifier,
		Parking:      parking,
		Providers:    byCategory,
	}
}

// TestMapDataValidation verifies the query parameter contract of the map
// endpoint.
func TestMapDataValidation(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app, testDeps("http://127.0.0.1:0"))

	// lat without lng should return 400.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/map/data?lat=52.5", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// Unknown category should also return 400.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/map/data?categories=boats", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}

	// Out-of-range radius should return 400.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/map/data?radius=9000", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestSnapshotNotFound(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app, testDeps("http://127.0.0.1:0"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/map/snapshot?country=France", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestHistoryValidation(t *testing.T) {
	app := fiber.New()
	RegisterRoutes(app, testDeps("http://127.0.0.1:0"))

	// Missing from/to parameters should return 400.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/map/history?country=Germany", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestMapDataAggregatesUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var data any
		switch r.URL.Path {
		case "/parking/all":
			data = map[string]any{"Berlin": []any{map[string]any{"name": "P1", "free_spots": 50, "total_spots": 100}}}
		case "/gas/prices":
			data = []any{map[string]any{"country": "Germany", "currency": "EUR", "gasoline": 1.5, "diesel": 1.4}}
		case "/charging/stations":
			data = []any{map[string]any{"id": 1, "name": "Station", "status": "Operational", "coordinates": []any{13.4, 52.5}}}
		case "/speed-cameras":
			data = []any{map[string]any{"id": "cam-1", "name": "A100", "coordinates": []any{13.3, 52.5}}}
		default:
			t.Errorf("unexpected upstream path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": data, "timestamp": 1700000000})
	}))
	defer upstream.Close()

	app := fiber.New()
	RegisterRoutes(app, testDeps(upstream.URL))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/map/data?country=Germany&lat=52.52&lng=13.405", nil)
	resp, err := app.Test(req, 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var payload struct {
		Success bool                  `json:"success"`
		Points  []poi.PointOfInterest `json:"points"`
		Count   int                   `json:"count"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !payload.Success {
		t.Fatal("expected success response")
	}
	// Gas has no coordinates in this feed, so three points project.
	if payload.Count != 3 {
		t.Fatalf("expected 3 projected points, got %d", payload.Count)
	}
	if payload.Points[0].Category != poi.CategoryParking {
		t.Fatalf("expected parking first, got %s", payload.Points[0].Category)
	}
}

func TestGasPassthroughEndpoint(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":   true,
			"data":      []any{map[string]any{"country": "Germany", "currency": "EUR", "gasoline": 1.5, "diesel": 1.4}},
			"timestamp": 1700000000,
		})
	}))
	defer upstream.Close()

	app := fiber.New()
	RegisterRoutes(app, testDeps(upstream.URL))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/gas/prices?country=Germany", nil)
	resp, err := app.Test(req, 10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	var payload struct {
		Success   bool                  `json:"success"`
		Data      []poi.PointOfInterest `json:"data"`
		Timestamp int64                 `json:"timestamp"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if !payload.Success || len(payload.Data) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Data[0].Tier != poi.TierModerate {
		t.Fatalf("expected moderate gasoline tier, got %s", payload.Data[0].Tier)
	}
	if payload.Timestamp != 1700000000 {
		t.Fatalf("expected envelope timestamp, got %d", payload.Timestamp)
	}
}
