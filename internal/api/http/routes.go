package httpapi

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/Opulux135/driven-backend/internal/geo"
	"github.com/Opulux135/driven-backend/internal/poi"
	"github.com/Opulux135/driven-backend/internal/poi/providers"
	"github.com/Opulux135/driven-backend/internal/store"
)

var validate = validator.New()

// Deps bundles everything the HTTP handlers need.
type Deps struct {
	Orchestrator *poi.Orchestrator
	Store        *store.MemoryStore
	Resolver     *geo.Resolver
	Registry     *geo.Registry
	Classifier   *poi.Classifier
	Parking      *providers.ParkingProvider
	Providers    map[poi.Category]poi.Provider
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	v1 := app.Group("/api/v1")

	// Combined map endpoint: one full aggregation cycle, filtered by the
	// enabled categories.
	v1.Get("/map/data", func(c *fiber.Ctx) error {
		q, err := parseMapQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		code := deps.Registry.CountryCode(q.Country)
		loc := deps.Resolver.Resolve(c.UserContext(), code, q.locator())

		snapshot := deps.Orchestrator.Aggregate(c.UserContext(), poi.AggregateRequest{
			CountryCode:  code,
			CountryName:  q.Country,
			Location:     loc,
			Categories:   q.Categories,
			RadiusKm:     q.Radius,
			SessionToken: sessionToken(c),
		})

		points := poi.Project(snapshot, poi.EnabledSet(q.Categories))
		return c.JSON(fiber.Map{
			"success":   true,
			"cycleId":   snapshot.CycleID,
			"location":  snapshot.Location,
			"points":    points,
			"count":     len(points),
			"errors":    snapshot.Errors,
			"timestamp": snapshot.FetchedAt.Unix(),
		})
	})

	// Latest published snapshot for a country, without refetching.
	v1.Get("/map/snapshot", func(c *fiber.Ctx) error {
		country := c.Query("country", "Germany")
		code := deps.Registry.CountryCode(country)

		snapshot, err := deps.Store.GetLatest(code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no snapshot for requested country")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load snapshot")
		}
		return c.JSON(snapshot)
	})

	// Snapshot history for a country.
	v1.Get("/map/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		code := deps.Registry.CountryCode(req.Country)
		snapshots, err := deps.Store.GetRange(code, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no snapshot history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to load snapshot history")
		}

		return c.JSON(fiber.Map{
			"country":   req.Country,
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})

	// Per-category passthrough endpoints, mirroring the upstream surface.
	v1.Get("/parking/all", func(c *fiber.Ctx) error {
		return deps.categoryResponse(c, poi.CategoryParking)
	})

	v1.Get("/parking/:city", func(c *fiber.Ctx) error {
		city := c.Params("city")
		res := deps.Parking.FetchCity(c.UserContext(), city, sessionToken(c))
		if !res.Succeeded {
			return providerErrorResponse(c, res.Err)
		}

		code := deps.Registry.CountryCode(c.Query("country", "Germany"))
		points := poi.NormalizeParkingCity(city, res.Payload, code)
		for i := range points {
			deps.Classifier.Annotate(&points[i])
		}
		return c.JSON(fiber.Map{
			"success":   true,
			"data":      points,
			"timestamp": res.FetchedAt.Unix(),
		})
	})

	v1.Get("/gas/prices", func(c *fiber.Ctx) error {
		return deps.categoryResponse(c, poi.CategoryGas)
	})

	v1.Get("/charging/stations", func(c *fiber.Ctx) error {
		return deps.categoryResponse(c, poi.CategoryCharging)
	})

	v1.Get("/speed-cameras", func(c *fiber.Ctx) error {
		return deps.categoryResponse(c, poi.CategorySpeedCamera)
	})
}

// categoryResponse fetches a single category directly, normalizes and
// classifies it, and answers in the upstream envelope shape.
func (d Deps) categoryResponse(c *fiber.Ctx, cat poi.Category) error {
	p, ok := d.Providers[cat]
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "category not enabled")
	}

	q, err := parseMapQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	code := d.Registry.CountryCode(q.Country)
	loc := d.Resolver.Resolve(c.UserContext(), code, q.locator())

	res := p.Fetch(c.UserContext(), poi.Query{
		CountryCode:  code,
		CountryName:  q.Country,
		Location:     loc,
		RadiusKm:     q.Radius,
		SessionToken: sessionToken(c),
	})
	if !res.Succeeded {
		return providerErrorResponse(c, res.Err)
	}

	points := poi.Normalize(cat, res.Payload, code)
	for i := range points {
		d.Classifier.Annotate(&points[i])
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"data":      points,
		"timestamp": res.FetchedAt.Unix(),
	})
}

func providerErrorResponse(c *fiber.Ctx, err error) error {
	msg := "upstream fetch failed"
	status := fiber.StatusBadGateway

	var pf *poi.ProviderFailureError
	if errors.As(err, &pf) {
		msg = pf.Error()
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   msg,
	})
}

// mapQuery holds query parameters shared by the map and category endpoints.
type mapQuery struct {
	Country    string `validate:"required"`
	Lat        *float64
	Lng        *float64 `validate:"required_with=Lat"`
	Radius     int      `validate:"gte=0,lte=500"`
	Categories []poi.Category
}

// locator returns the device locator for the request, if coordinates were
// supplied.
func (q mapQuery) locator() geo.DeviceLocator {
	if q.Lat == nil || q.Lng == nil {
		return nil
	}
	return geo.StaticLocator{Lat: *q.Lat, Lng: *q.Lng}
}

func parseMapQuery(c *fiber.Ctx) (mapQuery, error) {
	q := mapQuery{
		Country: c.Query("country", "Germany"),
	}

	if v := c.Query("lat"); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, errors.New("invalid lat")
		}
		q.Lat = &lat
	}
	if v := c.Query("lng"); v != "" {
		lng, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return q, errors.New("invalid lng")
		}
		q.Lng = &lng
	}
	if q.Lat != nil && q.Lng == nil {
		return q, errors.New("lng is required when lat is provided")
	}

	if v := c.Query("radius"); v != "" {
		radius, err := strconv.Atoi(v)
		if err != nil {
			return q, errors.New("invalid radius")
		}
		q.Radius = radius
	}

	if v := c.Query("categories"); v != "" {
		for _, part := range strings.Split(v, ",") {
			cat, ok := poi.ParseCategory(strings.TrimSpace(part))
			if !ok {
				return q, errors.New("unknown category: " + part)
			}
			q.Categories = append(q.Categories, cat)
		}
	}

	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// sessionToken extracts the opaque bearer token forwarded to providers.
// The auth lifecycle itself lives outside this service.
func sessionToken(c *fiber.Ctx) string {
	auth := c.Get(fiber.HeaderAuthorization)
	return strings.TrimPrefix(auth, "Bearer ")
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Country string    `validate:"required"`
	From    time.Time `validate:"required"`
	To      time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.Country = c.Query("country", "Germany")

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
