package poi

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	uatomic "go.uber.org/atomic"

	"github.com/Opulux135/driven-backend/internal/geo"
)

// AggregateRequest is the explicit input to one aggregation cycle. Selection
// state is always threaded in here, never held as ambient globals, so the
// orchestrator is safe to call concurrently for independent sessions.
type AggregateRequest struct {
	CountryCode  string
	CountryName  string
	Location     geo.LocationContext
	Categories   []Category // nil means all
	RadiusKm     int
	SessionToken string
}

// Orchestrator fans out provider fetches for a cycle, normalizes and
// classifies the settled results, and publishes last-request-wins snapshots.
type Orchestrator struct {
	providers  map[Category]Provider
	classifier *Classifier
	store      Store
	timeout    time.Duration

	seq uatomic.Uint64

	mu        sync.RWMutex
	latest    map[string]*AggregationSnapshot // by country code
	published map[string]uint64               // highest published cycle per country
}

// NewOrchestrator creates an Orchestrator. store may be nil; timeout bounds
// each provider call and an expired call counts as a transport failure.
func NewOrchestrator(providers []Provider, classifier *Classifier, store Store, timeout time.Duration) *Orchestrator {
	byCat := make(map[Category]Provider, len(providers))
	for _, p := range providers {
		byCat[p.Category()] = p
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Orchestrator{
		providers:  byCat,
		classifier: classifier,
		store:      store,
		timeout:    timeout,
		latest:     make(map[string]*AggregationSnapshot),
		published:  make(map[string]uint64),
	}
}

// Aggregate runs one cycle: all enabled provider calls are issued
// concurrently and the snapshot is assembled only after every call settles.
// A failed category contributes an empty sequence plus a recorded error; no
// category's failure delays or invalidates another.
func (o *Orchestrator) Aggregate(ctx context.Context, req AggregateRequest) *AggregationSnapshot {
	cycle := o.seq.Inc()

	enabled := req.Categories
	if enabled == nil {
		enabled = AllCategories()
	}

	q := Query{
		CountryCode:  req.CountryCode,
		CountryName:  req.CountryName,
		Location:     req.Location,
		RadiusKm:     req.RadiusKm,
		SessionToken: req.SessionToken,
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[Category]ProviderResult, len(enabled))
	)

	for _, cat := range enabled {
		p, ok := o.providers[cat]
		if !ok {
			continue
		}

		wg.Add(1)
		go func(cat Category, p Provider) {
			defer wg.Done()

			fctx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()

			res := p.Fetch(fctx, q)

			mu.Lock()
			results[cat] = res
			mu.Unlock()
		}(cat, p)
	}

	// The join point is the only synchronization barrier: no result is acted
	// on before every outstanding call has settled.
	wg.Wait()

	snapshot := o.assemble(cycle, req, enabled, results)
	o.publish(req.CountryCode, snapshot)
	return snapshot
}

func (o *Orchestrator) assemble(cycle uint64, req AggregateRequest, enabled []Category, results map[Category]ProviderResult) *AggregationSnapshot {
	snapshot := &AggregationSnapshot{
		CycleID:     uuid.NewString(),
		Location:    req.Location,
		PerCategory: make(map[Category][]PointOfInterest, len(enabled)),
		Errors:      make(map[Category]*CategoryError),
		FetchedAt:   time.Now().UTC(),
		cycle:       cycle,
	}

	for _, cat := range enabled {
		res, ok := results[cat]
		if !ok {
			continue
		}

		if !res.Succeeded {
			snapshot.PerCategory[cat] = []PointOfInterest{}
			snapshot.Errors[cat] = categoryError(res.Err)
			log.Printf("aggregate: %s fetch failed for %s: %v", cat, req.CountryCode, res.Err)
			continue
		}

		points := Normalize(cat, res.Payload, req.CountryCode)
		for i := range points {
			o.classifier.Annotate(&points[i])
		}
		snapshot.PerCategory[cat] = points
	}

	if len(snapshot.Errors) == 0 {
		snapshot.Errors = nil
	}
	return snapshot
}

// publish surfaces the snapshot only if no newer cycle has been requested
// for the same country. Late results from superseded cycles are discarded,
// never merged over a fresher snapshot.
func (o *Orchestrator) publish(countryCode string, snapshot *AggregationSnapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if snapshot.cycle < o.published[countryCode] {
		log.Printf("aggregate: discarding superseded cycle %s for %s", snapshot.CycleID, countryCode)
		return
	}

	o.published[countryCode] = snapshot.cycle
	o.latest[countryCode] = snapshot
	if o.store != nil {
		o.store.SaveSnapshot(countryCode, snapshot)
	}
}

// ErrNoSnapshot is returned when no cycle has been published for a country.
var ErrNoSnapshot = errors.New("no snapshot for country")

// Latest returns the most recently published snapshot for a country.
// Readers only ever observe fully-assembled, immutable snapshots.
func (o *Orchestrator) Latest(countryCode string) (*AggregationSnapshot, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	snap, ok := o.latest[countryCode]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

func categoryError(err error) *CategoryError {
	if err == nil {
		return &CategoryError{Kind: ErrorKindTransport, Message: "provider returned no result"}
	}

	var pf *ProviderFailureError
	if errors.As(err, &pf) {
		return &CategoryError{Kind: ErrorKindProvider, Message: pf.Message}
	}
	return &CategoryError{Kind: ErrorKindTransport, Message: err.Error()}
}
