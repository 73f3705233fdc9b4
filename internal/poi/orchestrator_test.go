package poi

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Opulux135/driven-backend/internal/geo"
)

type fakeProvider struct {
	cat     Category
	payload []byte
	err     error
}

func (f *fakeProvider) Name() string       { return "fake-" + string(f.cat) }
func (f *fakeProvider) Category() Category { return f.cat }

func (f *fakeProvider) Fetch(ctx context.Context, q Query) ProviderResult {
	if f.err != nil {
		return ProviderResult{Provider: f.Name(), Category: f.cat, Err: f.err}
	}
	return ProviderResult{
		Provider:  f.Name(),
		Category:  f.cat,
		Succeeded: true,
		Payload:   f.payload,
		FetchedAt: time.Now().UTC(),
	}
}

func testRequest() AggregateRequest {
	return AggregateRequest{
		CountryCode: "DE",
		CountryName: "Germany",
		Location: geo.LocationContext{
			Latitude:    52.52,
			Longitude:   13.405,
			Source:      geo.SourceCountryDefault,
			CountryCode: "DE",
		},
	}
}

func TestAggregatePartialFailure(t *testing.T) {
	provs := []Provider{
		&fakeProvider{cat: CategoryParking, payload: []byte(`{"Berlin": [{"name": "P1", "free_spots": 50, "total_spots": 100}]}`)},
		&fakeProvider{cat: CategoryGas, err: errors.New("connection refused")},
		&fakeProvider{cat: CategoryCharging, payload: []byte(`[{"id": 1, "name": "Station", "status": "Operational", "coordinates": [13.4, 52.5]}]`)},
		&fakeProvider{cat: CategorySpeedCamera, payload: []byte(`[{"id": "cam-1", "name": "A100", "coordinates": [13.3, 52.5]}]`)},
	}

	o := NewOrchestrator(provs, NewClassifier(DefaultThresholds()), nil, time.Second)
	snap := o.Aggregate(context.Background(), testRequest())

	// The failed category contributes an empty sequence plus an error.
	if len(snap.PerCategory[CategoryGas]) != 0 {
		t.Fatalf("expected empty gas sequence, got %d", len(snap.PerCategory[CategoryGas]))
	}
	gasErr, ok := snap.Errors[CategoryGas]
	if !ok {
		t.Fatal("expected gas error to be recorded")
	}
	if gasErr.Kind != ErrorKindTransport {
		t.Fatalf("expected transport error, got %s", gasErr.Kind)
	}

	// The other categories are unaffected.
	if len(snap.PerCategory[CategoryParking]) != 1 {
		t.Fatalf("expected 1 parking point, got %d", len(snap.PerCategory[CategoryParking]))
	}
	if snap.PerCategory[CategoryParking][0].Tier != TierAvailable {
		t.Fatalf("expected available, got %s", snap.PerCategory[CategoryParking][0].Tier)
	}
	if len(snap.PerCategory[CategoryCharging]) != 1 {
		t.Fatalf("expected 1 charging point, got %d", len(snap.PerCategory[CategoryCharging]))
	}
	if snap.PerCategory[CategoryCharging][0].Tier != TierOperational {
		t.Fatalf("expected operational, got %s", snap.PerCategory[CategoryCharging][0].Tier)
	}
	if len(snap.PerCategory[CategorySpeedCamera]) != 1 {
		t.Fatalf("expected 1 camera, got %d", len(snap.PerCategory[CategorySpeedCamera]))
	}
}

func TestAggregateProviderFailureKind(t *testing.T) {
	provs := []Provider{
		&fakeProvider{cat: CategoryGas, err: &ProviderFailureError{Provider: "gas", Message: "quota exceeded"}},
	}

	o := NewOrchestrator(provs, NewClassifier(DefaultThresholds()), nil, time.Second)
	req := testRequest()
	req.Categories = []Category{CategoryGas}
	snap := o.Aggregate(context.Background(), req)

	gasErr := snap.Errors[CategoryGas]
	if gasErr == nil || gasErr.Kind != ErrorKindProvider {
		t.Fatalf("expected provider failure kind, got %+v", gasErr)
	}
	if gasErr.Message != "quota exceeded" {
		t.Fatalf("expected provider message, got %q", gasErr.Message)
	}
}

// gatedProvider blocks its first fetch until released, so a test can hold an
// older cycle in flight while a newer one completes.
type gatedProvider struct {
	cat     Category
	gate    chan struct{}
	started chan struct{}

	mu    sync.Mutex
	calls int
}

func (g *gatedProvider) Name() string       { return "gated" }
func (g *gatedProvider) Category() Category { return g.cat }

func (g *gatedProvider) Fetch(ctx context.Context, q Query) ProviderResult {
	g.mu.Lock()
	call := g.calls
	g.calls++
	g.mu.Unlock()

	payload := []byte(`[{"id": 1, "name": "fresh", "status": "Operational", "coordinates": [13.4, 52.5]}]`)
	if call == 0 {
		g.started <- struct{}{}
		<-g.gate
		payload = []byte(`[{"id": 1, "name": "stale", "status": "Operational", "coordinates": [13.4, 52.5]}]`)
	}

	return ProviderResult{
		Provider:  g.Name(),
		Category:  g.cat,
		Succeeded: true,
		Payload:   payload,
		FetchedAt: time.Now().UTC(),
	}
}

func TestSupersededCycleIsDiscarded(t *testing.T) {
	gp := &gatedProvider{
		cat:     CategoryCharging,
		gate:    make(chan struct{}),
		started: make(chan struct{}),
	}

	o := NewOrchestrator([]Provider{gp}, NewClassifier(DefaultThresholds()), nil, 5*time.Second)
	req := testRequest()
	req.Categories = []Category{CategoryCharging}

	// Cycle A starts first and stalls inside its provider call.
	doneA := make(chan *AggregationSnapshot, 1)
	go func() {
		doneA <- o.Aggregate(context.Background(), req)
	}()
	<-gp.started

	// Cycle B starts later and finishes first.
	snapB := o.Aggregate(context.Background(), req)
	if snapB.PerCategory[CategoryCharging][0].Name != "fresh" {
		t.Fatalf("expected fresh data in cycle B, got %s", snapB.PerCategory[CategoryCharging][0].Name)
	}

	latest, err := o.Latest("DE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.CycleID != snapB.CycleID {
		t.Fatal("expected cycle B to be published")
	}

	// Cycle A eventually settles; its late arrival must not overwrite B.
	close(gp.gate)
	snapA := <-doneA
	if snapA.PerCategory[CategoryCharging][0].Name != "stale" {
		t.Fatalf("expected stale data in cycle A, got %s", snapA.PerCategory[CategoryCharging][0].Name)
	}

	latest, err = o.Latest("DE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest.CycleID != snapB.CycleID {
		t.Fatal("superseded cycle A overwrote the newer snapshot")
	}
}

func TestAggregateRunsProvidersConcurrently(t *testing.T) {
	const delay = 50 * time.Millisecond

	slow := func(cat Category) Provider {
		return &delayedProvider{cat: cat, delay: delay}
	}
	provs := []Provider{
		slow(CategoryParking), slow(CategoryGas), slow(CategoryCharging), slow(CategorySpeedCamera),
	}

	o := NewOrchestrator(provs, NewClassifier(DefaultThresholds()), nil, time.Second)

	start := time.Now()
	o.Aggregate(context.Background(), testRequest())
	elapsed := time.Since(start)

	// Sequential execution would take at least 4x the delay.
	if elapsed > 3*delay {
		t.Fatalf("providers do not appear to run in parallel: %v", elapsed)
	}
}

type delayedProvider struct {
	cat   Category
	delay time.Duration
}

func (d *delayedProvider) Name() string       { return "delayed" }
func (d *delayedProvider) Category() Category { return d.cat }

func (d *delayedProvider) Fetch(ctx context.Context, q Query) ProviderResult {
	select {
	case <-time.After(d.delay):
	case <-ctx.Done():
	}
	return ProviderResult{
		Provider:  d.Name(),
		Category:  d.cat,
		Succeeded: true,
		Payload:   []byte(`[]`),
		FetchedAt: time.Now().UTC(),
	}
}

func TestLatestWithoutCycles(t *testing.T) {
	o := NewOrchestrator(nil, NewClassifier(DefaultThresholds()), nil, time.Second)
	if _, err := o.Latest("DE"); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestAggregateSavesToStore(t *testing.T) {
	saved := &capturingStore{}
	provs := []Provider{
		&fakeProvider{cat: CategoryParking, payload: []byte(`{}`)},
	}

	o := NewOrchestrator(provs, NewClassifier(DefaultThresholds()), saved, time.Second)
	req := testRequest()
	req.Categories = []Category{CategoryParking}
	snap := o.Aggregate(context.Background(), req)

	if saved.country != "DE" || saved.snapshot == nil {
		t.Fatalf("expected snapshot saved for DE, got %+v", saved)
	}
	if saved.snapshot.CycleID != snap.CycleID {
		t.Fatal("stored snapshot differs from published one")
	}
}

type capturingStore struct {
	country  string
	snapshot *AggregationSnapshot
}

func (s *capturingStore) SaveSnapshot(countryCode string, snapshot *AggregationSnapshot) {
	s.country = countryCode
	s.snapshot = snapshot
}
