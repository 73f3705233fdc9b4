package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/Opulux135/driven-backend/internal/geo"
	"github.com/Opulux135/driven-backend/internal/poi"
)

// Scheduler periodically re-aggregates point-of-interest data for the
// configured countries so the latest-snapshot endpoint stays warm.
type Scheduler struct {
	scheduler    *gocron.Scheduler
	orchestrator *poi.Orchestrator
	resolver     *geo.Resolver
	registry     *geo.Registry
	countries    []string
	interval     time.Duration
}

// New creates a new Scheduler. countries are country names.
func New(countries []string, interval time.Duration, orchestrator *poi.Orchestrator, resolver *geo.Resolver, registry *geo.Registry) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler:    s,
		orchestrator: orchestrator,
		resolver:     resolver,
		registry:     registry,
		countries:    countries,
		interval:     interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.countries) == 0 {
		log.Println("scheduler: no countries configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("scheduler: running aggregation job")

		var wg sync.WaitGroup
		for _, country := range s.countries {
			country := country
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				code := s.registry.CountryCode(country)
				// Background refreshes have no device position.
				loc := s.resolver.Resolve(ctx, code, nil)

				s.orchestrator.Aggregate(ctx, poi.AggregateRequest{
					CountryCode: code,
					CountryName: country,
					Location:    loc,
				})
			}()
		}
		wg.Wait()
		log.Println("scheduler: completed aggregation job")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
