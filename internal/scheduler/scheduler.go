package scheduler

import (
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/owm-poller/internal/store"
	"github.com/i474232898/owm-poller/pkg/owm"
)

// Scheduler periodically drains a poller's updates into a store.
type Scheduler[T owm.Shape] struct {
	scheduler *gocron.Scheduler
	updates   <-chan owm.Response
	latest    *store.Latest[T]
	interval  time.Duration
}

// New creates a new Scheduler.
func New[T owm.Shape](updates <-chan owm.Response, interval time.Duration, latest *store.Latest[T]) *Scheduler[T] {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler[T]{
		scheduler: s,
		updates:   updates,
		latest:    latest,
		interval:  interval,
	}
}

// Start schedules the read job and starts the underlying scheduler.
func (s *Scheduler[T]) Start() error {
	interval := s.interval
	if interval < time.Second {
		interval = 5 * time.Second
	}

	_, err := s.scheduler.Every(interval).SingletonMode().Do(func() {
		if n := s.Drain(); n > 0 {
			log.Printf("DEBUG: scheduler: consumed %d update(s)", n)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Drain consumes every pending update and returns how many were read.
func (s *Scheduler[T]) Drain() int {
	n := 0
	for {
		u, ok := owm.Poll[T](s.updates)
		if !ok {
			return n
		}
		n++

		if u.Err != nil {
			if !errors.Is(u.Err, owm.ErrLoading) {
				log.Printf("scheduler: weather update failed: %v", u.Err)
			}
			s.latest.Fail(u.Err)
			continue
		}
		s.latest.Save(u.Weather)
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler[T]) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
