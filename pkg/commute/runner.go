package commute

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/railcommute/pkg/platformtracker"
	"github.com/travigo/railcommute/pkg/snapshotcache"
)

// Runner refreshes the commute on the schedule picked by the coordinator, or straight away when triggered,
// then hands the snapshot to the store and the platform tracker
type Runner struct {
	Coordinator *Coordinator
	Store       snapshotcache.Store
	Tracker     *platformtracker.Tracker

	trigger chan struct{}

	mutex     sync.RWMutex
	lastError error
}

func NewRunner(coordinator *Coordinator, store snapshotcache.Store, tracker *platformtracker.Tracker) *Runner {
	return &Runner{
		Coordinator: coordinator,
		Store:       store,
		Tracker:     tracker,
		trigger:     make(chan struct{}, 1),
	}
}

// Trigger asks the running loop for a refresh now. Never blocks, triggers made while one is pending are merged.
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// LastError is the error of the last refresh that could not produce a snapshot, nil if it succeeded
func (r *Runner) LastError() error {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.lastError
}

func (r *Runner) setLastError(err error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.lastError = err
}

// Restore seeds the coordinator with the snapshot already held in the store
func (r *Runner) Restore(ctx context.Context) {
	snapshot, err := r.Store.Get(ctx)
	if errors.Is(err, snapshotcache.ErrNoSnapshot) {
		return
	} else if err != nil {
		log.Warn().Err(err).Msg("Failed to read cached snapshot")
		return
	}

	r.Coordinator.Restore(snapshot)
	r.Tracker.Update(snapshot.Services)

	log.Info().Time("lastupdated", snapshot.LastUpdated).Msg("Restored cached snapshot")
}

func (r *Runner) RefreshNow(ctx context.Context) error {
	snapshot, err := r.Coordinator.Refresh(ctx)
	if err != nil {
		r.setLastError(err)
		return err
	}
	r.setLastError(nil)

	if err := r.Store.Put(ctx, snapshot); err != nil {
		log.Error().Err(err).Msg("Failed to store snapshot")
	}

	if r.Tracker.Slots() != r.Coordinator.Config.NumServices {
		r.Tracker.Resize(r.Coordinator.Config.NumServices)
	}
	r.Tracker.Update(snapshot.Services)

	return nil
}

// Run refreshes until ctx is cancelled
func (r *Runner) Run(ctx context.Context) {
	log.Info().
		Str("origin", r.Coordinator.Config.Origin).
		Str("destination", r.Coordinator.Config.Destination).
		Msg("Starting commute runner")

	for {
		startTime := time.Now()

		if err := r.RefreshNow(ctx); err != nil {
			log.Error().Err(err).Msg("Commute refresh failed")
		}

		executionDuration := time.Since(startTime)
		waitTime := r.Coordinator.Interval() - executionDuration
		if waitTime < 0 {
			waitTime = 0
		}

		log.Debug().Dur("wait", waitTime).Msg("Waiting for next refresh")

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info().Msg("Stopping commute runner")
			return
		case <-r.trigger:
			timer.Stop()
			log.Debug().Msg("Manual refresh triggered")
		case <-timer.C:
		}
	}
}
