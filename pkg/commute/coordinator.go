package commute

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railcommute/pkg/ctdf"
	"github.com/travigo/railcommute/pkg/ldbws"
	"github.com/travigo/railcommute/pkg/schedule"
)

type BoardSource interface {
	GetDepartureBoard(ctx context.Context, origin string, destination string, timeWindow int, maxRows int) (*ldbws.Board, error)
}

// UpdateFailedError is returned by Refresh when there is no usable snapshot to fall back on
type UpdateFailedError struct {
	Reason string
	Err    error
}

func (e *UpdateFailedError) Error() string {
	return fmt.Sprintf("failed to update commute (%s): %s", e.Reason, e.Err)
}

func (e *UpdateFailedError) Unwrap() error {
	return e.Err
}

// Coordinator runs refresh cycles for a single commute and owns the last good snapshot
type Coordinator struct {
	Config     *Config
	Source     BoardSource
	Policy     schedule.Policy
	Thresholds ThresholdConfig
	Rule       *DisruptionRule

	Now func() time.Time

	mutex sync.Mutex

	interval      time.Duration
	failedUpdates int
	previous      *ctdf.Snapshot

	originName      string
	destinationName string
}

func NewCoordinator(config *Config, source BoardSource) *Coordinator {
	rule, err := NewDisruptionRule(config.DisruptionRule)
	if err != nil {
		log.Warn().Err(err).Str("rule", config.DisruptionRule).Msg("Invalid disruption rule, using default")
		rule, _ = NewDisruptionRule(DefaultDisruptionRule)
	}

	coordinator := &Coordinator{
		Config:     config,
		Source:     source,
		Policy:     config.SchedulePolicy(),
		Thresholds: config.Thresholds(),
		Rule:       rule,
		Now:        time.Now,
	}
	coordinator.interval = coordinator.Policy.IntervalFor(coordinator.now())

	return coordinator
}

func (c *Coordinator) now() time.Time {
	return c.Now().In(c.Config.Location())
}

// Interval is the polling interval picked at the start of the last refresh
func (c *Coordinator) Interval() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.interval
}

// Snapshot returns the last snapshot handed out, nil before the first successful refresh
func (c *Coordinator) Snapshot() *ctdf.Snapshot {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.previous
}

// Restore seeds the previous snapshot, for example from the snapshot cache after a restart
func (c *Coordinator) Restore(snapshot *ctdf.Snapshot) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.previous = snapshot
	c.originName = snapshot.OriginName
	c.destinationName = snapshot.DestinationName
}

// Refresh fetches the departure board and builds a new snapshot.
// When the fetch fails the previous snapshot is returned unchanged as long as it is not too old
// and there have not been too many failures in a row.
func (c *Coordinator) Refresh(ctx context.Context) (*ctdf.Snapshot, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	logger := log.With().Str("refresh", uuid.NewString()).Str("origin", c.Config.Origin).Str("destination", c.Config.Destination).Logger()

	if interval := c.Policy.IntervalFor(now); interval != c.interval {
		logger.Debug().Dur("from", c.interval).Dur("to", interval).Msg("Updating refresh interval")
		c.interval = interval
	}

	logger.Debug().Msg("Fetching departure data")

	board, err := c.Source.GetDepartureBoard(ctx, c.Config.Origin, c.Config.Destination, c.Config.TimeWindow, c.Config.NumServices)
	if err != nil {
		return c.handleFailure(err, now, logger)
	}

	c.failedUpdates = 0

	if board.LocationName != "" {
		c.originName = board.LocationName
	}
	if board.FilterLocationName != "" {
		c.destinationName = board.FilterLocationName
	}

	snapshot := c.buildSnapshot(board, now)
	c.previous = snapshot

	logger.Info().
		Int("tracked", snapshot.ServicesTracked).
		Int("found", snapshot.TotalServicesFound).
		Str("status", snapshot.OverallStatus.String()).
		Str("summary", snapshot.Summary).
		Msg("Commute updated")

	return snapshot, nil
}

func (c *Coordinator) handleFailure(err error, now time.Time, logger zerolog.Logger) (*ctdf.Snapshot, error) {
	c.failedUpdates++

	logger.Error().
		Err(err).
		Str("category", ldbws.Category(err)).
		Int("attempt", c.failedUpdates).
		Int("max", c.Config.MaxFailedUpdates).
		Msg("Error fetching departure data")

	if c.failedUpdates >= c.Config.MaxFailedUpdates {
		return nil, &UpdateFailedError{Reason: "too many failed updates", Err: err}
	}

	if c.previous == nil {
		return nil, &UpdateFailedError{Reason: "no previous data", Err: err}
	}

	// A snapshot without a timestamp has an unknown age and is still served
	if !c.previous.LastUpdated.IsZero() {
		age := now.Sub(c.previous.LastUpdated)
		if age > time.Duration(c.Config.StaleAfter) {
			logger.Warn().Dur("age", age).Msg("Cached data is too old, not returning stale data")
			return nil, &UpdateFailedError{Reason: "cached data too old", Err: err}
		}

		logger.Warn().Dur("age", age).Msg("Using last known data after failed update")
	} else {
		logger.Warn().Msg("Using last known data of unknown age after failed update")
	}

	return c.previous, nil
}

func (c *Coordinator) buildSnapshot(board *ldbws.Board, now time.Time) *ctdf.Snapshot {
	services := board.Services
	if len(services) > c.Config.NumServices {
		services = services[:c.Config.NumServices]
	}
	services = FilterDeparted(services, now)

	disruption := CollectDisruption(services, c.Thresholds)

	snapshot := &ctdf.Snapshot{
		Origin:          c.Config.Origin,
		OriginName:      firstNonEmpty(c.originName, c.Config.Origin),
		Destination:     c.Config.Destination,
		DestinationName: firstNonEmpty(c.destinationName, c.Config.Destination),

		TimeWindow:        c.Config.TimeWindow,
		ServicesRequested: c.Config.NumServices,

		ServicesTracked:    len(services),
		TotalServicesFound: len(board.Services),
		Services:           services,

		OnTimeCount:    disruption.OnTimeCount,
		DelayedCount:   disruption.DelayedCount,
		CancelledCount: disruption.CancelledCount,

		MinorDelayCount:  disruption.MinorDelayCount,
		MajorDelayCount:  disruption.MajorDelayCount,
		SevereDelayCount: disruption.SevereDelayCount,

		OverallStatus:     ClassifyStatus(services, c.Thresholds),
		MaxDelayMinutes:   disruption.MaxDelayMinutes,
		DisruptionReasons: disruption.Reasons,

		Summary: BuildSummary(disruption.OnTimeCount, disruption.DelayedCount, disruption.CancelledCount),

		NrccMessages: board.NrccMessages,
		GeneratedAt:  board.GeneratedAt,

		LastUpdated: now,
		NextUpdate:  now.Add(c.interval),
	}

	for i := range snapshot.Services {
		if !snapshot.Services[i].IsCancelled {
			snapshot.NextTrain = &snapshot.Services[i]
			break
		}
	}

	snapshot.HasDisruption = c.Rule.Evaluate(snapshot)

	return snapshot
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}

	return ""
}
