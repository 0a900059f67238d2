package routes

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railcommute/pkg/ctdf"
	"github.com/travigo/railcommute/pkg/ldbws"
	"github.com/travigo/railcommute/pkg/platformtracker"
	"github.com/travigo/railcommute/pkg/snapshotcache"
)

type RefreshTrigger interface {
	Trigger()
	LastError() error
}

type commuteRoutes struct {
	store   snapshotcache.Store
	tracker *platformtracker.Tracker
	runner  RefreshTrigger
}

func CommuteRouter(router fiber.Router, store snapshotcache.Store, tracker *platformtracker.Tracker, runner RefreshTrigger) {
	routes := &commuteRoutes{
		store:   store,
		tracker: tracker,
		runner:  runner,
	}

	router.Get("/", routes.getCommute)
	router.Get("/status", routes.getStatus)
	router.Get("/trains/:slot", routes.getTrain)
	router.Post("/refresh", routes.triggerRefresh)
}

// currentSnapshot returns the snapshot or writes the error response when there isn't one to show
func (r *commuteRoutes) currentSnapshot(c *fiber.Ctx) (*ctdf.Snapshot, error) {
	if r.runner != nil {
		if err := r.runner.LastError(); err != nil {
			c.SendStatus(fiber.StatusServiceUnavailable)
			return nil, c.JSON(fiber.Map{
				"error":    err.Error(),
				"category": ldbws.Category(err),
			})
		}
	}

	snapshot, err := r.store.Get(c.UserContext())
	if errors.Is(err, snapshotcache.ErrNoSnapshot) {
		c.SendStatus(fiber.StatusServiceUnavailable)
		return nil, c.JSON(fiber.Map{
			"error": "No commute data available yet",
		})
	} else if err != nil {
		log.Error().Err(err).Msg("Failed to read snapshot")

		c.SendStatus(fiber.StatusInternalServerError)
		return nil, c.JSON(fiber.Map{
			"error": "Could not read commute data",
		})
	}

	return snapshot, nil
}

func (r *commuteRoutes) getCommute(c *fiber.Ctx) error {
	snapshot, err := r.currentSnapshot(c)
	if snapshot == nil {
		return err
	}

	groups := []string{"basic"}
	if c.QueryBool("detail", false) {
		groups = append(groups, "detailed")
	}

	snapshotReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: groups,
	}, snapshot)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce Snapshot",
		})
	}

	return c.JSON(snapshotReduced)
}

func (r *commuteRoutes) getStatus(c *fiber.Ctx) error {
	snapshot, err := r.currentSnapshot(c)
	if snapshot == nil {
		return err
	}

	return c.JSON(fiber.Map{
		"overall_status":     snapshot.OverallStatus,
		"has_disruption":     snapshot.HasDisruption,
		"summary":            snapshot.Summary,
		"max_delay_minutes":  snapshot.MaxDelayMinutes,
		"disruption_reasons": snapshot.DisruptionReasons,
		"last_updated":       snapshot.LastUpdated,
		"next_update":        snapshot.NextUpdate,
	})
}

func (r *commuteRoutes) getTrain(c *fiber.Ctx) error {
	slot, err := strconv.Atoi(c.Params("slot"))
	if err != nil || slot < 1 || slot > r.tracker.Slots() {
		c.SendStatus(fiber.StatusNotFound)
		return c.JSON(fiber.Map{
			"error": "Unknown train slot",
		})
	}

	view := r.tracker.Slot(slot)
	if view.Service == nil {
		return c.JSON(fiber.Map{
			"slot":             slot,
			"status":           "No service",
			"platform_changed": false,
		})
	}

	serviceReduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic", "detailed"},
	}, view.Service)
	if err != nil {
		c.SendStatus(fiber.StatusInternalServerError)
		return c.JSON(fiber.Map{
			"error": "Sherrif could not reduce ServiceRecord",
		})
	}

	response := fiber.Map{
		"slot":             slot,
		"status":           view.Service.DisplayStatus(),
		"departure_time":   view.Service.DepartureTime(),
		"platform":         view.Service.DisplayPlatform(),
		"platform_changed": view.PlatformChanged,
		"service":          serviceReduced,
	}
	if view.PlatformChanged {
		response["previous_platform"] = view.PreviousPlatform
	}

	return c.JSON(response)
}

func (r *commuteRoutes) triggerRefresh(c *fiber.Ctx) error {
	if r.runner == nil {
		c.SendStatus(fiber.StatusNotImplemented)
		return c.JSON(fiber.Map{
			"error": "Refresh is not available",
		})
	}

	r.runner.Trigger()

	c.SendStatus(fiber.StatusAccepted)
	return c.JSON(fiber.Map{
		"status": "Refresh triggered",
	})
}
