package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railcommute/pkg/api/routes"
	"github.com/travigo/railcommute/pkg/platformtracker"
	"github.com/travigo/railcommute/pkg/snapshotcache"
)

type Dependencies struct {
	Store    snapshotcache.Store
	Tracker  *platformtracker.Tracker
	Runner   routes.RefreshTrigger
	Stations routes.StationValidator
}

func NewApp(deps Dependencies) *fiber.App {
	webApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	webApp.Use(NewLogger())

	group := webApp.Group("/core")

	group.Get("version", routes.APIVersion)

	routes.CommuteRouter(group.Group("/commute"), deps.Store, deps.Tracker, deps.Runner)

	if deps.Stations != nil {
		routes.StationsRouter(group.Group("/stations"), deps.Stations)
	}

	return webApp
}

// SetupServer serves the API on listen until ctx is cancelled
func SetupServer(ctx context.Context, listen string, deps Dependencies) error {
	webApp := NewApp(deps)

	go func() {
		<-ctx.Done()
		if err := webApp.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown web server")
		}
	}()

	log.Info().Str("listen", listen).Msg("Starting web server")

	return webApp.Listen(listen)
}
