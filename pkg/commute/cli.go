package commute

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/railcommute/pkg/api"
	"github.com/travigo/railcommute/pkg/api/routes"
	"github.com/travigo/railcommute/pkg/ldbws"
	"github.com/travigo/railcommute/pkg/platformtracker"
	"github.com/travigo/railcommute/pkg/redis_client"
	"github.com/travigo/railcommute/pkg/snapshotcache"
	"github.com/urfave/cli/v2"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "config",
		Value: DefaultConfigPath,
		Usage: "path to the commute yaml config",
	}
}

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "commute",
		Usage: "Track departures for a rail commute",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "poll the departure board and serve the commute API",
				Flags: []cli.Flag{configFlag()},
				Action: func(c *cli.Context) error {
					config, err := LoadConfig(c.String("config"))
					if err != nil {
						return err
					}

					ctx, cancel := context.WithCancel(c.Context)
					defer cancel()

					store, err := newStore(ctx, config)
					if err != nil {
						return err
					}

					client := newClient(config)
					tracker := platformtracker.NewTracker(config.NumServices)
					runner := NewRunner(NewCoordinator(config, client), store, tracker)

					runner.Restore(ctx)

					log.Info().
						Str("name", config.CommuteName).
						Str("origin", config.Origin).
						Str("destination", config.Destination).
						Msg("Starting rail commute")

					var wg conc.WaitGroup
					wg.Go(func() {
						runner.Run(ctx)
					})
					wg.Go(func() {
						err := api.SetupServer(ctx, config.Listen, api.Dependencies{
							Store:    store,
							Tracker:  tracker,
							Runner:   runner,
							Stations: client,
						})
						if err != nil {
							log.Error().Err(err).Msg("Web server stopped")
							cancel()
						}
					})

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					select {
					case <-signals:
						log.Info().Msg("Shutting down")
					case <-ctx.Done():
					}
					go func() {
						<-signals // hard exit on second signal
						os.Exit(1)
					}()

					cancel()
					wg.Wait()

					return nil
				},
			},
			{
				Name:  "refresh",
				Usage: "run a single refresh and store the snapshot",
				Flags: []cli.Flag{configFlag()},
				Action: func(c *cli.Context) error {
					config, err := LoadConfig(c.String("config"))
					if err != nil {
						return err
					}

					store, err := newStore(c.Context, config)
					if err != nil {
						return err
					}

					runner := NewRunner(NewCoordinator(config, newClient(config)), store, platformtracker.NewTracker(config.NumServices))
					runner.Restore(c.Context)

					if err := runner.RefreshNow(c.Context); err != nil {
						return err
					}

					snapshot, err := store.Get(c.Context)
					if err != nil {
						return err
					}

					log.Info().
						Str("status", snapshot.OverallStatus.String()).
						Bool("disruption", snapshot.HasDisruption).
						Int("services", snapshot.ServicesTracked).
						Msg(snapshot.Summary)

					for _, service := range snapshot.Services {
						fmt.Printf("%s  %-30s  plat %-3s  %s\n", service.ScheduledDeparture, service.Destination, service.DisplayPlatform(), service.EstimatedDeparture())
					}

					return nil
				},
			},
			{
				Name:  "board",
				Usage: "dump the parsed departure board for the configured route",
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:  "origin",
						Usage: "override the configured origin CRS code",
					},
					&cli.StringFlag{
						Name:  "destination",
						Usage: "override the configured destination CRS code",
					},
				},
				Action: func(c *cli.Context) error {
					config, err := LoadConfig(c.String("config"))
					if err != nil {
						return err
					}

					origin := config.Origin
					if c.String("origin") != "" {
						origin = c.String("origin")
					}
					destination := config.Destination
					if c.String("destination") != "" {
						destination = c.String("destination")
					}

					board, err := newClient(config).GetDepartureBoard(c.Context, origin, destination, config.TimeWindow, config.NumServices)
					if err != nil {
						return err
					}

					pretty.Println(board)

					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "check the API key and the configured stations",
				Flags: []cli.Flag{configFlag()},
				Action: func(c *cli.Context) error {
					config, err := LoadConfig(c.String("config"))
					if err != nil {
						return err
					}

					client := newClient(config)

					if _, err := client.ValidateAPIKey(c.Context); err != nil {
						log.Error().Str("category", ldbws.Category(err)).Err(err).Msg("API key rejected")
						return err
					}
					log.Info().Msg("API key valid")

					stations, err := validateStations(c.Context, client, config.Origin, config.Destination)
					if err != nil {
						log.Error().Str("category", ldbws.Category(err)).Err(err).Msg("Station validation failed")
						return err
					}

					for _, station := range stations {
						log.Info().Str("crs", station.Code).Str("name", station.Name).Msg("Station valid")
					}

					return nil
				},
			},
		},
	}
}

type stationName struct {
	Code string
	Name string
}

func validateStations(ctx context.Context, validator routes.StationValidator, codes ...string) ([]stationName, error) {
	p := pool.NewWithResults[stationName]().WithContext(ctx)

	for _, code := range codes {
		p.Go(func(ctx context.Context) (stationName, error) {
			name, err := validator.ValidateStation(ctx, code)
			if err != nil {
				return stationName{}, fmt.Errorf("%s: %w", code, err)
			}

			return stationName{Code: code, Name: name}, nil
		})
	}

	return p.Wait()
}

func newClient(config *Config) *ldbws.Client {
	client := ldbws.NewClient(config.APIKey)
	client.RequestTimeout = time.Duration(config.RequestTimeout)
	client.MaxRetries = config.MaxRetries
	client.BackoffUnit = time.Duration(config.BackoffUnit)

	return client
}

// newStore uses redis when TRAVIGO_REDIS_ADDRESS is set so snapshots survive restarts
func newStore(ctx context.Context, config *Config) (snapshotcache.Store, error) {
	if !redis_client.Configured() {
		return snapshotcache.NewMemoryStore(), nil
	}

	if err := redis_client.Connect(ctx); err != nil {
		return nil, err
	}

	return snapshotcache.NewRedisStore(redis_client.Client, SnapshotKey(config), time.Duration(config.StaleAfter)), nil
}

func SnapshotKey(config *Config) string {
	return fmt.Sprintf("railcommute:snapshot:%s:%s", config.Origin, config.Destination)
}
