package redis_client

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/railcommute/pkg/util"
)

var Client *redis.Client

const defaultConnectionPassword = ""
const defaultDatabase = 0

// Configured reports whether a redis address has been provided in the environment
func Configured() bool {
	return util.GetEnvironmentVariables()["TRAVIGO_REDIS_ADDRESS"] != ""
}

func Connect(ctx context.Context) error {
	env := util.GetEnvironmentVariables()

	address := env["TRAVIGO_REDIS_ADDRESS"]
	password := defaultConnectionPassword
	database := defaultDatabase

	if env["TRAVIGO_REDIS_PASSWORD"] != "" {
		password = env["TRAVIGO_REDIS_PASSWORD"]
	}

	if env["TRAVIGO_REDIS_DATABASE"] != "" {
		if n, err := strconv.Atoi(env["TRAVIGO_REDIS_DATABASE"]); err == nil {
			database = n
		} else {
			return err
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return err
	}

	Client = client
	log.Info().Str("address", address).Int("database", database).Msg("Redis client setup")

	return nil
}
