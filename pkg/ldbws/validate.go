package ldbws

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// Any busy station works for checking the API key
const apiKeyCheckStation = "PAD"

// ValidateStation checks a CRS code against the gateway and returns the station name.
// Authentication and rate limit errors are returned as they are, every other failure is an invalid station.
func (c *Client) ValidateStation(ctx context.Context, code string) (string, error) {
	if len(code) != 3 {
		return "", newError(ErrInvalidStation, MessageInvalidStation, 0, nil)
	}

	code = strings.ToUpper(code)
	log.Debug().Str("crs", code).Msg("Validating station code")

	raw, err := c.request(ctx, fmt.Sprintf("GetDepartureBoard/%s", code), url.Values{"numRows": []string{"1"}})
	if err != nil {
		if errors.Is(err, ErrAuthentication) || errors.Is(err, ErrRateLimit) {
			return "", err
		}

		log.Error().Err(err).Str("crs", code).Msg("Station validation failed")
		return "", newError(ErrInvalidStation, MessageInvalidStation, 0, err)
	}

	board, err := decodeStationBoard(raw)
	if err != nil {
		log.Error().Err(err).Str("crs", code).Msg("Station validation failed")
		return "", newError(ErrInvalidStation, MessageInvalidStation, 0, err)
	}
	if board.LocationName == "" {
		return "", newError(ErrInvalidStation, MessageInvalidStation, 0, nil)
	}

	log.Debug().Str("crs", code).Str("name", board.LocationName).Msg("Station validated")

	return board.LocationName, nil
}

// ValidateAPIKey makes a minimal request with the configured key, any failure means the key is unusable
func (c *Client) ValidateAPIKey(ctx context.Context) (bool, error) {
	log.Debug().Msg("Validating API key")

	_, err := c.request(ctx, fmt.Sprintf("GetDepartureBoard/%s", apiKeyCheckStation), url.Values{"numRows": []string{"1"}})
	if err != nil {
		if errors.Is(err, ErrAuthentication) {
			return false, err
		}

		log.Error().Err(err).Msg("API key validation failed")
		return false, newError(ErrAuthentication, MessageAuthentication, 0, err)
	}

	return true, nil
}
