package routes

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/travigo/railcommute/pkg/ldbws"
)

type StationValidator interface {
	ValidateStation(ctx context.Context, code string) (string, error)
}

func StationsRouter(router fiber.Router, validator StationValidator) {
	router.Get("/:crs", func(c *fiber.Ctx) error {
		return getStation(c, validator)
	})
}

func getStation(c *fiber.Ctx, validator StationValidator) error {
	crs := strings.ToUpper(c.Params("crs"))

	name, err := validator.ValidateStation(c.UserContext(), crs)
	if err != nil {
		switch {
		case errors.Is(err, ldbws.ErrInvalidStation):
			c.SendStatus(fiber.StatusNotFound)
		case errors.Is(err, ldbws.ErrRateLimit):
			c.SendStatus(fiber.StatusTooManyRequests)
		default:
			c.SendStatus(fiber.StatusBadGateway)
		}

		return c.JSON(fiber.Map{
			"error":    err.Error(),
			"category": ldbws.Category(err),
		})
	}

	return c.JSON(fiber.Map{
		"crs":  crs,
		"name": name,
	})
}
