package commute

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/railcommute/pkg/ctdf"
	"github.com/travigo/railcommute/pkg/util"
)

// DepartedGracePeriod is how long after its departure time a train is still shown
const DepartedGracePeriod = 2 * time.Minute

// FilterDeparted drops trains that left more than the grace period before now.
// Cancelled trains and trains with an unreadable departure time are always kept.
// now should already be in the timezone of the departure board.
func FilterDeparted(services []ctdf.ServiceRecord, now time.Time) []ctdf.ServiceRecord {
	filtered := make([]ctdf.ServiceRecord, len(services))
	copy(filtered, services)

	currentMinutes := util.ClockMinutes(now)
	graceMinutes := int(DepartedGracePeriod.Minutes())

	util.InPlaceFilter(&filtered, func(service ctdf.ServiceRecord) bool {
		if service.IsCancelled {
			return true
		}

		departureMinutes, ok := util.ParseClockTime(service.DepartureTime())
		if !ok {
			return true
		}

		difference := departureMinutes - currentMinutes
		if difference < -util.MinutesPerDay/2 {
			difference += util.MinutesPerDay
		} else if difference > util.MinutesPerDay/2 {
			difference -= util.MinutesPerDay
		}

		if difference >= -graceMinutes {
			return true
		}

		log.Debug().
			Str("serviceid", service.ServiceID).
			Str("scheduled", service.ScheduledDeparture).
			Str("expected", service.ExpectedDeparture).
			Str("now", now.Format("15:04")).
			Msg("Filtering out departed train")

		return false
	})

	return filtered
}
