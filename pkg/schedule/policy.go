package schedule

import (
	"time"
)

type Band string

const (
	BandNight   Band = "night"
	BandPeak    Band = "peak"
	BandOffPeak Band = "off_peak"
)

// HourRange is a range of whole hours, start inclusive and end exclusive.
// A start after the end wraps past midnight.
type HourRange struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

func (h HourRange) Contains(hour int) bool {
	if h.Start <= h.End {
		return hour >= h.Start && hour < h.End
	}

	return hour >= h.Start || hour < h.End
}

// Policy picks how often the departure board is polled depending on the time of day
type Policy struct {
	Night        HourRange
	NightUpdates bool
	PeakHours    []HourRange

	PeakInterval          time.Duration
	OffPeakInterval       time.Duration
	NightInterval         time.Duration
	NightFallbackInterval time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Night:        HourRange{Start: 23, End: 5},
		NightUpdates: false,
		PeakHours: []HourRange{
			{Start: 6, End: 10},
			{Start: 16, End: 20},
		},

		PeakInterval:          2 * time.Minute,
		OffPeakInterval:       5 * time.Minute,
		NightInterval:         15 * time.Minute,
		NightFallbackInterval: time.Hour,
	}
}

func (p Policy) Band(now time.Time) Band {
	hour := now.Hour()

	if p.Night.Contains(hour) {
		return BandNight
	}

	for _, peak := range p.PeakHours {
		if peak.Contains(hour) {
			return BandPeak
		}
	}

	return BandOffPeak
}

// IntervalFor returns the polling interval to use at now.
// With night updates disabled the long fallback interval is still returned so polling resumes in the morning.
func (p Policy) IntervalFor(now time.Time) time.Duration {
	switch p.Band(now) {
	case BandNight:
		if p.NightUpdates {
			return p.NightInterval
		}
		return p.NightFallbackInterval
	case BandPeak:
		return p.PeakInterval
	default:
		return p.OffPeakInterval
	}
}
