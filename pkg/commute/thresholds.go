package commute

import (
	"github.com/rs/zerolog/log"
)

const (
	MinThreshold = 1
	MaxThreshold = 60

	DefaultSevereThreshold = 15
	DefaultMajorThreshold  = 10
	DefaultMinorThreshold  = 3
)

// ThresholdConfig holds the delay (in minutes) at which the commute is classed as severe, major or minor.
// Always MaxThreshold >= severe >= major >= minor >= MinThreshold.
type ThresholdConfig struct {
	Severe int
	Major  int
	Minor  int
}

func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		Severe: DefaultSevereThreshold,
		Major:  DefaultMajorThreshold,
		Minor:  DefaultMinorThreshold,
	}
}

// NewThresholdConfig returns the given thresholds if they are correctly ordered, otherwise all three defaults.
// A bad set is never partially corrected.
func NewThresholdConfig(severe int, major int, minor int) ThresholdConfig {
	if minor < MinThreshold || major < minor || severe < major || severe > MaxThreshold {
		defaults := DefaultThresholds()

		log.Warn().
			Int("severe", severe).
			Int("major", major).
			Int("minor", minor).
			Int("defaultsevere", defaults.Severe).
			Int("defaultmajor", defaults.Major).
			Int("defaultminor", defaults.Minor).
			Msg("Invalid delay thresholds, they must be 60 >= severe >= major >= minor >= 1. Using defaults")

		return defaults
	}

	return ThresholdConfig{
		Severe: severe,
		Major:  major,
		Minor:  minor,
	}
}
