package commute

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/travigo/railcommute/pkg/schedule"
	"github.com/travigo/railcommute/pkg/util"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "commute.yaml"

	DefaultCommuteName = "My Rail Commute"
	DefaultTimeWindow  = 60
	DefaultNumServices = 3
	DefaultTimezone    = "Europe/London"
	DefaultListen      = ":8080"

	MinTimeWindow  = 15
	MaxTimeWindow  = 120
	MinNumServices = 1
	MaxNumServices = 10

	DefaultMaxFailedUpdates = 3
	RetryLimit              = 10
	DefaultStaleAfter       = 2 * time.Hour
)

// Duration is a time.Duration written in config as ISO8601 (PT2M) or Go syntax (2m)
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := util.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

type Config struct {
	CommuteName string `yaml:"commute_name"`
	Origin      string `yaml:"origin"`
	Destination string `yaml:"destination"`

	TimeWindow   int  `yaml:"time_window"`
	NumServices  int  `yaml:"num_services"`
	NightUpdates bool `yaml:"night_updates"`

	SevereDelayThreshold int `yaml:"severe_delay_threshold"`
	MajorDelayThreshold  int `yaml:"major_delay_threshold"`
	MinorDelayThreshold  int `yaml:"minor_delay_threshold"`

	APIKey   string `yaml:"api_key"`
	Timezone string `yaml:"timezone"`

	NightStart int                  `yaml:"night_start"`
	NightEnd   int                  `yaml:"night_end"`
	PeakHours  []schedule.HourRange `yaml:"peak_hours"`

	PeakInterval          Duration `yaml:"peak_interval"`
	OffPeakInterval       Duration `yaml:"off_peak_interval"`
	NightInterval         Duration `yaml:"night_interval"`
	NightFallbackInterval Duration `yaml:"night_fallback_interval"`

	MaxFailedUpdates int      `yaml:"max_failed_updates"`
	StaleAfter       Duration `yaml:"stale_after"`

	RequestTimeout Duration `yaml:"request_timeout"`
	MaxRetries     int      `yaml:"max_retries"`
	BackoffUnit    Duration `yaml:"backoff_unit"`

	DisruptionRule string `yaml:"disruption_rule"`
	Listen         string `yaml:"listen"`

	location *time.Location
}

func DefaultConfig() *Config {
	policy := schedule.DefaultPolicy()

	return &Config{
		CommuteName:  DefaultCommuteName,
		TimeWindow:   DefaultTimeWindow,
		NumServices:  DefaultNumServices,
		NightUpdates: policy.NightUpdates,

		SevereDelayThreshold: DefaultSevereThreshold,
		MajorDelayThreshold:  DefaultMajorThreshold,
		MinorDelayThreshold:  DefaultMinorThreshold,

		Timezone: DefaultTimezone,

		NightStart: policy.Night.Start,
		NightEnd:   policy.Night.End,
		PeakHours:  policy.PeakHours,

		PeakInterval:          Duration(policy.PeakInterval),
		OffPeakInterval:       Duration(policy.OffPeakInterval),
		NightInterval:         Duration(policy.NightInterval),
		NightFallbackInterval: Duration(policy.NightFallbackInterval),

		MaxFailedUpdates: DefaultMaxFailedUpdates,
		StaleAfter:       Duration(DefaultStaleAfter),

		RequestTimeout: Duration(30 * time.Second),
		MaxRetries:     3,
		BackoffUnit:    Duration(time.Second),

		DisruptionRule: DefaultDisruptionRule,
		Listen:         DefaultListen,
	}
}

// LoadConfig builds the config from the defaults, then the yaml file at path, then TRAVIGO_* environment variables.
// A missing file at the default path is not an error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		configYaml, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist) && path == DefaultConfigPath:
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(configYaml, config); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := config.applyEnvironment(util.GetEnvironmentVariables()); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnvironment(env map[string]string) error {
	apiKey, err := util.GetEnvironmentSecret(env, "TRAVIGO_LDBWS_API_KEY")
	if err == nil {
		c.APIKey = apiKey
	} else if _, missing := err.(util.MissingEnvironmentKey); !missing {
		return err
	}

	overrides := map[string]func(string) error{
		"TRAVIGO_COMMUTE_NAME":                    stringSetter(&c.CommuteName),
		"TRAVIGO_COMMUTE_ORIGIN":                  stringSetter(&c.Origin),
		"TRAVIGO_COMMUTE_DESTINATION":             stringSetter(&c.Destination),
		"TRAVIGO_COMMUTE_TIME_WINDOW":             intSetter(&c.TimeWindow),
		"TRAVIGO_COMMUTE_NUM_SERVICES":            intSetter(&c.NumServices),
		"TRAVIGO_COMMUTE_NIGHT_UPDATES":           boolSetter(&c.NightUpdates),
		"TRAVIGO_COMMUTE_SEVERE_DELAY_THRESHOLD":  intSetter(&c.SevereDelayThreshold),
		"TRAVIGO_COMMUTE_MAJOR_DELAY_THRESHOLD":   intSetter(&c.MajorDelayThreshold),
		"TRAVIGO_COMMUTE_MINOR_DELAY_THRESHOLD":   intSetter(&c.MinorDelayThreshold),
		"TRAVIGO_COMMUTE_TIMEZONE":                stringSetter(&c.Timezone),
		"TRAVIGO_COMMUTE_NIGHT_START":             intSetter(&c.NightStart),
		"TRAVIGO_COMMUTE_NIGHT_END":               intSetter(&c.NightEnd),
		"TRAVIGO_COMMUTE_PEAK_HOURS":              hourRangesSetter(&c.PeakHours),
		"TRAVIGO_COMMUTE_PEAK_INTERVAL":           durationSetter(&c.PeakInterval),
		"TRAVIGO_COMMUTE_OFF_PEAK_INTERVAL":       durationSetter(&c.OffPeakInterval),
		"TRAVIGO_COMMUTE_NIGHT_INTERVAL":          durationSetter(&c.NightInterval),
		"TRAVIGO_COMMUTE_NIGHT_FALLBACK_INTERVAL": durationSetter(&c.NightFallbackInterval),
		"TRAVIGO_COMMUTE_STALE_AFTER":             durationSetter(&c.StaleAfter),
		"TRAVIGO_COMMUTE_MAX_FAILED_UPDATES":      intSetter(&c.MaxFailedUpdates),
		"TRAVIGO_COMMUTE_DISRUPTION_RULE":         stringSetter(&c.DisruptionRule),
		"TRAVIGO_COMMUTE_LISTEN":                  stringSetter(&c.Listen),
		"TRAVIGO_LDBWS_REQUEST_TIMEOUT":           durationSetter(&c.RequestTimeout),
		"TRAVIGO_LDBWS_MAX_RETRIES":               intSetter(&c.MaxRetries),
		"TRAVIGO_LDBWS_BACKOFF_UNIT":              durationSetter(&c.BackoffUnit),
	}

	for key, set := range overrides {
		value, ok := env[key]
		if !ok || value == "" {
			continue
		}

		if err := set(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	return nil
}

func stringSetter(field *string) func(string) error {
	return func(value string) error {
		*field = value
		return nil
	}
}

func intSetter(field *int) func(string) error {
	return func(value string) error {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		*field = parsed
		return nil
	}
}

func boolSetter(field *bool) func(string) error {
	return func(value string) error {
		switch strings.ToUpper(value) {
		case "YES", "TRUE", "1":
			*field = true
		case "NO", "FALSE", "0":
			*field = false
		default:
			return fmt.Errorf("invalid boolean %q", value)
		}
		return nil
	}
}

func durationSetter(field *Duration) func(string) error {
	return func(value string) error {
		parsed, err := util.ParseDuration(value)
		if err != nil {
			return err
		}
		*field = Duration(parsed)
		return nil
	}
}

// hourRangesSetter reads comma separated hour ranges, for example "6-10,16-20"
func hourRangesSetter(field *[]schedule.HourRange) func(string) error {
	return func(value string) error {
		var ranges []schedule.HourRange

		for _, part := range strings.Split(value, ",") {
			start, end, found := strings.Cut(strings.TrimSpace(part), "-")
			if !found {
				return fmt.Errorf("invalid hour range %q", part)
			}

			startHour, err := strconv.Atoi(strings.TrimSpace(start))
			if err != nil {
				return err
			}
			endHour, err := strconv.Atoi(strings.TrimSpace(end))
			if err != nil {
				return err
			}

			ranges = append(ranges, schedule.HourRange{Start: startHour, End: endHour})
		}

		*field = ranges
		return nil
	}
}

// Validate checks the route and limits and normalises the station codes to upper case.
// Delay thresholds are not checked here, an invalid set falls back to the defaults in Thresholds.
func (c *Config) Validate() error {
	var errs []error

	c.Origin = strings.ToUpper(strings.TrimSpace(c.Origin))
	c.Destination = strings.ToUpper(strings.TrimSpace(c.Destination))

	if !isStationCode(c.Origin) {
		errs = append(errs, fmt.Errorf("origin %q is not a 3 letter CRS code", c.Origin))
	}
	if !isStationCode(c.Destination) {
		errs = append(errs, fmt.Errorf("destination %q is not a 3 letter CRS code", c.Destination))
	}
	if c.Origin != "" && c.Origin == c.Destination {
		errs = append(errs, errors.New("origin and destination must be different stations"))
	}
	if c.TimeWindow < MinTimeWindow || c.TimeWindow > MaxTimeWindow {
		errs = append(errs, fmt.Errorf("time window %d must be between %d and %d minutes", c.TimeWindow, MinTimeWindow, MaxTimeWindow))
	}
	if c.NumServices < MinNumServices || c.NumServices > MaxNumServices {
		errs = append(errs, fmt.Errorf("number of services %d must be between %d and %d", c.NumServices, MinNumServices, MaxNumServices))
	}
	if c.APIKey == "" {
		errs = append(errs, errors.New("api key is not set"))
	}
	if c.MaxFailedUpdates < 1 {
		errs = append(errs, errors.New("max failed updates must be at least 1"))
	}
	if c.MaxRetries < 0 || c.MaxRetries > RetryLimit {
		errs = append(errs, fmt.Errorf("max retries %d must be between 0 and %d", c.MaxRetries, RetryLimit))
	}

	durations := []struct {
		name  string
		value Duration
	}{
		{"peak interval", c.PeakInterval},
		{"off peak interval", c.OffPeakInterval},
		{"night interval", c.NightInterval},
		{"night fallback interval", c.NightFallbackInterval},
		{"stale after", c.StaleAfter},
		{"request timeout", c.RequestTimeout},
		{"backoff unit", c.BackoffUnit},
	}
	for _, duration := range durations {
		if duration.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", duration.name, time.Duration(duration.value)))
		}
	}

	if err := validateHourRange("night", schedule.HourRange{Start: c.NightStart, End: c.NightEnd}); err != nil {
		errs = append(errs, err)
	}
	for _, peak := range c.PeakHours {
		if err := validateHourRange("peak hours", peak); err != nil {
			errs = append(errs, err)
		}
	}

	if _, err := NewDisruptionRule(c.DisruptionRule); err != nil {
		errs = append(errs, err)
	}

	location, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	} else {
		c.location = location
	}

	return errors.Join(errs...)
}

// validateHourRange accepts start hours 0-23 and end hours 0-24, end being exclusive
func validateHourRange(name string, hours schedule.HourRange) error {
	if hours.Start < 0 || hours.Start > 23 || hours.End < 0 || hours.End > 24 {
		return fmt.Errorf("%s %d-%d must use hours between 0 and 24", name, hours.Start, hours.End)
	}

	return nil
}

func isStationCode(code string) bool {
	if len(code) != 3 {
		return false
	}

	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}

	return true
}

func (c *Config) Location() *time.Location {
	if c.location == nil {
		location, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return time.UTC
		}
		c.location = location
	}

	return c.location
}

func (c *Config) Thresholds() ThresholdConfig {
	return NewThresholdConfig(c.SevereDelayThreshold, c.MajorDelayThreshold, c.MinorDelayThreshold)
}

func (c *Config) SchedulePolicy() schedule.Policy {
	return schedule.Policy{
		Night:        schedule.HourRange{Start: c.NightStart, End: c.NightEnd},
		NightUpdates: c.NightUpdates,
		PeakHours:    c.PeakHours,

		PeakInterval:          time.Duration(c.PeakInterval),
		OffPeakInterval:       time.Duration(c.OffPeakInterval),
		NightInterval:         time.Duration(c.NightInterval),
		NightFallbackInterval: time.Duration(c.NightFallbackInterval),
	}
}
