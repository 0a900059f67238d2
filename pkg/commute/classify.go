package commute

import (
	"github.com/travigo/railcommute/pkg/ctdf"
	"github.com/travigo/railcommute/pkg/util"
)

// Disruption is the delay and cancellation breakdown of a set of trains
type Disruption struct {
	OnTimeCount    int
	DelayedCount   int
	CancelledCount int

	MinorDelayCount  int
	MajorDelayCount  int
	SevereDelayCount int

	MaxDelayMinutes int
	Reasons         []string
}

// ClassifyStatus gives the overall commute status. Any cancellation is Critical, otherwise the largest
// delay is checked against the thresholds from severe down to minor and the first one reached wins.
func ClassifyStatus(services []ctdf.ServiceRecord, thresholds ThresholdConfig) ctdf.OverallStatus {
	maxDelay := 0

	for _, service := range services {
		if service.IsCancelled {
			return ctdf.OverallStatusCritical
		}

		maxDelay = max(maxDelay, service.DelayMinutes)
	}

	return statusForDelay(maxDelay, thresholds)
}

func statusForDelay(delay int, thresholds ThresholdConfig) ctdf.OverallStatus {
	switch {
	case delay >= thresholds.Severe:
		return ctdf.OverallStatusSevereDisruption
	case delay >= thresholds.Major:
		return ctdf.OverallStatusMajorDelays
	case delay >= thresholds.Minor:
		return ctdf.OverallStatusMinorDelays
	default:
		return ctdf.OverallStatusNormal
	}
}

func CollectDisruption(services []ctdf.ServiceRecord, thresholds ThresholdConfig) Disruption {
	disruption := Disruption{}
	var reasons []string

	for _, service := range services {
		switch service.Status {
		case ctdf.ServiceStatusCancelled:
			disruption.CancelledCount++
		case ctdf.ServiceStatusDelayed:
			disruption.DelayedCount++
		default:
			disruption.OnTimeCount++
		}

		reasons = append(reasons, service.CancellationReason, service.DelayReason)

		if service.IsCancelled {
			continue
		}

		disruption.MaxDelayMinutes = max(disruption.MaxDelayMinutes, service.DelayMinutes)

		switch statusForDelay(service.DelayMinutes, thresholds) {
		case ctdf.OverallStatusSevereDisruption:
			disruption.SevereDelayCount++
		case ctdf.OverallStatusMajorDelays:
			disruption.MajorDelayCount++
		case ctdf.OverallStatusMinorDelays:
			disruption.MinorDelayCount++
		}
	}

	disruption.Reasons = util.RemoveDuplicateStrings(reasons, []string{})

	return disruption
}
