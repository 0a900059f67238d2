package ctdf

// ServiceRecord is one scheduled train on the departure board, normalised from the provider data.
// Records are rebuilt on every poll and never mutated afterwards.
type ServiceRecord struct {
	ServiceID string `json:"service_id" groups:"basic"`
	Operator  string `json:"operator" groups:"basic"`

	Destination string `json:"destination" groups:"basic"`

	ScheduledDeparture string `json:"scheduled_departure" groups:"basic"`
	ExpectedDeparture  string `json:"expected_departure" groups:"basic"`

	Platform string `json:"platform" groups:"basic"`

	Status       ServiceStatus `json:"status" groups:"basic"`
	IsCancelled  bool          `json:"is_cancelled" groups:"basic"`
	DelayMinutes int           `json:"delay_minutes" groups:"basic"`

	CancellationReason string `json:"cancellation_reason,omitempty" groups:"basic"`
	DelayReason        string `json:"delay_reason,omitempty" groups:"basic"`

	CallingPoints    []string `json:"calling_points" groups:"detailed"`
	ScheduledArrival string   `json:"scheduled_arrival,omitempty" groups:"detailed"`
	EstimatedArrival string   `json:"estimated_arrival,omitempty" groups:"detailed"`
}

type ServiceStatus string

const (
	ServiceStatusOnTime    ServiceStatus = "on_time"
	ServiceStatusDelayed   ServiceStatus = "delayed"
	ServiceStatusCancelled ServiceStatus = "cancelled"
)

const PlatformToBeAnnounced = "TBA"

// DepartureTime is the expected departure falling back to the scheduled one
func (s *ServiceRecord) DepartureTime() string {
	if s.ExpectedDeparture != "" {
		return s.ExpectedDeparture
	}

	return s.ScheduledDeparture
}

func (s *ServiceRecord) DisplayPlatform() string {
	if s.Platform == "" {
		return PlatformToBeAnnounced
	}

	return s.Platform
}

// DisplayStatus is the short human readable departure state of the train
func (s *ServiceRecord) DisplayStatus() string {
	switch {
	case s.IsCancelled:
		return "Cancelled"
	case s.DelayMinutes > 0:
		return "Delayed"
	case s.ExpectedDeparture != "" && s.ExpectedDeparture != s.ScheduledDeparture:
		return "Expected"
	default:
		return "On Time"
	}
}

// EstimatedDeparture rebuilds the provider style estimate ("On time", "Cancelled" or a time) from the record
func (s *ServiceRecord) EstimatedDeparture() string {
	switch s.Status {
	case ServiceStatusCancelled:
		return "Cancelled"
	case ServiceStatusDelayed:
		return s.ExpectedDeparture
	default:
		return "On time"
	}
}
